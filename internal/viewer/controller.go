package viewer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/pointview/internal/logger"
	"github.com/Faultbox/pointview/internal/renderloop"
)

// RenderLoop starts and stops the per-frame render chain.
type RenderLoop interface {
	Start(renderOnce func()) *renderloop.Handle
	Stop(h *renderloop.Handle)
}

// Options configures a Controller.
type Options struct {
	Width      int
	Height     int
	FOV        float32
	Near       float32
	Far        float32
	PointSize  float32
	Background [3]float32

	EnableZoom bool
	AutoRotate bool

	// LoadTimeout bounds the geometry load. Zero waits forever.
	LoadTimeout time.Duration

	// OnStateChange is called after every state transition.
	OnStateChange func(State)
	// OnProgress receives loader progress while Loading.
	OnProgress func(Progress)
}

// DefaultOptions returns the stock viewer setup: a 400x400 viewport with a
// 75 degree camera, 0.003 unit points, zoom off and auto-rotation on.
func DefaultOptions() Options {
	return Options{
		Width:      400,
		Height:     400,
		FOV:        75,
		Near:       0.1,
		Far:        1000,
		PointSize:  0.003,
		Background: [3]float32{0, 0, 0},
		EnableZoom: false,
		AutoRotate: true,
	}
}

// mountToken marks one mounted lifetime. Callbacks captured during that
// lifetime check it and do nothing once it is dead.
type mountToken struct {
	alive bool
}

// Controller owns the Loading/Ready/Error state of one viewer instance and
// sequences load, framing and rendering. All methods and callbacks run on the
// host thread, so no locking is needed.
type Controller struct {
	engine   Engine
	orienter ImageOrienter
	loop     RenderLoop
	opts     Options
	log      *zap.Logger

	state       State
	transitions int
	preview     string
	err         error
	progress    Progress

	token    *mountToken
	torn     bool
	settled  bool
	cancel   context.CancelFunc
	surface  Surface
	mounted  bool
	scene    Scene
	camera   Camera
	renderer Renderer
	controls Controls
	handle   *renderloop.Handle

	placement CameraPlacement
	framed    bool
}

// New creates a controller in the Loading state. orienter may be nil, in
// which case the preview image is shown as given.
func New(engine Engine, orienter ImageOrienter, loop RenderLoop, opts Options) *Controller {
	return &Controller{
		engine:   engine,
		orienter: orienter,
		loop:     loop,
		opts:     opts,
		log:      logger.Named("viewer"),
		state:    StateLoading,
	}
}

// Initialize starts orientation correction of the preview image and the
// geometry load. It may be called once per controller.
func (c *Controller) Initialize(ref ModelReference, surface Surface) error {
	if c.torn {
		return ErrTornDown
	}
	if c.token != nil {
		return ErrAlreadyInitialized
	}
	if surface == nil {
		return ErrNoSurface
	}

	tok := &mountToken{alive: true}
	c.token = tok
	c.surface = surface
	c.preview = ref.PreviewImage

	c.scene = c.engine.CreateScene()
	c.scene.SetBackground(c.opts.Background)
	c.camera = c.engine.CreateCamera(CameraConfig{
		FOV:    c.opts.FOV,
		Aspect: aspect(c.opts.Width, c.opts.Height),
		Near:   c.opts.Near,
		Far:    c.opts.Far,
	})
	renderer, err := c.engine.CreateRenderer(c.opts.Width, c.opts.Height)
	if err != nil {
		c.settled = true
		c.err = fmt.Errorf("%w: %w", ErrRendererUnavailable, err)
		c.log.Error("renderer creation failed", zap.Error(err))
		c.setState(StateError)
		return c.err
	}
	c.renderer = renderer

	c.log.Info("initializing",
		zap.String("geometry", ref.GeometryURL),
		zap.String("preview", ref.PreviewImage),
		zap.Duration("timeout", c.opts.LoadTimeout))

	if c.orienter != nil && ref.PreviewImage != "" {
		c.orienter.Correct(ref.PreviewImage, func(corrected string) {
			if !tok.alive {
				return
			}
			c.preview = corrected
		})
	}

	var ctx context.Context
	if c.opts.LoadTimeout > 0 {
		ctx, c.cancel = context.WithTimeout(context.Background(), c.opts.LoadTimeout)
	} else {
		ctx, c.cancel = context.WithCancel(context.Background())
	}

	c.engine.LoadGeometry(ctx, ref.GeometryURL,
		func(g Geometry) {
			if !tok.alive {
				c.log.Debug("load success after teardown ignored")
				return
			}
			c.onLoadSuccess(g)
		},
		func(p Progress) {
			if !tok.alive || c.settled {
				return
			}
			c.progress = p
			if c.opts.OnProgress != nil {
				c.opts.OnProgress(p)
			}
		},
		func(err error) {
			if !tok.alive {
				c.log.Debug("load failure after teardown ignored", zap.Error(err))
				return
			}
			c.onLoadFailure(err)
		})
	return nil
}

func (c *Controller) onLoadSuccess(g Geometry) {
	if c.settled {
		c.log.Warn("duplicate load completion ignored")
		return
	}
	c.settled = true
	c.releaseLoad()

	g.ComputeVertexNormals()
	g.Center()
	box := g.ComputeBoundingBox()

	c.placement = Frame(box)
	c.framed = true
	c.camera.SetPosition(c.placement.Position)
	c.camera.LookAt(c.placement.LookAt)

	points := c.engine.NewPoints(g, PointMaterial{
		Size:         c.opts.PointSize,
		VertexColors: true,
		DoubleSided:  true,
	})
	c.scene.Add(points)

	ds := c.renderer.Surface()
	c.surface.Mount(ds)
	c.mounted = true
	c.controls = c.engine.AttachControls(c.camera, ds, ControlsConfig{
		EnableZoom: c.opts.EnableZoom,
		AutoRotate: c.opts.AutoRotate,
	})

	c.log.Info("model ready",
		zap.Float32("distance", c.placement.Position.Z),
		zap.Any("bounds_max", box.Max))
	c.setState(StateReady)
	c.handle = c.loop.Start(c.renderOnce)
}

func (c *Controller) onLoadFailure(err error) {
	if c.settled {
		c.log.Warn("duplicate load completion ignored", zap.Error(err))
		return
	}
	c.settled = true
	c.releaseLoad()

	if errors.Is(err, context.DeadlineExceeded) {
		c.err = fmt.Errorf("%w: %w: %w", ErrGeometryLoad, ErrLoadTimeout, err)
	} else {
		c.err = fmt.Errorf("%w: %w", ErrGeometryLoad, err)
	}
	c.log.Error("model can not be shown", zap.Error(c.err))
	c.setState(StateError)
}

func (c *Controller) renderOnce() {
	if c.controls != nil {
		c.controls.Update()
	}
	c.renderer.Render(c.scene, c.camera)
}

// releaseLoad cancels the load context so its timer is released.
func (c *Controller) releaseLoad() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// Teardown stops rendering, detaches the surface and invalidates every
// pending callback. Safe to call in any state and more than once.
func (c *Controller) Teardown() {
	if c.torn {
		return
	}
	c.torn = true
	if c.token != nil {
		c.token.alive = false
	}
	c.releaseLoad()
	c.loop.Stop(c.handle)
	if c.controls != nil {
		c.controls.Dispose()
		c.controls = nil
	}
	if c.surface != nil {
		c.surface.Unmount()
		c.mounted = false
	}
	if c.renderer != nil {
		c.renderer.Dispose()
		c.renderer = nil
	}
	c.log.Debug("torn down", zap.Stringer("state", c.state))
}

func (c *Controller) setState(s State) {
	if c.state == s {
		return
	}
	c.log.Debug("state change", zap.Stringer("from", c.state), zap.Stringer("to", s))
	c.state = s
	c.transitions++
	if c.opts.OnStateChange != nil {
		c.opts.OnStateChange(s)
	}
}

// State returns the current presentation state.
func (c *Controller) State() State { return c.state }

// Transitions returns how many state changes have happened.
func (c *Controller) Transitions() int { return c.transitions }

// PreviewImage returns the preview url, orientation-corrected once the
// correction has completed.
func (c *Controller) PreviewImage() string { return c.preview }

// Err returns the failure behind the Error state, or nil.
func (c *Controller) Err() error { return c.err }

// Progress returns the last load progress report.
func (c *Controller) Progress() Progress { return c.progress }

// Placement returns the camera placement chosen at load time.
func (c *Controller) Placement() (CameraPlacement, bool) { return c.placement, c.framed }

// Surface returns the mount point passed to Initialize.
func (c *Controller) Surface() Surface { return c.surface }

// Mounted reports whether the drawing surface is currently in the mount point.
func (c *Controller) Mounted() bool { return c.mounted }

// Running reports whether the render loop is active.
func (c *Controller) Running() bool { return c.handle.Running() }

// Frames returns how many frames have been rendered.
func (c *Controller) Frames() uint64 { return c.handle.Frames() }

// Controls returns the attached orbit controls, or nil before Ready.
func (c *Controller) Controls() Controls { return c.controls }

func aspect(w, h int) float32 {
	if h <= 0 {
		return 1
	}
	return float32(w) / float32(h)
}
