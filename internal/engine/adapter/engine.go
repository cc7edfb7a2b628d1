// Package adapter exposes the GL engine packages through the capability
// interfaces the viewer controller sequences.
package adapter

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/pointview/internal/engine/camera"
	"github.com/Faultbox/pointview/internal/engine/geometry"
	"github.com/Faultbox/pointview/internal/engine/renderer"
	"github.com/Faultbox/pointview/internal/engine/scene"
	"github.com/Faultbox/pointview/internal/logger"
	"github.com/Faultbox/pointview/internal/viewer"
)

// Options tunes the engine beyond what the controller asks for.
type Options struct {
	AutoRotateSpeed float32 // Degrees per second
	DragSensitivity float32
	// Now is the clock driving auto-rotation. Defaults to time.Now.
	Now func() time.Time
}

// Engine implements viewer.Engine on top of the GL packages.
type Engine struct {
	loader *geometry.Loader
	opts   Options
	log    *zap.Logger
}

var _ viewer.Engine = (*Engine)(nil)

// NewEngine creates an engine loading geometry through loader.
func NewEngine(loader *geometry.Loader, opts Options) *Engine {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{
		loader: loader,
		opts:   opts,
		log:    logger.Named("engine"),
	}
}

// LoadGeometry starts an asynchronous load.
func (e *Engine) LoadGeometry(ctx context.Context, url string,
	onSuccess func(viewer.Geometry), onProgress func(viewer.Progress), onFailure func(error)) {
	e.loader.Load(ctx, url,
		func(g *geometry.Geometry) { onSuccess(g) },
		func(loaded, total int64) {
			if onProgress != nil {
				onProgress(viewer.Progress{Loaded: loaded, Total: total})
			}
		},
		onFailure)
}

// CreateScene returns an empty scene.
func (e *Engine) CreateScene() viewer.Scene {
	return scene.New()
}

// CreateCamera returns a perspective camera.
func (e *Engine) CreateCamera(cfg viewer.CameraConfig) viewer.Camera {
	return camera.NewPerspectiveCamera(cfg.FOV, cfg.Aspect, cfg.Near, cfg.Far)
}

// CreateRenderer creates an offscreen renderer. Requires a current GL context.
func (e *Engine) CreateRenderer(width, height int) (viewer.Renderer, error) {
	r, err := renderer.New(renderer.Config{Width: width, Height: height})
	if err != nil {
		return nil, err
	}
	return &glRenderer{r: r}, nil
}

// NewPoints wraps a loaded geometry as a point renderable.
func (e *Engine) NewPoints(geom viewer.Geometry, mat viewer.PointMaterial) viewer.Object {
	g, ok := geom.(*geometry.Geometry)
	if !ok {
		e.log.Error("unsupported geometry", zap.String("type", fmt.Sprintf("%T", geom)))
		return nil
	}
	return scene.NewPoints(g, scene.Material{
		Size:         mat.Size,
		VertexColors: mat.VertexColors,
		DoubleSided:  mat.DoubleSided,
	})
}

// AttachControls attaches orbit controls to cam and routes the surface's
// pointer input to them.
func (e *Engine) AttachControls(cam viewer.Camera, surface viewer.DrawingSurface, cfg viewer.ControlsConfig) viewer.Controls {
	pc, ok := cam.(*camera.PerspectiveCamera)
	if !ok {
		e.log.Error("unsupported camera", zap.String("type", fmt.Sprintf("%T", cam)))
		return nil
	}

	orbit := camera.NewOrbitControls(pc)
	orbit.EnableZoom = cfg.EnableZoom
	orbit.AutoRotate = cfg.AutoRotate
	if e.opts.AutoRotateSpeed > 0 {
		orbit.AutoRotateSpeed = e.opts.AutoRotateSpeed
	}
	if e.opts.DragSensitivity > 0 {
		orbit.DragSensitivity = e.opts.DragSensitivity
	}

	c := &Controls{Orbit: orbit, now: e.opts.Now}
	if s, ok := surface.(*renderer.Surface); ok {
		s.Attach(orbit)
		c.surface = s
	}
	return c
}

// Controls drives orbit controls from the render loop.
type Controls struct {
	Orbit   *camera.OrbitControls
	surface *renderer.Surface
	now     func() time.Time
	last    time.Time
}

// Update advances the controls by the wall time since the previous frame.
func (c *Controls) Update() {
	now := c.now()
	var dt float32
	if !c.last.IsZero() {
		dt = float32(now.Sub(c.last).Seconds())
	}
	c.last = now
	c.Orbit.Update(dt)
}

// Dispose stops the controls and detaches them from the surface.
func (c *Controls) Dispose() {
	c.Orbit.Dispose()
	if c.surface != nil {
		c.surface.Detach(c.Orbit)
	}
}

// glRenderer adapts renderer.Renderer to viewer.Renderer.
type glRenderer struct {
	r     *renderer.Renderer
	scene *scene.Scene
}

func (g *glRenderer) Surface() viewer.DrawingSurface {
	return g.r.Surface()
}

func (g *glRenderer) Render(s viewer.Scene, cam viewer.Camera) {
	sc, ok := s.(*scene.Scene)
	if !ok {
		return
	}
	pc, ok := cam.(*camera.PerspectiveCamera)
	if !ok {
		return
	}
	g.scene = sc
	g.r.Render(sc, pc)
}

// Dispose releases the renderer and the GPU buffers of the scene it drew.
func (g *glRenderer) Dispose() {
	if g.scene != nil {
		g.scene.Destroy()
		g.scene = nil
	}
	g.r.Close()
}
