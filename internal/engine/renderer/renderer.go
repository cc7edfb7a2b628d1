// Package renderer draws a point scene through a perspective camera into an
// offscreen framebuffer.
package renderer

import (
	"fmt"
	"image"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/pointview/internal/engine/camera"
	"github.com/Faultbox/pointview/internal/engine/framebuffer"
	"github.com/Faultbox/pointview/internal/engine/scene"
	"github.com/Faultbox/pointview/internal/engine/shader"
	"github.com/Faultbox/pointview/internal/logger"
	"github.com/Faultbox/pointview/pkg/math"
)

// InitGL loads the OpenGL function pointers. Call once after the GL context
// is current.
func InitGL() error {
	if err := gl.Init(); err != nil {
		return fmt.Errorf("failed to initialize OpenGL: %w", err)
	}
	logger.Info("OpenGL initialized",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))),
	)
	return nil
}

// Config holds renderer configuration.
type Config struct {
	Width  int
	Height int
}

// PointerHandler receives pointer input routed to a surface.
type PointerHandler interface {
	HandleDrag(deltaX, deltaY float32)
	HandleZoom(delta float32)
}

// Surface is the drawing surface a renderer produces: the framebuffer's
// color texture plus what is needed to read it back. Shells route pointer
// input over the displayed surface through Drag and Wheel.
type Surface struct {
	fb      *framebuffer.Framebuffer
	handler PointerHandler
}

// Attach makes h receive pointer input. It replaces any previous handler.
func (s *Surface) Attach(h PointerHandler) {
	s.handler = h
}

// Detach removes h if it is the current handler.
func (s *Surface) Detach(h PointerHandler) {
	if s.handler == h {
		s.handler = nil
	}
}

// Drag forwards a pointer drag delta in pixels.
func (s *Surface) Drag(deltaX, deltaY float32) {
	if s.handler != nil {
		s.handler.HandleDrag(deltaX, deltaY)
	}
}

// Wheel forwards a scroll wheel delta.
func (s *Surface) Wheel(delta float32) {
	if s.handler != nil {
		s.handler.HandleZoom(delta)
	}
}

// TextureID returns the GL texture holding the last rendered frame.
func (s *Surface) TextureID() uint32 {
	return s.fb.ColorTexture()
}

// BlitTo copies the last rendered frame into a default framebuffer rectangle.
func (s *Surface) BlitTo(x0, y0, x1, y1 int32) {
	s.fb.BlitTo(x0, y0, x1, y1)
}

// Size returns the surface size in pixels.
func (s *Surface) Size() (width, height int) {
	w, h := s.fb.Size()
	return int(w), int(h)
}

// Image reads the last rendered frame back, top row first.
func (s *Surface) Image() image.Image {
	return s.fb.ReadImage()
}

// Renderer handles all OpenGL rendering for one viewer.
type Renderer struct {
	config  Config
	fb      *framebuffer.Framebuffer
	program *shader.PointProgram
	surface *Surface
	frames  uint64
}

// New creates a renderer. The GL context must be current and initialized.
func New(cfg Config) (*Renderer, error) {
	fb, err := framebuffer.New(int32(cfg.Width), int32(cfg.Height))
	if err != nil {
		return nil, err
	}

	program, err := shader.NewPointProgram()
	if err != nil {
		fb.Destroy()
		return nil, fmt.Errorf("failed to create shader program: %w", err)
	}

	logger.Debug("renderer created",
		zap.Int("width", cfg.Width),
		zap.Int("height", cfg.Height),
		zap.Uint32("program", program.ID),
	)
	return &Renderer{
		config:  cfg,
		fb:      fb,
		program: program,
		surface: &Surface{fb: fb},
	}, nil
}

// Surface returns the drawing surface.
func (r *Renderer) Surface() *Surface {
	return r.surface
}

// Frames returns how many frames were rendered.
func (r *Renderer) Frames() uint64 {
	return r.frames
}

// Render draws s as seen by cam into the offscreen framebuffer.
func (r *Renderer) Render(s *scene.Scene, cam *camera.PerspectiveCamera) {
	restore := r.fb.BindWithViewport()
	defer restore()

	r.fb.Clear(s.Background)

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)
	gl.Enable(gl.PROGRAM_POINT_SIZE)

	gl.UseProgram(r.program.ID)

	projection := cam.ProjectionMatrix()
	view := cam.ViewMatrix()
	model := math.Identity()
	gl.UniformMatrix4fv(r.program.LocProjection, 1, false, projection.Ptr())
	gl.UniformMatrix4fv(r.program.LocView, 1, false, view.Ptr())
	gl.UniformMatrix4fv(r.program.LocModel, 1, false, model.Ptr())
	// Pixels per world unit at distance 1
	gl.Uniform1f(r.program.LocScale, float32(r.config.Height)/2)

	for _, p := range s.Points() {
		gl.Uniform1f(r.program.LocPointSize, p.Material.Size)
		p.Draw()
	}

	gl.UseProgram(0)
	r.frames++
}

// Close releases the framebuffer and shader program.
func (r *Renderer) Close() {
	logger.Debug("closing renderer", zap.Uint64("frames", r.frames))
	if r.program != nil {
		r.program.Delete()
		r.program = nil
	}
	if r.fb != nil {
		r.fb.Destroy()
		r.fb = nil
	}
}
