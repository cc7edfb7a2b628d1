// Point Viewer kiosk - a bare SDL window showing one model, no UI chrome.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"

	"github.com/Faultbox/pointview/internal/config"
	"github.com/Faultbox/pointview/internal/engine/adapter"
	"github.com/Faultbox/pointview/internal/engine/geometry"
	"github.com/Faultbox/pointview/internal/engine/input"
	"github.com/Faultbox/pointview/internal/engine/orient"
	"github.com/Faultbox/pointview/internal/engine/renderer"
	"github.com/Faultbox/pointview/internal/engine/snapshot"
	"github.com/Faultbox/pointview/internal/engine/texture"
	"github.com/Faultbox/pointview/internal/engine/window"
	"github.com/Faultbox/pointview/internal/host"
	"github.com/Faultbox/pointview/internal/logger"
	"github.com/Faultbox/pointview/internal/session"
	"github.com/Faultbox/pointview/internal/viewer"
)

func main() {
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("=== Point Viewer (kiosk) ===")

	if cfg.Viewer.Model == "" {
		logger.Error("no model given; pass -model or a path argument")
		os.Exit(2)
	}

	k, err := newKiosk(cfg)
	if err != nil {
		logger.Error("failed to start", zap.Error(err))
		os.Exit(1)
	}
	defer k.Close()

	if err := k.Run(); err != nil {
		logger.Error("kiosk error", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("kiosk closed normally")
}

// previewMaxSide bounds the preview texture size.
const previewMaxSide = 2048

// kiosk drives one session from a plain SDL loop.
type kiosk struct {
	cfg     *config.Config
	window  *window.Window
	input   *input.Input
	loop    *host.Loop
	session *session.Session
	capture *snapshot.Capture
	log     *zap.Logger
	running bool

	// Preloader image shown while the model loads
	preview     *texture.Texture
	previewPath string
}

func newKiosk(cfg *config.Config) (*kiosk, error) {
	win, err := window.New(window.Config{
		Title:      cfg.Window.Title,
		Width:      cfg.Window.Width,
		Height:     cfg.Window.Height,
		Fullscreen: cfg.Window.Fullscreen,
		VSync:      cfg.Window.VSync,
	})
	if err != nil {
		return nil, fmt.Errorf("creating window: %w", err)
	}

	if err := renderer.InitGL(); err != nil {
		win.Close()
		return nil, err
	}

	k := &kiosk{
		cfg:     cfg,
		window:  win,
		input:   input.New(),
		loop:    host.New(),
		capture: snapshot.New(cfg.Snapshot.Dir, cfg.Snapshot.Prefix),
		log:     logger.Named("kiosk"),
	}

	loader := geometry.NewLoader(k.loop, nil)
	engine := adapter.NewEngine(loader, adapter.Options{
		AutoRotateSpeed: cfg.Controls.AutoRotateSpeed,
		DragSensitivity: cfg.Controls.DragSensitivity,
	})
	orienter := orient.New(k.loop, orient.Config{
		Enabled:  cfg.Preview.AutoOrient,
		CacheDir: cfg.Preview.CacheDir,
		Timeout:  cfg.Preview.FetchTimeout,
	})

	opts := session.OptionsFromConfig(cfg)
	opts.OnStateChange = func(s viewer.State) {
		k.window.SetTitle(fmt.Sprintf("%s - %s", cfg.Window.Title, s))
	}
	k.session = session.New(k.loop, engine, orienter, opts)

	// A failed mount leaves the viewer in its error state; the title shows it
	if err := k.session.Mount(viewer.ModelReference{
		GeometryURL:  cfg.Viewer.Model,
		PreviewImage: cfg.Viewer.PreviewImage,
	}); err != nil {
		k.log.Error("mount failed", zap.Error(err))
	}
	return k, nil
}

// Run loops until the window closes or Escape is pressed.
func (k *kiosk) Run() error {
	k.running = true

	frameCount := 0
	fpsTimer := time.Now()

	for k.running {
		frame := k.input.Poll()
		if frame.Quit || frame.KeyPressed(sdl.SCANCODE_ESCAPE) {
			k.running = false
			break
		}

		surface, _ := k.session.Surface().(*renderer.Surface)
		if surface != nil {
			if frame.Dragging() {
				surface.Drag(frame.DragX, frame.DragY)
			}
			if frame.Wheel != 0 {
				surface.Wheel(frame.Wheel)
			}
		}

		k.session.Tick()
		k.present(surface)

		// Read back before the swap so the back buffer still holds this frame
		if frame.KeyPressed(sdl.SCANCODE_F12) {
			k.snapshot()
		}

		k.window.SwapBuffers()

		frameCount++
		if time.Since(fpsTimer) >= time.Second {
			k.log.Debug("fps", zap.Int("count", frameCount), zap.Uint64("frames", k.framesRendered()))
			frameCount = 0
			fpsTimer = time.Now()
		}
	}
	return nil
}

// present clears the window and letterboxes the render surface into it.
func (k *kiosk) present(surface *renderer.Surface) {
	dw, dh := k.window.DrawableSize()
	bg := k.cfg.Render.Background

	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.Viewport(0, 0, int32(dw), int32(dh))
	gl.ClearColor(bg[0], bg[1], bg[2], 1)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)

	if surface == nil {
		k.presentPreview(dw, dh)
		return
	}
	k.releasePreview()

	sw, sh := surface.Size()
	surface.BlitTo(letterbox(sw, sh, dw, dh))
}

// presentPreview draws the preview image while the model loads.
func (k *kiosk) presentPreview(dw, dh int) {
	ctrl := k.session.Controller()
	if ctrl == nil || ctrl.State() != viewer.StateLoading {
		k.releasePreview()
		return
	}

	if ref := ctrl.PreviewImage(); ref != k.previewPath {
		k.releasePreview()
		k.previewPath = ref
		k.preview = k.loadPreview(ref)
	}
	if k.preview == nil {
		return
	}

	x0, y0, x1, y1 := letterbox(k.preview.Width, k.preview.Height, dw, dh)
	k.preview.BlitTo(x0, y0, x1, y1)
}

func (k *kiosk) loadPreview(ref string) *texture.Texture {
	path, ok := texture.LocalPath(ref)
	if ref == "" || !ok {
		return nil
	}
	img, err := texture.LoadImage(path, previewMaxSide)
	if err != nil {
		k.log.Warn("cannot load preview", zap.String("path", path), zap.Error(err))
		return nil
	}
	tex, err := texture.Upload(img)
	if err != nil {
		k.log.Warn("cannot upload preview", zap.Error(err))
		return nil
	}
	return tex
}

func (k *kiosk) releasePreview() {
	if k.preview != nil {
		k.preview.Destroy()
		k.preview = nil
	}
	k.previewPath = ""
}

// snapshot saves what the window currently shows.
func (k *kiosk) snapshot() {
	w, h := k.window.DrawableSize()
	pixels := make([]byte, w*h*4)
	gl.ReadPixels(0, 0, int32(w), int32(h), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pixels))

	path, err := k.capture.SaveGLPixels(pixels, w, h)
	if err != nil {
		k.log.Error("snapshot failed", zap.Error(err))
		return
	}
	k.log.Info("snapshot saved", zap.String("path", path))
}

func (k *kiosk) framesRendered() uint64 {
	if ctrl := k.session.Controller(); ctrl != nil {
		return ctrl.Frames()
	}
	return 0
}

// Close tears down the viewer before the GL context goes away.
func (k *kiosk) Close() {
	if k.session != nil {
		k.session.Close()
	}
	k.releasePreview()
	if k.window != nil {
		k.window.Close()
		k.window = nil
	}
}

// letterbox scales srcW x srcH to fit dstW x dstH, centered, and returns the
// destination rectangle.
func letterbox(srcW, srcH, dstW, dstH int) (x0, y0, x1, y1 int32) {
	if srcW <= 0 || srcH <= 0 || dstW <= 0 || dstH <= 0 {
		return 0, 0, 0, 0
	}
	scale := float64(dstW) / float64(srcW)
	if s := float64(dstH) / float64(srcH); s < scale {
		scale = s
	}
	w := int32(float64(srcW) * scale)
	h := int32(float64(srcH) * scale)
	x0 = (int32(dstW) - w) / 2
	y0 = (int32(dstH) - h) / 2
	return x0, y0, x0 + w, y0 + h
}
