// Point Viewer - shows one PLY point cloud in an auto-rotating window.
package main

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/AllenDang/cimgui-go/backend"
	"github.com/AllenDang/cimgui-go/backend/sdlbackend"
	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/sqweek/dialog"
	"go.uber.org/zap"

	"github.com/Faultbox/pointview/internal/config"
	"github.com/Faultbox/pointview/internal/engine/adapter"
	"github.com/Faultbox/pointview/internal/engine/geometry"
	"github.com/Faultbox/pointview/internal/engine/orient"
	"github.com/Faultbox/pointview/internal/engine/renderer"
	"github.com/Faultbox/pointview/internal/engine/snapshot"
	"github.com/Faultbox/pointview/internal/host"
	"github.com/Faultbox/pointview/internal/logger"
	"github.com/Faultbox/pointview/internal/session"
	"github.com/Faultbox/pointview/internal/viewer"
)

func main() {
	runtime.LockOSThread()

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

	logger.Info("=== Point Viewer ===")
	logger.Sugar.Debugf("Config: %+v", cfg)

	app, err := NewApp(cfg)
	if err != nil {
		logger.Error("failed to start", zap.Error(err))
		os.Exit(1)
	}
	defer app.Close()

	if cfg.Viewer.Model != "" {
		app.Open(viewer.ModelReference{
			GeometryURL:  cfg.Viewer.Model,
			PreviewImage: cfg.Viewer.PreviewImage,
		})
	}

	app.Run()
	logger.Info("viewer closed normally")
}

// App is the windowed viewer: an imgui shell around one session.
type App struct {
	cfg     *config.Config
	backend backend.Backend[sdlbackend.SDLWindowFlags]
	log     *zap.Logger

	loop    *host.Loop
	session *session.Session
	capture *snapshot.Capture

	// Preview texture for the loading panel
	preview     *previewTexture
	previewPath string

	// Pointer tracking over the render surface
	lastMousePos imgui.Vec2

	// Snapshot state
	snapshotRequested bool
	snapshotMsg       string
	snapshotMsgTime   time.Time
}

// NewApp creates the window and the viewer stack behind it.
func NewApp(cfg *config.Config) (*App, error) {
	app := &App{
		cfg:     cfg,
		log:     logger.Named("app"),
		loop:    host.New(),
		capture: snapshot.New(cfg.Snapshot.Dir, cfg.Snapshot.Prefix),
	}

	var err error
	app.backend, err = backend.CreateBackend(sdlbackend.NewSDLBackend())
	if err != nil {
		return nil, fmt.Errorf("creating backend: %w", err)
	}

	bg := cfg.Render.Background
	app.backend.SetBgColor(imgui.NewVec4(bg[0], bg[1], bg[2], 1.0))
	app.backend.CreateWindow(cfg.Window.Title, cfg.Window.Width, cfg.Window.Height)

	// The imgui backend owns the context; this loads function pointers for the point renderer
	if err := renderer.InitGL(); err != nil {
		return nil, err
	}

	loader := geometry.NewLoader(app.loop, nil)
	engine := adapter.NewEngine(loader, adapter.Options{
		AutoRotateSpeed: cfg.Controls.AutoRotateSpeed,
		DragSensitivity: cfg.Controls.DragSensitivity,
	})
	orienter := orient.New(app.loop, orient.Config{
		Enabled:  cfg.Preview.AutoOrient,
		CacheDir: cfg.Preview.CacheDir,
		Timeout:  cfg.Preview.FetchTimeout,
	})

	opts := session.OptionsFromConfig(cfg)
	opts.OnStateChange = app.onStateChange
	app.session = session.New(app.loop, engine, orienter, opts)

	return app, nil
}

// Open mounts ref, replacing whatever is shown.
func (app *App) Open(ref viewer.ModelReference) {
	if err := app.session.Mount(ref); err != nil {
		app.log.Error("mount failed", zap.String("geometry", ref.GeometryURL), zap.Error(err))
	}
	app.updateTitle()
}

// Run starts the main loop.
func (app *App) Run() {
	app.backend.Run(app.render)
}

// Close tears down the viewer and frees preview textures.
func (app *App) Close() {
	app.session.Close()
	app.releasePreview()
}

func (app *App) onStateChange(s viewer.State) {
	app.log.Info("viewer state", zap.Stringer("state", s))
	app.updateTitle()
}

// updateTitle shows the mounted model in the window title.
func (app *App) updateTitle() {
	title := app.cfg.Window.Title
	if ref := app.session.Reference(); ref.GeometryURL != "" {
		title = fmt.Sprintf("%s - %s", title, ref.GeometryURL)
	}
	app.backend.SetWindowTitle(title)
}

// openFileDialog asks for a model file. The dialog blocks, so it runs in a
// goroutine and hands the choice back through the host loop.
func (app *App) openFileDialog() {
	go func() {
		filename, err := dialog.File().
			Filter("PLY Point Clouds", "ply").
			Filter("All Files", "*").
			Title("Open Model").
			Load()

		if err != nil {
			if err != dialog.ErrCancelled {
				app.log.Warn("file dialog error", zap.Error(err))
			}
			return
		}

		app.session.Post(func() {
			app.Open(viewer.ModelReference{GeometryURL: filename})
		})
	}()
}

// takeSnapshot saves the render surface as an image.
func (app *App) takeSnapshot() {
	surface, ok := app.session.Surface().(*renderer.Surface)
	if !ok {
		app.setSnapshotMsg("Nothing to capture yet")
		return
	}

	path, err := app.capture.Save(surface.Image())
	if err != nil {
		app.log.Error("snapshot failed", zap.Error(err))
		app.setSnapshotMsg("Snapshot failed: " + err.Error())
		return
	}
	app.log.Info("snapshot saved", zap.String("path", path))
	app.setSnapshotMsg("Saved " + path)
}

func (app *App) setSnapshotMsg(msg string) {
	app.snapshotMsg = msg
	app.snapshotMsgTime = time.Now()
}

// saveSettings writes the running config to the user config directory.
func (app *App) saveSettings() {
	if err := app.cfg.Save(); err != nil {
		app.log.Error("saving settings failed", zap.Error(err))
		return
	}
	app.log.Info("settings saved", zap.String("dir", config.ConfigDir()))
}
