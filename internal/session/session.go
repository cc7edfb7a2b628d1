// Package session owns one mounted viewer at a time together with the host
// loop and render driver it runs on. Shells tick it once per display refresh.
package session

import (
	"go.uber.org/zap"

	"github.com/Faultbox/pointview/internal/config"
	"github.com/Faultbox/pointview/internal/host"
	"github.com/Faultbox/pointview/internal/logger"
	"github.com/Faultbox/pointview/internal/renderloop"
	"github.com/Faultbox/pointview/internal/viewer"
)

// Slot is the mount point a controller puts its drawing surface into.
type Slot struct {
	current viewer.DrawingSurface
}

// Mount replaces the displayed surface.
func (s *Slot) Mount(ds viewer.DrawingSurface) {
	s.current = ds
}

// Unmount clears the slot.
func (s *Slot) Unmount() {
	s.current = nil
}

// Current returns the mounted drawing surface, or nil.
func (s *Slot) Current() viewer.DrawingSurface {
	return s.current
}

// OptionsFromConfig maps configuration onto controller options.
func OptionsFromConfig(cfg *config.Config) viewer.Options {
	return viewer.Options{
		Width:       cfg.Render.Width,
		Height:      cfg.Render.Height,
		FOV:         cfg.Render.FOV,
		Near:        cfg.Render.Near,
		Far:         cfg.Render.Far,
		PointSize:   cfg.Render.PointSize,
		Background:  cfg.Render.Background,
		EnableZoom:  cfg.Controls.EnableZoom,
		AutoRotate:  cfg.Controls.AutoRotate,
		LoadTimeout: cfg.Viewer.LoadTimeout,
	}
}

// Session mounts models one at a time.
type Session struct {
	loop     *host.Loop
	driver   *renderloop.Driver
	engine   viewer.Engine
	orienter viewer.ImageOrienter
	opts     viewer.Options
	log      *zap.Logger

	ref    viewer.ModelReference
	ctrl   *viewer.Controller
	slot   *Slot
	mounts int
}

// New creates a session on loop. orienter may be nil.
func New(loop *host.Loop, engine viewer.Engine, orienter viewer.ImageOrienter, opts viewer.Options) *Session {
	return &Session{
		loop:     loop,
		driver:   renderloop.New(loop),
		engine:   engine,
		orienter: orienter,
		opts:     opts,
		log:      logger.Named("session"),
	}
}

// Mount tears down the current viewer, if any, and mounts ref in a fresh one.
// This is the only way to show a different model or retry a failed one.
func (s *Session) Mount(ref viewer.ModelReference) error {
	s.Unmount()

	s.ref = ref
	s.slot = &Slot{}
	s.ctrl = viewer.New(s.engine, s.orienter, s.driver, s.opts)
	s.mounts++
	s.log.Info("mounting model", zap.String("geometry", ref.GeometryURL), zap.Int("mount", s.mounts))
	return s.ctrl.Initialize(ref, s.slot)
}

// Unmount tears down the current viewer.
func (s *Session) Unmount() {
	if s.ctrl == nil {
		return
	}
	s.ctrl.Teardown()
	s.ctrl = nil
	s.slot = nil
}

// Tick runs posted completions and due frames.
func (s *Session) Tick() int {
	return s.loop.Tick()
}

// Post queues fn for the next tick. Safe from any goroutine.
func (s *Session) Post(fn func()) {
	s.loop.Post(fn)
}

// Controller returns the mounted controller, or nil.
func (s *Session) Controller() *viewer.Controller {
	return s.ctrl
}

// Reference returns the mounted model reference.
func (s *Session) Reference() viewer.ModelReference {
	return s.ref
}

// State returns the mounted viewer's state. Without a mount it reports Loading
// so shells show the preloader.
func (s *Session) State() viewer.State {
	if s.ctrl == nil {
		return viewer.StateLoading
	}
	return s.ctrl.State()
}

// Surface returns the mounted drawing surface, or nil.
func (s *Session) Surface() viewer.DrawingSurface {
	if s.slot == nil {
		return nil
	}
	return s.slot.Current()
}

// Mounted reports whether a model is mounted.
func (s *Session) Mounted() bool {
	return s.ctrl != nil
}

// Close tears down the current viewer.
func (s *Session) Close() {
	s.Unmount()
}
