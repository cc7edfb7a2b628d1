// Package renderloop drives continuous re-rendering at the host's refresh cadence.
package renderloop

import (
	"go.uber.org/zap"

	"github.com/Faultbox/pointview/internal/host"
	"github.com/Faultbox/pointview/internal/logger"
)

// Scheduler is the host's "next frame" primitive.
type Scheduler interface {
	RequestFrame(cb func()) host.FrameID
	CancelFrame(id host.FrameID)
}

// Handle tracks one started render chain.
type Handle struct {
	running bool
	pending host.FrameID
	frames  uint64
}

// Running reports whether the chain is still scheduling frames.
func (h *Handle) Running() bool {
	return h != nil && h.running
}

// Frames returns how many times the render callback ran.
func (h *Handle) Frames() uint64 {
	if h == nil {
		return 0
	}
	return h.frames
}

// Driver starts and stops self-rescheduling render chains.
type Driver struct {
	sched Scheduler
	log   *zap.Logger
}

// New creates a driver on top of a frame scheduler.
func New(sched Scheduler) *Driver {
	return &Driver{
		sched: sched,
		log:   logger.Named("renderloop"),
	}
}

// Start schedules renderOnce for the next frame. Each invocation requests the
// following frame before rendering, so the chain runs once per refresh until
// Stop. There is no pacing, catch-up or frame skipping.
func (d *Driver) Start(renderOnce func()) *Handle {
	h := &Handle{running: true}

	var tick func()
	tick = func() {
		if !h.running {
			return
		}
		h.pending = d.sched.RequestFrame(tick)
		h.frames++
		renderOnce()
	}
	h.pending = d.sched.RequestFrame(tick)

	d.log.Debug("render loop started")
	return h
}

// Stop cancels the pending frame. After Stop returns renderOnce is not invoked
// again. Stopping a nil or already stopped handle is a no-op.
func (d *Driver) Stop(h *Handle) {
	if h == nil || !h.running {
		return
	}
	h.running = false
	d.sched.CancelFrame(h.pending)

	d.log.Debug("render loop stopped", zap.Uint64("frames", h.frames))
}
