// Package host provides the single-threaded execution context the viewer runs on.
//
// Background goroutines never touch viewer state directly. They hand their
// results to Post, and the thread that owns the GL context drains them in Tick,
// together with the frame callbacks requested for the next display refresh.
package host

import "sync"

// FrameID identifies a pending frame callback.
type FrameID uint64

// Loop is a cooperative event loop with a "next frame" primitive.
// Post is safe from any goroutine; everything else must be called from the
// goroutine that calls Tick.
type Loop struct {
	mu     sync.Mutex
	posted []func()
	frames map[FrameID]func()
	order  []FrameID
	nextID FrameID
	wake   chan struct{}
}

// New creates an empty loop.
func New() *Loop {
	return &Loop{
		frames: make(map[FrameID]func()),
		wake:   make(chan struct{}, 1),
	}
}

// Post queues fn to run on the loop thread during the next Tick.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	l.posted = append(l.posted, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Wake is signalled whenever work is posted.
func (l *Loop) Wake() <-chan struct{} {
	return l.wake
}

// RequestFrame schedules cb for the next Tick. Callbacks requested while a
// tick is running go to the following tick.
func (l *Loop) RequestFrame(cb func()) FrameID {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.nextID++
	id := l.nextID
	l.frames[id] = cb
	l.order = append(l.order, id)
	return id
}

// CancelFrame drops a pending frame callback. Unknown or already-run ids are ignored.
func (l *Loop) CancelFrame(id FrameID) {
	l.mu.Lock()
	delete(l.frames, id)
	l.mu.Unlock()
}

// Pending returns the number of frame callbacks waiting for the next tick.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.frames)
}

// Tick runs posted callbacks, then the frame callbacks that were pending when
// the tick started. Returns how many frame callbacks ran.
func (l *Loop) Tick() int {
	// Both queues are taken up front, so work posted or frames requested
	// by this tick's callbacks wait for the next one.
	l.mu.Lock()
	posted := l.posted
	order := l.order
	l.posted = nil
	l.order = nil
	l.mu.Unlock()

	for _, fn := range posted {
		fn()
	}

	ran := 0
	for _, id := range order {
		l.mu.Lock()
		cb, ok := l.frames[id]
		delete(l.frames, id)
		l.mu.Unlock()

		// Cancelled by an earlier callback in this tick
		if !ok {
			continue
		}
		cb()
		ran++
	}
	return ran
}
