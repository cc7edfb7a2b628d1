// Package input turns SDL2 events into the few signals the kiosk viewer
// needs: quit, key presses, pointer drag and wheel.
package input

import (
	"github.com/veandco/go-sdl2/sdl"
)

// Frame is the input gathered during one Poll.
type Frame struct {
	Quit    bool
	Keys    []sdl.Scancode
	DragX   float32 // Pointer motion with the left button held, pixels
	DragY   float32
	Wheel   float32
	Resized bool
}

// Dragging reports whether the pointer moved with the left button held.
func (f *Frame) Dragging() bool {
	return f.DragX != 0 || f.DragY != 0
}

// KeyPressed reports whether scancode went down this frame.
func (f *Frame) KeyPressed(scancode sdl.Scancode) bool {
	for _, k := range f.Keys {
		if k == scancode {
			return true
		}
	}
	return false
}

// Input accumulates SDL events per frame.
type Input struct {
	leftDown bool
	frame    Frame
}

// New creates a new input handler.
func New() *Input {
	return &Input{}
}

// Poll drains the SDL event queue and returns what happened since the last call.
func (i *Input) Poll() *Frame {
	i.frame = Frame{Keys: i.frame.Keys[:0]}

	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		i.handle(event)
	}
	return &i.frame
}

func (i *Input) handle(event sdl.Event) {
	switch e := event.(type) {
	case *sdl.QuitEvent:
		i.frame.Quit = true

	case *sdl.WindowEvent:
		if e.Event == sdl.WINDOWEVENT_RESIZED {
			i.frame.Resized = true
		}

	case *sdl.KeyboardEvent:
		if e.Type == sdl.KEYDOWN && e.Repeat == 0 {
			i.frame.Keys = append(i.frame.Keys, e.Keysym.Scancode)
		}

	case *sdl.MouseButtonEvent:
		if e.Button == sdl.BUTTON_LEFT {
			i.leftDown = e.Type == sdl.MOUSEBUTTONDOWN
		}

	case *sdl.MouseMotionEvent:
		if i.leftDown {
			i.frame.DragX += float32(e.XRel)
			i.frame.DragY += float32(e.YRel)
		}

	case *sdl.MouseWheelEvent:
		i.frame.Wheel += float32(e.Y)
	}
}
