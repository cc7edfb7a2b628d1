// Package scene holds what the renderer draws: a background color and a list
// of point renderables.
package scene

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/pointview/internal/logger"
)

// Scene is the set of objects drawn each frame.
type Scene struct {
	Background [3]float32
	points     []*Points
}

// New creates an empty scene with a black background.
func New() *Scene {
	return &Scene{}
}

// SetBackground sets the clear color.
func (s *Scene) SetBackground(rgb [3]float32) {
	s.Background = rgb
}

// Add appends a renderable. Only *Points are drawable; anything else is
// logged and dropped.
func (s *Scene) Add(obj any) {
	p, ok := obj.(*Points)
	if !ok || p == nil {
		logger.Warn("scene: ignoring unsupported object", zap.String("type", typeName(obj)))
		return
	}
	s.points = append(s.points, p)
}

// Points returns the point renderables in insertion order.
func (s *Scene) Points() []*Points {
	return s.points
}

// Destroy releases GPU resources of every renderable.
func (s *Scene) Destroy() {
	for _, p := range s.points {
		p.Destroy()
	}
	s.points = nil
}

func typeName(obj any) string {
	if obj == nil {
		return "nil"
	}
	return fmt.Sprintf("%T", obj)
}
