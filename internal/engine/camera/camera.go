// Package camera provides the perspective camera and orbit controls.
package camera

import (
	"github.com/Faultbox/pointview/pkg/math"
)

// PerspectiveCamera is a pinhole camera looking from Position at Target.
type PerspectiveCamera struct {
	FOV    float32 // Vertical field of view, degrees
	Aspect float32
	Near   float32
	Far    float32

	Position math.Vec3
	Target   math.Vec3
	Up       math.Vec3
}

// NewPerspectiveCamera creates a camera at the origin looking down -Z.
func NewPerspectiveCamera(fov, aspect, near, far float32) *PerspectiveCamera {
	return &PerspectiveCamera{
		FOV:    fov,
		Aspect: aspect,
		Near:   near,
		Far:    far,
		Target: math.Vec3{X: 0, Y: 0, Z: -1},
		Up:     math.Vec3{X: 0, Y: 1, Z: 0},
	}
}

// SetPosition moves the camera without changing what it looks at.
func (c *PerspectiveCamera) SetPosition(p math.Vec3) {
	c.Position = p
}

// LookAt points the camera at target.
func (c *PerspectiveCamera) LookAt(target math.Vec3) {
	c.Target = target
}

// ViewMatrix returns the world-to-camera transform.
func (c *PerspectiveCamera) ViewMatrix() math.Mat4 {
	return math.LookAt(c.Position, c.Target, c.Up)
}

// ProjectionMatrix returns the perspective projection.
func (c *PerspectiveCamera) ProjectionMatrix() math.Mat4 {
	return math.Perspective(math.DegToRad(c.FOV), c.Aspect, c.Near, c.Far)
}
