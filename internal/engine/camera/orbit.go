package camera

import (
	gomath "math"

	"github.com/chewxy/math32"

	"github.com/Faultbox/pointview/pkg/math"
)

// OrbitControls rotates a camera around a target on a sphere whose radius is
// the camera's distance at attach time.
type OrbitControls struct {
	camera *PerspectiveCamera
	Target math.Vec3

	// Spherical coordinates
	Distance float32
	Pitch    float32 // Vertical angle, radians
	Yaw      float32 // Horizontal angle, radians

	EnableZoom      bool
	AutoRotate      bool
	AutoRotateSpeed float32 // Degrees per second

	// Constraints
	MinPitch    float32
	MaxPitch    float32
	MinDistance float32
	MaxDistance float32

	// Sensitivity
	DragSensitivity float32
	ZoomSensitivity float32

	disposed bool
}

// NewOrbitControls attaches controls to cam, orbiting its current target.
func NewOrbitControls(cam *PerspectiveCamera) *OrbitControls {
	o := &OrbitControls{
		camera:          cam,
		EnableZoom:      true,
		AutoRotateSpeed: 12,
		MinPitch:        -1.5,
		MaxPitch:        1.5,
		MinDistance:     0,
		MaxDistance:     gomath.MaxFloat32,
		DragSensitivity: 0.005,
		ZoomSensitivity: 0.1,
	}
	o.Sync()
	return o
}

// Sync derives the spherical state from the camera's position and target.
func (o *OrbitControls) Sync() {
	o.Target = o.camera.Target
	offset := o.camera.Position.Sub(o.Target)
	o.Distance = offset.Length()
	if o.Distance == 0 {
		o.Pitch, o.Yaw = 0, 0
		return
	}
	o.Pitch = math32.Asin(offset.Y / o.Distance)
	o.Yaw = math32.Atan2(offset.X, offset.Z)
}

// Position returns the camera position implied by the spherical state.
func (o *OrbitControls) Position() math.Vec3 {
	cosPitch := math32.Cos(o.Pitch)
	return math.Vec3{
		X: o.Target.X + o.Distance*cosPitch*math32.Sin(o.Yaw),
		Y: o.Target.Y + o.Distance*math32.Sin(o.Pitch),
		Z: o.Target.Z + o.Distance*cosPitch*math32.Cos(o.Yaw),
	}
}

// HandleDrag rotates by a pointer drag delta in pixels.
func (o *OrbitControls) HandleDrag(deltaX, deltaY float32) {
	if o.disposed {
		return
	}
	o.Yaw -= deltaX * o.DragSensitivity
	o.Pitch += deltaY * o.DragSensitivity

	// Clamp pitch
	if o.Pitch < o.MinPitch {
		o.Pitch = o.MinPitch
	}
	if o.Pitch > o.MaxPitch {
		o.Pitch = o.MaxPitch
	}
}

// HandleZoom changes distance by a wheel delta. Ignored when zoom is disabled.
func (o *OrbitControls) HandleZoom(delta float32) {
	if o.disposed || !o.EnableZoom {
		return
	}
	o.Distance -= delta * o.Distance * o.ZoomSensitivity
	if o.Distance < o.MinDistance {
		o.Distance = o.MinDistance
	}
	if o.Distance > o.MaxDistance {
		o.Distance = o.MaxDistance
	}
}

// Update advances auto-rotation by dt seconds and writes the result to the
// camera.
func (o *OrbitControls) Update(dt float32) {
	if o.disposed {
		return
	}
	if o.AutoRotate {
		o.Yaw += math.DegToRad(o.AutoRotateSpeed) * dt
	}
	o.camera.SetPosition(o.Position())
	o.camera.LookAt(o.Target)
}

// Dispose detaches the controls; later input and updates are ignored.
func (o *OrbitControls) Dispose() {
	o.disposed = true
}
