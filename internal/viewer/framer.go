package viewer

import "github.com/Faultbox/pointview/pkg/math"

// FramingFactor scales the summed positive extents into a camera distance.
// 0.75 keeps typical scan aspect ratios fully in view at a 75 degree FOV.
const FramingFactor = 0.75

// CameraPlacement is where the camera sits and what it looks at.
type CameraPlacement struct {
	Position math.Vec3
	LookAt   math.Vec3
}

// Frame places the camera on +Z looking at the origin. box must already be
// centered at the origin. A degenerate box puts the camera at the origin.
func Frame(box math.Box3) CameraPlacement {
	distance := (box.Max.X + box.Max.Y + box.Max.Z) * FramingFactor
	return CameraPlacement{
		Position: math.Vec3{X: 0, Y: 0, Z: distance},
		LookAt:   math.Vec3{},
	}
}
