package math

import "github.com/chewxy/math32"

// Mat4 is a 4x4 column-major matrix, the layout GL uniforms expect.
// Element (row r, column c) lives at index c*4+r.
type Mat4 [16]float32

// Identity returns the identity matrix.
func Identity() Mat4 {
	var m Mat4
	for i := 0; i < 4; i++ {
		m[i*4+i] = 1
	}
	return m
}

// Perspective builds a right-handed projection mapping depth to [-1, 1].
// fovY is in radians, aspect is width/height.
func Perspective(fovY, aspect, near, far float32) Mat4 {
	f := 1 / math32.Tan(fovY/2)
	depth := near - far

	var m Mat4
	m[0] = f / aspect
	m[5] = f
	m[10] = (far + near) / depth
	m[11] = -1
	m[14] = 2 * far * near / depth
	return m
}

// LookAt builds the view matrix of an eye looking at center.
// When eye and center coincide the rotation part degenerates to zero.
func LookAt(eye, center, up Vec3) Mat4 {
	forward := center.Sub(eye).Normalize()
	side := forward.Cross(up).Normalize()
	upward := side.Cross(forward)

	m := Identity()
	for i, axis := range [3]Vec3{side, upward, forward.Scale(-1)} {
		m[0*4+i] = axis.X
		m[1*4+i] = axis.Y
		m[2*4+i] = axis.Z
		m[3*4+i] = -axis.Dot(eye)
	}
	return m
}

// at returns the element in row r, column c.
func (m Mat4) at(r, c int) float32 {
	return m[c*4+r]
}

// Mul returns m * other.
func (m Mat4) Mul(other Mat4) Mat4 {
	var out Mat4
	for c := 0; c < 4; c++ {
		for r := 0; r < 4; r++ {
			var sum float32
			for k := 0; k < 4; k++ {
				sum += m.at(r, k) * other.at(k, c)
			}
			out[c*4+r] = sum
		}
	}
	return out
}

// TransformVec3 transforms a point (w = 1) without a perspective divide.
func (m Mat4) TransformVec3(v Vec3) Vec3 {
	return Vec3{
		X: m.at(0, 0)*v.X + m.at(0, 1)*v.Y + m.at(0, 2)*v.Z + m.at(0, 3),
		Y: m.at(1, 0)*v.X + m.at(1, 1)*v.Y + m.at(1, 2)*v.Z + m.at(1, 3),
		Z: m.at(2, 0)*v.X + m.at(2, 1)*v.Y + m.at(2, 2)*v.Z + m.at(2, 3),
	}
}

// Ptr returns a pointer to the first element for uniform upload.
func (m *Mat4) Ptr() *float32 {
	return &m[0]
}

// DegToRad converts degrees to radians.
func DegToRad(deg float32) float32 {
	return deg * math32.Pi / 180
}
