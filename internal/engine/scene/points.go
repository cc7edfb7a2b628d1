package scene

import (
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/Faultbox/pointview/internal/engine/geometry"
)

// Material describes how points are drawn.
type Material struct {
	Size         float32 // World units, attenuated with depth
	VertexColors bool
	DoubleSided  bool
}

// Vertex is the interleaved GPU layout.
type Vertex struct {
	Position [3]float32
	Color    [3]float32
}

// Points draws every vertex of a geometry as a point sprite.
type Points struct {
	Geometry *geometry.Geometry
	Material Material

	vao   uint32
	vbo   uint32
	count int32
}

// NewPoints creates a point renderable. GPU buffers are created on first draw.
func NewPoints(g *geometry.Geometry, mat Material) *Points {
	return &Points{Geometry: g, Material: mat}
}

// Vertices returns the interleaved upload data. Without vertex colors every
// point is white.
func (p *Points) Vertices() []Vertex {
	colored := p.Material.VertexColors && p.Geometry.HasColors()
	out := make([]Vertex, len(p.Geometry.Positions))
	for i, pos := range p.Geometry.Positions {
		out[i].Position = pos.Array()
		if colored {
			out[i].Color = p.Geometry.Colors[i]
		} else {
			out[i].Color = [3]float32{1, 1, 1}
		}
	}
	return out
}

// Uploaded reports whether the GPU buffers exist.
func (p *Points) Uploaded() bool {
	return p.vao != 0
}

func (p *Points) upload() {
	vertices := p.Vertices()
	p.count = int32(len(vertices))
	if p.count == 0 {
		return
	}

	gl.GenVertexArrays(1, &p.vao)
	gl.BindVertexArray(p.vao)

	gl.GenBuffers(1, &p.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, p.vbo)
	stride := int32(unsafe.Sizeof(Vertex{}))
	gl.BufferData(gl.ARRAY_BUFFER, len(vertices)*int(stride), unsafe.Pointer(&vertices[0]), gl.STATIC_DRAW)

	// Position attribute (location = 0)
	gl.VertexAttribPointerWithOffset(0, 3, gl.FLOAT, false, stride, 0)
	gl.EnableVertexAttribArray(0)

	// Color attribute (location = 1)
	gl.VertexAttribPointerWithOffset(1, 3, gl.FLOAT, false, stride, 12)
	gl.EnableVertexAttribArray(1)

	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	gl.BindVertexArray(0)
}

// Draw issues the draw call, uploading on first use. The caller binds the
// program and sets uniforms.
func (p *Points) Draw() {
	if !p.Uploaded() {
		p.upload()
	}
	if p.count == 0 {
		return
	}

	if p.Material.DoubleSided {
		gl.Disable(gl.CULL_FACE)
	} else {
		gl.Enable(gl.CULL_FACE)
	}

	gl.BindVertexArray(p.vao)
	gl.DrawArrays(gl.POINTS, 0, p.count)
	gl.BindVertexArray(0)
}

// Destroy releases the GPU buffers.
func (p *Points) Destroy() {
	if p.vao != 0 {
		gl.DeleteVertexArrays(1, &p.vao)
		p.vao = 0
	}
	if p.vbo != 0 {
		gl.DeleteBuffers(1, &p.vbo)
		p.vbo = 0
	}
}
