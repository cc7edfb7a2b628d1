// Package geometry holds loaded point/mesh data and the asynchronous loader
// that produces it.
package geometry

import (
	"github.com/Faultbox/pointview/pkg/formats"
	"github.com/Faultbox/pointview/pkg/math"
)

// Geometry is vertex data ready for upload: positions with optional per-vertex
// colors, normals and triangle indices.
type Geometry struct {
	Positions []math.Vec3
	Normals   []math.Vec3
	Colors    [][3]float32 // RGB 0..1, nil if the source had none
	Triangles [][3]uint32

	bounds    math.Box3
	hasBounds bool
}

// FromPLY converts a parsed PLY file.
func FromPLY(p *formats.PLY) *Geometry {
	g := &Geometry{
		Positions: make([]math.Vec3, len(p.Vertices)),
		Triangles: p.Triangles,
	}
	for i, v := range p.Vertices {
		g.Positions[i] = math.Vec3{X: v[0], Y: v[1], Z: v[2]}
	}
	if p.HasNormals() {
		g.Normals = make([]math.Vec3, len(p.Normals))
		for i, n := range p.Normals {
			g.Normals[i] = math.Vec3{X: n[0], Y: n[1], Z: n[2]}
		}
	}
	if p.HasColors() {
		g.Colors = p.Colors
	}
	return g
}

// VertexCount returns the number of vertices.
func (g *Geometry) VertexCount() int {
	return len(g.Positions)
}

// HasColors reports whether per-vertex colors are present.
func (g *Geometry) HasColors() bool {
	return len(g.Colors) == len(g.Positions) && len(g.Colors) > 0
}

// ComputeVertexNormals rebuilds normals by accumulating area-weighted face
// normals. Geometry without faces keeps the normals it was loaded with; a bare
// point cloud gets zero normals.
func (g *Geometry) ComputeVertexNormals() {
	if len(g.Triangles) == 0 {
		if len(g.Normals) != len(g.Positions) {
			g.Normals = make([]math.Vec3, len(g.Positions))
		}
		return
	}

	normals := make([]math.Vec3, len(g.Positions))
	for _, tri := range g.Triangles {
		if int(tri[0]) >= len(g.Positions) || int(tri[1]) >= len(g.Positions) || int(tri[2]) >= len(g.Positions) {
			continue
		}
		a, b, c := g.Positions[tri[0]], g.Positions[tri[1]], g.Positions[tri[2]]
		// Unnormalized cross product weights by triangle area
		n := b.Sub(a).Cross(c.Sub(a))
		for _, idx := range tri {
			normals[idx] = normals[idx].Add(n)
		}
	}
	for i := range normals {
		normals[i] = normals[i].Normalize()
	}
	g.Normals = normals
}

// Center translates all positions so the bounding box center is at the origin.
func (g *Geometry) Center() {
	if len(g.Positions) == 0 {
		return
	}
	offset := g.ComputeBoundingBox().Center().Scale(-1)
	for i := range g.Positions {
		g.Positions[i] = g.Positions[i].Add(offset)
	}
	g.bounds = g.bounds.Translate(offset)
}

// ComputeBoundingBox recomputes and caches the bounding box. An empty
// geometry yields a zero box.
func (g *Geometry) ComputeBoundingBox() math.Box3 {
	if len(g.Positions) == 0 {
		g.bounds = math.Box3{}
		g.hasBounds = true
		return g.bounds
	}
	b := math.EmptyBox3()
	for _, p := range g.Positions {
		b.Extend(p)
	}
	g.bounds = b
	g.hasBounds = true
	return b
}

// BoundingBox returns the cached box, computing it on first use.
func (g *Geometry) BoundingBox() math.Box3 {
	if !g.hasBounds {
		return g.ComputeBoundingBox()
	}
	return g.bounds
}
