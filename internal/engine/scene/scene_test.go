package scene

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Faultbox/pointview/internal/engine/geometry"
	"github.com/Faultbox/pointview/pkg/math"
)

func TestSceneAdd(t *testing.T) {
	s := New()
	p := NewPoints(&geometry.Geometry{}, Material{Size: 0.003})

	s.Add(p)
	s.Add("not a renderable")
	s.Add(nil)
	s.Add((*Points)(nil))

	assert.Equal(t, []*Points{p}, s.Points())
}

func TestSceneBackground(t *testing.T) {
	s := New()
	assert.Equal(t, [3]float32{}, s.Background)
	s.SetBackground([3]float32{0.2, 0.4, 0.6})
	assert.Equal(t, [3]float32{0.2, 0.4, 0.6}, s.Background)
}

func TestPointsVertices(t *testing.T) {
	g := &geometry.Geometry{
		Positions: []math.Vec3{{X: 1, Y: 2, Z: 3}, {X: 4, Y: 5, Z: 6}},
		Colors:    [][3]float32{{1, 0, 0}, {0, 0.5, 0}},
	}

	tests := []struct {
		name string
		mat  Material
		want []Vertex
	}{
		{
			name: "vertex colors",
			mat:  Material{VertexColors: true},
			want: []Vertex{
				{Position: [3]float32{1, 2, 3}, Color: [3]float32{1, 0, 0}},
				{Position: [3]float32{4, 5, 6}, Color: [3]float32{0, 0.5, 0}},
			},
		},
		{
			name: "plain",
			mat:  Material{},
			want: []Vertex{
				{Position: [3]float32{1, 2, 3}, Color: [3]float32{1, 1, 1}},
				{Position: [3]float32{4, 5, 6}, Color: [3]float32{1, 1, 1}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPoints(g, tt.mat)
			assert.Equal(t, tt.want, p.Vertices())
			assert.False(t, p.Uploaded())
		})
	}
}

func TestPointsVerticesWithoutColors(t *testing.T) {
	g := &geometry.Geometry{Positions: []math.Vec3{{}}}
	p := NewPoints(g, Material{VertexColors: true})
	assert.Equal(t, [3]float32{1, 1, 1}, p.Vertices()[0].Color)
}
