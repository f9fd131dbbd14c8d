// Package geometry holds the small mesh utilities the render bootstrap
// needs: a box primitive, per-vertex normal computation and uniform
// color paint. It is not a rendering library.
package geometry

import "math"

// Vector3 is a point, normal or RGB color.
type Vector3 [3]float64

func (v Vector3) sub(o Vector3) Vector3 {
	return Vector3{v[0] - o[0], v[1] - o[1], v[2] - o[2]}
}

func (v Vector3) cross(o Vector3) Vector3 {
	return Vector3{
		v[1]*o[2] - v[2]*o[1],
		v[2]*o[0] - v[0]*o[2],
		v[0]*o[1] - v[1]*o[0],
	}
}

func (v Vector3) norm() float64 {
	return math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
}

func (v Vector3) normalized() Vector3 {
	n := v.norm()
	if n == 0 {
		return v
	}
	return Vector3{v[0] / n, v[1] / n, v[2] / n}
}

// TriangleMesh is an indexed triangle mesh with optional per-vertex
// attributes.
type TriangleMesh struct {
	Vertices      []Vector3
	Triangles     [][3]int
	VertexNormals []Vector3
	VertexColors  []Vector3
}

// HasVertexNormals reports whether normals have been computed.
func (m *TriangleMesh) HasVertexNormals() bool {
	return len(m.VertexNormals) == len(m.Vertices) && len(m.Vertices) > 0
}

// HasVertexColors reports whether the mesh has been painted.
func (m *TriangleMesh) HasVertexColors() bool {
	return len(m.VertexColors) == len(m.Vertices) && len(m.Vertices) > 0
}

// CreateBox returns an axis-aligned box with one corner at the origin
// and the opposite corner at (w, h, d). Triangles wind outward.
func CreateBox(w, h, d float64) *TriangleMesh {
	m := &TriangleMesh{
		Vertices: []Vector3{
			{0, 0, 0}, {w, 0, 0}, {0, h, 0}, {w, h, 0},
			{0, 0, d}, {w, 0, d}, {0, h, d}, {w, h, d},
		},
		Triangles: [][3]int{
			{0, 2, 1}, {1, 2, 3}, // z = 0
			{4, 5, 6}, {5, 7, 6}, // z = d
			{0, 1, 4}, {1, 5, 4}, // y = 0
			{2, 6, 3}, {3, 6, 7}, // y = h
			{0, 4, 2}, {2, 4, 6}, // x = 0
			{1, 3, 5}, {3, 7, 5}, // x = w
		},
	}
	return m
}

// ComputeVertexNormals accumulates area-weighted face normals on each
// vertex and normalizes the result.
func (m *TriangleMesh) ComputeVertexNormals() {
	normals := make([]Vector3, len(m.Vertices))
	for _, t := range m.Triangles {
		v0, v1, v2 := m.Vertices[t[0]], m.Vertices[t[1]], m.Vertices[t[2]]
		fn := v1.sub(v0).cross(v2.sub(v0))
		for _, idx := range t {
			normals[idx][0] += fn[0]
			normals[idx][1] += fn[1]
			normals[idx][2] += fn[2]
		}
	}
	for i := range normals {
		normals[i] = normals[i].normalized()
	}
	m.VertexNormals = normals
}

// PaintUniformColor sets every vertex color to the given RGB value,
// clamped to [0, 1].
func (m *TriangleMesh) PaintUniformColor(r, g, b float64) {
	c := Vector3{clamp01(r), clamp01(g), clamp01(b)}
	colors := make([]Vector3, len(m.Vertices))
	for i := range colors {
		colors[i] = c
	}
	m.VertexColors = colors
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
