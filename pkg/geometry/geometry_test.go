package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateBox(t *testing.T) {
	box := CreateBox(1, 2, 4)
	assert.Len(t, box.Vertices, 8)
	assert.Len(t, box.Triangles, 12)
	assert.False(t, box.HasVertexNormals())
	assert.False(t, box.HasVertexColors())

	// Opposite corners.
	assert.Equal(t, Vector3{0, 0, 0}, box.Vertices[0])
	assert.Equal(t, Vector3{1, 2, 4}, box.Vertices[7])
}

func TestComputeVertexNormals(t *testing.T) {
	box := CreateBox(1, 2, 4)
	box.ComputeVertexNormals()
	require.True(t, box.HasVertexNormals())

	for i, n := range box.VertexNormals {
		norm := math.Sqrt(n[0]*n[0] + n[1]*n[1] + n[2]*n[2])
		assert.InDelta(t, 1.0, norm, 1e-9, "normal %d not unit length", i)
	}
}

func TestPaintUniformColor(t *testing.T) {
	box := CreateBox(1, 1, 1)
	box.PaintUniformColor(1.0, 0.0, 0.0)
	require.True(t, box.HasVertexColors())
	for _, c := range box.VertexColors {
		assert.Equal(t, Vector3{1, 0, 0}, c)
	}
}

func TestPaintUniformColorClamps(t *testing.T) {
	box := CreateBox(1, 1, 1)
	box.PaintUniformColor(2.0, -1.0, 0.5)
	assert.Equal(t, Vector3{1, 0, 0.5}, box.VertexColors[0])
}
