package network

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTriangle(t *testing.T) (*Store, int, int, int, int, int, int) {
	t.Helper()
	s := NewStore()
	a := s.AddVertex()
	b := s.AddVertex()
	c := s.AddVertex()
	e0 := s.AddEdge(a, b, 100, 10)
	e1 := s.AddEdge(b, c, 50, 8)
	e2 := s.AddEdge(a, c, 150, 6)
	return s, a, b, c, e0, e1, e2
}

func TestAddVertexAndEdgeCounts(t *testing.T) {
	s, _, _, _, _, _, _ := buildTriangle(t)
	assert.Equal(t, 3, s.VertexCount())
	assert.Equal(t, 3, s.EdgeCount())
}

func TestEdgeGeometryDerived(t *testing.T) {
	s, _, _, _, e0, _, _ := buildTriangle(t)
	e := s.Edges[e0]
	assert.Equal(t, 100.0, e.Length)
	assert.Equal(t, 10.0, e.Diameter)
	assert.InDelta(t, 0.25*pi*100, e.CrossSect, 1e-9)
}

func TestIncidentEdgesCoversBothDirections(t *testing.T) {
	s, a, b, _, e0, _, e2 := buildTriangle(t)
	inc := s.IncidentEdges(a)
	assert.ElementsMatch(t, []int{e0, e2}, inc)

	incB := s.IncidentEdges(b)
	assert.Contains(t, incB, e0)
}

func TestOtherEnd(t *testing.T) {
	s, a, b, _, e0, _, _ := buildTriangle(t)
	require.Equal(t, b, s.OtherEnd(e0, a))
	require.Equal(t, a, s.OtherEnd(e0, b))
}

func TestAddEdgeUnknownVertexPanics(t *testing.T) {
	s := NewStore()
	a := s.AddVertex()
	assert.Panics(t, func() { s.AddEdge(a, 99, 1, 1) })
}
