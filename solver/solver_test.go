package solver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vasculature/rbcflow/network"
)

func twoVertexNetwork(t *testing.T, r float64) *network.Store {
	t.Helper()
	s := network.NewStore()
	a := s.AddVertex()
	b := s.AddVertex()
	e := s.AddEdge(a, b, 100, 10)
	s.Edges[e].EffResistance = r
	s.Vertices[a].HasPBC = true
	s.Vertices[a].PBC = 10
	s.Vertices[b].HasPBC = true
	s.Vertices[b].PBC = 0
	return s
}

func TestAssembleAndSolveStraightTube(t *testing.T) {
	s := twoVertexNetwork(t, 2.0)
	sys := Assemble(s)
	p := sys.Solve()
	require.Len(t, p, 2)
	assert.InDelta(t, 10.0, p[0], 1e-6)
	assert.InDelta(t, 0.0, p[1], 1e-6)
}

func TestPlantWellPosednessPinsFloatingComponent(t *testing.T) {
	s := network.NewStore()
	a := s.AddVertex()
	b := s.AddVertex()
	e := s.AddEdge(a, b, 100, 10)
	s.Edges[e].EffResistance = 1.0
	// no pBC anywhere: plantWellPosedness must pin one vertex.
	sys := Assemble(s)
	require.NotNil(t, sys)
	assert.True(t, s.Vertices[a].HasPBC || s.Vertices[b].HasPBC)
}

func TestApplyPressuresConvertsUnits(t *testing.T) {
	s := twoVertexNetwork(t, 2.0)
	ApplyPressures(s, []float64{5.0, 1.0})
	assert.Equal(t, 5.0/ScaleToDef, s.Vertices[0].Pressure)
	assert.Equal(t, 1.0/ScaleToDef, s.Vertices[1].Pressure)
}

func TestAssemblePartialMatchesFullOnUnchangedGraph(t *testing.T) {
	s := twoVertexNetwork(t, 3.0)
	full := Assemble(s)
	pFull := full.Solve()

	partial := AssemblePartial(s, full, []int{0})
	pPartial := partial.Solve()
	for i := range pFull {
		assert.InDelta(t, pFull[i], pPartial[i], 1e-9)
	}
}

func TestSolveEmptySystem(t *testing.T) {
	sys := NewSystem(0)
	p := sys.Solve()
	assert.Empty(t, p)
}
