package topology

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vasculature/rbcflow/network"
)

func yBifurcation(t *testing.T) (*network.Store, int, int, int, int) {
	t.Helper()
	s := network.NewStore()
	src := s.AddVertex()
	mid := s.AddVertex()
	out1 := s.AddVertex()
	out2 := s.AddVertex()
	s.AddEdge(src, mid, 50, 10)
	s.AddEdge(mid, out1, 50, 10)
	s.AddEdge(mid, out2, 50, 10)
	s.Vertices[src].AV = true
	s.Vertices[out1].VV = true
	s.Vertices[out2].VV = true
	s.Vertices[src].Pressure = 10
	s.Vertices[mid].Pressure = 5
	s.Vertices[out1].Pressure = 0
	s.Vertices[out2].Pressure = 0
	return s, src, mid, out1, out2
}

func TestClassifyDivergentVertex(t *testing.T) {
	s, _, mid, _, _ := yBifurcation(t)
	ClassifyAll(s, DefaultDThreshold)
	assert.Equal(t, network.Divergent, s.Vertices[mid].VType)
	assert.Len(t, s.Vertices[mid].OutflowE, 2)
	assert.Len(t, s.Vertices[mid].InflowE, 1)
}

func TestClassifySourceAndSink(t *testing.T) {
	s, src, _, out1, _ := yBifurcation(t)
	ClassifyAll(s, DefaultDThreshold)
	assert.Equal(t, network.Source, s.Vertices[src].VType)
	assert.Equal(t, network.Sink, s.Vertices[out1].VType)
}

func TestClassifyNoFlowWithoutBoundaryFlags(t *testing.T) {
	s, src, _, _, _ := yBifurcation(t)
	s.Vertices[src].AV = false
	ClassifyAll(s, DefaultDThreshold)
	assert.Equal(t, network.NoFlow, s.Vertices[src].VType)
}

func TestClassifyConnectingVertex(t *testing.T) {
	s := network.NewStore()
	a := s.AddVertex()
	b := s.AddVertex()
	c := s.AddVertex()
	s.AddEdge(a, b, 50, 10)
	s.AddEdge(b, c, 50, 10)
	s.Vertices[a].Pressure = 10
	s.Vertices[b].Pressure = 5
	s.Vertices[c].Pressure = 0
	ClassifyAll(s, DefaultDThreshold)
	assert.Equal(t, network.Connecting, s.Vertices[b].VType)
}

func TestClassifyIsolatedVertexWithBoundaryFlags(t *testing.T) {
	s := network.NewStore()
	src := s.AddVertex()
	sink := s.AddVertex()
	s.Vertices[src].AV = true
	s.Vertices[sink].VV = true
	ClassifyAll(s, DefaultDThreshold)
	assert.Equal(t, network.Source, s.Vertices[src].VType)
	assert.Equal(t, network.Sink, s.Vertices[sink].VType)
}

func TestClassifyIsolatedVertexWithoutBoundaryFlagsIsNoFlow(t *testing.T) {
	s := network.NewStore()
	v := s.AddVertex()
	ClassifyAll(s, DefaultDThreshold)
	assert.Equal(t, network.NoFlow, s.Vertices[v].VType)
}

func TestUpdateCapillaryFlag(t *testing.T) {
	s, _, mid, _, _ := yBifurcation(t)
	ClassifyAll(s, 5.0) // all diameters are 10 > 5, so non-capillary
	assert.False(t, s.Vertices[mid].IsCap)
	ClassifyAll(s, 20.0) // all diameters are 10 < 20, so capillary
	assert.True(t, s.Vertices[mid].IsCap)
}
