package propagate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vasculature/rbcflow/inject"
	"github.com/vasculature/rbcflow/network"
)

func setupEdge(length, minDist, v float64, sign int) *network.Edge {
	return &network.Edge{
		Length: length, MinDist: minDist, V: v, Sign: sign,
		NMax: int(length / minDist), RBCinMax: int(length / minDist),
	}
}

func TestAdvectMovesForward(t *testing.T) {
	e := setupEdge(100, 5, 2, 1)
	e.RRBC = []float64{10, 20}
	advect(e, 1.0)
	assert.Equal(t, []float64{12, 22}, e.RRBC)
}

func TestAdvectNoOpWhenNoFlow(t *testing.T) {
	e := setupEdge(100, 5, 2, 1)
	e.RRBC = []float64{10}
	e.NoFlow = true
	advect(e, 1.0)
	assert.Equal(t, []float64{10}, e.RRBC)
}

func TestDetectOvershootsPositiveSign(t *testing.T) {
	e := setupEdge(100, 5, 2, 1)
	e.RRBC = []float64{50, 99, 102, 110}
	times := detectOvershoots(e)
	require.Len(t, times, 2)
	assert.Equal(t, []float64{50, 99}, e.RRBC)
	assert.InDelta(t, 1.0, times[0], 1e-9) // (102-100)/2
	assert.InDelta(t, 5.0, times[1], 1e-9) // (110-100)/2
}

func TestDetectOvershootsNegativeSign(t *testing.T) {
	e := setupEdge(100, 5, 2, -1)
	e.RRBC = []float64{-6, -2, 50, 90}
	times := detectOvershoots(e)
	require.Len(t, times, 2)
	assert.Equal(t, []float64{50, 90}, e.RRBC)
	assert.InDelta(t, 3.0, times[0], 1e-9) // (6)/2, -6 is examined first
	assert.InDelta(t, 1.0, times[1], 1e-9) // (2)/2
}

func TestEnforceSpacingPullsEarlierParticlesDown(t *testing.T) {
	e := setupEdge(100, 5, 2, 1)
	e.RRBC = []float64{10, 11, 30}
	enforceSpacing(e)
	assert.InDelta(t, 5.0, e.RRBC[1]-e.RRBC[0], 1e-9)
	assert.True(t, e.RRBC[0] >= 0)
}

func TestRepositionStuckWallStacksDownstream(t *testing.T) {
	e := setupEdge(100, 5, 1, 1)
	repositionStuck(e, 3)
	require.Len(t, e.RRBC, 3)
	assert.Equal(t, 100.0, e.RRBC[2])
	for i := 1; i < len(e.RRBC); i++ {
		assert.InDelta(t, e.MinDist, e.RRBC[i]-e.RRBC[i-1], 1e-9)
	}
}

func TestRepositionStuckNegativeSignWallStacksAtZero(t *testing.T) {
	e := setupEdge(100, 5, 1, -1)
	repositionStuck(e, 2)
	require.Len(t, e.RRBC, 2)
	assert.Equal(t, 0.0, e.RRBC[0])
}

func TestOutflowPreferenceCapillaryUsesBulkVelocityNotRBCVelocity(t *testing.T) {
	s := network.NewStore()
	v := s.AddVertex()
	out1 := s.AddVertex()
	out2 := s.AddVertex()
	e1 := s.AddEdge(v, out1, 50, 10)
	e2 := s.AddEdge(v, out2, 50, 10)

	s.Vertices[v].IsCap = true
	s.Vertices[v].OutflowE = []int{e1, e2}

	// e1 has lower flow/crosssection but a higher Htt-corrected RBC
	// velocity; e2 has higher flow/crosssection but lower RBC velocity.
	// Preference must follow flow/crosssection, not V.
	s.Edges[e1].Flow = 1.0
	s.Edges[e1].CrossSect = s.Edges[e2].CrossSect // equal diameters
	s.Edges[e1].V = 100.0

	s.Edges[e2].Flow = 2.0
	s.Edges[e2].V = 1.0

	outs := outflowPreference(s, v)
	require.Equal(t, []int{e2, e1}, outs)
}

func TestStepSinglePassThroughSinkEdge(t *testing.T) {
	s := network.NewStore()
	a := s.AddVertex()
	b := s.AddVertex()
	e := s.AddEdge(a, b, 20, 5)
	s.Edges[e].Sign = 1
	s.Edges[e].V = 10
	s.Edges[e].MinDist = 5
	s.Edges[e].NMax = 4
	s.Edges[e].RRBC = []float64{18}
	s.Vertices[b].VType = network.Sink

	inj := inject.NewInjector(1)
	changed, tally := Step(s, inj, 1.0)
	assert.Contains(t, changed, e)
	assert.Equal(t, 1, tally.Sunk)
	assert.Empty(t, s.Edges[e].RRBC)
}

func TestStepConnectingRoutesIntoDownstreamEdge(t *testing.T) {
	s := network.NewStore()
	a := s.AddVertex()
	b := s.AddVertex()
	c := s.AddVertex()
	e1 := s.AddEdge(a, b, 20, 5)
	e2 := s.AddEdge(b, c, 50, 5)
	for _, eid := range []int{e1, e2} {
		s.Edges[eid].Sign = 1
		s.Edges[eid].V = 10
		s.Edges[eid].MinDist = 5
		s.Edges[eid].NMax = 10
	}
	s.Edges[e1].RRBC = []float64{18}
	s.Edges[e2].RBCinMax = 10
	s.Vertices[b].VType = network.Connecting
	s.Vertices[b].InflowE = []int{e1}
	s.Vertices[b].OutflowE = []int{e2}

	inj := inject.NewInjector(1)
	changed, tally := Step(s, inj, 1.0)
	assert.Equal(t, 1, tally.Connecting)
	assert.Contains(t, changed, e2)
	require.Len(t, s.Edges[e2].RRBC, 1)
	assert.Greater(t, s.Edges[e2].RRBC[0], 0.0)
}
