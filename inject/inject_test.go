package inject

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vasculature/rbcflow/network"
)

func TestFitMuSigmaProducesValidParams(t *testing.T) {
	fit := FitMuSigma(0.3)
	assert.Greater(t, fit.Sigma, 0.0)
	r1, r2 := residual(fit.Mu, fit.Sigma, 0.3)
	// The Newton iteration is damped and may not fully converge to fitTol
	// within fitMaxIter for every httBC; it should at least move the
	// residual close to zero from the initial guess.
	assert.Less(t, math.Abs(r1), 0.2)
	assert.Less(t, math.Abs(r2), 0.2)
}

func TestFitMuSigmaCachedPerHttBC(t *testing.T) {
	inj := NewInjector(1)
	a := inj.fitFor(0.3)
	b := inj.fitFor(0.3)
	assert.Equal(t, a, b)
	assert.Len(t, inj.cache, 1)
}

func feedEdge(httBC float64) *network.Edge {
	return &network.Edge{
		Length:   100,
		MinDist:  5,
		NMax:     20,
		RBCinMax: 20,
		HasHttBC: true,
		HttBC:    httBC,
		Sign:     1,
		V:        10,
	}
}

func TestStepNoOpWithoutHttBC(t *testing.T) {
	inj := NewInjector(1)
	e := feedEdge(0.3)
	e.HasHttBC = false
	inj.Step(e, 1.0)
	assert.Empty(t, e.RRBC)
}

func TestStepFillsEmptyEdgeFromTheInjectionEnd(t *testing.T) {
	inj := NewInjector(42)
	e := feedEdge(0.3)
	e.PosFirstLast = e.Length // driver seeds this once via SeedInletHeads
	inj.Step(e, 1.0)
	require.NotEmpty(t, e.RRBC)
	for i := 1; i < len(e.RRBC); i++ {
		assert.GreaterOrEqual(t, e.RRBC[i]-e.RRBC[i-1], e.MinDist-1e-9)
	}
	for _, p := range e.RRBC {
		assert.GreaterOrEqual(t, p, 0.0)
		assert.LessOrEqual(t, p, e.Length)
	}
}

func TestStepRespectsRBCinMaxCapacity(t *testing.T) {
	inj := NewInjector(7)
	e := feedEdge(0.9)
	e.PosFirstLast = e.Length
	e.RBCinMax = 2
	inj.Step(e, 10.0)
	assert.LessOrEqual(t, len(e.RRBC), 2)
}

func TestSeedInletHeadsOnlySeedsUntouchedEdges(t *testing.T) {
	s := network.NewStore()
	a := s.AddVertex()
	b := s.AddVertex()
	e1 := s.AddEdge(a, b, 80, 5)
	s.Edges[e1].HasHttBC = true
	e2 := s.AddEdge(a, b, 80, 5)
	s.Edges[e2].HasHttBC = true
	s.Edges[e2].RRBC = []float64{10}

	SeedInletHeads(s)
	assert.Equal(t, 80.0, s.Edges[e1].PosFirstLast)
	assert.Equal(t, 0.0, s.Edges[e2].PosFirstLast)
}

func TestInsertAtInjectionEndPositiveSign(t *testing.T) {
	e := &network.Edge{Length: 100, Sign: 1, RRBC: []float64{50}}
	insertAtInjectionEnd(e, 10)
	assert.Equal(t, []float64{10, 50}, e.RRBC)
}

func TestInsertAtInjectionEndNegativeSign(t *testing.T) {
	e := &network.Edge{Length: 100, Sign: -1, RRBC: []float64{50}}
	insertAtInjectionEnd(e, 10) // distance 10 from injection end = target side
	assert.Equal(t, []float64{50, 90}, e.RRBC)
}
