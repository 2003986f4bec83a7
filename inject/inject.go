// Package inject implements the inlet injector of spec.md §4.6: it
// generates new RBC positions at hematocrit-boundary-condition edges
// using a lognormal inter-RBC spacing distribution fitted to a target
// mean/variance of line density.
package inject

import (
	"math"
	"math/rand"
	"sort"

	"github.com/vasculature/rbcflow/network"
)

// Injector draws inter-RBC spacings for every httBC edge. Fits are
// cached per httBC value (spec.md §4.6, "these are constants for the
// simulation").
type Injector struct {
	rng   *rand.Rand
	cache map[float64]Fit
}

// NewInjector returns an Injector seeded explicitly for reproducibility
// (spec.md §9).
func NewInjector(seed int64) *Injector {
	return &Injector{
		rng:   rand.New(rand.NewSource(seed)),
		cache: make(map[float64]Fit),
	}
}

func (inj *Injector) fitFor(httBC float64) Fit {
	if f, ok := inj.cache[httBC]; ok {
		return f
	}
	f := FitMuSigma(httBC)
	inj.cache[httBC] = f
	return f
}

// headDistance returns the distance from the edge's injection (upstream)
// end to its current head particle, or to where the head would now be
// had it kept moving, if the edge is empty (spec.md §4.6 step 1).
func headDistance(e *network.Edge, dt float64) float64 {
	if len(e.RRBC) > 0 {
		if e.Sign >= 0 {
			return e.RRBC[0]
		}
		return e.Length - e.RRBC[len(e.RRBC)-1]
	}
	return e.PosFirstLast + e.VLast*dt
}

// SeedInletHeads initializes posFirst_last for every httBC edge that has
// never been stepped yet (empty train, posFirst_last still its zero
// value): the head-tracking state starts at the far (downstream) end of
// the edge, giving the injector the full edge length to fill from on its
// first call. Run once during driver initialization.
func SeedInletHeads(s *network.Store) {
	for _, e := range s.Edges {
		if e.HasHttBC && len(e.RRBC) == 0 && e.PosFirstLast == 0 && e.VLast == 0 {
			e.PosFirstLast = e.Length
		}
	}
}

// Step runs one injection pass on edge e, if it carries an httBC
// (spec.md §4.6). Must run before the edge's own RBCs are advected.
func (inj *Injector) Step(e *network.Edge, dt float64) {
	if !e.HasHttBC {
		return
	}
	fit := inj.fitFor(e.HttBC)

	posFirst := headDistance(e, dt)
	placedAny := false
	lastPlaced := posFirst

	free := e.RBCinMax
	for free > 0 && posFirst >= e.MinDist {
		var s float64
		if e.HasKeep && len(e.KeepRBCs) > 0 {
			s = e.KeepRBCs[0]
		} else {
			z := inj.rng.NormFloat64()
			s = e.MinDist + e.MinDist*math.Exp(fit.Mu+fit.Sigma*z)
		}

		if posFirst-s < 0 {
			e.KeepRBCs = []float64{s}
			e.HasKeep = true
			break
		}

		newPos := posFirst - s
		insertAtInjectionEnd(e, newPos)
		e.HasKeep = false
		e.KeepRBCs = nil
		posFirst = newPos
		lastPlaced = newPos
		placedAny = true
		free--

		if len(e.RRBC) >= e.NMax {
			break
		}
	}

	if placedAny {
		e.PosFirstLast = lastPlaced
	} else {
		e.PosFirstLast = posFirst
	}
	e.VLast = e.V
	e.RBCinMax = free
}

// insertAtInjectionEnd inserts a particle at distance pos from the
// injection end into e.RRBC, respecting the source->target storage
// convention (spec.md §4.6 step 3).
func insertAtInjectionEnd(e *network.Edge, pos float64) {
	if e.Sign >= 0 {
		e.RRBC = append([]float64{pos}, e.RRBC...)
		return
	}
	coord := e.Length - pos
	e.RRBC = append(e.RRBC, coord)
	sort.Float64s(e.RRBC)
}
