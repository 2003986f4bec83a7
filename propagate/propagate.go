// Package propagate implements the discrete-event RBC propagator
// (spec.md §4.7-4.9): per-step advection, overshoot detection and
// bifurcation routing at every vertex type, spacing enforcement on
// admitted particles, and repositioning of particles that cannot cross
// a full vertex this step.
//
// Per spec.md §9's design note, the vertex-type-specific routing is
// built on a small set of shared primitives (advect, detectOvershoots,
// routeAndReposition, admitTo, enforceSpacing, repositionStuck) rather than
// six independent code paths.
package propagate

import (
	"sort"

	"github.com/vasculature/rbcflow/inject"
	"github.com/vasculature/rbcflow/network"
	"github.com/vasculature/rbcflow/sample"
)

// overshoot is one particle that crossed its edge's downstream boundary
// this step.
type overshoot struct {
	srcEdge int
	time    float64 // distance overshot / edge velocity
}

// Step advances every flowing edge by one dt: injection, advection,
// overshoot detection and bifurcation routing. It returns the set of
// edges whose RRBC changed, so the caller can re-run the rheology update
// restricted to those edges before the next step.
func Step(s *network.Store, inj *inject.Injector, dt float64) (changedEdges []int, tally sample.BifTally) {
	moved := make([]bool, s.EdgeCount())
	changed := make(map[int]bool)

	for eid, e := range s.Edges {
		if moved[eid] || e.NoFlow {
			continue
		}
		moved[eid] = true
		over := stepEdge(s, inj, dt, eid)
		changed[eid] = true
		if len(over) == 0 {
			continue
		}
		dispatch(s, inj, dt, downstreamVertex(s, e), eid, over, moved, changed, &tally)
	}

	for eid := range changed {
		changedEdges = append(changedEdges, eid)
	}
	sort.Ints(changedEdges)
	return changedEdges, tally
}

// stepEdge runs the edge-local portion of one step (injection, advection,
// overshoot extraction) and returns the particles that left the edge.
func stepEdge(s *network.Store, inj *inject.Injector, dt float64, eid int) []overshoot {
	e := s.Edges[eid]
	inj.Step(e, dt)
	advect(e, dt)
	dist := detectOvershoots(e)
	out := make([]overshoot, len(dist))
	for i, d := range dist {
		out[i] = overshoot{srcEdge: eid, time: d}
	}
	return out
}

// advect moves every particle on e forward by v*dt in the edge's flow
// direction (spec.md §4.7 step 2).
func advect(e *network.Edge, dt float64) {
	if e.NoFlow || e.Sign == 0 {
		return
	}
	delta := e.V * dt * float64(e.Sign)
	for i := range e.RRBC {
		e.RRBC[i] += delta
	}
}

// detectOvershoots removes particles that crossed e's downstream boundary
// and returns, for each, the time (distance overshot / v) it has spent
// past the boundary (spec.md §4.7 step 3).
func detectOvershoots(e *network.Edge) []float64 {
	var times []float64
	if e.Sign >= 0 {
		cut := len(e.RRBC)
		for cut > 0 && e.RRBC[cut-1] > e.Length {
			cut--
		}
		for i := cut; i < len(e.RRBC); i++ {
			times = append(times, overshootTime(e.RRBC[i]-e.Length, e.V))
		}
		e.RRBC = e.RRBC[:cut]
	} else {
		cut := 0
		for cut < len(e.RRBC) && e.RRBC[cut] < 0 {
			times = append(times, overshootTime(-e.RRBC[cut], e.V))
			cut++
		}
		e.RRBC = e.RRBC[cut:]
	}
	return times
}

func overshootTime(dist, v float64) float64 {
	if v <= 0 {
		return 0
	}
	return dist / v
}

// downstreamVertex returns the vertex an edge currently flows into.
func downstreamVertex(s *network.Store, e *network.Edge) int {
	if e.Sign >= 0 {
		return e.Target
	}
	return e.Source
}

// dispatch routes one edge's overshooters according to its downstream
// vertex's topology classification (spec.md §4.7 step 4).
func dispatch(s *network.Store, inj *inject.Injector, dt float64, v, triggerEdge int, triggerOver []overshoot,
	moved []bool, changed map[int]bool, tally *sample.BifTally) {

	vert := s.Vertices[v]
	switch vert.VType {
	case network.Sink:
		tally.Sunk += len(triggerOver)

	case network.Connecting:
		if len(vert.OutflowE) == 0 {
			repositionStuck(s.Edges[triggerEdge], len(triggerOver))
			changed[triggerEdge] = true
			return
		}
		tally.Connecting++
		routeAndReposition(s, []overshoot{}, triggerOver, vert.OutflowE, changed)

	case network.Divergent:
		tally.Divergent++
		routeAndReposition(s, []overshoot{}, triggerOver, outflowPreference(s, v), changed)

	case network.Convergent:
		tally.Convergent++
		pooled := gatherInflow(s, inj, dt, vert, triggerEdge, triggerOver, moved, changed)
		routeAndReposition(s, pooled, nil, vert.OutflowE, changed)

	case network.DoubleConnecting:
		tally.DoubleConnecting++
		pooled := gatherInflow(s, inj, dt, vert, triggerEdge, triggerOver, moved, changed)
		routeAndReposition(s, pooled, nil, outflowPreference(s, v), changed)

	default:
		// NO_FLOW or unclassified: nothing downstream can accept these
		// particles; they stay stuck against the boundary they reached.
		tally.Stuck += len(triggerOver)
		repositionStuck(s.Edges[triggerEdge], len(triggerOver))
		changed[triggerEdge] = true
	}
}

// gatherInflow advances every not-yet-moved inflow edge at vertex vert
// (besides the one that triggered this dispatch) and merges all of their
// overshooters into one pool, so a convergent or double-connecting event
// is resolved exactly once regardless of which sibling edge triggers it.
func gatherInflow(s *network.Store, inj *inject.Injector, dt float64, vert *network.Vertex,
	triggerEdge int, triggerOver []overshoot, moved []bool, changed map[int]bool) []overshoot {

	pooled := append([]overshoot{}, triggerOver...)
	for _, sib := range vert.InflowE {
		if sib == triggerEdge || moved[sib] {
			continue
		}
		moved[sib] = true
		changed[sib] = true
		pooled = append(pooled, stepEdge(s, inj, dt, sib)...)
	}
	return pooled
}

// outflowPreference orders a vertex's outflow edges by preference: for a
// capillary vertex, by bulk velocity flow/crosssection (not the
// hematocrit-corrected RBC velocity, which two edges of equal diameter
// but different Htt could rank oppositely); otherwise by raw flow, both
// descending (spec.md §4.7, "the higher-flow downstream edge is filled
// first").
func outflowPreference(s *network.Store, v int) []int {
	vert := s.Vertices[v]
	outs := append([]int{}, vert.OutflowE...)
	sort.SliceStable(outs, func(i, j int) bool {
		a, b := s.Edges[outs[i]], s.Edges[outs[j]]
		if vert.IsCap {
			return a.Flow/a.CrossSect > b.Flow/b.CrossSect
		}
		return a.Flow > b.Flow
	})
	return outs
}

// routeAndReposition admits pooled overshooters into outPref edges in
// preference order, then repositions whatever is left as stuck against
// the boundary of the edge it originated from. Either pooled (merged,
// multi-source) or single (one edge's own list) is populated, never both.
func routeAndReposition(s *network.Store, pooled, single []overshoot, outPref []int, changed map[int]bool) {
	if len(pooled) == 0 {
		pooled = single
	}
	// Admit the particles that have been past the boundary the longest
	// first (spec.md §4.7, "the latest overshooters in overshoot-time
	// order are admitted first").
	sort.SliceStable(pooled, func(i, j int) bool { return pooled[i].time > pooled[j].time })

	idx := 0
	for _, oid := range outPref {
		o := s.Edges[oid]
		if o.RBCinMax <= 0 {
			continue
		}
		n := o.RBCinMax
		if rem := len(pooled) - idx; n > rem {
			n = rem
		}
		if n <= 0 {
			continue
		}
		take := pooled[idx : idx+n]
		idx += n
		admitTo(o, take)
		o.RBCinMax -= n
		changed[oid] = true
	}

	stuckBySrc := make(map[int]int)
	for _, o := range pooled[idx:] {
		stuckBySrc[o.srcEdge]++
	}
	for eid, k := range stuckBySrc {
		repositionStuck(s.Edges[eid], k)
		changed[eid] = true
	}
}

// admitTo splices newly arrived particles into edge o, entering at
// distance (overshoot time * o.V) from o's injection end (spec.md §4.7,
// "each admitted particle's entry position on the downstream edge is
// overshootTime times the downstream edge's own velocity"), then
// enforces minimum spacing against whatever was already on o.
func admitTo(o *network.Edge, take []overshoot) {
	pos := make([]float64, len(take))
	for i, t := range take {
		pos[i] = t.time * o.V
	}
	sort.Float64s(pos)

	if o.Sign >= 0 {
		o.RRBC = append(append([]float64{}, pos...), o.RRBC...)
	} else {
		coords := make([]float64, len(pos))
		for i, p := range pos {
			coords[len(pos)-1-i] = o.Length - p
		}
		o.RRBC = append(o.RRBC, coords...)
	}
	sort.Float64s(o.RRBC)
	enforceSpacing(o)
}

// repositionStuck stacks k particles that could not cross a vertex
// against the downstream wall of edge e, relaxing spacing back toward
// the edge's interior as needed (spec.md §4.9).
func repositionStuck(e *network.Edge, k int) {
	if k <= 0 {
		return
	}
	add := make([]float64, k)
	if e.Sign >= 0 {
		for i := 0; i < k; i++ {
			add[i] = e.Length - float64(k-1-i)*e.MinDist
		}
		e.RRBC = append(e.RRBC, add...)
	} else {
		for i := 0; i < k; i++ {
			add[i] = float64(i) * e.MinDist
		}
		e.RRBC = append(add, e.RRBC...)
	}
	sort.Float64s(e.RRBC)
	enforceSpacing(e)
}

// enforceSpacing repairs an edge's particle train after a splice so no
// two particles are closer than MinDist and all positions stay in
// [0, Length]: a backward pass pulls earlier particles down to keep the
// gap ahead of them, then a forward pass (only if that pushed the first
// particle negative) pushes later ones back up, mirroring spec.md
// §4.8's clamp-then-relax algorithm (unified here to serve both the
// admission and stuck-repositioning paths).
func enforceSpacing(e *network.Edge) {
	n := len(e.RRBC)
	if n == 0 {
		return
	}
	if e.RRBC[n-1] > e.Length {
		e.RRBC[n-1] = e.Length
	}
	for i := n - 1; i > 0; i-- {
		if e.RRBC[i]-e.RRBC[i-1] < e.MinDist {
			e.RRBC[i-1] = e.RRBC[i] - e.MinDist
		}
	}
	if e.RRBC[0] < 0 {
		e.RRBC[0] = 0
		for i := 1; i < n; i++ {
			if e.RRBC[i] < e.RRBC[i-1]+e.MinDist {
				e.RRBC[i] = e.RRBC[i-1] + e.MinDist
			}
		}
	}
}
