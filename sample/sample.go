// Package sample snapshots and accumulates running averages of
// edge/vertex fields (spec.md component table, "Sampler"), plus the
// bifurcation-event tally supplemented from the original source
// (SPEC_FULL.md §3.2).
package sample

import "github.com/vasculature/rbcflow/network"

// BifTally counts propagator events by kind over one or more steps, when
// Config.AnalyzeBifEvents is enabled.
type BifTally struct {
	Divergent        int
	Convergent       int
	Connecting       int
	DoubleConnecting int
	Stuck            int
	Sunk             int
	Injected         int
}

// Add merges another tally into this one.
func (t *BifTally) Add(o BifTally) {
	t.Divergent += o.Divergent
	t.Convergent += o.Convergent
	t.Connecting += o.Connecting
	t.DoubleConnecting += o.DoubleConnecting
	t.Stuck += o.Stuck
	t.Sunk += o.Sunk
	t.Injected += o.Injected
}

// EdgeSnapshot is one edge's sampled fields at a point in time.
type EdgeSnapshot struct {
	Time          float64
	Flow          float64
	V             float64
	Htt           float64
	Htd           float64
	NRBC          int
	EffResistance float64
}

// VertexSnapshot is one vertex's sampled fields at a point in time.
type VertexSnapshot struct {
	Time     float64
	Pressure float64
}

// Snapshot is the sample dictionary described in spec.md §6, keyed by
// edge/vertex id.
type Snapshot struct {
	Time     float64
	Edges    map[int]EdgeSnapshot
	Vertices map[int]VertexSnapshot
}

// Averages accumulates running per-edge/per-vertex averages across all
// samples taken so far.
type Averages struct {
	Count int

	edgeFlowSum  map[int]float64
	edgeVSum     map[int]float64
	edgeHttSum   map[int]float64
	edgeHtdSum   map[int]float64
	vertexPSum   map[int]float64
}

// NewAverages allocates an empty Averages accumulator.
func NewAverages() *Averages {
	return &Averages{
		edgeFlowSum: make(map[int]float64),
		edgeVSum:    make(map[int]float64),
		edgeHttSum:  make(map[int]float64),
		edgeHtdSum:  make(map[int]float64),
		vertexPSum:  make(map[int]float64),
	}
}

// Take records one Snapshot of the store; Accumulate folds it into the
// running averages.
func Take(s *network.Store, t float64) Snapshot {
	snap := Snapshot{
		Time:     t,
		Edges:    make(map[int]EdgeSnapshot, s.EdgeCount()),
		Vertices: make(map[int]VertexSnapshot, s.VertexCount()),
	}
	for i, e := range s.Edges {
		snap.Edges[i] = EdgeSnapshot{
			Time: t, Flow: e.Flow, V: e.V, Htt: e.Htt, Htd: e.Htd,
			NRBC: e.NRBC, EffResistance: e.EffResistance,
		}
	}
	for i, v := range s.Vertices {
		snap.Vertices[i] = VertexSnapshot{Time: t, Pressure: v.Pressure}
	}
	return snap
}

// Accumulate folds one Snapshot into the running averages.
func (a *Averages) Accumulate(snap Snapshot) {
	a.Count++
	for i, es := range snap.Edges {
		a.edgeFlowSum[i] += es.Flow
		a.edgeVSum[i] += es.V
		a.edgeHttSum[i] += es.Htt
		a.edgeHtdSum[i] += es.Htd
	}
	for i, vs := range snap.Vertices {
		a.vertexPSum[i] += vs.Pressure
	}
}

// EdgeAverage returns the running mean flow/velocity/htt/htd for an edge.
func (a *Averages) EdgeAverage(e int) (flow, v, htt, htd float64) {
	if a.Count == 0 {
		return
	}
	n := float64(a.Count)
	return a.edgeFlowSum[e] / n, a.edgeVSum[e] / n, a.edgeHttSum[e] / n, a.edgeHtdSum[e] / n
}

// VertexAverage returns the running mean pressure for a vertex.
func (a *Averages) VertexAverage(v int) float64 {
	if a.Count == 0 {
		return 0
	}
	return a.vertexPSum[v] / float64(a.Count)
}
