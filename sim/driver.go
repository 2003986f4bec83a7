package sim

import (
	"github.com/cpmech/gosl/io"

	"github.com/vasculature/rbcflow/flow"
	"github.com/vasculature/rbcflow/inject"
	"github.com/vasculature/rbcflow/network"
	"github.com/vasculature/rbcflow/propagate"
	"github.com/vasculature/rbcflow/rheology"
	"github.com/vasculature/rbcflow/sample"
	"github.com/vasculature/rbcflow/solver"
	"github.com/vasculature/rbcflow/topology"
)

// Driver orchestrates the fixed-dt evolution loop of spec.md §4.10:
// rheology -> solver -> flow/sign -> classifier -> RBCinMax -> propagator
// -> hematocrit -> time/sampler/checkpoint, repeated every step.
type Driver struct {
	Store *network.Store
	Cfg   Config
	Inj   *inject.Injector

	T               float64
	Step_           int
	DtFinal         float64
	IterFinalSample int
	BackUpCounter   int
	AveragedCount   int
	RBCMovedAll     int
	RBCsMovedPerEdge map[int]int

	Averages *sample.Averages
	Tally    sample.BifTally

	sys *solver.System

	pendingVertexUpdate []int // vertices incident to a sign flip last step
	lastEdgeUpdate      []int // edges touched by the propagator last step
	initialized         bool
}

func (d *Driver) rheoParams() rheology.Params {
	return rheology.Params{Invivo: d.Cfg.Invivo, PlasmaViscosity: d.Cfg.PlasmaViscosity}
}

// NewDriver wires a Store and Config into a Driver and runs the full
// (non-partial) initialization pass spec.md §4.10 implies every evolve()
// call needs once before its first (a)-(h) cycle.
func NewDriver(s *network.Store, cfg Config) *Driver {
	cfg.ApplyRandomParams()
	d := &Driver{
		Store:            s,
		Cfg:              cfg,
		Inj:              inject.NewInjector(cfg.SeedRand),
		Averages:         sample.NewAverages(),
		RBCsMovedPerEdge: make(map[int]int),
	}
	d.initFull()
	return d
}

func (d *Driver) initFull() {
	p := d.rheoParams()
	rheology.UpdateNominalAndSpecificResistance(d.Store, p, nil)
	rheology.UpdateMinDistNMax(d.Store, nil)
	rheology.UpdateHematocrit(d.Store, p, nil)
	rheology.UpdateEffectiveResistance(d.Store, p, nil)
	topology.ClassifyAll(d.Store, d.Cfg.DThreshold)
	d.sys = solver.Assemble(d.Store)
	pr := d.sys.Solve()
	solver.ApplyPressures(d.Store, pr)
	flow.Update(d.Store, d.Cfg.Invivo)
	rheology.UpdateRBCinMax(d.Store, nil)
	inject.SeedInletHeads(d.Store)
	d.initialized = true
}

// vertexEdgeScope returns the union of edges incident to vs, or nil if vs
// is empty.
func (d *Driver) vertexEdgeScope(vs []int) []int {
	if len(vs) == 0 {
		return nil
	}
	seen := make(map[int]bool)
	var out []int
	for _, v := range vs {
		for _, eid := range d.Store.IncidentEdges(v) {
			if !seen[eid] {
				seen[eid] = true
				out = append(out, eid)
			}
		}
	}
	return out
}

func unionInts(a, b []int) []int {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	seen := make(map[int]bool, len(a)+len(b))
	out := make([]int, 0, len(a)+len(b))
	for _, x := range append(append([]int{}, a...), b...) {
		if !seen[x] {
			seen[x] = true
			out = append(out, x)
		}
	}
	return out
}

// Step runs one fixed-dt iteration: stages (a)-(h) of spec.md §4.10.
func (d *Driver) Step(dt float64) {
	p := d.rheoParams()

	// (a) partial rheology update on vertexUpdate-incident edges, folded
	// with the edges the propagator touched last step (their hematocrit,
	// and so effective resistance, just changed).
	edgeScope := unionInts(d.vertexEdgeScope(d.pendingVertexUpdate), d.lastEdgeUpdate)
	rheology.UpdateNominalAndSpecificResistance(d.Store, p, edgeScope)
	rheology.UpdateEffectiveResistance(d.Store, p, edgeScope)

	// (b) partial linear system assembly and solve, rebuilding the rows of
	// the flipped vertices and of both ends of every edge updated in (a).
	rowScope := append([]int{}, d.pendingVertexUpdate...)
	for _, eid := range d.lastEdgeUpdate {
		e := d.Store.Edges[eid]
		rowScope = append(rowScope, e.Source, e.Target)
	}
	d.sys = solver.AssemblePartial(d.Store, d.sys, rowScope)
	pr := d.sys.Solve()

	// (c) pressure copy, flow/velocity, sign, mass-balance.
	solver.ApplyPressures(d.Store, pr)
	flow.Update(d.Store, d.Cfg.Invivo)
	if d.Cfg.VerifyEvery > 0 && d.Step_%d.Cfg.VerifyEvery == 0 {
		d.verifyInvariants()
	}

	// (d) topology classifier, restricted to vertices incident to a sign flip.
	changedSignEdges := flow.ChangedSignEdges(d.Store)
	var flippedVertices []int
	seenV := make(map[int]bool)
	for _, eid := range changedSignEdges {
		e := d.Store.Edges[eid]
		for _, v := range [2]int{e.Source, e.Target} {
			if !seenV[v] {
				seenV[v] = true
				flippedVertices = append(flippedVertices, v)
			}
		}
	}
	topology.Classify(d.Store, d.Cfg.DThreshold, flippedVertices)

	// (e) RBCinMax recompute; depends on the current train on every edge,
	// so it is always done in full.
	rheology.UpdateRBCinMax(d.Store, nil)

	// (f) propagator.
	changedEdges, tally := propagate.Step(d.Store, d.Inj, dt)
	if d.Cfg.AnalyzeBifEvents {
		d.Tally.Add(tally)
	}
	for _, eid := range changedEdges {
		d.RBCsMovedPerEdge[eid]++
		d.RBCMovedAll++
	}

	// (g) hematocrit recompute on edges touched by (f).
	rheology.UpdateHematocrit(d.Store, p, changedEdges)

	// (h) advance t, sampler, checkpoint.
	d.T += dt
	d.Step_++
	d.DtFinal = d.T
	if d.Cfg.SampleEvery > 0 && d.Step_%d.Cfg.SampleEvery == 0 {
		snap := sample.Take(d.Store, d.T)
		d.Averages.Accumulate(snap)
		d.AveragedCount++
		d.IterFinalSample = d.Step_
	}
	if d.Cfg.CheckpointEvery > 0 && d.Step_%d.Cfg.CheckpointEvery == 0 && d.Cfg.DirOut != "" {
		if err := Save(d, d.Cfg.DirOut); err != nil {
			io.Pfred("sim: checkpoint at step %d failed: %v\n", d.Step_, err)
		} else {
			d.BackUpCounter++
		}
	}

	d.pendingVertexUpdate = flippedVertices
	d.lastEdgeUpdate = changedEdges
}

// Evolve runs fixed-dt iterations until duration has elapsed (spec.md
// §6's evolve(duration, method, dt, ...); "method" is dropped, see
// DESIGN.md's dropped-dep entry for the gosl/la factorization path this
// build replaces with a fixed conjugate-gradient solve).
//
// init selects between a fresh run and a resumed one, per the original's
// init kwarg: with init=true, T/Step_/BackUpCounter/the running sampler
// average reset to zero and duration is the absolute run length; with
// init=false, T/Step_ are whatever was restored from a checkpoint (Load
// already leaves them as persisted; the sampler average is not persisted,
// so after Load it starts empty), BackUpCounter is advanced by one, and
// duration is added on top of that persisted T, so the sample/checkpoint windows are
// implicitly offset by the point the run was resumed from. Checkpoints
// are written every 10% of duration, matching BackUpT=0.1*time in the
// original.
func (d *Driver) Evolve(duration, dt float64, init bool) {
	if init {
		d.T = 0
		d.Step_ = 0
		d.BackUpCounter = 0
		d.AveragedCount = 0
		d.IterFinalSample = 0
		d.Averages = sample.NewAverages()
	} else {
		d.BackUpCounter++
	}

	backUpEvery := 0.1 * duration
	nextBackUp := d.T + backUpEvery
	endTime := d.T + duration

	for d.T < endTime {
		d.Step(dt)
		if d.Cfg.DirOut != "" && d.T > nextBackUp {
			if err := Save(d, d.Cfg.DirOut); err != nil {
				io.Pfred("sim: checkpoint at t=%.6g failed: %v\n", d.T, err)
			} else {
				d.BackUpCounter++
			}
			nextBackUp += backUpEvery
		}
	}
}

// verifyInvariants checks the train/mass invariants of spec.md §3 and §8
// and logs (never panics) on violation, per spec.md §7's "none are fatal
// by design" policy: per-edge spacing, bounds and nRBC <= nMax, plus the
// per-vertex mass balance. Total RBC count conservation and pressure
// consistency are not checked.
func (d *Driver) verifyInvariants() {
	const eps = 1e-9
	for i, e := range d.Store.Edges {
		for j := 1; j < len(e.RRBC); j++ {
			if e.RRBC[j]-e.RRBC[j-1] < e.MinDist-eps {
				io.Pfred("sim: edge %d spacing violation at index %d (gap=%.6g < minDist=%.6g)\n",
					i, j, e.RRBC[j]-e.RRBC[j-1], e.MinDist)
			}
		}
		if len(e.RRBC) > 0 && (e.RRBC[0] < -eps || e.RRBC[len(e.RRBC)-1] > e.Length+eps) {
			io.Pfred("sim: edge %d has a position outside [0, length]\n", i)
		}
		if e.NRBC > e.NMax {
			io.Pfred("sim: edge %d nRBC=%d exceeds nMax=%d\n", i, e.NRBC, e.NMax)
		}
	}
	bad := flow.VerifyMassBalance(d.Store, d.Cfg.MassBalanceTol)
	for _, v := range bad {
		io.Pfred("sim: vertex %d violates mass balance beyond tol=%.3e\n", v, d.Cfg.MassBalanceTol)
	}
}

