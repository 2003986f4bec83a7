// Package topology classifies each vertex into a local flow-topology
// type (spec.md §4.5): source, sink, divergent, convergent, connecting,
// double-connecting or no-flow, and maintains each vertex's inflow/
// outflow edge lists.
package topology

import (
	"github.com/cpmech/gosl/io"

	"github.com/vasculature/rbcflow/network"
)

// DThreshold default, in µm, below which a vessel is a capillary
// (spec.md §6).
const DefaultDThreshold = 10.0

// ClassifyAll refreshes every vertex; used at init and at finalization
// (spec.md §4.5, §5).
func ClassifyAll(s *network.Store, dThreshold float64) {
	all := make([]int, s.VertexCount())
	for i := range all {
		all[i] = i
	}
	Classify(s, dThreshold, all)
}

// Classify refreshes only the given vertices, per spec.md's partial
// relinearization contract: subsequent steps re-classify only vertices
// incident to a changed-sign edge.
func Classify(s *network.Store, dThreshold float64, vertices []int) {
	for _, v := range vertices {
		classifyOne(s, dThreshold, v)
	}
}

func classifyOne(s *network.Store, dThreshold float64, v int) {
	vert := s.Vertices[v]
	incident := s.IncidentEdges(v)

	var inE, outE, noFlowE []int
	for _, eid := range incident {
		e := s.Edges[eid]
		other := s.OtherEnd(eid, v)
		switch {
		case s.Vertices[other].Pressure == vert.Pressure:
			noFlowE = append(noFlowE, eid)
		case s.Vertices[other].Pressure > vert.Pressure:
			inE = append(inE, eid)
		default:
			outE = append(outE, eid)
		}
	}

	vert.InflowE = inE
	vert.OutflowE = outE
	for _, eid := range noFlowE {
		s.Edges[eid].NoFlow = true
	}
	for _, eid := range inE {
		s.Edges[eid].NoFlow = false
	}
	for _, eid := range outE {
		s.Edges[eid].NoFlow = false
	}

	nIn, nOut := len(inE), len(outE)
	prevType := vert.VType

	switch {
	case nIn == 0 && nOut == 0:
		switch {
		case vert.AV:
			vert.VType = network.Source
		case vert.VV:
			vert.VType = network.Sink
		default:
			vert.VType = network.NoFlow
		}
	case nIn == 0:
		// a sink whose flow reversed is labelled a source here, so that
		// reconcileBoundaryFlip can relabel (or refuse) the flip
		if vert.AV || prevType == network.Sink {
			vert.VType = network.Source
		} else {
			vert.VType = network.NoFlow
		}
	case nOut == 0:
		if vert.VV || prevType == network.Source {
			vert.VType = network.Sink
		} else {
			vert.VType = network.NoFlow
		}
	case nIn >= 1 && nOut > nIn:
		vert.VType = network.Divergent
	case nIn > nOut && nOut >= 1:
		vert.VType = network.Convergent
	case nIn == 1 && nOut == 1:
		vert.VType = network.Connecting
	case nIn == 2 && nOut == 2:
		vert.VType = network.DoubleConnecting
	default:
		vert.VType = network.NoFlow
		vert.InflowE = nil
		vert.OutflowE = nil
	}

	if vert.VType == network.NoFlow {
		for _, eid := range incident {
			s.Edges[eid].NoFlow = true
		}
	}

	updateCapillary(s, dThreshold, v, inE)

	reconcileBoundaryFlip(s, v, prevType)
}

// updateCapillary sets isCap according to whether any incoming edge has
// diameter above dThreshold (spec.md §4.5).
func updateCapillary(s *network.Store, dThreshold float64, v int, inE []int) {
	vert := s.Vertices[v]
	nonCap := false
	for _, eid := range inE {
		if s.Edges[eid].Diameter > dThreshold {
			nonCap = true
			break
		}
	}
	vert.IsCap = !nonCap
}

// reconcileBoundaryFlip handles the §4.5/§9 rule: a source/sink whose
// sign reverses is relabelled to its opposite boundary role, unless an
// rBC forbids reassignment, in which case the event is logged and no
// mutation performed (spec.md §7 item 4).
func reconcileBoundaryFlip(s *network.Store, v int, prevType network.VType) {
	vert := s.Vertices[v]
	wasBoundary := prevType == network.Source || prevType == network.Sink
	if !wasBoundary {
		return
	}
	nowBoundary := vert.VType == network.Source || vert.VType == network.Sink
	if nowBoundary && vert.VType != prevType {
		if vert.HasRBC {
			io.Pfred("topology: vertex %d flow reversed (%v -> %v) but rBC forbids reassignment; flows/signs left unchanged\n", v, prevType, vert.VType)
			vert.VType = prevType
			return
		}
		if prevType == network.Source {
			vert.VV = true
			vert.AV = false
		} else {
			vert.AV = true
			vert.VV = false
		}
	}
}
