// Package flow derives per-edge signed flow, RBC velocity and flow sign
// from the solved vertex pressures (spec.md §4.4).
package flow

import (
	"math"

	"github.com/vasculature/rbcflow/network"
	"github.com/vasculature/rbcflow/physio"
)

// Update recomputes flow, v, sign (saving the prior sign into signOld)
// for every edge in the store.
func Update(s *network.Store, invivo bool) {
	for _, e := range s.Edges {
		ps := s.Vertices[e.Source].Pressure
		pt := s.Vertices[e.Target].Pressure
		dp := ps - pt

		e.SignOld = e.Sign
		switch {
		case dp > 0:
			e.Sign = 1
		case dp < 0:
			e.Sign = -1
		default:
			e.Sign = 0
		}

		if e.EffResistance <= 0 {
			e.Flow = 0
			e.V = 0
			continue
		}
		e.Flow = math.Abs(dp) / e.EffResistance

		vf := 1.0
		if e.Htt > 0 {
			vf = physio.VelocityFactor(e.Diameter, e.Htt, invivo)
		}
		if e.CrossSect > 0 {
			e.V = 4.0 * e.Flow * vf / (math.Pi * e.Diameter * e.Diameter)
		} else {
			e.V = 0
		}
	}
}

// ChangedSignEdges returns the ids of edges whose sign differs from
// signOld, excluding edges that are and were zero (spec.md §4.5).
func ChangedSignEdges(s *network.Store) []int {
	var out []int
	for i, e := range s.Edges {
		if e.Sign == e.SignOld {
			continue
		}
		if e.Sign == 0 && e.SignOld == 0 {
			continue
		}
		out = append(out, i)
	}
	return out
}

// VerifyMassBalance checks, for every interior vertex (no pBC), that the
// sum of signed incident flows is within tol. Violations are reported
// through the returned slice rather than logged directly, so the driver
// can route them through its own logger (spec.md §4.10, §7 item 5).
func VerifyMassBalance(s *network.Store, tol float64) []int {
	var bad []int
	for v, vert := range s.Vertices {
		if vert.HasPBC {
			continue
		}
		var sum float64
		for _, eid := range s.IncidentEdges(v) {
			e := s.Edges[eid]
			dir := -1.0 // v is the edge's source: positive sign flows away from v
			if e.Target == v {
				dir = 1.0 // v is the edge's target: positive sign flows into v
			}
			sum += dir * e.Flow * float64(e.Sign)
		}
		if math.Abs(sum) > tol {
			bad = append(bad, v)
		}
	}
	return bad
}
