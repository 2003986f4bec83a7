// Package rheology maintains the per-edge resistances, packing geometry
// and hematocrit that couple the pressure solve to the current RBC train
// (spec.md §4.2).
package rheology

import (
	"math"

	"github.com/cpmech/gosl/utl"

	"github.com/vasculature/rbcflow/network"
	"github.com/vasculature/rbcflow/physio"
)

// Params bundles the physiology constants the rheology layer needs.
type Params struct {
	Invivo          bool
	PlasmaViscosity float64 // 0 => physio default
}

// UpdateNominalAndSpecificResistance recomputes specificResistance and
// resistance for the given edges (all edges if ids is nil).
func UpdateNominalAndSpecificResistance(s *network.Store, p Params, ids []int) {
	mu := physio.DynamicPlasmaViscosity(p.PlasmaViscosity)
	for _, i := range edgeSet(s, ids) {
		e := s.Edges[i]
		d := e.Diameter
		e.SpecificResistance = 128.0 * mu / (math.Pi * d * d * d * d)
		e.Resistance = e.Length * e.SpecificResistance
	}
}

// UpdateEffectiveResistance recomputes effResistance from the current htd.
func UpdateEffectiveResistance(s *network.Store, p Params, ids []int) {
	for _, i := range edgeSet(s, ids) {
		e := s.Edges[i]
		e.DiamCalcEff = physio.DiamCalcEff(e.Diameter)
		nu := physio.RelativeApparentBloodViscosity(e.DiamCalcEff, e.Htd, p.Invivo)
		e.EffResistance = e.Resistance * nu
	}
}

// UpdateMinDistNMax recomputes minDist and nMax from geometry and V_rbc.
func UpdateMinDistNMax(s *network.Store, ids []int) {
	vrbc := physio.RBCVolumeConst()
	for _, i := range edgeSet(s, ids) {
		e := s.Edges[i]
		e.MinDist = vrbc / e.CrossSect
		if e.MinDist <= 0 {
			e.NMax = 0
			continue
		}
		e.NMax = int(math.Floor(e.Length / e.MinDist))
	}
}

// UpdateHematocrit recomputes htt/htd from the current nRBC.
func UpdateHematocrit(s *network.Store, p Params, ids []int) {
	for _, i := range edgeSet(s, ids) {
		e := s.Edges[i]
		e.NRBC = len(e.RRBC)
		if e.Length <= 0 {
			e.Htt = 0
		} else {
			e.Htt = float64(e.NRBC) * e.MinDist / e.Length
		}
		e.Htd = math.Min(physio.TubeToDischargeHematocrit(e.Htt, e.Diameter, p.Invivo), physio.MaxDischargeHt)
	}
}

// UpdateRBCinMax recomputes the free upstream capacity of each edge,
// clamped so RBCinMax+nRBC never exceeds nMax.
func UpdateRBCinMax(s *network.Store, ids []int) {
	for _, i := range edgeSet(s, ids) {
		e := s.Edges[i]
		var distToFirst float64
		if e.NRBC > 0 {
			if e.Sign >= 0 {
				distToFirst = e.RRBC[0]
			} else {
				distToFirst = e.Length - e.RRBC[len(e.RRBC)-1]
			}
		} else {
			distToFirst = e.Length
		}
		if e.MinDist <= 0 {
			e.RBCinMax = 0
			continue
		}
		free := int(math.Floor(distToFirst / e.MinDist))
		if free+e.NRBC > e.NMax {
			free = e.NMax - e.NRBC
		}
		e.RBCinMax = int(utl.Max(float64(free), 0))
	}
}

// edgeSet resolves a possibly-nil id slice into "all edges" or the given
// partial set, matching the §4.2/§5 partial-update convention.
func edgeSet(s *network.Store, ids []int) []int {
	if ids != nil {
		return ids
	}
	all := make([]int, s.EdgeCount())
	for i := range all {
		all[i] = i
	}
	return all
}
