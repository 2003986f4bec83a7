// Package solver assembles and solves the sparse pressure system
// A・p = b described in spec.md §4.3: a Laplacian over edge conductances
// g_ij = 1/effResistance(ij), with pBC rows replaced by identity rows and
// connected components lacking any pBC vertex pinned at one arbitrary
// member. Matrix storage and mat-vec products are done with
// github.com/cpmech/gosl/la (Triplet/CCMatrix/SpMatVecMulAdd); the Krylov
// loop itself is a Jacobi-preconditioned conjugate gradient, since the
// system is SPD once every component has at least one pinned row (see
// DESIGN.md for why this replaces gosl/la's AMG/direct factorization
// path).
package solver

import (
	"math"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"github.com/cpmech/gosl/la"

	"github.com/vasculature/rbcflow/network"
)

// ScaleToDef converts mmHg (external convention, spec.md §6) to the
// default internal pressure unit. Gofem's own scaling uses
// vgm.units.scaling_factor_du in the original; this module treats the
// default unit system as mmHg itself (scale 1), so evolve() call sites
// never need a nontrivial conversion, but the hook is kept explicit so a
// caller embedding a different unit convention has a single place to
// override it.
const ScaleToDef = 1.0

// defaultTol is the default relative residual tolerance for the Krylov
// solve (spec.md §4.3, "tolerance configurable" via System.Tol).
const defaultTol = 1e-10
const maxIter = 2000

// rowEntry is one off-diagonal contribution accumulated for a matrix row.
type rowEntry struct {
	col int
	val float64
}

// System holds the assembled sparse pressure system and enough
// bookkeeping to support the partial-update path of spec.md §4.3.
type System struct {
	n    int
	rows [][]rowEntry // off-diagonal entries per row, accumulated during assembly
	diag []float64
	b    []float64
	A    *la.CCMatrix

	Tol float64
}

// NewSystem allocates a System for a store with n vertices.
func NewSystem(n float64) *System {
	ni := int(n)
	return &System{
		n:    ni,
		rows: make([][]rowEntry, ni),
		diag: make([]float64, ni),
		b:    make([]float64, ni),
		Tol:  defaultTol,
	}
}

// planted well-posedness: every connected component without a pBC vertex
// gets one pinned at 0. Uses the store's own adjacency to find
// components, grounded on spec.md §4.3's requirement.
func plantWellPosedness(s *network.Store) {
	n := s.VertexCount()
	seen := make([]bool, n)
	for start := 0; start < n; start++ {
		if seen[start] {
			continue
		}
		comp := []int{}
		stack := []int{start}
		seen[start] = true
		hasPBC := s.Vertices[start].HasPBC
		for len(stack) > 0 {
			v := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			comp = append(comp, v)
			if s.Vertices[v].HasPBC {
				hasPBC = true
			}
			for _, eid := range s.IncidentEdges(v) {
				other := s.OtherEnd(eid, v)
				if !seen[other] {
					seen[other] = true
					stack = append(stack, other)
				}
			}
		}
		if !hasPBC && len(comp) > 0 {
			io.Pfyel("solver: component with %d vertices has no pBC; planting pBC=0 at vertex %d\n", len(comp), comp[0])
			s.Vertices[comp[0]].HasPBC = true
			s.Vertices[comp[0]].PBC = 0
		}
	}
}

// Assemble builds the full system for every vertex (used at init and
// finalization per spec.md §4.3).
func Assemble(s *network.Store) *System {
	plantWellPosedness(s)
	sys := NewSystem(float64(s.VertexCount()))
	for v := range s.Vertices {
		assembleRow(s, sys, v)
	}
	sys.build()
	return sys
}

// AssemblePartial rebuilds only the rows of changed vertices and their
// neighbors, per spec.md §4.3's partial-update path. prev is the
// previously-assembled system, reused for all untouched rows.
func AssemblePartial(s *network.Store, prev *System, changed []int) *System {
	plantWellPosedness(s)
	sys := NewSystem(float64(s.VertexCount()))
	affected := make(map[int]bool, len(changed)*3)
	for _, v := range changed {
		affected[v] = true
		for _, eid := range s.IncidentEdges(v) {
			affected[s.OtherEnd(eid, v)] = true
		}
	}
	for v := range s.Vertices {
		if affected[v] || prev == nil || v >= len(prev.rows) {
			assembleRow(s, sys, v)
		} else {
			sys.rows[v] = prev.rows[v]
			sys.diag[v] = prev.diag[v]
			sys.b[v] = prev.b[v]
		}
	}
	sys.build()
	return sys
}

func assembleRow(s *network.Store, sys *System, v int) {
	vert := s.Vertices[v]
	if vert.HasPBC {
		sys.diag[v] = 1.0
		sys.b[v] = vert.PBC * ScaleToDef
		sys.rows[v] = nil
		return
	}
	var diag float64
	var b float64
	entries := map[int]float64{}
	for _, eid := range s.IncidentEdges(v) {
		e := s.Edges[eid]
		other := s.OtherEnd(eid, v)
		if other == v {
			continue // self-loops skipped (spec.md §4.3)
		}
		if e.EffResistance <= 0 {
			continue
		}
		g := 1.0 / e.EffResistance
		diag += g
		if s.Vertices[other].HasPBC {
			b += s.Vertices[other].PBC * ScaleToDef * g
		} else {
			entries[other] -= g
		}
	}
	if vert.HasRBC {
		b += vert.RBC
	}
	sys.diag[v] = diag
	sys.b[v] = b
	rows := make([]rowEntry, 0, len(entries))
	for col, val := range entries {
		rows = append(rows, rowEntry{col: col, val: val})
	}
	sys.rows[v] = rows
}

// build converts the accumulated rows into an la.Triplet/la.CCMatrix pair.
func (sys *System) build() {
	nnz := sys.n
	for _, row := range sys.rows {
		nnz += len(row)
	}
	var t la.Triplet
	t.Init(sys.n, sys.n, nnz)
	for i := 0; i < sys.n; i++ {
		t.Put(i, i, sys.diag[i])
		for _, re := range sys.rows[i] {
			t.Put(i, re.col, re.val)
		}
	}
	sys.A = t.ToMatrix(nil)
}

// Solve runs a Jacobi-preconditioned conjugate-gradient Krylov iteration
// and returns the pressure vector, taking the absolute value per spec.md
// §4.3 ("small negative pressures may arise numerically and are
// physically zero").
func (sys *System) Solve() []float64 {
	n := sys.n
	x := make([]float64, n)
	if n == 0 {
		return x
	}
	r := make([]float64, n)
	copy(r, sys.b)
	la.SpMatVecMulAdd(r, -1, sys.A, x) // r = b - A*x (x=0 initially, so r=b)

	z := jacobiPrecond(sys.diag, r)
	p := make([]float64, n)
	copy(p, z)
	rz := dot(r, z)
	bNorm := math.Sqrt(dot(sys.b, sys.b))
	if bNorm < 1e-300 {
		bNorm = 1
	}

	converged := false
	for iter := 0; iter < maxIter; iter++ {
		Ap := make([]float64, n)
		la.SpMatVecMulAdd(Ap, 1, sys.A, p)
		pAp := dot(p, Ap)
		if math.Abs(pAp) < 1e-300 {
			break
		}
		alpha := rz / pAp
		for i := range x {
			x[i] += alpha * p[i]
			r[i] -= alpha * Ap[i]
		}
		if math.Sqrt(dot(r, r))/bNorm < sys.Tol {
			converged = true
			break
		}
		z = jacobiPrecond(sys.diag, r)
		rzNew := dot(r, z)
		beta := rzNew / rz
		for i := range p {
			p[i] = z[i] + beta*p[i]
		}
		rz = rzNew
	}
	if !converged {
		io.Pfyel("solver: Krylov solve did not converge to tol=%.3e within %d iterations; using last iterate\n", sys.Tol, maxIter)
	}
	for i := range x {
		x[i] = math.Abs(x[i])
	}
	return x
}

func jacobiPrecond(diag, r []float64) []float64 {
	z := make([]float64, len(r))
	for i := range r {
		if diag[i] > 1e-300 {
			z[i] = r[i] / diag[i]
		} else {
			z[i] = r[i]
		}
	}
	return z
}

func dot(a, b []float64) float64 {
	if len(a) != len(b) {
		chk.Panic("solver: vector length mismatch in dot product (%d != %d)", len(a), len(b))
	}
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

// ApplyPressures writes the solved pressure vector (default units) back
// onto the store, converting back to mmHg per spec.md §6.
func ApplyPressures(s *network.Store, p []float64) {
	for v, vert := range s.Vertices {
		vert.Pressure = p[v] / ScaleToDef
	}
}
