// Package network holds the per-vertex and per-edge attribute arrays of the
// vascular graph plus the adjacency structure used to walk it. Topology
// (which vertices an edge connects) is delegated to
// github.com/katalvlaran/lvlath/core; this package owns the numeric state
// spec.md §3 describes (geometry, resistance, RBC train, pressure, vType,
// ...), indexed by small integer IDs assigned in creation order.
package network

import (
	"fmt"

	"github.com/cpmech/gosl/chk"
	"github.com/katalvlaran/lvlath/core"
)

// VType is the local flow-topology classification of a vertex (spec.md §3).
type VType int

// Vertex type constants, matching spec.md §3's numbering.
const (
	NoType           VType = 0
	Source           VType = 1
	Sink             VType = 2
	Divergent        VType = 3
	Convergent       VType = 4
	Connecting       VType = 5
	DoubleConnecting VType = 6
	NoFlow           VType = 7
)

func (t VType) String() string {
	switch t {
	case Source:
		return "SOURCE"
	case Sink:
		return "SINK"
	case Divergent:
		return "DIVERGENT"
	case Convergent:
		return "CONVERGENT"
	case Connecting:
		return "CONNECTING"
	case DoubleConnecting:
		return "DOUBLE_CONNECTING"
	case NoFlow:
		return "NO_FLOW"
	default:
		return "NONE"
	}
}

// Vertex holds the per-vertex state of spec.md §3.
type Vertex struct {
	ID int

	HasPBC bool
	PBC    float64 // mmHg, external convention
	HasRBC bool
	RBC    float64 // Neumann-like residual BC

	Pressure float64

	InflowE  []int
	OutflowE []int

	IsCap bool
	VType VType

	// AV/VV carry the "is this vertex allowed to act as a source/sink"
	// flags from the original vascular-graph convention (spec.md §4.5,
	// "SOURCE if it carries av=1").
	AV bool
	VV bool
}

// Edge holds the per-edge state of spec.md §3.
type Edge struct {
	ID     int
	Source int // vertex ID, convention endpoint
	Target int // vertex ID, convention endpoint

	Length      float64
	Diameter    float64
	CrossSect   float64
	DiamCalcEff float64

	MinDist float64
	NMax    int

	SpecificResistance float64
	Resistance         float64
	EffResistance      float64

	RRBC []float64 // ascending positions in [0, Length], source->target convention
	NRBC int

	Htt float64
	Htd float64

	Flow    float64
	V       float64
	Sign    int
	SignOld int

	RBCinMax int

	HasHttBC bool
	HttBC    float64

	PosFirstLast float64
	VLast        float64
	KeepRBCs     []float64
	HasKeep      bool

	NoFlow bool
}

// Store owns the graph topology (via lvlath/core) and the parallel
// vertex/edge attribute arrays.
type Store struct {
	g *core.Graph

	Vertices []*Vertex
	Edges    []*Edge

	vertexLabel map[int]string
	edgeLabel   map[int]string
	labelVertex map[string]int
	labelEdge   map[string]int
}

// NewStore creates an empty directed, multi-edge-capable graph store.
func NewStore() *Store {
	return &Store{
		g:           core.NewGraph(core.WithDirected(true), core.WithMultiEdges()),
		vertexLabel: make(map[int]string),
		edgeLabel:   make(map[int]string),
		labelVertex: make(map[string]int),
		labelEdge:   make(map[string]int),
	}
}

// AddVertex appends a new vertex and returns its integer ID.
func (s *Store) AddVertex() int {
	id := len(s.Vertices)
	label := fmt.Sprintf("v%d", id)
	if err := s.g.AddVertex(label); err != nil {
		chk.Panic("network: cannot add vertex %d: %v", id, err)
	}
	s.vertexLabel[id] = label
	s.labelVertex[label] = id
	s.Vertices = append(s.Vertices, &Vertex{ID: id})
	return id
}

// AddEdge appends a new edge source->target (convention) and returns its ID.
func (s *Store) AddEdge(source, target int, length, diameter float64) int {
	id := len(s.Edges)
	label := fmt.Sprintf("e%d", id)
	srcLabel, ok1 := s.vertexLabel[source]
	tgtLabel, ok2 := s.vertexLabel[target]
	if !ok1 || !ok2 {
		chk.Panic("network: edge %d references unknown vertex (%d -> %d)", id, source, target)
	}
	eid, err := s.g.AddEdge(srcLabel, tgtLabel, 0)
	if err != nil {
		chk.Panic("network: cannot add edge %d->%d: %v", source, target, err)
	}
	s.edgeLabel[id] = eid
	s.labelEdge[eid] = id

	e := &Edge{
		ID:        id,
		Source:    source,
		Target:    target,
		Length:    length,
		Diameter:  diameter,
		CrossSect: crossSection(diameter),
	}
	s.Edges = append(s.Edges, e)
	s.Vertices[source].OutflowE = append(s.Vertices[source].OutflowE, id)
	s.Vertices[target].InflowE = append(s.Vertices[target].InflowE, id)
	return id
}

func crossSection(d float64) float64 {
	return 0.25 * pi * d * d
}

const pi = 3.14159265358979323846

// IncidentEdges returns every edge with an endpoint at vertex v, using the
// graph's own adjacency list for the edges leaving v.
func (s *Store) IncidentEdges(v int) []int {
	label := s.vertexLabel[v]
	nbrEdges, err := s.g.Neighbors(label)
	if err != nil {
		chk.Panic("network: vertex %d missing from adjacency: %v", v, err)
	}
	out := make([]int, 0, len(nbrEdges))
	seen := make(map[int]bool, len(nbrEdges))
	for _, e := range nbrEdges {
		idx, ok := s.labelEdge[e.ID]
		if ok && !seen[idx] {
			seen[idx] = true
			out = append(out, idx)
		}
	}
	// Neighbors() only reports edges directed away from v for a directed
	// graph; edges whose convention target is v are found by scanning the
	// edge list (Vertex.InflowE is rewritten by the topology classifier
	// with flow-derived lists, so it cannot serve here).
	for idx, e := range s.Edges {
		if e.Target == v && !seen[idx] {
			seen[idx] = true
			out = append(out, idx)
		}
	}
	return out
}

// VertexCount returns the number of vertices.
func (s *Store) VertexCount() int { return len(s.Vertices) }

// EdgeCount returns the number of edges.
func (s *Store) EdgeCount() int { return len(s.Edges) }

// OtherEnd returns the vertex at the opposite end of edge e from v.
func (s *Store) OtherEnd(e, v int) int {
	edge := s.Edges[e]
	if edge.Source == v {
		return edge.Target
	}
	return edge.Source
}
