// Package dataset holds the flattened, dimension-keyed measure tables built from
// analysis results, and the generator that builds them.
package dataset

import (
	"errors"
	"slices"

	"github.com/malbeclabs/tornado/analytics/pkg/dimension"
)

// Measure is a counted quantity attached to each facet.
type Measure string

const (
	Interactions  Measure = "interactions"
	UniqueAuthors Measure = "unique_authors"
)

// Measures lists every measure in output order.
var Measures = []Measure{Interactions, UniqueAuthors}

// Type is the kind of analysis a DataSet was built from.
type Type string

const (
	TypeFrequencyDistribution Type = "frequency_distribution"
	TypeTimeSeries            Type = "time_series"
)

var (
	// ErrRedacted is returned when the primary analysis result is fully redacted.
	ErrRedacted = errors.New("analysis result is redacted")
	// ErrNoAnalyses is returned when there is no analysis to build from.
	ErrNoAnalyses = errors.New("no analyses")
	// ErrTooDeep is returned when a result tree nests more facets than a chart can show.
	ErrTooDeep = errors.New("result tree too deep")
	// ErrUnknownAnalysisType is returned for analysis types other than Type values.
	ErrUnknownAnalysisType = errors.New("unknown analysis type")
)

// Value is one recorded count. A redacted value is always zero.
type Value struct {
	Value    int64 `json:"value"`
	Redacted bool  `json:"redacted"`
}

// Merge sums counts and keeps redaction sticky.
func (v Value) Merge(o Value) Value {
	return Value{Value: v.Value + o.Value, Redacted: v.Redacted || o.Redacted}
}

// Facet is one facet value of a node, optionally broken down further by Child.
type Facet struct {
	Key   Key
	Value Value
	Child *Node
}

// Node is one level of the result tree. Facets keep the order they were added in.
type Node struct {
	facets []Facet
	index  map[Key]int
}

func NewNode() *Node {
	return &Node{index: make(map[Key]int)}
}

// Add appends f, or replaces the facet with the same key in place.
func (n *Node) Add(f Facet) {
	if i, ok := n.index[f.Key]; ok {
		n.facets[i] = f
		return
	}
	n.index[f.Key] = len(n.facets)
	n.facets = append(n.facets, f)
}

// Facets returns the facets in insertion order.
func (n *Node) Facets() []Facet {
	if n == nil {
		return nil
	}
	return slices.Clone(n.facets)
}

func (n *Node) Get(k Key) (Facet, bool) {
	if n == nil {
		return Facet{}, false
	}
	i, ok := n.index[k]
	if !ok {
		return Facet{}, false
	}
	return n.facets[i], true
}

func (n *Node) Len() int {
	if n == nil {
		return 0
	}
	return len(n.facets)
}

// Depth is the number of facet levels below and including n.
func (n *Node) Depth() int {
	if n.Len() == 0 {
		return 0
	}
	deepest := 0
	for _, f := range n.facets {
		if d := f.Child.Depth(); d > deepest {
			deepest = d
		}
	}
	return deepest + 1
}

// mapKeys returns a copy of n with every key rewritten by fn.
func (n *Node) mapKeys(fn func(Key) Key) *Node {
	if n == nil {
		return nil
	}
	out := NewNode()
	for _, f := range n.facets {
		out.Add(Facet{Key: fn(f.Key), Value: f.Value, Child: f.Child.mapKeys(fn)})
	}
	return out
}

// Set is the read side shared by DataSet and TimeSeries.
type Set interface {
	Type() Type
	Dimensions() *dimension.Collection
	Total(m Measure) Value
	Root(m Measure) *Node
}

// DataSet is a set of dimensions plus a per-measure facet tree.
type DataSet struct {
	dimensions *dimension.Collection
	totals     map[Measure]Value
	data       map[Measure]*Node
}

// New builds a DataSet. Missing measures are treated as empty.
func New(dims *dimension.Collection, totals map[Measure]Value, data map[Measure]*Node) *DataSet {
	ds := &DataSet{
		dimensions: dims,
		totals:     make(map[Measure]Value, len(Measures)),
		data:       make(map[Measure]*Node, len(Measures)),
	}
	for _, m := range Measures {
		ds.totals[m] = totals[m]
		if n := data[m]; n != nil {
			ds.data[m] = n
		} else {
			ds.data[m] = NewNode()
		}
	}
	return ds
}

func (ds *DataSet) Type() Type {
	return TypeFrequencyDistribution
}

func (ds *DataSet) Dimensions() *dimension.Collection {
	return ds.dimensions
}

// Total is the aggregate reported by the analysis for m, not the sum of facets.
func (ds *DataSet) Total(m Measure) Value {
	return ds.totals[m]
}

// Root returns the top-level facets for m.
func (ds *DataSet) Root(m Measure) *Node {
	if n, ok := ds.data[m]; ok {
		return n
	}
	return NewNode()
}
