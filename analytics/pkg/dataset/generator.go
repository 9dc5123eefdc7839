package dataset

import (
	"fmt"
	"slices"

	"github.com/malbeclabs/tornado/analytics/pkg/dimension"
)

// MaxDepth is the deepest result tree the generator accepts, one level per chart axis.
const MaxDepth = dimension.MaxDimensions

// Generator flattens analysis result trees into DataSets. It holds no state.
type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// FromAnalyses builds a DataSet from the first analysis in analyses; the rest
// are ignored. Time-series analyses produce a *TimeSeries, everything else a
// *DataSet. A fully redacted result fails with ErrRedacted.
func (g *Generator) FromAnalyses(analyses Analyses, dims *dimension.Collection) (Set, error) {
	a := analyses.First()
	if a == nil {
		return nil, ErrNoAnalyses
	}

	switch a.Type {
	case TypeFrequencyDistribution, TypeTimeSeries:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAnalysisType, a.Type)
	}

	if a.Results != nil && a.Results.Redacted {
		return nil, ErrRedacted
	}

	totals := map[Measure]Value{
		Interactions:  {Value: a.Interactions},
		UniqueAuthors: {Value: a.UniqueAuthors},
	}

	data := map[Measure]*Node{
		Interactions:  NewNode(),
		UniqueAuthors: NewNode(),
	}
	if a.Results != nil {
		target := a.Results.Parameters.Target
		if a.Type == TypeTimeSeries {
			target = TimeTarget
		} else if target == "" {
			target = nextTarget(dims, nil)
		}
		var err error
		data, err = g.walk(a.Results, []string{target}, dims, false)
		if err != nil {
			return nil, err
		}
	}

	if a.Type == TypeTimeSeries {
		interval, span := a.Interval, a.Span
		if a.Results != nil {
			if interval == "" {
				interval = a.Results.Parameters.Interval
			}
			if span == 0 {
				span = a.Results.Parameters.Span
			}
		}
		return NewTimeSeries(dims, interval, span, totals, data), nil
	}
	return New(dims, totals, data), nil
}

// walk converts one result node into a facet node per measure. path holds the
// targets from the root down to this node. Each item is recorded with its own
// redaction flag, or zeroed when the node itself is redacted. Children are
// converted before the item itself is recorded.
func (g *Generator) walk(node *ResultNode, path []string, dims *dimension.Collection, nodeRedacted bool) (map[Measure]*Node, error) {
	if len(path) > MaxDepth {
		return nil, fmt.Errorf("%w: more than %d levels", ErrTooDeep, MaxDepth)
	}

	out := map[Measure]*Node{
		Interactions:  NewNode(),
		UniqueAuthors: NewNode(),
	}
	for _, item := range node.Results {
		itemRedacted := nodeRedacted || item.Redacted

		var children map[Measure]*Node
		if item.Child != nil && len(item.Child.Results) > 0 {
			childTarget := item.Child.Parameters.Target
			if childTarget == "" {
				childTarget = nextTarget(dims, path)
			}
			if childTarget == "" {
				return nil, fmt.Errorf("%w: level %d has no target and no dimension is left", ErrTooDeep, len(path)+1)
			}
			var err error
			children, err = g.walk(item.Child, append(path[:len(path):len(path)], childTarget), dims, item.Child.Redacted)
			if err != nil {
				return nil, err
			}
		}

		key := Key{Target: path[len(path)-1], Value: string(item.Key)}
		counts := map[Measure]int64{
			Interactions:  item.Interactions,
			UniqueAuthors: item.UniqueAuthors,
		}
		for _, m := range Measures {
			out[m].Add(Facet{
				Key:   key,
				Value: record(counts[m], itemRedacted),
				Child: children[m],
			})
		}
	}
	return out, nil
}

// nextTarget returns the first dimension target not already used on path.
func nextTarget(dims *dimension.Collection, path []string) string {
	for _, d := range dims.Dimensions() {
		if !slices.Contains(path, d.Target()) {
			return d.Target()
		}
	}
	return ""
}

func record(v int64, redacted bool) Value {
	if redacted {
		return Value{Value: 0, Redacted: true}
	}
	return Value{Value: v}
}
