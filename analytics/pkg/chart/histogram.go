package chart

import (
	"fmt"

	"github.com/malbeclabs/tornado/analytics/pkg/dataset"
	"github.com/malbeclabs/tornado/analytics/pkg/dimension"
)

// SortOrder is the row order of a histogram.
type SortOrder string

const (
	// SortSize puts the rows with the most primary interactions first.
	SortSize  SortOrder = "size"
	SortLabel SortOrder = "label"
	// SortNone keeps the order of the source data.
	SortNone SortOrder = "none"
)

// ParseSortOrder maps s to a SortOrder. The empty string is SortSize.
func ParseSortOrder(s string) (SortOrder, error) {
	switch SortOrder(s) {
	case "", SortSize:
		return SortSize, nil
	case SortLabel, SortNone:
		return SortOrder(s), nil
	}
	return "", fmt.Errorf("%w: unknown sort order %q", ErrInvalidArgument, s)
}

// Histogram draws one bar series per combination of the non-x dimensions in a
// single chart.
type Histogram struct {
	names *NameGenerator
	order SortOrder
}

func NewHistogram(names *NameGenerator, order SortOrder) *Histogram {
	return &Histogram{names: names, order: order}
}

func (g *Histogram) Type() Type {
	return TypeHistogram
}

func (g *Histogram) FromDataSet(dims *dimension.Collection, primary, secondary dataset.Set, mode Mode) ([]*Chart, error) {
	mode, err := validate(dims, primary, secondary, mode)
	if err != nil {
		return nil, err
	}

	var order rowOrder
	switch g.order {
	case SortLabel:
		order = byLabel
	case SortNone:
		order = keepOrder
	default:
		order = byTotalDesc
	}
	b := &builder{
		kind:  TypeHistogram,
		dims:  dims,
		mode:  mode,
		split: -1,
		order: order,
		names: g.names,
	}
	return b.build(primary, secondary)
}
