package chart

import (
	"github.com/malbeclabs/tornado/analytics/pkg/dataset"
	"github.com/malbeclabs/tornado/analytics/pkg/dimension"
)

// Tornado draws the second dimension as opposing bars over the rows of the
// first. With a third dimension it returns one chart per value of it.
//
// Rows are ordered by total primary interactions, largest first, and every
// series and measure shares that order so bars line up.
type Tornado struct {
	names *NameGenerator
}

func NewTornado(names *NameGenerator) *Tornado {
	return &Tornado{names: names}
}

func (g *Tornado) Type() Type {
	return TypeTornado
}

func (g *Tornado) FromDataSet(dims *dimension.Collection, primary, secondary dataset.Set, mode Mode) ([]*Chart, error) {
	mode, err := validate(dims, primary, secondary, mode)
	if err != nil {
		return nil, err
	}

	split := -1
	if dims.Len() == dimension.MaxDimensions {
		split = dims.Len() - 1
	}
	b := &builder{
		kind:  TypeTornado,
		dims:  dims,
		mode:  mode,
		split: split,
		order: byTotalDesc,
		names: g.names,
	}
	return b.build(primary, secondary)
}
