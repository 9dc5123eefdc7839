package chart

import (
	"strconv"

	"github.com/malbeclabs/tornado/analytics/pkg/dataset"
	"github.com/malbeclabs/tornado/analytics/pkg/dimension"
)

// TimeSeries draws one line per combination of the non-time dimensions,
// with timestamps on the x axis in ascending order.
//
// A secondary series is shifted so that it starts where the primary one does,
// which lets e.g. last week be laid over this week.
type TimeSeries struct {
	names *NameGenerator
	// permissive allows comparing series whose spans differ.
	permissive bool
}

func NewTimeSeries(names *NameGenerator, permissive bool) *TimeSeries {
	return &TimeSeries{names: names, permissive: permissive}
}

func (g *TimeSeries) Type() Type {
	return TypeTimeSeries
}

func (g *TimeSeries) FromDataSet(dims *dimension.Collection, primary, secondary dataset.Set, mode Mode) ([]*Chart, error) {
	mode, err := validate(dims, primary, secondary, mode)
	if err != nil {
		return nil, err
	}

	i := dims.Index(dataset.TimeTarget)
	if i < 0 {
		return nil, ErrNoTimeDimension
	}
	if i > 0 {
		rest, _ := dims.Remove(i)
		dims = dimension.NewCollection(append([]*dimension.Dimension{dims.At(i)}, rest.Dimensions()...)...)
	}

	p, ok := primary.(*dataset.TimeSeries)
	if !ok {
		return nil, ErrNotTimeSeries
	}
	if secondary != nil {
		s, ok := secondary.(*dataset.TimeSeries)
		if !ok {
			return nil, ErrNotTimeSeries
		}
		if !p.IsCompatible(s, g.permissive) {
			return nil, ErrIncompatibleTimeSeries
		}
		pStart, pOK := p.Start()
		sStart, sOK := s.Start()
		if pOK && sOK && pStart != sStart {
			s = s.Shift(pStart - sStart)
		}
		secondary = s
	}

	b := &builder{
		kind:  TypeTimeSeries,
		dims:  dims,
		mode:  mode,
		split: -1,
		order: byTimestamp,
		names: g.names,
	}
	return b.build(p, secondary)
}

func parseTimestamp(s string) (int64, bool) {
	ts, err := strconv.ParseInt(s, 10, 64)
	return ts, err == nil
}
