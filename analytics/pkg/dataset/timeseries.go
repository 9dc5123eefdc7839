package dataset

import (
	"strconv"
	"sync"

	"github.com/malbeclabs/tornado/analytics/pkg/dimension"
)

// TimeTarget is the target of the time facet in time-series results. Facet
// values under it are unix timestamps in seconds.
const TimeTarget = "time"

// TimeSeries is a DataSet whose top level is keyed by timestamp.
type TimeSeries struct {
	*DataSet
	interval string
	span     int

	boundsOnce sync.Once
	start, end int64
	hasBounds  bool
}

// NewTimeSeries builds a TimeSeries over the same arguments as New.
func NewTimeSeries(dims *dimension.Collection, interval string, span int, totals map[Measure]Value, data map[Measure]*Node) *TimeSeries {
	return &TimeSeries{
		DataSet:  New(dims, totals, data),
		interval: interval,
		span:     span,
	}
}

func (ts *TimeSeries) Type() Type {
	return TypeTimeSeries
}

// Interval is the bucket width, e.g. "hour" or "day".
func (ts *TimeSeries) Interval() string {
	return ts.interval
}

// Span is the number of intervals per bucket.
func (ts *TimeSeries) Span() int {
	return ts.span
}

// Start returns the earliest timestamp across all measures.
func (ts *TimeSeries) Start() (int64, bool) {
	ts.computeBounds()
	return ts.start, ts.hasBounds
}

// End returns the latest timestamp across all measures.
func (ts *TimeSeries) End() (int64, bool) {
	ts.computeBounds()
	return ts.end, ts.hasBounds
}

func (ts *TimeSeries) computeBounds() {
	ts.boundsOnce.Do(func() {
		for _, m := range Measures {
			for _, f := range ts.Root(m).Facets() {
				t, ok := timestamp(f.Key)
				if !ok {
					continue
				}
				if !ts.hasBounds || t < ts.start {
					ts.start = t
				}
				if !ts.hasBounds || t > ts.end {
					ts.end = t
				}
				ts.hasBounds = true
			}
		}
	})
}

// Shift returns a copy with every timestamp key moved by seconds.
func (ts *TimeSeries) Shift(seconds int64) *TimeSeries {
	shift := func(k Key) Key {
		t, ok := timestamp(k)
		if !ok {
			return k
		}
		return Key{Target: k.Target, Value: strconv.FormatInt(t+seconds, 10)}
	}
	data := make(map[Measure]*Node, len(Measures))
	for _, m := range Measures {
		data[m] = ts.Root(m).mapKeys(shift)
	}
	return NewTimeSeries(ts.Dimensions(), ts.interval, ts.span, ts.totals, data)
}

// IsCompatible reports whether other can be compared with ts. The interval
// must always match; the span only when permissive is false.
func (ts *TimeSeries) IsCompatible(other *TimeSeries, permissive bool) bool {
	if ts.interval != other.interval {
		return false
	}
	return permissive || ts.span == other.span
}

func timestamp(k Key) (int64, bool) {
	if k.Target != TimeTarget {
		return 0, false
	}
	t, err := strconv.ParseInt(k.Value, 10, 64)
	if err != nil {
		return 0, false
	}
	return t, true
}
