// Package chart turns one or two DataSets into chart-ready series, including
// baseline rescaling and per-point metadata.
package chart

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/malbeclabs/tornado/analytics/pkg/dataset"
	"github.com/malbeclabs/tornado/analytics/pkg/dimension"
)

type Type string

const (
	TypeTornado    Type = "tornado"
	TypeHistogram  Type = "histogram"
	TypeTimeSeries Type = "timeSeries"
)

// Types lists the chart types the Factory knows about.
var Types = []Type{TypeTornado, TypeHistogram, TypeTimeSeries}

// Mode selects how a secondary DataSet is shown against the primary one.
type Mode string

const (
	// ModeCompare shows secondary values as they are.
	ModeCompare Mode = "compare"
	// ModeBaseline rescales secondary values to the primary population.
	ModeBaseline Mode = "baseline"
)

var (
	// ErrInvalidArgument is the parent of every caller error raised by this package.
	ErrInvalidArgument = errors.New("invalid argument")

	ErrUnknownChartType       = fmt.Errorf("%w: unknown chart type", ErrInvalidArgument)
	ErrUnknownMode            = fmt.Errorf("%w: unknown mode", ErrInvalidArgument)
	ErrNoDimensions           = fmt.Errorf("%w: no dimensions", ErrInvalidArgument)
	ErrNoTimeDimension        = fmt.Errorf("%w: time series charts need the %q dimension", ErrInvalidArgument, dataset.TimeTarget)
	ErrNotTimeSeries          = fmt.Errorf("%w: time series charts need time series data", ErrInvalidArgument)
	ErrIncompatibleTimeSeries = fmt.Errorf("%w: time series intervals differ", ErrInvalidArgument)
)

// ParseMode maps s to a Mode. The empty string is ModeCompare.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeCompare:
		return ModeCompare, nil
	case ModeBaseline:
		return ModeBaseline, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// ParseType maps s to a Type.
func ParseType(s string) (Type, error) {
	for _, t := range Types {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownChartType, s)
}

// Metadata is attached to every point.
type Metadata struct {
	Tooltip  string                       `json:"tooltip"`
	Explore  map[string]map[string]string `json:"explore"`
	Redacted bool                         `json:"redacted"`
}

// Point is one row of a series. Baseline is nil when the chart has no
// secondary DataSet.
type Point struct {
	Label    string
	Value    int64
	Baseline *int64
	Meta     Metadata
}

// MarshalJSON encodes p as the tuple [label, value, baseline, metadata].
func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{p.Label, p.Value, p.Baseline, p.Meta})
}

// Series is one labelled line or bar group of a chart.
type Series struct {
	Label  string
	Points []Point
}

// Data holds the series of a chart per measure.
type Data map[dataset.Measure][]Series

// Chart is one generated chart. Facet is the value of the dimension the chart
// was split on, if any. Charts are built fresh per call and never modified
// afterwards.
type Chart struct {
	Type        Type
	Name        string
	Dimensions  *dimension.Collection
	Facet       string
	Data        Data
	HasBaseline bool
}

// SeriesKeys returns the union of series labels across every measure, in
// first-seen order.
func SeriesKeys(data Data) []string {
	seen := make(map[string]struct{})
	var keys []string
	for _, m := range dataset.Measures {
		for _, s := range data[m] {
			if _, ok := seen[s.Label]; ok {
				continue
			}
			seen[s.Label] = struct{}{}
			keys = append(keys, s.Label)
		}
	}
	return keys
}

func (c *Chart) MarshalJSON() ([]byte, error) {
	w := &jsonWriter{}
	w.WriteString(`{"type":`)
	w.value(c.Type)
	w.WriteString(`,"name":`)
	w.value(c.Name)
	w.WriteString(`,"dimensions":`)
	w.value(c.Dimensions.Targets())
	if c.Facet != "" {
		w.WriteString(`,"facet":`)
		w.value(c.Facet)
	}
	w.WriteString(`,"series":`)
	keys := SeriesKeys(c.Data)
	if keys == nil {
		keys = []string{}
	}
	w.value(keys)

	w.WriteString(`,"data":`)
	c.writeMeasures(w, false)
	if c.Type == TypeTimeSeries && c.HasBaseline {
		w.WriteString(`,"baseline":`)
		c.writeMeasures(w, true)
	}
	w.WriteByte('}')
	if w.err != nil {
		return nil, fmt.Errorf("failed to encode chart: %w", w.err)
	}
	return w.Bytes(), nil
}

// writeMeasures writes {measure: {series: ...}} keeping series order. Time
// series are written as {timestamp: value}, everything else as point tuples.
func (c *Chart) writeMeasures(w *jsonWriter, baseline bool) {
	w.WriteByte('{')
	for i, m := range dataset.Measures {
		if i > 0 {
			w.WriteByte(',')
		}
		w.value(m)
		w.WriteString(":{")
		for j, s := range c.Data[m] {
			if j > 0 {
				w.WriteByte(',')
			}
			w.value(s.Label)
			w.WriteByte(':')
			if c.Type != TypeTimeSeries {
				points := s.Points
				if points == nil {
					points = []Point{}
				}
				w.value(points)
				continue
			}
			w.WriteByte('{')
			for k, p := range s.Points {
				if k > 0 {
					w.WriteByte(',')
				}
				w.value(p.Label)
				w.WriteByte(':')
				v := p.Value
				if baseline && p.Baseline != nil {
					v = *p.Baseline
				}
				w.WriteString(strconv.FormatInt(v, 10))
			}
			w.WriteByte('}')
		}
		w.WriteByte('}')
	}
	w.WriteByte('}')
}

// jsonWriter keeps the first encoding error.
type jsonWriter struct {
	bytes.Buffer
	err error
}

func (w *jsonWriter) value(v any) {
	if w.err != nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		w.err = err
		return
	}
	w.Write(b)
}
