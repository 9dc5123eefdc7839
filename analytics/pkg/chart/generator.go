package chart

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/malbeclabs/tornado/analytics/pkg/dataset"
	"github.com/malbeclabs/tornado/analytics/pkg/dimension"
)

// Generator builds the charts of one type from a primary DataSet and an
// optional secondary one. The first chart dimension is the x axis, the
// second the series, the third (where the type supports it) splits the
// output into several charts.
type Generator interface {
	Type() Type
	FromDataSet(dims *dimension.Collection, primary, secondary dataset.Set, mode Mode) ([]*Chart, error)
}

// validate checks the arguments shared by every generator and returns the
// normalized mode.
func validate(dims *dimension.Collection, primary, secondary dataset.Set, mode Mode) (Mode, error) {
	mode, err := ParseMode(string(mode))
	if err != nil {
		return "", err
	}
	if dims.Len() == 0 {
		return "", ErrNoDimensions
	}
	if err := dims.CheckAxes(); err != nil {
		return "", err
	}
	if primary == nil {
		return "", fmt.Errorf("%w: no primary data set", ErrInvalidArgument)
	}
	if _, err := dims.OrderedSubset(primary.Dimensions()); err != nil {
		return "", err
	}
	if secondary != nil && !primary.Dimensions().IsSame(secondary.Dimensions()) {
		return "", fmt.Errorf("%w: comparing %s with %s", dimension.ErrIncompatibleDimensions, primary.Dimensions(), secondary.Dimensions())
	}
	return mode, nil
}

// coord holds one facet value per chart dimension, in chart dimension order.
type coord [dimension.MaxDimensions]string

// table is one measure of a DataSet projected onto the chart dimensions.
type table struct {
	order  []coord
	values map[coord]dataset.Value
}

func (t *table) add(c coord, v dataset.Value) {
	if old, ok := t.values[c]; ok {
		t.values[c] = old.Merge(v)
		return
	}
	t.order = append(t.order, c)
	t.values[c] = v
}

// project walks root until every chart dimension has a facet on the path and
// records the value of the facet that completed it. Dimensions that are not
// on the chart are summed out.
func project(root *dataset.Node, dims *dimension.Collection) *table {
	t := &table{values: make(map[coord]dataset.Value)}
	full := 1<<dims.Len() - 1

	var walk func(n *dataset.Node, c coord, mask int)
	walk = func(n *dataset.Node, c coord, mask int) {
		for _, f := range n.Facets() {
			next, m := c, mask
			if i := dims.Index(f.Key.Target); i >= 0 {
				next[i] = f.Key.Value
				m |= 1 << i
			}
			if m == full {
				t.add(next, f.Value)
				continue
			}
			walk(f.Child, next, m)
		}
	}
	walk(root, coord{}, 0)
	return t
}

// labels is an insertion-ordered string set.
type labels struct {
	items []string
	seen  map[string]struct{}
}

func newLabels() *labels {
	return &labels{seen: make(map[string]struct{})}
}

func (l *labels) add(s string) bool {
	if _, ok := l.seen[s]; ok {
		return false
	}
	l.seen[s] = struct{}{}
	l.items = append(l.items, s)
	return true
}

// cells maps measure, series and row label to a value.
type cells map[dataset.Measure]map[string]map[string]dataset.Value

func (c cells) put(m dataset.Measure, series, row string, v dataset.Value) {
	if c[m] == nil {
		c[m] = make(map[string]map[string]dataset.Value)
	}
	if c[m][series] == nil {
		c[m][series] = make(map[string]dataset.Value)
	}
	c[m][series][row] = c[m][series][row].Merge(v)
}

func (c cells) get(m dataset.Measure, series, row string) dataset.Value {
	return c[m][series][row]
}

func (c cells) ints(m dataset.Measure) map[string]map[string]int64 {
	out := make(map[string]map[string]int64, len(c[m]))
	for s, rows := range c[m] {
		out[s] = make(map[string]int64, len(rows))
		for r, v := range rows {
			out[s][r] = v.Value
		}
	}
	return out
}

// frame is the content of one chart before it becomes points.
type frame struct {
	facet     string
	splitKey  *dataset.Key
	rows      *labels
	series    *labels
	facets    map[string][]dataset.Key
	primary   cells
	secondary cells
}

// rowTotals sums primary interactions per row across series.
func (f *frame) rowTotals() map[string]int64 {
	totals := make(map[string]int64, len(f.rows.items))
	for _, rows := range f.primary[dataset.Interactions] {
		for r, v := range rows {
			totals[r] += v.Value
		}
	}
	return totals
}

// rowOrder reorders f.rows in place.
type rowOrder func(f *frame) error

func byTotalDesc(f *frame) error {
	totals := f.rowTotals()
	slices.SortStableFunc(f.rows.items, func(a, b string) int {
		return cmp.Compare(totals[b], totals[a])
	})
	return nil
}

func byLabel(f *frame) error {
	slices.SortStableFunc(f.rows.items, cmp.Compare[string])
	return nil
}

func keepOrder(*frame) error {
	return nil
}

func byTimestamp(f *frame) error {
	stamps := make(map[string]int64, len(f.rows.items))
	for _, r := range f.rows.items {
		ts, ok := parseTimestamp(r)
		if !ok {
			return fmt.Errorf("%w: bad timestamp %q", ErrInvalidArgument, r)
		}
		stamps[r] = ts
	}
	slices.SortStableFunc(f.rows.items, func(a, b string) int {
		return cmp.Compare(stamps[a], stamps[b])
	})
	return nil
}

// builder lays out projected tables as charts.
type builder struct {
	kind  Type
	dims  *dimension.Collection
	mode  Mode
	split int
	order rowOrder
	names *NameGenerator
}

func (b *builder) key(c coord, i int) dataset.Key {
	return dataset.Key{Target: b.dims.At(i).Target(), Value: c[i]}
}

// seriesKeys are the facets of c that are neither the x axis nor the split.
func (b *builder) seriesKeys(c coord) []dataset.Key {
	var keys []dataset.Key
	for i := 1; i < b.dims.Len(); i++ {
		if i == b.split {
			continue
		}
		keys = append(keys, b.key(c, i))
	}
	return keys
}

func (b *builder) build(primary, secondary dataset.Set) ([]*Chart, error) {
	var frames []*frame
	byFacet := make(map[string]*frame)

	frameFor := func(c coord) *frame {
		facet := ""
		if b.split >= 0 {
			facet = c[b.split]
		}
		if f, ok := byFacet[facet]; ok {
			return f
		}
		f := &frame{
			facet:   facet,
			rows:    newLabels(),
			series:  newLabels(),
			facets:  make(map[string][]dataset.Key),
			primary: make(cells),
		}
		if secondary != nil {
			f.secondary = make(cells)
		}
		if b.split >= 0 {
			k := b.key(c, b.split)
			f.splitKey = &k
		}
		byFacet[facet] = f
		frames = append(frames, f)
		return f
	}

	place := func(set dataset.Set, pick func(*frame) cells) {
		x := b.dims.At(0).Target()
		for _, m := range dataset.Measures {
			t := project(set.Root(m), b.dims)
			for _, c := range t.order {
				f := frameFor(c)
				keys := b.seriesKeys(c)
				label := seriesLabel(keys, x)
				if f.series.add(label) {
					f.facets[label] = keys
				}
				f.rows.add(c[0])
				pick(f).put(m, label, c[0], t.values[c])
			}
		}
	}
	place(primary, func(f *frame) cells { return f.primary })
	if secondary != nil {
		place(secondary, func(f *frame) cells { return f.secondary })
	}

	charts := make([]*Chart, 0, len(frames))
	for _, f := range frames {
		if err := b.order(f); err != nil {
			return nil, err
		}
		charts = append(charts, b.chart(f))
	}
	return charts, nil
}

func (b *builder) chart(f *frame) *Chart {
	x := b.dims.At(0).Target()
	data := make(Data, len(dataset.Measures))
	for _, m := range dataset.Measures {
		var compared map[string]map[string]int64
		if f.secondary != nil {
			compared = f.secondary.ints(m)
			if b.mode == ModeBaseline {
				compared = Baseline(f.primary.ints(m), compared)
			}
		}

		for _, s := range f.series.items {
			points := make([]Point, 0, len(f.rows.items))
			for _, row := range f.rows.items {
				v := f.primary.get(m, s, row)
				p := Point{Label: row, Value: v.Value}
				if compared != nil {
					bv := compared[s][row]
					p.Baseline = &bv
				}

				facets := append([]dataset.Key{{Target: x, Value: row}}, f.facets[s]...)
				if f.splitKey != nil {
					facets = append(facets, *f.splitKey)
				}
				p.Meta = Metadata{
					Tooltip:  Tooltip(b.mode, p.Value, p.Baseline),
					Explore:  Explore(facets),
					Redacted: v.Redacted,
				}
				points = append(points, p)
			}
			data[m] = append(data[m], Series{Label: s, Points: points})
		}
	}

	c := &Chart{
		Type:        b.kind,
		Dimensions:  b.dims,
		Facet:       f.facet,
		Data:        data,
		HasBaseline: f.secondary != nil,
	}
	c.Name = b.names.Generate(c, b.dims, f.facet)
	return c
}
