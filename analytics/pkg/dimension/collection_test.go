package dimension_test

import (
	"testing"

	"github.com/malbeclabs/tornado/analytics/pkg/dimension"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func targets(dims []*dimension.Dimension) []string {
	out := make([]string, 0, len(dims))
	for _, d := range dims {
		out = append(out, d.Target())
	}
	return out
}

func byTargets(t *testing.T, names ...string) *dimension.Collection {
	t.Helper()
	dims := make([]*dimension.Dimension, 0, len(names))
	for _, n := range names {
		dims = append(dims, dimension.New(n))
	}
	return dimension.NewCollection(dims...)
}

func TestCollection_Sorted(t *testing.T) {
	t.Parallel()

	c := dimension.New("C", dimension.WithCardinality(3))
	a := dimension.New("A", dimension.WithCardinality(1))
	b := dimension.New("B", dimension.WithCardinality(2))
	d := dimension.New("D")

	coll := dimension.NewCollection(c, a, b, d)

	tests := []struct {
		name     string
		ordering dimension.Ordering
		want     []string
	}{
		{"natural", dimension.Natural, []string{"C", "A", "B", "D"}},
		{"cardinality asc puts unbounded last", dimension.CardinalityAsc, []string{"A", "B", "C", "D"}},
		{"cardinality desc puts unbounded first", dimension.CardinalityDesc, []string{"D", "C", "B", "A"}},
		{"target asc", dimension.TargetAsc, []string{"A", "B", "C", "D"}},
		{"target desc", dimension.TargetDesc, []string{"D", "C", "B", "A"}},
		{"last first", dimension.LastFirst, []string{"D", "C", "A", "B"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, targets(coll.Sorted(tt.ordering)))
		})
	}

	// Sorting never touches the collection itself.
	assert.Equal(t, []string{"C", "A", "B", "D"}, coll.Targets())
}

func TestCollection_Sorted_TiesKeepInsertionOrder(t *testing.T) {
	t.Parallel()

	c := dimension.NewCollection(
		dimension.New("x", dimension.WithCardinality(2)),
		dimension.New("y"),
		dimension.New("z", dimension.WithCardinality(2)),
	)

	assert.Equal(t, []string{"x", "z", "y"}, targets(c.Sorted(dimension.CardinalityAsc)))
	assert.Equal(t, []string{"y", "x", "z"}, targets(c.Sorted(dimension.CardinalityDesc)))
}

func TestCollection_CheckAxes(t *testing.T) {
	t.Parallel()

	c := byTargets(t, "a", "b", "c")
	require.NoError(t, c.CheckAxes())

	more := c.Add(dimension.New("d"))
	require.ErrorIs(t, more.CheckAxes(), dimension.ErrTooManyDimensions)
	assert.Equal(t, 3, c.Len())
	assert.Equal(t, 4, more.Len())
}

func TestCollection_SetAlgebra(t *testing.T) {
	t.Parallel()

	from := byTargets(t, "a", "b")
	to := byTargets(t, "b", "a", "c")

	assert.True(t, from.IsSubset(to))
	assert.False(t, to.IsSubset(from))
	assert.False(t, from.IsSame(to))
	assert.True(t, from.IsSame(byTargets(t, "b", "a")))

	subset, err := from.OrderedSubset(to)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, subset.Targets())

	_, err = byTargets(t, "a", "d").OrderedSubset(to)
	require.ErrorIs(t, err, dimension.ErrIncompatibleDimensions)
}

func TestCollection_IsSame_DuplicatesDoNotFoolLength(t *testing.T) {
	t.Parallel()

	assert.False(t, byTargets(t, "a", "a").IsSame(byTargets(t, "a", "b")))
	assert.True(t, byTargets(t).IsSame(byTargets(t)))
}

func TestCollection_Remove(t *testing.T) {
	t.Parallel()

	c := byTargets(t, "a", "b", "c")

	removed, ok := c.Remove(1)
	require.True(t, ok)
	assert.Equal(t, []string{"a", "c"}, removed.Targets())
	assert.Equal(t, []string{"a", "b", "c"}, c.Targets())

	for _, idx := range []int{-1, 3, 10} {
		same, ok := c.Remove(idx)
		assert.False(t, ok, "index %d", idx)
		assert.Equal(t, c.Targets(), same.Targets())
	}
}

func TestCollection_Accessors(t *testing.T) {
	t.Parallel()

	c := byTargets(t, "a", "b")

	assert.Equal(t, 2, c.Len())
	assert.Equal(t, "b", c.Last().Target())
	assert.Nil(t, c.At(5))
	assert.Equal(t, 1, c.Index("b"))
	assert.Equal(t, -1, c.Index("z"))
	assert.Equal(t, "a,b", c.CSV())

	var empty *dimension.Collection
	assert.Equal(t, 0, empty.Len())
	assert.Nil(t, empty.Last())
	assert.Empty(t, empty.Targets())
}

func TestDimension_DisplayLabel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Gender", dimension.New("fb.author.gender", dimension.WithLabel("gender")).DisplayLabel())
	assert.Equal(t, "fb.author.gender", dimension.New("fb.author.gender").DisplayLabel())
	assert.Equal(t, "Élan vital", dimension.Capitalize("élan vital"))
	assert.Equal(t, "", dimension.Capitalize(""))
}

func TestDimension_Threshold(t *testing.T) {
	t.Parallel()

	d := dimension.New("a", dimension.WithThreshold(10))
	v, ok := d.Threshold()
	require.True(t, ok)
	assert.Equal(t, 10, v)

	d.SetThreshold(50)
	v, _ = d.Threshold()
	assert.Equal(t, 50, v)

	_, ok = dimension.New("b").Cardinality()
	assert.False(t, ok)
}
