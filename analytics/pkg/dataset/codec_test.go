package dataset_test

import (
	"testing"

	"github.com/malbeclabs/tornado/analytics/pkg/dataset"
	"github.com/malbeclabs/tornado/analytics/pkg/dimension"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataSet_MarshalJSON(t *testing.T) {
	t.Parallel()

	child := dataset.NewNode()
	child.Add(dataset.Facet{Key: dataset.Key{Target: "gender", Value: "M"}, Value: dataset.Value{Value: 6}})

	root := dataset.NewNode()
	root.Add(dataset.Facet{Key: dataset.Key{Target: "country", Value: "US"}, Value: dataset.Value{Value: 10}, Child: child})
	root.Add(dataset.Facet{Key: dataset.Key{Target: "country", Value: "GB"}, Value: dataset.Value{Redacted: true}})

	ds := dataset.New(countryGender(),
		map[dataset.Measure]dataset.Value{dataset.Interactions: {Value: 12}},
		map[dataset.Measure]*dataset.Node{dataset.Interactions: root},
	)

	b, err := ds.MarshalJSON()
	require.NoError(t, err)

	expected := `{"interactions":{"value":12,"redacted":false,` +
		`"US":{"dim:gender:M":{"value":6,"redacted":false}},` +
		`"dim:country:US":{"value":10,"redacted":false},` +
		`"dim:country:GB":{"value":0,"redacted":true}},` +
		`"unique_authors":{"value":0,"redacted":false}}`
	assert.Equal(t, expected, string(b))
}

func TestDecode_PreservesOrderAndNesting(t *testing.T) {
	t.Parallel()

	analyses, err := dataset.ParseAnalyses([]byte(countryGenderAnalysis))
	require.NoError(t, err)
	set, err := dataset.NewGenerator().FromAnalyses(analyses, countryGender())
	require.NoError(t, err)
	ds := set.(*dataset.DataSet)

	b, err := ds.MarshalJSON()
	require.NoError(t, err)

	decoded, err := dataset.Decode(countryGender(), b)
	require.NoError(t, err)

	for _, m := range dataset.Measures {
		assert.Equal(t, ds.Total(m), decoded.Total(m), "measure %s", m)
		assert.Equal(t, ds.Root(m).Facets()[0].Key, decoded.Root(m).Facets()[0].Key)
		assert.Equal(t, ds.Root(m).Len(), decoded.Root(m).Len())
		assert.Equal(t, ds.Root(m).Depth(), decoded.Root(m).Depth())
	}

	us, ok := decoded.Root(dataset.Interactions).Get(dataset.Key{Target: "country", Value: "US"})
	require.True(t, ok)
	assert.Equal(t, []dataset.Key{
		{Target: "gender", Value: "M"},
		{Target: "gender", Value: "F"},
	}, []dataset.Key{us.Child.Facets()[0].Key, us.Child.Facets()[1].Key})

	again, err := decoded.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, string(b), string(again))
}

func TestDecode_Errors(t *testing.T) {
	t.Parallel()

	dims := dimension.NewCollection(dimension.New("country"))

	tests := []struct {
		name string
		data string
	}{
		{name: "measure not an object", data: `{"interactions": 5}`},
		{name: "facet not an object", data: `{"interactions": {"dim:country:US": 3}}`},
		{name: "bad value", data: `{"interactions": {"dim:country:US": {"value": "ten"}}}`},
		{name: "bad redacted flag", data: `{"interactions": {"dim:country:US": {"value": 1, "redacted": "yes"}}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := dataset.Decode(dims, []byte(tt.data))
			require.Error(t, err)
		})
	}
}

func TestDecode_MissingMeasuresAreEmpty(t *testing.T) {
	t.Parallel()

	ds, err := dataset.Decode(dimension.NewCollection(dimension.New("country")), []byte(`{"interactions":{"value":3,"redacted":false,"dim:country:US":{"value":3,"redacted":false}}}`))
	require.NoError(t, err)
	assert.Equal(t, 1, ds.Root(dataset.Interactions).Len())
	assert.Equal(t, 0, ds.Root(dataset.UniqueAuthors).Len())
	assert.Equal(t, dataset.Value{}, ds.Total(dataset.UniqueAuthors))
}

func TestDecodeTimeSeries(t *testing.T) {
	t.Parallel()

	data := `{"interactions":{"value":3,"redacted":false,` +
		`"dim:time:100":{"value":1,"redacted":false},"dim:time:200":{"value":2,"redacted":false}}}`
	ts, err := dataset.DecodeTimeSeries(dimension.NewCollection(dimension.New(dataset.TimeTarget)), "hour", 2, []byte(data))
	require.NoError(t, err)
	assert.Equal(t, "hour", ts.Interval())
	assert.Equal(t, 2, ts.Span())

	end, ok := ts.End()
	require.True(t, ok)
	assert.Equal(t, int64(200), end)
}
