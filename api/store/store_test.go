package store

import (
	"encoding/json"
	"errors"
	"sort"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/malbeclabs/tornado/analytics/pkg/chart"
	"github.com/malbeclabs/tornado/analytics/pkg/dataset"
	"github.com/malbeclabs/tornado/analytics/pkg/dimension"
	apitesting "github.com/malbeclabs/tornado/api/testing"
	tornadotesting "github.com/malbeclabs/tornado/utils/pkg/testing"
)

const countryGender = `[{
	"type": "frequency_distribution",
	"results": {
		"parameters": {"target": "country"},
		"results": [
			{"key": "US", "interactions": 10, "unique_authors": 5, "child": {
				"parameters": {"target": "gender"},
				"results": [
					{"key": "M", "interactions": 6, "unique_authors": 3},
					{"key": "F", "interactions": 4, "unique_authors": 2}
				]
			}},
			{"key": "GB", "interactions": 20, "unique_authors": 12, "child": {
				"parameters": {"target": "gender"},
				"results": [
					{"key": "F", "interactions": 15, "unique_authors": 8},
					{"key": "M", "interactions": 5, "unique_authors": 4}
				]
			}}
		]
	}
}]`

const dailyCountry = `[{
	"type": "time_series",
	"interval": "day",
	"span": 1,
	"results": {
		"parameters": {"target": "time", "interval": "day", "span": 1},
		"results": [
			{"key": 1700006400, "interactions": 3, "unique_authors": 2, "child": {
				"parameters": {"target": "country"},
				"results": [{"key": "US", "interactions": 3, "unique_authors": 2}]
			}},
			{"key": 1700092800, "interactions": 4, "unique_authors": 3, "child": {
				"parameters": {"target": "country"},
				"results": [{"key": "GB", "interactions": 4, "unique_authors": 3}]
			}}
		]
	}
}]`

func testSchema(t *testing.T) *dimension.Schema {
	t.Helper()
	schema, err := dimension.NewSchema(
		dimension.TargetDefinition{Target: "country", Label: "country"},
		dimension.TargetDefinition{Target: "gender", Label: "gender"},
		dimension.TargetDefinition{Target: "time", Label: "time"},
	)
	require.NoError(t, err)
	return schema
}

func generate(t *testing.T, schema *dimension.Schema, raw string, targets ...string) dataset.Set {
	t.Helper()
	analyses, err := dataset.ParseAnalyses([]byte(raw))
	require.NoError(t, err)
	dims, err := schema.Collection(targets...)
	require.NoError(t, err)
	set, err := dataset.NewGenerator().FromAnalyses(analyses, dims)
	require.NoError(t, err)
	return set
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(Config{
		Logger: tornadotesting.NewLogger(t),
		Pool:   apitesting.NewTestPool(t, testDB),
	})
	require.NoError(t, err)
	return s
}

func TestStore_Config_Validate(t *testing.T) {
	t.Parallel()

	cfg := Config{}
	require.Error(t, cfg.Validate())

	cfg = Config{Logger: tornadotesting.NewLogger(t)}
	require.Error(t, cfg.Validate())
}

func TestStore_SaveGeneration_RoundTrip(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	s := newTestStore(t)
	schema := testSchema(t)

	set := generate(t, schema, countryGender, "country", "gender")
	factory, err := chart.NewFactory(chart.FactoryConfig{})
	require.NoError(t, err)
	charts, err := factory.FromDataSet(chart.TypeTornado, set.Dimensions(), set, nil, chart.ModeCompare)
	require.NoError(t, err)

	ds, recs, err := s.SaveGeneration(ctx, set, chart.ModeCompare, charts)
	require.NoError(t, err)
	require.Len(t, recs, len(charts))
	assert.False(t, ds.CreatedAt.IsZero())

	got, err := s.GetDataSet(ctx, ds.ID)
	require.NoError(t, err)
	assert.Equal(t, dataset.TypeFrequencyDistribution, got.Type)
	assert.Equal(t, []string{"country", "gender"}, got.Dimensions)
	// json columns keep the document byte for byte, so key order survives.
	assert.Equal(t, string(ds.Data), string(got.Data))

	decoded, err := got.Decode(schema)
	require.NoError(t, err)
	assert.Equal(t, set.Total(dataset.Interactions), decoded.Total(dataset.Interactions))
	var keys []string
	for _, f := range decoded.Root(dataset.Interactions).Facets() {
		keys = append(keys, f.Key.String())
	}
	assert.Equal(t, []string{"dim:country:US", "dim:country:GB"}, keys)

	c, err := s.GetChart(ctx, recs[0].ID)
	require.NoError(t, err)
	assert.Equal(t, ds.ID, c.DataSetID)
	assert.Equal(t, chart.TypeTornado, c.Type)
	assert.Equal(t, chart.ModeCompare, c.Mode)
	assert.Equal(t, 0, c.Rank)
	assert.Equal(t, charts[0].Name, c.Name)
	assert.JSONEq(t, string(recs[0].Data), string(c.Data))
}

func TestStore_SaveGeneration_TimeSeries(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	s := newTestStore(t)
	schema := testSchema(t)

	set := generate(t, schema, dailyCountry, "time", "country")
	ds, _, err := s.SaveGeneration(ctx, set, chart.ModeCompare, nil)
	require.NoError(t, err)

	got, err := s.GetDataSet(ctx, ds.ID)
	require.NoError(t, err)
	assert.Equal(t, "day", got.Interval)
	assert.Equal(t, 1, got.Span)

	decoded, err := got.Decode(schema)
	require.NoError(t, err)
	ts, ok := decoded.(*dataset.TimeSeries)
	require.True(t, ok)
	start, ok := ts.Start()
	require.True(t, ok)
	assert.Equal(t, int64(1700006400), start)
}

func TestStore_SaveCharts_AppendsRanks(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	s := newTestStore(t)
	schema := testSchema(t)

	set := generate(t, schema, countryGender, "country", "gender")
	factory, err := chart.NewFactory(chart.FactoryConfig{})
	require.NoError(t, err)
	tornado, err := factory.FromDataSet(chart.TypeTornado, set.Dimensions(), set, nil, chart.ModeCompare)
	require.NoError(t, err)
	histogram, err := factory.FromDataSet(chart.TypeHistogram, set.Dimensions(), set, nil, chart.ModeCompare)
	require.NoError(t, err)

	ds, _, err := s.SaveGeneration(ctx, set, chart.ModeCompare, tornado)
	require.NoError(t, err)

	recs, err := s.SaveCharts(ctx, ds.ID, chart.ModeCompare, histogram)
	require.NoError(t, err)
	require.NotEmpty(t, recs)
	assert.Equal(t, len(tornado), recs[0].Rank)

	_, err = s.SaveCharts(ctx, uuid.New(), chart.ModeCompare, histogram)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStore_SaveCharts_ConcurrentAppends(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	s := newTestStore(t)
	schema := testSchema(t)

	set := generate(t, schema, countryGender, "country", "gender")
	factory, err := chart.NewFactory(chart.FactoryConfig{})
	require.NoError(t, err)
	tornado, err := factory.FromDataSet(chart.TypeTornado, set.Dimensions(), set, nil, chart.ModeCompare)
	require.NoError(t, err)

	ds, _, err := s.SaveGeneration(ctx, set, chart.ModeCompare, tornado)
	require.NoError(t, err)

	const appends = 8
	var g errgroup.Group
	for range appends {
		g.Go(func() error {
			_, err := s.SaveCharts(ctx, ds.ID, chart.ModeCompare, tornado)
			return err
		})
	}
	require.NoError(t, g.Wait())

	recs, total, err := s.ListCharts(ctx, &ds.ID, 100, 0)
	require.NoError(t, err)
	want := len(tornado) * (appends + 1)
	require.Equal(t, want, total)

	ranks := make([]int, len(recs))
	for i, rec := range recs {
		ranks[i] = rec.Rank
	}
	sort.Ints(ranks)
	for i, r := range ranks {
		assert.Equal(t, i, r)
	}
}

func TestStore_ListCharts(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	s := newTestStore(t)
	schema := testSchema(t)

	set := generate(t, schema, countryGender, "country", "gender")
	charts := []*chart.Chart{
		{Type: chart.TypeHistogram, Name: "first", Dimensions: set.Dimensions()},
		{Type: chart.TypeHistogram, Name: "second", Dimensions: set.Dimensions()},
		{Type: chart.TypeHistogram, Name: "third", Dimensions: set.Dimensions()},
	}
	ds, _, err := s.SaveGeneration(ctx, set, chart.ModeBaseline, charts)
	require.NoError(t, err)

	page, total, err := s.ListCharts(ctx, &ds.ID, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, page, 2)
	assert.Equal(t, "second", page[0].Name)
	assert.Equal(t, "third", page[1].Name)
	assert.Equal(t, chart.ModeBaseline, page[0].Mode)

	other := uuid.New()
	page, total, err = s.ListCharts(ctx, &other, 10, 0)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.NotNil(t, page)
	assert.Empty(t, page)

	_, total, err = s.ListCharts(ctx, nil, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
}

func TestStore_NotFound(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	s := newTestStore(t)

	_, err := s.GetDataSet(ctx, uuid.New())
	require.ErrorIs(t, err, ErrNotFound)

	_, err = s.GetChart(ctx, uuid.New())
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Ping(ctx))
}

func TestStore_DecodeUnknownType(t *testing.T) {
	t.Parallel()

	rec := &DataSetRecord{Type: "pie", Dimensions: []string{"country"}, Data: json.RawMessage(`{}`)}
	_, err := rec.Decode(testSchema(t))
	require.ErrorIs(t, err, dataset.ErrUnknownAnalysisType)

	rec = &DataSetRecord{Type: dataset.TypeFrequencyDistribution, Dimensions: []string{"planet"}, Data: json.RawMessage(`{}`)}
	_, err = rec.Decode(testSchema(t))
	require.ErrorIs(t, err, dimension.ErrUnknownTarget)
}

func TestStore_IsRetryable(t *testing.T) {
	t.Parallel()

	assert.True(t, isRetryable(&pgconn.PgError{Code: "40001"}))
	assert.True(t, isRetryable(&pgconn.PgError{Code: "40P01"}))
	assert.False(t, isRetryable(&pgconn.PgError{Code: "23505"}))
	assert.True(t, isRetryable(errors.New("connection reset by peer")))
	assert.False(t, isRetryable(ErrNotFound))
}
