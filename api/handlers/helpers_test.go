package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/malbeclabs/tornado/analytics/pkg/chart"
	"github.com/malbeclabs/tornado/analytics/pkg/dataset"
	"github.com/malbeclabs/tornado/analytics/pkg/dimension"
	"github.com/malbeclabs/tornado/api/handlers"
	"github.com/malbeclabs/tornado/api/store"
	tornadotesting "github.com/malbeclabs/tornado/utils/pkg/testing"
)

// countryGender: US 10 (M 6, F 4), GB 20 (M 5, F 15).
const countryGender = `[{
	"type": "frequency_distribution",
	"interactions": 30,
	"unique_authors": 17,
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
					{"key": "M", "interactions": 5, "unique_authors": 4},
					{"key": "F", "interactions": 15, "unique_authors": 8}
				]
			}}
		]
	}
}]`

// countryGenderLastYear: US 5 (M 3, F 2), GB 15 (M 5, F 10).
const countryGenderLastYear = `[{
	"type": "frequency_distribution",
	"results": {
		"parameters": {"target": "country"},
		"results": [
			{"key": "US", "interactions": 5, "unique_authors": 3, "child": {
				"parameters": {"target": "gender"},
				"results": [
					{"key": "M", "interactions": 3, "unique_authors": 2},
					{"key": "F", "interactions": 2, "unique_authors": 1}
				]
			}},
			{"key": "GB", "interactions": 15, "unique_authors": 9, "child": {
				"parameters": {"target": "gender"},
				"results": [
					{"key": "M", "interactions": 5, "unique_authors": 3},
					{"key": "F", "interactions": 10, "unique_authors": 6}
				]
			}}
		]
	}
}]`

const redactedCountry = `[{
	"type": "frequency_distribution",
	"results": {"parameters": {"target": "country"}, "redacted": true, "results": []}
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

type option func(*handlers.Config)

func withStore(s handlers.Store) option {
	return func(cfg *handlers.Config) { cfg.Store = s }
}

func withExporter(e handlers.Exporter) option {
	return func(cfg *handlers.Config) { cfg.Exporter = e }
}

func newServer(t *testing.T, opts ...option) http.Handler {
	t.Helper()
	factory, err := chart.NewFactory(chart.FactoryConfig{})
	require.NoError(t, err)
	cfg := handlers.Config{
		Logger:  tornadotesting.NewLogger(t),
		Schema:  testSchema(t),
		Factory: factory,
		Build:   handlers.BuildInfo{Version: "1.2.3", Commit: "abc123", Date: "2024-05-01"},
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	h, err := handlers.New(cfg)
	require.NoError(t, err)
	return h.Router()
}

func do(t *testing.T, srv http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), rec.Body.String())
	return v
}

// memStore is an in-memory handlers.Store.
type memStore struct {
	mu       sync.Mutex
	datasets map[uuid.UUID]*store.DataSetRecord
	charts   map[uuid.UUID]*store.ChartRecord
	err      error
	pingErr  error
}

func newMemStore() *memStore {
	return &memStore{
		datasets: make(map[uuid.UUID]*store.DataSetRecord),
		charts:   make(map[uuid.UUID]*store.ChartRecord),
	}
}

func (s *memStore) SaveGeneration(ctx context.Context, set dataset.Set, mode chart.Mode, charts []*chart.Chart) (*store.DataSetRecord, []*store.ChartRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, nil, s.err
	}
	ds, err := store.NewDataSetRecord(set)
	if err != nil {
		return nil, nil, err
	}
	recs, err := store.NewChartRecords(ds.ID, mode, charts)
	if err != nil {
		return nil, nil, err
	}
	s.datasets[ds.ID] = ds
	for _, rec := range recs {
		s.charts[rec.ID] = rec
	}
	return ds, recs, nil
}

func (s *memStore) SaveCharts(ctx context.Context, datasetID uuid.UUID, mode chart.Mode, charts []*chart.Chart) ([]*store.ChartRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	if _, ok := s.datasets[datasetID]; !ok {
		return nil, store.ErrNotFound
	}
	next := 0
	for _, rec := range s.charts {
		if rec.DataSetID == datasetID && rec.Rank >= next {
			next = rec.Rank + 1
		}
	}
	recs, err := store.NewChartRecords(datasetID, mode, charts)
	if err != nil {
		return nil, err
	}
	for i, rec := range recs {
		rec.Rank = next + i
		s.charts[rec.ID] = rec
	}
	return recs, nil
}

func (s *memStore) GetDataSet(ctx context.Context, id uuid.UUID) (*store.DataSetRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	rec, ok := s.datasets[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return rec, nil
}

func (s *memStore) GetChart(ctx context.Context, id uuid.UUID) (*store.ChartRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	rec, ok := s.charts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return rec, nil
}

func (s *memStore) ListCharts(ctx context.Context, datasetID *uuid.UUID, limit, offset int) ([]*store.ChartRecord, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, 0, s.err
	}
	var all []*store.ChartRecord
	for _, rec := range s.charts {
		if datasetID == nil || rec.DataSetID == *datasetID {
			all = append(all, rec)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Rank < all[j].Rank })
	total := len(all)
	if offset > total {
		offset = total
	}
	end := min(offset+limit, total)
	return all[offset:end], total, nil
}

func (s *memStore) Ping(ctx context.Context) error {
	return s.pingErr
}

type fakeExporter struct {
	exported []uuid.UUID
	err      error
}

func (e *fakeExporter) Export(ctx context.Context, rec *store.ChartRecord) (string, error) {
	if e.err != nil {
		return "", e.err
	}
	e.exported = append(e.exported, rec.ID)
	return "charts/" + rec.ID.String() + ".json", nil
}

var errBoom = errors.New("boom")
