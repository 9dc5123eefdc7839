// Package store persists generated datasets and their charts in PostgreSQL.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/malbeclabs/tornado/analytics/pkg/chart"
	"github.com/malbeclabs/tornado/analytics/pkg/dataset"
	"github.com/malbeclabs/tornado/analytics/pkg/dimension"
	"github.com/malbeclabs/tornado/api/metrics"
	"github.com/malbeclabs/tornado/utils/pkg/retry"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

type Config struct {
	Logger *slog.Logger
	Pool   *pgxpool.Pool
	Retry  retry.Config
}

func (cfg *Config) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Pool == nil {
		return errors.New("pool is required")
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = retry.DefaultConfig()
	}
	if cfg.Retry.Retryable == nil {
		cfg.Retry.Retryable = isRetryable
	}
	return nil
}

type Store struct {
	log   *slog.Logger
	pool  *pgxpool.Pool
	retry retry.Config
}

func New(cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid store config: %w", err)
	}
	return &Store{
		log:   cfg.Logger,
		pool:  cfg.Pool,
		retry: cfg.Retry,
	}, nil
}

// DataSetRecord is a persisted dataset. Data holds the dataset's JSON form with
// facet order preserved.
type DataSetRecord struct {
	ID         uuid.UUID       `json:"id"`
	Type       dataset.Type    `json:"type"`
	Dimensions []string        `json:"dimensions"`
	Data       json.RawMessage `json:"data"`
	Interval   string          `json:"interval,omitempty"`
	Span       int             `json:"span,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// NewDataSetRecord encodes set for persistence under a new id.
func NewDataSetRecord(set dataset.Set) (*DataSetRecord, error) {
	data, err := json.Marshal(set)
	if err != nil {
		return nil, fmt.Errorf("failed to encode dataset: %w", err)
	}
	rec := &DataSetRecord{
		ID:         uuid.New(),
		Type:       set.Type(),
		Dimensions: set.Dimensions().Targets(),
		Data:       data,
	}
	if ts, ok := set.(*dataset.TimeSeries); ok {
		rec.Interval = ts.Interval()
		rec.Span = ts.Span()
	}
	return rec, nil
}

// Decode rebuilds the dataset, resolving dimensions through schema.
func (r *DataSetRecord) Decode(schema *dimension.Schema) (dataset.Set, error) {
	dims, err := schema.Collection(r.Dimensions...)
	if err != nil {
		return nil, err
	}
	switch r.Type {
	case dataset.TypeTimeSeries:
		return dataset.DecodeTimeSeries(dims, r.Interval, r.Span, r.Data)
	case dataset.TypeFrequencyDistribution:
		return dataset.Decode(dims, r.Data)
	}
	return nil, fmt.Errorf("%w: %q", dataset.ErrUnknownAnalysisType, r.Type)
}

// ChartRecord is a persisted chart. Rank is the chart's position in the
// generation that produced it.
type ChartRecord struct {
	ID         uuid.UUID       `json:"id"`
	DataSetID  uuid.UUID       `json:"dataset_id"`
	Type       chart.Type      `json:"type"`
	Name       string          `json:"name"`
	Mode       chart.Mode      `json:"mode"`
	Dimensions []string        `json:"dimensions"`
	Facet      string          `json:"facet,omitempty"`
	Rank       int             `json:"rank"`
	Data       json.RawMessage `json:"data"`
	CreatedAt  time.Time       `json:"created_at"`
}

// NewChartRecords encodes charts in order, ranking them from 0.
func NewChartRecords(datasetID uuid.UUID, mode chart.Mode, charts []*chart.Chart) ([]*ChartRecord, error) {
	recs := make([]*ChartRecord, len(charts))
	for i, c := range charts {
		data, err := json.Marshal(c)
		if err != nil {
			return nil, fmt.Errorf("failed to encode chart %d: %w", i, err)
		}
		recs[i] = &ChartRecord{
			ID:         uuid.New(),
			DataSetID:  datasetID,
			Type:       c.Type,
			Name:       c.Name,
			Mode:       mode,
			Dimensions: c.Dimensions.Targets(),
			Facet:      c.Facet,
			Rank:       i,
			Data:       data,
		}
	}
	return recs, nil
}

// SaveGeneration stores a dataset and the charts generated from it in one
// transaction. Transient failures retry the whole transaction.
func (s *Store) SaveGeneration(ctx context.Context, set dataset.Set, mode chart.Mode, charts []*chart.Chart) (*DataSetRecord, []*ChartRecord, error) {
	ds, err := NewDataSetRecord(set)
	if err != nil {
		return nil, nil, err
	}
	recs, err := NewChartRecords(ds.ID, mode, charts)
	if err != nil {
		return nil, nil, err
	}

	err = s.observe("save_generation", func() error {
		return retry.Do(ctx, s.retry, func() error {
			return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
				return saveGeneration(ctx, tx, ds, recs)
			})
		})
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to save generation: %w", err)
	}

	s.log.Debug("store: saved generation", "dataset_id", ds.ID, "type", ds.Type, "charts", len(recs))
	return ds, recs, nil
}

// SaveCharts stores charts regenerated from an existing dataset, ranked after
// the charts it already has.
func (s *Store) SaveCharts(ctx context.Context, datasetID uuid.UUID, mode chart.Mode, charts []*chart.Chart) ([]*ChartRecord, error) {
	recs, err := NewChartRecords(datasetID, mode, charts)
	if err != nil {
		return nil, err
	}

	err = s.observe("save_charts", func() error {
		return retry.Do(ctx, s.retry, func() error {
			return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
				// The dataset row lock serializes appends so concurrent
				// callers never read the same MAX(rank).
				var one int
				err := tx.QueryRow(ctx, `SELECT 1 FROM datasets WHERE id = $1 FOR UPDATE`, datasetID).Scan(&one)
				if errors.Is(err, pgx.ErrNoRows) {
					return ErrNotFound
				}
				if err != nil {
					return err
				}
				var next int
				err = tx.QueryRow(ctx, `SELECT COALESCE(MAX(rank) + 1, 0) FROM charts WHERE dataset_id = $1`, datasetID).Scan(&next)
				if err != nil {
					return err
				}
				for i, rec := range recs {
					rec.Rank = next + i
					if err := insertChart(ctx, tx, rec); err != nil {
						return err
					}
				}
				return nil
			})
		})
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to save charts: %w", err)
	}
	return recs, nil
}

func saveGeneration(ctx context.Context, tx pgx.Tx, ds *DataSetRecord, charts []*ChartRecord) error {
	err := tx.QueryRow(ctx, `
		INSERT INTO datasets (id, type, dimensions, data, time_interval, time_span)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, ds.ID, string(ds.Type), strings.Join(ds.Dimensions, ","), []byte(ds.Data), ds.Interval, ds.Span).Scan(&ds.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert dataset: %w", err)
	}
	for _, rec := range charts {
		if err := insertChart(ctx, tx, rec); err != nil {
			return err
		}
	}
	return nil
}

func insertChart(ctx context.Context, tx pgx.Tx, rec *ChartRecord) error {
	err := tx.QueryRow(ctx, `
		INSERT INTO charts (id, dataset_id, type, name, mode, dimensions, facet, rank, data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`, rec.ID, rec.DataSetID, string(rec.Type), rec.Name, string(rec.Mode), strings.Join(rec.Dimensions, ","), rec.Facet, rec.Rank, []byte(rec.Data)).Scan(&rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert chart %d: %w", rec.Rank, err)
	}
	return nil
}

// GetDataSet returns the dataset with id, or ErrNotFound.
func (s *Store) GetDataSet(ctx context.Context, id uuid.UUID) (*DataSetRecord, error) {
	var rec DataSetRecord
	var typ, dims string
	var data []byte
	err := s.observe("get_dataset", func() error {
		return s.pool.QueryRow(ctx, `
			SELECT id, type, dimensions, data, time_interval, time_span, created_at
			FROM datasets
			WHERE id = $1
		`, id).Scan(&rec.ID, &typ, &dims, &data, &rec.Interval, &rec.Span, &rec.CreatedAt)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get dataset: %w", err)
	}
	rec.Type = dataset.Type(typ)
	rec.Dimensions = dimension.ParseTargets(dims)
	rec.Data = data
	return &rec, nil
}

const chartColumns = `id, dataset_id, type, name, mode, dimensions, facet, rank, data, created_at`

// GetChart returns the chart with id, or ErrNotFound.
func (s *Store) GetChart(ctx context.Context, id uuid.UUID) (*ChartRecord, error) {
	var rec *ChartRecord
	err := s.observe("get_chart", func() error {
		var err error
		rec, err = scanChart(s.pool.QueryRow(ctx, `SELECT `+chartColumns+` FROM charts WHERE id = $1`, id))
		return err
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get chart: %w", err)
	}
	return rec, nil
}

// ListCharts returns a page of charts and the total count. A nil datasetID
// lists charts across datasets, newest first; otherwise charts come in rank
// order.
func (s *Store) ListCharts(ctx context.Context, datasetID *uuid.UUID, limit, offset int) ([]*ChartRecord, int, error) {
	var (
		recs  []*ChartRecord
		total int
	)
	err := s.observe("list_charts", func() error {
		if err := s.pool.QueryRow(ctx, `
			SELECT COUNT(*) FROM charts WHERE $1::uuid IS NULL OR dataset_id = $1
		`, datasetID).Scan(&total); err != nil {
			return err
		}

		rows, err := s.pool.Query(ctx, `
			SELECT `+chartColumns+`
			FROM charts
			WHERE $1::uuid IS NULL OR dataset_id = $1
			ORDER BY
				CASE WHEN $1::uuid IS NULL THEN created_at END DESC,
				rank ASC, id ASC
			LIMIT $2 OFFSET $3
		`, datasetID, limit, offset)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			rec, err := scanChart(rows)
			if err != nil {
				return err
			}
			recs = append(recs, rec)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list charts: %w", err)
	}
	if recs == nil {
		recs = []*ChartRecord{}
	}
	return recs, total, nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func scanChart(row pgx.Row) (*ChartRecord, error) {
	var rec ChartRecord
	var typ, mode, dims string
	var data []byte
	if err := row.Scan(&rec.ID, &rec.DataSetID, &typ, &rec.Name, &mode, &dims, &rec.Facet, &rec.Rank, &data, &rec.CreatedAt); err != nil {
		return nil, err
	}
	rec.Type = chart.Type(typ)
	rec.Mode = chart.Mode(mode)
	rec.Dimensions = dimension.ParseTargets(dims)
	rec.Data = data
	return &rec, nil
}

func (s *Store) observe(op string, fn func() error) error {
	start := time.Now()
	err := fn()
	metrics.RecordPostgresQuery(op, time.Since(start), err)
	return err
}

// isRetryable extends retry.IsRetryable with errors pgx reports as safe to
// retry and with serialization failures.
func isRetryable(err error) bool {
	if pgconn.SafeToRetry(err) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return true
		}
		return false
	}
	return retry.IsRetryable(err)
}
