package handlers

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/malbeclabs/tornado/analytics/pkg/chart"
	"github.com/malbeclabs/tornado/analytics/pkg/dataset"
	"github.com/malbeclabs/tornado/analytics/pkg/dimension"
	"github.com/malbeclabs/tornado/api/store"
)

// Store persists generated datasets and charts. *store.Store implements it.
type Store interface {
	SaveGeneration(ctx context.Context, set dataset.Set, mode chart.Mode, charts []*chart.Chart) (*store.DataSetRecord, []*store.ChartRecord, error)
	SaveCharts(ctx context.Context, datasetID uuid.UUID, mode chart.Mode, charts []*chart.Chart) ([]*store.ChartRecord, error)
	GetDataSet(ctx context.Context, id uuid.UUID) (*store.DataSetRecord, error)
	GetChart(ctx context.Context, id uuid.UUID) (*store.ChartRecord, error)
	ListCharts(ctx context.Context, datasetID *uuid.UUID, limit, offset int) ([]*store.ChartRecord, int, error)
	Ping(ctx context.Context) error
}

// Exporter publishes chart snapshots. *export.Exporter implements it.
type Exporter interface {
	Export(ctx context.Context, rec *store.ChartRecord) (string, error)
}

// BuildInfo is reported by GET /api/version.
type BuildInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

type Config struct {
	Logger  *slog.Logger
	Schema  *dimension.Schema
	Factory *chart.Factory

	// Store and Exporter are optional; the endpoints that need them answer
	// 503 when they are not configured.
	Store    Store
	Exporter Exporter

	// Limiter, when set, rate limits the generation endpoints per client IP.
	Limiter *RateLimiter

	// MaxBodyBytes caps request bodies. Defaults to 8 MiB.
	MaxBodyBytes int64

	Build BuildInfo
}

func (cfg *Config) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Schema == nil {
		return errors.New("schema is required")
	}
	if cfg.Factory == nil {
		return errors.New("chart factory is required")
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 8 << 20
	}
	if cfg.Build.Version == "" {
		cfg.Build.Version = "dev"
	}
	return nil
}

// Handlers serves the chart API.
type Handlers struct {
	log      *slog.Logger
	cfg      Config
	datasets *dataset.Generator
}

func New(cfg Config) (*Handlers, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Handlers{
		log:      cfg.Logger,
		cfg:      cfg,
		datasets: dataset.NewGenerator(),
	}, nil
}
