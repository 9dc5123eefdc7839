package handlers

import (
	"net/http"
	"os"

	"github.com/malbeclabs/tornado/analytics/pkg/chart"
)

// PublicConfig holds configuration that is safe to expose to the frontend
type PublicConfig struct {
	ChartTypes        []chart.Type      `json:"chartTypes"`
	Modes             []chart.Mode      `json:"modes"`
	HistogramOrders   []chart.SortOrder `json:"histogramOrders"`
	Targets           []string          `json:"targets"`
	PersistEnabled    bool              `json:"persistEnabled"`
	ExportEnabled     bool              `json:"exportEnabled"`
	SentryDSN         string            `json:"sentryDsn,omitempty"`
	SentryEnvironment string            `json:"sentryEnvironment,omitempty"`
}

// GetConfig returns public configuration for the frontend
func (h *Handlers) GetConfig(w http.ResponseWriter, r *http.Request) {
	sentryEnv := os.Getenv("SENTRY_ENVIRONMENT")
	if sentryEnv == "" {
		sentryEnv = "development"
	}

	writeJSON(w, http.StatusOK, PublicConfig{
		ChartTypes:        chart.Types,
		Modes:             []chart.Mode{chart.ModeCompare, chart.ModeBaseline},
		HistogramOrders:   []chart.SortOrder{chart.SortSize, chart.SortLabel, chart.SortNone},
		Targets:           h.cfg.Schema.Targets(),
		PersistEnabled:    h.cfg.Store != nil,
		ExportEnabled:     h.cfg.Store != nil && h.cfg.Exporter != nil,
		SentryDSN:         os.Getenv("SENTRY_DSN_WEB"),
		SentryEnvironment: sentryEnv,
	})
}
