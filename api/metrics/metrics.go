package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/malbeclabs/tornado/analytics/pkg/dataset"
)

var (
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tornado_api_build_info",
			Help: "Build information of the Tornado API",
		},
		[]string{"version", "commit", "date"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tornado_api_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tornado_api_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tornado_api_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	// Generation metrics
	DataSetsGeneratedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tornado_api_datasets_generated_total",
			Help: "Total number of datasets generated from analysis results",
		},
		[]string{"type", "status"},
	)

	ChartsGeneratedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tornado_api_charts_generated_total",
			Help: "Total number of charts generated",
		},
		[]string{"type", "mode"},
	)

	ChartGenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tornado_api_chart_generation_duration_seconds",
			Help:    "Duration of chart generation in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12), // 0.5ms to ~1s
		},
		[]string{"type"},
	)

	RedactedResultsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tornado_api_redacted_results_total",
			Help: "Total number of analysis results rejected as fully redacted",
		},
	)

	// PostgreSQL metrics
	PostgresQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tornado_api_postgres_queries_total",
			Help: "Total number of PostgreSQL queries",
		},
		[]string{"op", "status"},
	)

	PostgresQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tornado_api_postgres_query_duration_seconds",
			Help:    "Duration of PostgreSQL queries in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"op"},
	)

	// Export metrics
	ExportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tornado_api_exports_total",
			Help: "Total number of chart exports to object storage",
		},
		[]string{"status"},
	)

	ExportBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tornado_api_export_bytes_total",
			Help: "Total number of bytes written to object storage",
		},
	)
)

// Middleware returns a chi middleware that records HTTP metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		HTTPRequestsInFlight.Inc()
		defer HTTPRequestsInFlight.Dec()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		// Use the route pattern if available, otherwise use the path
		path := ""
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			path = rctx.RoutePattern()
		}
		if path == "" {
			path = r.URL.Path
		}

		status := strconv.Itoa(ww.Status())
		duration := time.Since(start).Seconds()

		HTTPRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// RecordDataSet records the outcome of turning analyses into a dataset.
func RecordDataSet(typ string, err error) {
	status := "success"
	switch {
	case errors.Is(err, dataset.ErrRedacted):
		status = "redacted"
		RedactedResultsTotal.Inc()
	case err != nil:
		status = "error"
	}
	DataSetsGeneratedTotal.WithLabelValues(typ, status).Inc()
}

// RecordCharts records a successful chart generation.
func RecordCharts(typ, mode string, count int, duration time.Duration) {
	ChartsGeneratedTotal.WithLabelValues(typ, mode).Add(float64(count))
	ChartGenerationDuration.WithLabelValues(typ).Observe(duration.Seconds())
}

// RecordPostgresQuery records metrics for a PostgreSQL operation.
func RecordPostgresQuery(op string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	PostgresQueriesTotal.WithLabelValues(op, status).Inc()
	PostgresQueryDuration.WithLabelValues(op).Observe(duration.Seconds())
}

// RecordExport records a chart export.
func RecordExport(bytes int, err error) {
	if err != nil {
		ExportsTotal.WithLabelValues("error").Inc()
		return
	}
	ExportsTotal.WithLabelValues("success").Inc()
	ExportBytesTotal.Add(float64(bytes))
}
