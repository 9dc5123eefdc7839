package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	flag "github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/malbeclabs/tornado/analytics/pkg/chart"
	"github.com/malbeclabs/tornado/analytics/pkg/dimension"
	"github.com/malbeclabs/tornado/api/config"
	"github.com/malbeclabs/tornado/api/export"
	"github.com/malbeclabs/tornado/api/handlers"
	"github.com/malbeclabs/tornado/api/metrics"
	"github.com/malbeclabs/tornado/api/store"
	"github.com/malbeclabs/tornado/utils/pkg/logger"
)

var (
	// Set by LDFLAGS
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const (
	defaultListenAddr  = "0.0.0.0:8080"
	defaultMetricsAddr = "0.0.0.0:0"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	verboseFlag := flag.Bool("verbose", false, "enable verbose (debug) logging")
	logFormatFlag := flag.String("log-format", "text", "log format: text or json (or set LOG_FORMAT env var)")
	listenAddrFlag := flag.String("listen-addr", defaultListenAddr, "Address for the API server (or set LISTEN_ADDR env var)")
	metricsAddrFlag := flag.String("metrics-addr", defaultMetricsAddr, "Address to listen on for prometheus metrics")
	shutdownTimeoutFlag := flag.Duration("shutdown-timeout", 30*time.Second, "Graceful shutdown timeout")

	// Chart configuration
	schemaFlag := flag.String("schema", "", "Path to the dimension schema YAML (or set TORNADO_SCHEMA env var)")
	histogramOrderFlag := flag.String("histogram-order", string(chart.SortSize), "Histogram row order: size, label or none")
	permissiveTimeSeriesFlag := flag.Bool("permissive-time-series", false, "Allow comparing time series with different spans")

	// Postgres
	migrateFlag := flag.Bool("migrate", false, "Run Postgres migrations on startup (or set POSTGRES_RUN_MIGRATIONS=true)")

	// Export
	exportBucketFlag := flag.String("export-bucket", "", "S3 bucket for chart exports (or set EXPORT_BUCKET env var)")
	exportPrefixFlag := flag.String("export-prefix", "charts", "Key prefix for chart exports (or set EXPORT_PREFIX env var)")
	exportEndpointFlag := flag.String("export-endpoint", "", "Custom S3 endpoint, e.g. for MinIO (or set EXPORT_ENDPOINT env var)")

	// Rate limiting
	rateLimitFlag := flag.Float64("rate-limit", 5, "Generation requests per second allowed per client IP (0 disables)")
	rateBurstFlag := flag.Int("rate-burst", 20, "Generation request burst per client IP")

	corsOriginsFlag := flag.String("cors-origins", "*", "Comma-separated allowed CORS origins (or set CORS_ORIGINS env var)")

	flag.Parse()

	// Missing .env is fine; the environment may be set by the deployment.
	_ = godotenv.Load()

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		*logFormatFlag = v
	}
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		*listenAddrFlag = v
	}
	if v := os.Getenv("TORNADO_SCHEMA"); v != "" {
		*schemaFlag = v
	}
	if v := os.Getenv("EXPORT_BUCKET"); v != "" {
		*exportBucketFlag = v
	}
	if v := os.Getenv("EXPORT_PREFIX"); v != "" {
		*exportPrefixFlag = v
	}
	if v := os.Getenv("EXPORT_ENDPOINT"); v != "" {
		*exportEndpointFlag = v
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		*corsOriginsFlag = v
	}

	format, err := logger.ParseFormat(*logFormatFlag)
	if err != nil {
		return err
	}
	log := logger.NewWithOptions(os.Stdout, logger.Options{Verbose: *verboseFlag, Format: format})

	if *schemaFlag == "" {
		return fmt.Errorf("--schema is required")
	}
	schema, err := dimension.LoadSchema(*schemaFlag)
	if err != nil {
		return err
	}
	log.Info("schema loaded", "path", *schemaFlag, "targets", len(schema.Targets()))

	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		env := os.Getenv("SENTRY_ENVIRONMENT")
		if env == "" {
			env = "development"
		}
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              dsn,
			Environment:      env,
			Release:          version,
			EnableTracing:    true,
			TracesSampleRate: 0.1,
		}); err != nil {
			return fmt.Errorf("failed to initialize sentry: %w", err)
		}
		defer sentry.Flush(2 * time.Second)
		log.Info("sentry initialized", "environment", env)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	factory, err := chart.NewFactory(chart.FactoryConfig{
		HistogramOrder:       chart.SortOrder(*histogramOrderFlag),
		PermissiveTimeSeries: *permissiveTimeSeriesFlag,
	})
	if err != nil {
		return err
	}

	cfg := handlers.Config{
		Logger:  log,
		Schema:  schema,
		Factory: factory,
		Build:   handlers.BuildInfo{Version: version, Commit: commit, Date: date},
	}

	var st *store.Store
	if os.Getenv("POSTGRES_DB") != "" {
		pgCfg := config.PgConfigFromEnv()
		if *migrateFlag {
			pgCfg.RunMigrations = true
		}
		if err := config.LoadPostgres(ctx, log, pgCfg); err != nil {
			return err
		}
		defer config.ClosePostgres()

		st, err = store.New(store.Config{Logger: log, Pool: config.PgPool})
		if err != nil {
			return err
		}
		cfg.Store = st
	} else {
		log.Warn("POSTGRES_DB not set, chart persistence disabled")
	}

	if *exportBucketFlag != "" {
		client, err := export.NewS3Client(ctx, *exportEndpointFlag)
		if err != nil {
			return err
		}
		exporter, err := export.New(export.Config{
			Logger: log,
			Client: client,
			Bucket: *exportBucketFlag,
			Prefix: *exportPrefixFlag,
		})
		if err != nil {
			return err
		}
		cfg.Exporter = exporter
		log.Info("chart export enabled", "bucket", *exportBucketFlag, "prefix", *exportPrefixFlag)
	}

	if *rateLimitFlag > 0 {
		cfg.Limiter = handlers.NewRateLimiter(clockwork.NewRealClock(), rate.Limit(*rateLimitFlag), *rateBurstFlag)
	}

	h, err := handlers.New(cfg)
	if err != nil {
		return err
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: splitOrigins(*corsOriginsFlag),
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"Retry-After"},
		MaxAge:         300,
	}))
	r.Use(metrics.Middleware)
	if sentry.CurrentHub().Client() != nil {
		r.Use(sentryhttp.New(sentryhttp.Options{Repanic: true}).Handle)
	}
	h.Routes(r)

	metrics.BuildInfo.WithLabelValues(version, commit, date).Set(1)

	g, ctx := errgroup.WithContext(ctx)

	if *metricsAddrFlag != "" {
		listener, err := net.Listen("tcp", *metricsAddrFlag)
		if err != nil {
			return fmt.Errorf("failed to start prometheus metrics server listener: %w", err)
		}
		log.Info("prometheus metrics server listening", "address", listener.Addr().String())
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer := &http.Server{Handler: mux}
		g.Go(func() error {
			if err := metricsServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			return shutdown(metricsServer, *shutdownTimeoutFlag)
		})
	}

	server := &http.Server{
		Addr:              *listenAddrFlag,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	g.Go(func() error {
		log.Info("api server listening", "address", *listenAddrFlag)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down", "timeout", *shutdownTimeoutFlag)
		return shutdown(server, *shutdownTimeoutFlag)
	})

	if cfg.Limiter != nil {
		g.Go(func() error {
			cfg.Limiter.Run(ctx)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("server stopped", slog.String("version", version))
	return nil
}

func shutdown(server *http.Server, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return server.Shutdown(ctx)
}

func splitOrigins(s string) []string {
	var out []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
