package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/accident-dashboard/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/accident-dashboard/internal/adapter/kafka"
	"github.com/couchcryptid/accident-dashboard/internal/adapter/source"
	"github.com/couchcryptid/accident-dashboard/internal/config"
	"github.com/couchcryptid/accident-dashboard/internal/dashboard"
	"github.com/couchcryptid/accident-dashboard/internal/domain"
	"github.com/couchcryptid/accident-dashboard/internal/observability"
	"github.com/couchcryptid/accident-dashboard/internal/render"
	"github.com/couchcryptid/accident-dashboard/internal/stats"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := source.Load(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to load records", "error", err)
		os.Exit(1)
	}
	metrics.RecordsLoaded.Add(float64(store.Len()))

	idx := domain.NewIndex(store, domain.NewTimestampParser(cfg.TimestampLayouts, cfg.Location))
	reportExclusions(ctx, cfg, idx.Excluded(), logger, metrics)

	engine := stats.NewEngine(idx)
	renderer := render.NewRenderer(logger, metrics,
		render.WithDir(cfg.ChartDir),
		render.WithTimeout(cfg.RenderTimeout),
	)
	svc := dashboard.NewService(engine, renderer, dashboard.Options{
		YearFrom: cfg.YearFrom,
		YearTo:   cfg.YearTo,
		Location: cfg.Location,
	}, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, svc, logger, metrics)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Build and render the dashboard; /readyz flips once this completes.
	go func() {
		if err := svc.Refresh(ctx); err != nil {
			logger.Error("dashboard build failed", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	metrics.DashboardReady.Set(0)

	logger.Info("shutdown complete")
}

// reportExclusions logs every excluded record and, when enabled, publishes
// them to the reject topic. Publishing failures are logged, not fatal.
func reportExclusions(ctx context.Context, cfg *config.Config, excluded []domain.Exclusion, logger *slog.Logger, metrics *observability.Metrics) {
	metrics.RecordsExcluded.Add(float64(len(excluded)))
	for _, ex := range excluded {
		logger.Warn("record excluded", "row", ex.Row, "incident_datetime", ex.Raw, "error", ex.Err)
	}
	if len(excluded) > 0 {
		logger.Warn("records excluded from the dashboard", "count", len(excluded))
	}

	if !cfg.KafkaEnabled || len(excluded) == 0 {
		return
	}
	writer := kafkaadapter.NewRejectWriter(cfg, source.Name(cfg), logger)
	defer func() {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}()

	n, err := writer.Publish(ctx, excluded)
	if err != nil {
		logger.Error("publish excluded records failed", "error", err)
		return
	}
	metrics.RejectsPublished.Add(float64(n))
}
