package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/accident-dashboard/internal/observability"
	"github.com/couchcryptid/accident-dashboard/internal/stats"
)

// Renderer turns charts into encoded images keyed by chart name.
type Renderer interface {
	RenderAll(ctx context.Context, charts []Chart) (map[string][]byte, error)
}

// Snapshot is a built dashboard together with its rendered chart images.
type Snapshot struct {
	Dashboard *Dashboard
	Images    map[string][]byte
}

// Service builds the dashboard once at start-up and serves the result. It
// reports ready once a snapshot with rendered charts is available.
type Service struct {
	engine   *stats.Engine
	builder  *Builder
	renderer Renderer
	opts     Options
	logger   *slog.Logger
	metrics  *observability.Metrics
	current  atomic.Pointer[Snapshot]
}

// NewService creates a Service over engine.
func NewService(engine *stats.Engine, renderer Renderer, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Service {
	return &Service{
		engine:   engine,
		builder:  NewBuilder(engine, logger, metrics),
		renderer: renderer,
		opts:     opts,
		logger:   logger,
		metrics:  metrics,
	}
}

// Engine returns the statistics engine the dashboard was built from.
func (s *Service) Engine() *stats.Engine {
	return s.engine
}

// CheckReadiness returns nil once the dashboard has been built and rendered.
func (s *Service) CheckReadiness(_ context.Context) error {
	if s.current.Load() == nil {
		return errors.New("dashboard has not been rendered yet")
	}
	return nil
}

// Snapshot returns the latest rendered dashboard, or nil before the first
// successful Refresh.
func (s *Service) Snapshot() *Snapshot {
	return s.current.Load()
}

// Refresh builds the dashboard and renders its charts. The previous snapshot
// stays in place if either step fails.
func (s *Service) Refresh(ctx context.Context) error {
	start := time.Now()

	d, err := s.builder.Build(s.opts)
	if err != nil {
		return err
	}

	images, err := s.renderer.RenderAll(ctx, d.Charts)
	if err != nil {
		return fmt.Errorf("render charts: %w", err)
	}

	s.current.Store(&Snapshot{Dashboard: d, Images: images})
	s.metrics.DashboardReady.Set(1)
	s.logger.Info("dashboard ready",
		"charts", len(images),
		"duration", time.Since(start),
	)
	return nil
}
