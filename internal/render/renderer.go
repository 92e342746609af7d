package render

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/couchcryptid/accident-dashboard/internal/dashboard"
	"github.com/couchcryptid/accident-dashboard/internal/observability"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/plot/vg"
)

// Renderer draws charts concurrently and optionally writes them to a
// directory. It implements dashboard.Renderer.
type Renderer struct {
	dir     string
	width   vg.Length
	height  vg.Length
	timeout time.Duration
	logger  *slog.Logger
	metrics *observability.Metrics
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithDir writes every rendered chart to dir as <name>.png.
func WithDir(dir string) Option {
	return func(r *Renderer) { r.dir = dir }
}

// WithSize overrides the image size.
func WithSize(w, h vg.Length) Option {
	return func(r *Renderer) { r.width, r.height = w, h }
}

// WithTimeout bounds a whole RenderAll call.
func WithTimeout(d time.Duration) Option {
	return func(r *Renderer) { r.timeout = d }
}

// NewRenderer creates a Renderer with the default size and no output
// directory.
func NewRenderer(logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Renderer {
	r := &Renderer{
		width:   DefaultWidth,
		height:  DefaultHeight,
		logger:  logger,
		metrics: metrics,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// RenderAll renders every chart to PNG. A chart that fails to draw is
// replaced by a placeholder carrying the error; RenderAll itself only fails
// on cancellation, timeout or when the output directory is unwritable.
func (r *Renderer) RenderAll(ctx context.Context, charts []dashboard.Chart) (map[string][]byte, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	if r.dir != "" {
		if err := os.MkdirAll(r.dir, 0o755); err != nil {
			return nil, fmt.Errorf("create chart directory: %w", err)
		}
	}

	var (
		mu     sync.Mutex
		images = make(map[string][]byte, len(charts))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for _, c := range charts {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			img, err := r.Render(c)
			if err != nil {
				return err
			}
			if r.dir != "" {
				path := filepath.Join(r.dir, c.Name+".png")
				if err := os.WriteFile(path, img, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", path, err)
				}
			}

			mu.Lock()
			images[c.Name] = img
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	r.logger.Info("charts rendered", "count", len(images), "dir", r.dir)
	return images, nil
}

// Render draws a single chart. If drawing fails, the chart is drawn again as
// a placeholder showing the error.
func (r *Renderer) Render(c dashboard.Chart) ([]byte, error) {
	img, err := r.draw(c)
	if err == nil {
		r.metrics.ChartsRendered.Inc()
		return img, nil
	}

	r.logger.Error("chart render failed", "chart", c.Name, "error", err)
	r.metrics.ChartsFailed.Inc()

	fallback := c
	fallback.Series = nil
	fallback.Note = fmt.Sprintf("chart unavailable: %v", err)
	img, err = r.draw(fallback)
	if err != nil {
		return nil, fmt.Errorf("render placeholder for %s: %w", c.Name, err)
	}
	return img, nil
}

func (r *Renderer) draw(c dashboard.Chart) ([]byte, error) {
	p, err := Plot(c)
	if err != nil {
		return nil, err
	}
	return PNG(p, r.width, r.height)
}
