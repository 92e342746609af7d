// Package dashboard assembles the widget data shown on the dashboard page:
// the headline totals, one metric card per year and the chart definitions handed
// to the renderer.
package dashboard

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/accident-dashboard/internal/domain"
	"github.com/couchcryptid/accident-dashboard/internal/observability"
	"github.com/couchcryptid/accident-dashboard/internal/stats"
	"github.com/shopspring/decimal"
)

// Options controls the ranges the dashboard covers.
type Options struct {
	// YearFrom and YearTo bound the per-year widgets. Zero takes the observed
	// range.
	YearFrom int
	YearTo   int

	// MonthFrom and MonthTo bound the monthly injuries chart, inclusive of
	// the whole MonthTo day. Zero values follow the year range.
	MonthFrom time.Time
	MonthTo   time.Time

	// Location resolves the default month range. Nil means UTC.
	Location *time.Location
}

// YearCard is the metric card for one year.
type YearCard struct {
	Year          int     `json:"year"`
	Accidents     int     `json:"accidents"`
	MinInjuries   int     `json:"min_injuries"`
	MaxInjuries   int     `json:"max_injuries"`
	MeanInjuries  float64 `json:"mean_injuries"`
	AvgDisplay    string  `json:"avg_injuries"`
	TotalInjuries int     `json:"total_injuries"`
}

// Dashboard is everything the page shows, computed in one pass.
type Dashboard struct {
	GeneratedAt time.Time  `json:"generated_at"`
	Total       int        `json:"total_accidents"`
	Excluded    int        `json:"excluded_records"`
	YearFrom    int        `json:"year_from"`
	YearTo      int        `json:"year_to"`
	Years       []YearCard `json:"years"`
	Charts      []Chart    `json:"charts"`
}

// Chart returns the chart with the given name.
func (d *Dashboard) Chart(name string) (Chart, bool) {
	for _, c := range d.Charts {
		if c.Name == name {
			return c, true
		}
	}
	return Chart{}, false
}

// Builder computes dashboards from an engine.
type Builder struct {
	engine  *stats.Engine
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewBuilder creates a Builder over engine.
func NewBuilder(engine *stats.Engine, logger *slog.Logger, metrics *observability.Metrics) *Builder {
	return &Builder{engine: engine, logger: logger, metrics: metrics}
}

// Build assembles the dashboard. Chart widgets that fail are kept with a note
// instead of failing the whole dashboard; only an unusable year range is an
// error.
func (b *Builder) Build(opts Options) (*Dashboard, error) {
	from, to := b.yearRange(opts)
	if from > to {
		return nil, fmt.Errorf("build dashboard: %w: %d > %d", stats.ErrInvalidRange, from, to)
	}

	d := &Dashboard{
		GeneratedAt: domain.Now(),
		Total:       b.engine.Total(),
		Excluded:    len(b.engine.Excluded()),
		YearFrom:    from,
		YearTo:      to,
	}

	var yearly []stats.YearStats
	err := b.timed("yearly", func() error {
		var err error
		yearly, err = b.engine.YearlyStats(stats.FieldInjuries, from, to)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("build year cards: %w", err)
	}
	d.Years = yearCards(yearly)

	monthFrom, monthTo := monthRange(opts, from, to)
	builders := []func() (Chart, error){
		b.vehiclesByType,
		b.weatherShare,
		b.accidentsByProvince,
		func() (Chart, error) { return b.injuriesByMonth(monthFrom, monthTo) },
		func() (Chart, error) { return b.injuriesByYear(yearly) },
		b.injuriesVsFatalities,
		func() (Chart, error) { return b.vehicleTypesByYear(from, to) },
		b.accidentTypeByYearWeather,
		b.vehiclesInvolvedByType,
		func() (Chart, error) { return b.causesByYear(from, to) },
	}
	for _, build := range builders {
		c, err := build()
		if err != nil {
			b.logger.Error("chart aggregation failed", "chart", c.Name, "error", err)
			c = c.withNote(fmt.Sprintf("data unavailable: %v", err))
		}
		d.Charts = append(d.Charts, c)
	}

	b.logger.Info("dashboard built",
		"total", d.Total,
		"excluded", d.Excluded,
		"year_from", from,
		"year_to", to,
		"charts", len(d.Charts),
	)
	return d, nil
}

func (b *Builder) yearRange(opts Options) (int, int) {
	from, to := opts.YearFrom, opts.YearTo
	if from != 0 && to != 0 {
		return from, to
	}
	obsFrom, obsTo, ok := b.engine.DefaultYearRange()
	if !ok {
		// Nothing indexed: fall back to whichever bound was given, or today.
		y := domain.Now().Year()
		obsFrom, obsTo = y, y
		if from != 0 {
			obsFrom, obsTo = from, from
		}
		if to != 0 {
			obsFrom, obsTo = to, to
		}
	}
	if from == 0 {
		from = obsFrom
	}
	if to == 0 {
		to = obsTo
	}
	return from, to
}

// monthRange returns the inclusive instant range of the monthly chart.
func monthRange(opts Options, yearFrom, yearTo int) (time.Time, time.Time) {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	from, to := opts.MonthFrom, opts.MonthTo
	if from.IsZero() {
		from = time.Date(yearFrom, time.January, 1, 0, 0, 0, 0, loc)
	}
	if to.IsZero() {
		to = time.Date(yearTo, time.December, 31, 0, 0, 0, 0, loc)
	}
	y, m, day := to.Date()
	to = time.Date(y, m, day, 23, 59, 59, int(time.Second-time.Nanosecond), to.Location())
	return from, to
}

func yearCards(yearly []stats.YearStats) []YearCard {
	cards := make([]YearCard, len(yearly))
	for i, s := range yearly {
		cards[i] = YearCard{
			Year:          s.Year,
			Accidents:     s.Count,
			MinInjuries:   s.Min,
			MaxInjuries:   s.Max,
			MeanInjuries:  s.Mean,
			AvgDisplay:    FormatMean(s.Mean),
			TotalInjuries: s.Sum,
		}
	}
	return cards
}

// FormatMean renders a mean with two decimal places, rounding half away from
// zero.
func FormatMean(mean float64) string {
	return decimal.NewFromFloat(mean).StringFixed(2)
}

// timed runs fn and records its duration under kind.
func (b *Builder) timed(kind string, fn func() error) error {
	start := time.Now()
	err := fn()
	b.metrics.AggregationDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	return err
}
