package dashboard

import (
	"slices"
	"strconv"
	"time"

	"github.com/couchcryptid/accident-dashboard/internal/stats"
)

// Kind selects how a chart is drawn.
type Kind string

const (
	KindBar         Kind = "bar"
	KindHBar        Kind = "hbar"
	KindLine        Kind = "line"
	KindScatter     Kind = "scatter"
	KindCategorical Kind = "categorical_scatter"
	KindBox         Kind = "box"
	KindStackedBar  Kind = "stacked_bar"
)

// Chart names, also used as URL path segments and file names.
const (
	ChartVehiclesByType            = "vehicles-by-type"
	ChartWeatherShare              = "weather-share"
	ChartAccidentsByProvince       = "accidents-by-province"
	ChartInjuriesByMonth           = "injuries-by-month"
	ChartInjuriesByYear            = "injuries-by-year"
	ChartInjuriesVsFatalities      = "injuries-vs-fatalities"
	ChartVehicleTypesByYear        = "vehicle-types-by-year"
	ChartAccidentTypeByYearWeather = "accident-type-by-year-weather"
	ChartVehiclesInvolvedByType    = "vehicles-involved-by-type"
	ChartCausesByYear              = "causes-by-year"
)

// XY is one plotted point.
type XY struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Series is one named data set. Values line up with Chart.Categories for
// bar, line and stacked kinds; Points are used by scatters; Values hold the
// raw samples for box charts.
type Series struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values,omitempty"`
	Points []XY      `json:"points,omitempty"`
}

// Chart is a renderer-independent chart description.
type Chart struct {
	Name        string   `json:"name"`
	Title       string   `json:"title"`
	Kind        Kind     `json:"kind"`
	XLabel      string   `json:"x_label"`
	YLabel      string   `json:"y_label"`
	Categories  []string `json:"categories,omitempty"`
	YCategories []string `json:"y_categories,omitempty"`
	Series      []Series `json:"series"`
	Note        string   `json:"note,omitempty"`
}

// Empty reports whether the chart has nothing to plot.
func (c Chart) Empty() bool {
	for _, s := range c.Series {
		if len(s.Values) > 0 || len(s.Points) > 0 {
			return false
		}
	}
	return true
}

func (c Chart) withNote(note string) Chart {
	c.Series = nil
	c.Note = note
	return c
}

func (b *Builder) group(keys []stats.Key, agg stats.Aggregation) ([]stats.GroupRow, error) {
	var rows []stats.GroupRow
	err := b.timed("grouped", func() error {
		var err error
		rows, err = b.engine.Group(keys, agg)
		return err
	})
	return rows, err
}

// countChart builds a single-series chart of record counts per key value,
// largest first.
func (b *Builder) countChart(c Chart, key stats.Key) (Chart, error) {
	rows, err := b.group([]stats.Key{key}, stats.Count())
	if err != nil {
		return c, err
	}
	stats.SortByValueDesc(rows)

	s := Series{Name: "count", Values: make([]float64, len(rows))}
	c.Categories = make([]string, len(rows))
	for i, r := range rows {
		c.Categories[i] = r.Keys[0]
		s.Values[i] = float64(r.Value)
	}
	c.Series = []Series{s}
	return c, nil
}

func (b *Builder) vehiclesByType() (Chart, error) {
	return b.countChart(Chart{
		Name:   ChartVehiclesByType,
		Title:  "Number of Vehicles by Type",
		Kind:   KindBar,
		XLabel: "Vehicle type",
		YLabel: "Count",
	}, stats.KeyVehicleType)
}

func (b *Builder) accidentsByProvince() (Chart, error) {
	return b.countChart(Chart{
		Name:   ChartAccidentsByProvince,
		Title:  "Number of Accidents by Province",
		Kind:   KindBar,
		XLabel: "Province",
		YLabel: "Count",
	}, stats.KeyProvince)
}

// weatherShare is the share of records per weather condition, in percent.
func (b *Builder) weatherShare() (Chart, error) {
	c, err := b.countChart(Chart{
		Name:   ChartWeatherShare,
		Title:  "Weather Conditions",
		Kind:   KindHBar,
		XLabel: "Share of accidents (%)",
		YLabel: "Weather condition",
	}, stats.KeyWeather)
	if err != nil || b.engine.Total() == 0 {
		return c, err
	}
	total := float64(b.engine.Total())
	for i, v := range c.Series[0].Values {
		c.Series[0].Values[i] = v / total * 100
	}
	c.Series[0].Name = "share"
	return c, nil
}

func (b *Builder) injuriesByMonth(from, to time.Time) (Chart, error) {
	c := Chart{
		Name:   ChartInjuriesByMonth,
		Title:  "Total Injuries by Month",
		Kind:   KindLine,
		XLabel: "Month",
		YLabel: "Total injuries",
	}
	if to.Before(from) {
		return c, stats.ErrInvalidRange
	}

	var rows []stats.GroupRow
	err := b.timed("grouped", func() error {
		var err error
		rows, err = b.engine.Between(from, to).Group([]stats.Key{stats.KeyMonthYear}, stats.Sum(stats.FieldInjuries))
		return err
	})
	if err != nil {
		return c, err
	}
	stats.SortByKeys(rows)

	s := Series{Name: "injuries", Values: make([]float64, len(rows))}
	c.Categories = make([]string, len(rows))
	for i, r := range rows {
		c.Categories[i] = r.Keys[0]
		s.Values[i] = float64(r.Value)
	}
	c.Series = []Series{s}
	return c, nil
}

func (b *Builder) injuriesByYear(yearly []stats.YearStats) (Chart, error) {
	c := Chart{
		Name:   ChartInjuriesByYear,
		Title:  "Total Injuries by Year",
		Kind:   KindLine,
		XLabel: "Year",
		YLabel: "Total injuries",
	}
	s := Series{Name: "injuries", Values: make([]float64, len(yearly))}
	c.Categories = make([]string, len(yearly))
	for i, y := range yearly {
		c.Categories[i] = strconv.Itoa(y.Year)
		s.Values[i] = float64(y.Sum)
	}
	c.Series = []Series{s}
	return c, nil
}

func (b *Builder) injuriesVsFatalities() (Chart, error) {
	c := Chart{
		Name:   ChartInjuriesVsFatalities,
		Title:  "Injuries vs Fatalities",
		Kind:   KindScatter,
		XLabel: "Number of injuries",
		YLabel: "Number of fatalities",
	}

	var pairs []stats.Pair
	err := b.timed("pairs", func() error {
		var err error
		pairs, err = b.engine.Pairs(stats.FieldInjuries, stats.FieldFatalities)
		return err
	})
	if err != nil {
		return c, err
	}

	s := Series{Name: "accidents", Points: make([]XY, len(pairs))}
	for i, p := range pairs {
		s.Points[i] = XY{X: float64(p.X), Y: float64(p.Y)}
	}
	c.Series = []Series{s}
	return c, nil
}

// pivotByYear turns (year, key) count rows into one series per key with a
// value for every year in [from, to]. Series follow first-seen key order.
func pivotByYear(c Chart, rows []stats.GroupRow, from, to int) Chart {
	c.Categories = make([]string, 0, to-from+1)
	pos := make(map[string]int, to-from+1)
	for y := from; y <= to; y++ {
		label := strconv.Itoa(y)
		pos[label] = len(c.Categories)
		c.Categories = append(c.Categories, label)
	}

	seriesPos := make(map[string]int)
	for _, r := range rows {
		yi, ok := pos[r.Keys[0]]
		if !ok {
			continue
		}
		si, ok := seriesPos[r.Keys[1]]
		if !ok {
			si = len(c.Series)
			seriesPos[r.Keys[1]] = si
			c.Series = append(c.Series, Series{Name: r.Keys[1], Values: make([]float64, len(c.Categories))})
		}
		c.Series[si].Values[yi] += float64(r.Value)
	}
	return c
}

func (b *Builder) vehicleTypesByYear(from, to int) (Chart, error) {
	c := Chart{
		Name:   ChartVehicleTypesByYear,
		Title:  "Vehicle Types over Years",
		Kind:   KindLine,
		XLabel: "Year",
		YLabel: "Count",
	}
	rows, err := b.group([]stats.Key{stats.KeyYear, stats.KeyVehicleType}, stats.Count())
	if err != nil {
		return c, err
	}
	return pivotByYear(c, rows, from, to), nil
}

func (b *Builder) causesByYear(from, to int) (Chart, error) {
	c := Chart{
		Name:   ChartCausesByYear,
		Title:  "Presumed Causes by Year",
		Kind:   KindStackedBar,
		XLabel: "Year",
		YLabel: "Count",
	}
	rows, err := b.group([]stats.Key{stats.KeyYear, stats.KeyPresumedCause}, stats.Count())
	if err != nil {
		return c, err
	}
	return pivotByYear(c, rows, from, to), nil
}

// accidentTypeByYearWeather places each observed (year, accident type) pair
// on a categorical grid, one series per weather condition.
func (b *Builder) accidentTypeByYearWeather() (Chart, error) {
	c := Chart{
		Name:   ChartAccidentTypeByYearWeather,
		Title:  "Accident Type by Year and Weather",
		Kind:   KindCategorical,
		XLabel: "Year",
		YLabel: "Accident type",
	}
	rows, err := b.group([]stats.Key{stats.KeyYear, stats.KeyAccidentType, stats.KeyWeather}, stats.Count())
	if err != nil {
		return c, err
	}

	years := distinct(rows, 0)
	types := distinct(rows, 1)
	slices.Sort(years)
	slices.Sort(types)
	c.Categories, c.YCategories = years, types

	seriesPos := make(map[string]int)
	for _, r := range rows {
		si, ok := seriesPos[r.Keys[2]]
		if !ok {
			si = len(c.Series)
			seriesPos[r.Keys[2]] = si
			c.Series = append(c.Series, Series{Name: r.Keys[2]})
		}
		c.Series[si].Points = append(c.Series[si].Points, XY{
			X: float64(slices.Index(years, r.Keys[0])),
			Y: float64(slices.Index(types, r.Keys[1])),
		})
	}
	return c, nil
}

func (b *Builder) vehiclesInvolvedByType() (Chart, error) {
	c := Chart{
		Name:   ChartVehiclesInvolvedByType,
		Title:  "Vehicles Involved by Vehicle Type",
		Kind:   KindBox,
		XLabel: "Vehicle type",
		YLabel: "Number of vehicles involved",
	}

	var groups []stats.ValueGroup
	err := b.timed("distribution", func() error {
		var err error
		groups, err = b.engine.Distribution(stats.KeyVehicleType, stats.FieldVehiclesInvolved)
		return err
	})
	if err != nil {
		return c, err
	}

	c.Categories = make([]string, len(groups))
	for i, g := range groups {
		c.Categories[i] = g.Key
		c.Series = append(c.Series, Series{Name: g.Key, Values: g.Values})
	}
	return c, nil
}

func distinct(rows []stats.GroupRow, i int) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range rows {
		if _, ok := seen[r.Keys[i]]; ok {
			continue
		}
		seen[r.Keys[i]] = struct{}{}
		out = append(out, r.Keys[i])
	}
	return out
}
