// Package render draws dashboard charts as PNG images with gonum/plot.
package render

import (
	"bytes"
	"fmt"
	"image/color"
	"math"

	"github.com/couchcryptid/accident-dashboard/internal/dashboard"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// Default image size.
const (
	DefaultWidth  = 10 * vg.Inch
	DefaultHeight = 6 * vg.Inch
)

var barColor = color.RGBA{R: 70, G: 130, B: 180, A: 255}

// Plot builds the gonum plot for c. Charts without data, or carrying a note,
// produce a placeholder plot showing the note.
func Plot(c dashboard.Chart) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = c.Title
	p.X.Label.Text = c.XLabel
	p.Y.Label.Text = c.YLabel

	if c.Note != "" || c.Empty() {
		note := c.Note
		if note == "" {
			note = "no data"
		}
		return placeholder(p, note)
	}

	var err error
	switch c.Kind {
	case dashboard.KindBar:
		err = addBars(p, c, false)
	case dashboard.KindHBar:
		err = addBars(p, c, true)
	case dashboard.KindStackedBar:
		err = addStackedBars(p, c)
	case dashboard.KindLine:
		err = addLines(p, c)
	case dashboard.KindScatter:
		err = addScatter(p, c)
	case dashboard.KindCategorical:
		err = addCategorical(p, c)
	case dashboard.KindBox:
		err = addBoxes(p, c)
	default:
		err = fmt.Errorf("unknown chart kind %q", c.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("chart %s: %w", c.Name, err)
	}
	return p, nil
}

// PNG encodes p at the given size.
func PNG(p *plot.Plot, w, h vg.Length) ([]byte, error) {
	wt, err := p.WriterTo(w, h, "png")
	if err != nil {
		return nil, fmt.Errorf("create png writer: %w", err)
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func placeholder(p *plot.Plot, note string) (*plot.Plot, error) {
	labels, err := plotter.NewLabels(plotter.XYLabels{
		XYs:    []plotter.XY{{X: 0.5, Y: 0.5}},
		Labels: []string{note},
	})
	if err != nil {
		return nil, fmt.Errorf("note label: %w", err)
	}
	labels.TextStyle[0].XAlign = draw.XCenter
	labels.TextStyle[0].YAlign = draw.YCenter
	p.Add(labels)
	p.X.Min, p.X.Max = 0, 1
	p.Y.Min, p.Y.Max = 0, 1
	p.HideAxes()
	return p, nil
}

// barWidth narrows bars as categories grow.
func barWidth(n int) vg.Length {
	switch {
	case n <= 8:
		return vg.Points(30)
	case n <= 20:
		return vg.Points(15)
	default:
		return vg.Points(6)
	}
}

func rotateXLabels(p *plot.Plot, categories []string) {
	if len(categories) <= 8 {
		return
	}
	p.X.Tick.Label.Rotation = math.Pi / 3
	p.X.Tick.Label.XAlign = draw.XRight
	p.X.Tick.Label.YAlign = draw.YCenter
}

func addBars(p *plot.Plot, c dashboard.Chart, horizontal bool) error {
	bars, err := plotter.NewBarChart(plotter.Values(c.Series[0].Values), barWidth(len(c.Categories)))
	if err != nil {
		return err
	}
	bars.Color = barColor
	bars.LineStyle.Width = 0
	bars.Horizontal = horizontal
	p.Add(bars)

	if horizontal {
		p.NominalY(c.Categories...)
		p.Add(plotter.NewGrid())
		return nil
	}
	p.NominalX(c.Categories...)
	rotateXLabels(p, c.Categories)
	return nil
}

func addStackedBars(p *plot.Plot, c dashboard.Chart) error {
	w := barWidth(len(c.Categories))
	var below *plotter.BarChart
	for i, s := range c.Series {
		bars, err := plotter.NewBarChart(plotter.Values(s.Values), w)
		if err != nil {
			return fmt.Errorf("series %s: %w", s.Name, err)
		}
		bars.Color = plotutil.Color(i)
		bars.LineStyle.Width = 0
		if below != nil {
			bars.StackOn(below)
		}
		p.Add(bars)
		p.Legend.Add(s.Name, bars)
		below = bars
	}
	p.NominalX(c.Categories...)
	p.Legend.Top = true
	return nil
}

func addLines(p *plot.Plot, c dashboard.Chart) error {
	p.Add(plotter.NewGrid())
	for i, s := range c.Series {
		pts := make(plotter.XYs, len(s.Values))
		for j, v := range s.Values {
			pts[j] = plotter.XY{X: float64(j), Y: v}
		}
		line, points, err := plotter.NewLinePoints(pts)
		if err != nil {
			return fmt.Errorf("series %s: %w", s.Name, err)
		}
		line.Color = plotutil.Color(i)
		points.GlyphStyle.Color = plotutil.Color(i)
		points.GlyphStyle.Shape = draw.CircleGlyph{}
		p.Add(line, points)
		if len(c.Series) > 1 {
			p.Legend.Add(s.Name, line, points)
		}
	}
	p.NominalX(c.Categories...)
	rotateXLabels(p, c.Categories)
	p.Legend.Top = true
	return nil
}

func addScatter(p *plot.Plot, c dashboard.Chart) error {
	p.Add(plotter.NewGrid())
	for i, s := range c.Series {
		sc, err := plotter.NewScatter(toXYs(s.Points))
		if err != nil {
			return fmt.Errorf("series %s: %w", s.Name, err)
		}
		sc.GlyphStyle.Color = plotutil.Color(i)
		sc.GlyphStyle.Shape = draw.CircleGlyph{}
		sc.GlyphStyle.Radius = vg.Points(3)
		p.Add(sc)
	}
	return nil
}

func addCategorical(p *plot.Plot, c dashboard.Chart) error {
	for i, s := range c.Series {
		sc, err := plotter.NewScatter(toXYs(s.Points))
		if err != nil {
			return fmt.Errorf("series %s: %w", s.Name, err)
		}
		sc.GlyphStyle.Color = plotutil.Color(i)
		sc.GlyphStyle.Shape = plotutil.Shape(i)
		sc.GlyphStyle.Radius = vg.Points(4)
		p.Add(sc)
		p.Legend.Add(s.Name, sc)
	}
	p.NominalX(c.Categories...)
	p.NominalY(c.YCategories...)
	p.Legend.Top = true
	return nil
}

func addBoxes(p *plot.Plot, c dashboard.Chart) error {
	w := barWidth(len(c.Series))
	for i, s := range c.Series {
		box, err := plotter.NewBoxPlot(w, float64(i), plotter.Values(s.Values))
		if err != nil {
			return fmt.Errorf("series %s: %w", s.Name, err)
		}
		box.FillColor = plotutil.Color(i)
		p.Add(box)
	}
	p.NominalX(c.Categories...)
	rotateXLabels(p, c.Categories)
	return nil
}

func toXYs(points []dashboard.XY) plotter.XYs {
	out := make(plotter.XYs, len(points))
	for i, pt := range points {
		out[i] = plotter.XY{X: pt.X, Y: pt.Y}
	}
	return out
}
