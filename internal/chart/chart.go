// Package chart renders stage latencies as a PNG bar chart.
package chart

import (
	"fmt"
	"io"
	"os"

	"github.com/specialistvlad/labbench/internal/timings"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// Defaults for the latency bar chart.
const (
	DefaultTitle  = "MapReduce Lab: Split / Map / Reduce Latency (single run)"
	DefaultYLabel = "Time (ms)"
	DefaultOutput = "latency_bar.png"
	DefaultDPI    = 200
)

// Options controls chart labels and image geometry.
type Options struct {
	Title  string
	YLabel string
	DPI    int
	Width  vg.Length
	Height vg.Length
}

// DefaultOptions returns a 6.4in x 4.8in, 200 dpi chart with the lab's labels.
func DefaultOptions() Options {
	return Options{
		Title:  DefaultTitle,
		YLabel: DefaultYLabel,
		DPI:    DefaultDPI,
		Width:  6.4 * vg.Inch,
		Height: 4.8 * vg.Inch,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.YLabel == "" {
		o.YLabel = d.YLabel
	}
	if o.DPI <= 0 {
		o.DPI = d.DPI
	}
	if o.Width <= 0 {
		o.Width = d.Width
	}
	if o.Height <= 0 {
		o.Height = d.Height
	}
	return o
}

// Build assembles the plot: one bar per stage, in order, measured in milliseconds.
func Build(stages []timings.Stage, opts Options) (*plot.Plot, error) {
	if len(stages) == 0 {
		return nil, fmt.Errorf("no stages to chart")
	}
	opts = opts.withDefaults()

	p := plot.New()
	p.Title.Text = opts.Title
	p.Y.Label.Text = opts.YLabel
	p.Y.Min = 0

	bars, err := newBars(stages, opts.Width)
	if err != nil {
		return nil, err
	}

	p.Add(bars)
	p.NominalX(timings.Names(stages)...)
	return p, nil
}

func newBars(stages []timings.Stage, width vg.Length) (*plotter.BarChart, error) {
	bars, err := plotter.NewBarChart(plotter.Values(timings.Milliseconds(stages)), barWidth(width, len(stages)))
	if err != nil {
		return nil, fmt.Errorf("failed to build bar chart: %w", err)
	}
	bars.Color = plotutil.Color(0)
	bars.LineStyle.Width = 0
	return bars, nil
}

// barWidth spreads bars across most of the plot area.
func barWidth(total vg.Length, n int) vg.Length {
	return total * 0.8 / vg.Length(n) * 0.8
}

// Render writes the chart as PNG to w.
func Render(w io.Writer, stages []timings.Stage, opts Options) error {
	p, err := Build(stages, opts)
	if err != nil {
		return err
	}
	opts = opts.withDefaults()

	canvas := vgimg.NewWith(vgimg.UseWH(opts.Width, opts.Height), vgimg.UseDPI(opts.DPI))
	p.Draw(draw.New(canvas))

	if _, err := (vgimg.PngCanvas{Canvas: canvas}).WriteTo(w); err != nil {
		return fmt.Errorf("failed to encode png: %w", err)
	}
	return nil
}

// Save renders the chart into the file at path.
func Save(path string, stages []timings.Stage, opts Options) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := Render(f, stages, opts); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}
