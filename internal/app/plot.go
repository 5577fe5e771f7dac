package app

import (
	"context"
	"fmt"

	"github.com/specialistvlad/labbench/internal/chart"
	"github.com/specialistvlad/labbench/internal/ctxlog"
	"github.com/specialistvlad/labbench/internal/timings"
)

// RunPlot renders the stage table as a bar chart and reports where it was saved.
func (a *App) RunPlot(ctx context.Context, cfg *PlotConfig) error {
	ctx = a.withLogger(ctx, "plot")
	logger := ctxlog.FromContext(ctx)

	stages := timings.Default()
	if cfg.Input != "" {
		var err error
		if stages, err = timings.Load(cfg.Input); err != nil {
			return err
		}
		logger.Debug("Stage table loaded.", "path", cfg.Input, "stages", len(stages))
	} else {
		logger.Debug("Using built-in stage table.", "stages", len(stages))
	}

	opts := chart.DefaultOptions()
	opts.Title = cfg.Title
	opts.DPI = cfg.DPI
	if err := chart.Save(cfg.Out, stages, opts); err != nil {
		return err
	}
	logger.Debug("Chart rendered.", "path", cfg.Out, "dpi", cfg.DPI)

	_, err := fmt.Fprintf(a.outW, "Saved: %s\n", cfg.Out)
	return err
}
