package app

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/specialistvlad/labbench/internal/blob"
	"github.com/specialistvlad/labbench/internal/ctxlog"
	"github.com/specialistvlad/labbench/internal/scenario"
)

var (
	// ErrRequestFailures is returned by RunLoad when at least one request failed.
	ErrRequestFailures = errors.New("requests failed")
	// ErrNotExactMatch is returned by RunVerify in strict mode when counts differ.
	ErrNotExactMatch = errors.New("NOT EXACT MATCH")
)

// App holds the dependencies shared by the commands. Reports go to outW,
// logs to the writer given to NewApp.
type App struct {
	outW   io.Writer
	logger *slog.Logger

	loader *scenario.Loader
	opener func(region string) *blob.Opener
}

// Option customizes an App.
type Option func(*App)

// WithScenarioLoader replaces the scenario loader.
func WithScenarioLoader(l *scenario.Loader) Option {
	return func(a *App) { a.loader = l }
}

// WithBlobOpener replaces how verification inputs are opened.
func WithBlobOpener(o *blob.Opener) Option {
	return func(a *App) { a.opener = func(string) *blob.Opener { return o } }
}

// NewApp returns an App writing reports to outW and logs to logW.
func NewApp(outW, logW io.Writer, cfg *Config, opts ...Option) *App {
	a := &App{
		outW:   outW,
		logger: newLogger(cfg.LogLevel, cfg.LogFormat, logW),
		loader: scenario.NewLoader(),
		opener: blob.NewOpener,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger.Debug("Logger configured successfully.", "level", cfg.LogLevel, "format", cfg.LogFormat)
	return a
}

func (a *App) withLogger(ctx context.Context, command string) context.Context {
	return ctxlog.With(ctxlog.WithLogger(ctx, a.logger), "command", command)
}
