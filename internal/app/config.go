package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/specialistvlad/labbench/internal/chart"
	"github.com/specialistvlad/labbench/internal/wordcount"
)

// Config holds the settings shared by every command.
type Config struct {
	LogLevel  string
	LogFormat string
}

// NewConfig normalizes and validates the shared settings.
func NewConfig(cfg Config) (*Config, error) {
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, errors.New("invalid log-level: must be 'debug', 'info', 'warn', or 'error'")
	}

	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, errors.New("invalid log-format: must be 'text' or 'json'")
	}
	return &cfg, nil
}

// LoadConfig describes one load run. Nil overrides leave the scenario's own
// value in place.
type LoadConfig struct {
	ScenarioPath string // empty runs the embedded default scenario

	Host      *string
	Users     *int
	SpawnRate *float64
	RunTime   *time.Duration

	MaxRequests     int64
	RequestTimeout  time.Duration
	WaitReady       time.Duration
	CSVPrefix       string
	TimingsOut      string
	StatusPort      int
	ExitCodeOnError int
}

// NewLoadConfig validates the load settings that do not depend on the scenario.
func NewLoadConfig(cfg LoadConfig) (*LoadConfig, error) {
	if cfg.Users != nil && *cfg.Users < 1 {
		return nil, fmt.Errorf("invalid users %d: must be at least 1", *cfg.Users)
	}
	if cfg.SpawnRate != nil && *cfg.SpawnRate <= 0 {
		return nil, fmt.Errorf("invalid spawn-rate %g: must be positive", *cfg.SpawnRate)
	}
	if cfg.RunTime != nil && *cfg.RunTime < 0 {
		return nil, fmt.Errorf("invalid run-time %s: must not be negative", *cfg.RunTime)
	}
	if cfg.MaxRequests < 0 {
		return nil, fmt.Errorf("invalid max-requests %d: must not be negative", cfg.MaxRequests)
	}
	if cfg.RequestTimeout < 0 || cfg.WaitReady < 0 {
		return nil, errors.New("timeouts must not be negative")
	}
	if cfg.StatusPort < 0 || cfg.StatusPort > 65535 {
		return nil, fmt.Errorf("invalid status-port %d", cfg.StatusPort)
	}
	if cfg.ExitCodeOnError < 0 || cfg.ExitCodeOnError > 255 {
		return nil, fmt.Errorf("invalid exit-code-on-error %d: must be within 0..255", cfg.ExitCodeOnError)
	}
	return &cfg, nil
}

// PlotConfig describes one chart rendering.
type PlotConfig struct {
	Input string // empty charts the built-in stage table
	Out   string
	Title string
	DPI   int
}

// NewPlotConfig fills defaults and validates the chart settings.
func NewPlotConfig(cfg PlotConfig) (*PlotConfig, error) {
	if cfg.Out == "" {
		cfg.Out = chart.DefaultOutput
	}
	if cfg.Title == "" {
		cfg.Title = chart.DefaultTitle
	}
	if cfg.DPI == 0 {
		cfg.DPI = chart.DefaultDPI
	}
	if cfg.DPI < 0 {
		return nil, fmt.Errorf("invalid dpi %d: must be positive", cfg.DPI)
	}
	return &cfg, nil
}

// VerifyConfig describes one word-count verification.
type VerifyConfig struct {
	ResultPath string
	TextPath   string
	MaxReport  int
	Strict     bool
	Region     string
}

// Default verification inputs, relative to the working directory.
const (
	DefaultResultPath = "final.json"
	DefaultTextPath   = "shakespeare-hamlet.txt"
)

// NewVerifyConfig fills defaults and validates the verification settings.
func NewVerifyConfig(cfg VerifyConfig) (*VerifyConfig, error) {
	if cfg.ResultPath == "" {
		cfg.ResultPath = DefaultResultPath
	}
	if cfg.TextPath == "" {
		cfg.TextPath = DefaultTextPath
	}
	if cfg.MaxReport < 0 {
		return nil, fmt.Errorf("invalid max-report %d: must not be negative", cfg.MaxReport)
	}
	return &cfg, nil
}

// DefaultVerifyConfig is the configuration used when no flags are given.
func DefaultVerifyConfig() VerifyConfig {
	return VerifyConfig{
		ResultPath: DefaultResultPath,
		TextPath:   DefaultTextPath,
		MaxReport:  wordcount.DefaultReportLimit,
	}
}
