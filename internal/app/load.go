package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/specialistvlad/labbench/internal/ctxlog"
	"github.com/specialistvlad/labbench/internal/loadgen"
	"github.com/specialistvlad/labbench/internal/scenario"
	"github.com/specialistvlad/labbench/internal/stats"
	"github.com/specialistvlad/labbench/internal/timings"
)

// RunLoad executes one load run and writes its reports. It returns
// ErrRequestFailures (wrapped) when any request failed; the reports are
// written either way.
func (a *App) RunLoad(ctx context.Context, cfg *LoadConfig) error {
	ctx = a.withLogger(ctx, "load")
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Load run started.")

	sc, err := a.loadScenario(ctx, cfg)
	if err != nil {
		return err
	}
	logger.Info("🚀 Starting load run", "host", sc.Host, "users", sc.Users, "spawn_rate", sc.SpawnRate, "run_time", sc.RunTime, "tasks", len(sc.Tasks))

	client := loadgen.NewClient(sc.Host, cfg.RequestTimeout)
	defer client.Close()

	if cfg.WaitReady > 0 {
		logger.Info("Waiting for target", "host", client.Host(), "timeout", cfg.WaitReady)
		if err := loadgen.WaitReady(ctx, client, cfg.WaitReady); err != nil {
			return err
		}
	}

	st := stats.New()
	if cfg.StatusPort > 0 {
		status := newStatusServer(logger, st.Snapshot)
		if err := status.Start(net.JoinHostPort("", strconv.Itoa(cfg.StatusPort))); err != nil {
			return err
		}
		defer status.Shutdown(ctx)
	}

	swarm, err := loadgen.NewSwarm(sc, client, st, loadgen.Options{MaxRequests: cfg.MaxRequests})
	if err != nil {
		return err
	}

	st.Reset()
	if err := swarm.Run(ctx); err != nil {
		return fmt.Errorf("load run failed: %w", err)
	}
	snap := st.Snapshot()
	logger.Info("🏁 Load run finished", "requests", snap.Total.Requests, "failures", snap.Total.Failures, "elapsed", snap.Elapsed)

	if err := a.writeLoadReports(ctx, cfg, snap); err != nil {
		return err
	}

	if snap.Total.Failures > 0 {
		return fmt.Errorf("%w: %d of %d", ErrRequestFailures, snap.Total.Failures, snap.Total.Requests)
	}
	return nil
}

// loadScenario loads the scenario and applies command-line overrides.
func (a *App) loadScenario(ctx context.Context, cfg *LoadConfig) (*scenario.Scenario, error) {
	var (
		sc  *scenario.Scenario
		err error
	)
	if cfg.ScenarioPath == "" {
		sc, err = a.loader.LoadDefault(ctx)
	} else {
		sc, err = a.loader.Load(ctx, cfg.ScenarioPath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load scenario: %w", err)
	}

	if cfg.Host != nil {
		sc.Host = *cfg.Host
	}
	if cfg.Users != nil {
		sc.Users = *cfg.Users
	}
	if cfg.SpawnRate != nil {
		sc.SpawnRate = *cfg.SpawnRate
	}
	if cfg.RunTime != nil {
		sc.RunTime = *cfg.RunTime
	}
	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return sc, nil
}

func (a *App) writeLoadReports(ctx context.Context, cfg *LoadConfig, snap stats.Snapshot) error {
	logger := ctxlog.FromContext(ctx)

	var errs []error
	if err := snap.WriteTable(a.outW); err != nil {
		errs = append(errs, fmt.Errorf("failed to write stats table: %w", err))
	}
	if cfg.CSVPrefix != "" {
		paths, err := snap.SaveCSV(cfg.CSVPrefix)
		if err != nil {
			errs = append(errs, err)
		}
		for _, p := range paths {
			logger.Info("CSV report written", "path", p)
		}
	}
	if cfg.TimingsOut != "" {
		stages := snap.Timings()
		if len(stages) == 0 {
			logger.Warn("No requests recorded, timings file not written.", "path", cfg.TimingsOut)
		} else if err := timings.Save(cfg.TimingsOut, stages); err != nil {
			errs = append(errs, err)
		} else {
			logger.Info("Timings written", "path", cfg.TimingsOut, "stages", len(stages))
		}
	}
	return errors.Join(errs...)
}
