package loadgen

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/specialistvlad/labbench/internal/ctxlog"
	"github.com/specialistvlad/labbench/internal/scenario"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Doer issues one task request. *Client satisfies it.
type Doer interface {
	Do(ctx context.Context, task *scenario.Task) Outcome
}

// Options bounds a swarm run.
type Options struct {
	// MaxRequests stops the run once this many requests were issued. Zero means unlimited.
	MaxRequests int64
	// Seed makes task selection and waits reproducible when non-zero.
	Seed uint64
}

// Swarm spawns and drives the virtual users of one run.
type Swarm struct {
	sc       *scenario.Scenario
	doer     Doer
	recorder Recorder
	picker   *Picker
	opts     Options

	budget  atomic.Int64
	issued  atomic.Int64
	spawned atomic.Int64
}

// NewSwarm validates the scenario and prepares a swarm.
func NewSwarm(sc *scenario.Scenario, doer Doer, recorder Recorder, opts Options) (*Swarm, error) {
	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	picker, err := NewPicker(sc.Tasks)
	if err != nil {
		return nil, err
	}
	s := &Swarm{sc: sc, doer: doer, recorder: recorder, picker: picker, opts: opts}
	s.budget.Store(opts.MaxRequests)
	return s, nil
}

// Issued returns the number of requests sent so far.
func (s *Swarm) Issued() int64 {
	return s.issued.Load()
}

// Spawned returns the number of users started so far.
func (s *Swarm) Spawned() int64 {
	return s.spawned.Load()
}

// Run spawns users at the configured rate and blocks until every user has
// exited. Users stop when ctx is done, the run time elapses or the request
// budget is spent.
func (s *Swarm) Run(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	if s.sc.RunTime > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, s.sc.RunTime)
		defer cancelTimeout()
	}
	limiter := rate.NewLimiter(rate.Limit(s.sc.SpawnRate), 1)
	g, gctx := errgroup.WithContext(ctx)

	logger.Debug("Swarm starting.", "users", s.sc.Users, "spawn_rate", s.sc.SpawnRate, "run_time", s.sc.RunTime)
	for i := 0; i < s.sc.Users; i++ {
		if s.exhausted() {
			logger.Debug("Spawning stopped, request budget spent.", "spawned", i)
			break
		}
		if err := limiter.Wait(gctx); err != nil {
			logger.Debug("Spawning stopped early.", "spawned", i, "reason", err)
			break
		}
		userID := i
		s.spawned.Add(1)
		g.Go(func() error {
			s.user(gctx, userID)
			return nil
		})
	}
	logger.Debug("All users spawned.", "spawned", s.spawned.Load())

	err := g.Wait()
	logger.Debug("Swarm finished.", "requests", s.issued.Load())
	return err
}

// take reserves one request from the budget.
func (s *Swarm) take() bool {
	if s.opts.MaxRequests <= 0 {
		return true
	}
	return s.budget.Add(-1) >= 0
}

func (s *Swarm) exhausted() bool {
	return s.opts.MaxRequests > 0 && s.budget.Load() <= 0
}

func (s *Swarm) userRand(userID int) *rand.Rand {
	if s.opts.Seed != 0 {
		return rand.New(rand.NewPCG(s.opts.Seed, uint64(userID)))
	}
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

func (s *Swarm) user(ctx context.Context, userID int) {
	logger := ctxlog.FromContext(ctx).With("user", userID)
	logger.Debug("User started.")
	r := s.userRand(userID)

	for ctx.Err() == nil {
		if !s.take() {
			logger.Debug("Request budget exhausted.")
			break
		}

		task := s.picker.Pick(r)
		s.issued.Add(1)
		out := s.doer.Do(ctx, task)

		// Requests cut short by shutdown say nothing about the target.
		if ctx.Err() != nil && !out.Success {
			break
		}
		s.recorder.Record(out)

		if !sleep(ctx, randomWait(r, s.sc.WaitMin, s.sc.WaitMax)) {
			break
		}
	}
	logger.Debug("User stopped.")
}

// sleep waits for d or until ctx is done. It reports whether the full wait elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
