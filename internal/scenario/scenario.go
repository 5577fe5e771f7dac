// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Everything about a task except its body is resolved at load time. The body
// stays an expression and is rendered per request, so unique_id() yields a
// fresh value for every POST.

package scenario

import (
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// Default values applied when a setting is not defined by any scenario file.
const (
	DefaultHost      = "http://localhost:8080"
	DefaultUsers     = 1
	DefaultSpawnRate = 1.0
	DefaultWeight    = 1
	DefaultMethod    = "GET"
)

// Scenario is the evaluated description of a load test.
type Scenario struct {
	Host      string
	Users     int
	SpawnRate float64 // users started per second
	RunTime   time.Duration
	WaitMin   time.Duration
	WaitMax   time.Duration
	Tasks     []*Task
}

// Task is a single weighted request definition.
type Task struct {
	ID      string
	Name    string
	Method  string
	Path    string
	Weight  int
	Headers map[string]string
	Source  string

	body    hcl.Expression
	evalCtx *hcl.EvalContext
}

// HasBody reports whether the task sends a JSON body.
func (t *Task) HasBody() bool {
	return t.body != nil
}

// Body evaluates the task's json expression and returns it encoded as JSON.
// It returns nil when the task has no body.
func (t *Task) Body() ([]byte, error) {
	if t.body == nil {
		return nil, nil
	}
	val, diags := t.body.Value(t.evalCtx)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to evaluate json body of task '%s': %w", t.ID, diags)
	}
	if !val.IsWhollyKnown() {
		return nil, fmt.Errorf("json body of task '%s' contains unknown values", t.ID)
	}
	out, err := ctyjson.Marshal(val, val.Type())
	if err != nil {
		return nil, fmt.Errorf("failed to encode json body of task '%s': %w", t.ID, err)
	}
	return out, nil
}

// TotalWeight returns the sum of all task weights.
func (s *Scenario) TotalWeight() int {
	total := 0
	for _, t := range s.Tasks {
		total += t.Weight
	}
	return total
}

// Validate checks the evaluated scenario for values the load generator cannot run.
func (s *Scenario) Validate() error {
	if s.Host == "" {
		return fmt.Errorf("host must not be empty")
	}
	if !strings.HasPrefix(s.Host, "http://") && !strings.HasPrefix(s.Host, "https://") {
		return fmt.Errorf("host '%s' must start with http:// or https://", s.Host)
	}
	if s.Users < 1 {
		return fmt.Errorf("users must be at least 1, got %d", s.Users)
	}
	if s.SpawnRate <= 0 {
		return fmt.Errorf("spawn_rate must be positive, got %g", s.SpawnRate)
	}
	if s.RunTime < 0 {
		return fmt.Errorf("run_time must not be negative, got %s", s.RunTime)
	}
	if s.WaitMin < 0 || s.WaitMax < 0 {
		return fmt.Errorf("wait_time bounds must not be negative")
	}
	if s.WaitMin > s.WaitMax {
		return fmt.Errorf("wait_time min (%s) is greater than max (%s)", s.WaitMin, s.WaitMax)
	}
	if len(s.Tasks) == 0 {
		return fmt.Errorf("scenario defines no tasks")
	}
	for _, t := range s.Tasks {
		if t.Weight < 1 {
			return fmt.Errorf("task '%s' in %s: weight must be at least 1, got %d", t.ID, t.Source, t.Weight)
		}
		if !strings.HasPrefix(t.Path, "/") {
			return fmt.Errorf("task '%s' in %s: path '%s' must start with '/'", t.ID, t.Source, t.Path)
		}
	}
	return nil
}
