// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Loading is two passes: every file is decoded and its raw expressions merged
// (a setting may come from one file only), then the merged set is evaluated.

package scenario

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/labbench/internal/ctxlog"
	"github.com/specialistvlad/labbench/internal/fsutil"
)

//go:embed default.hcl
var defaultScenario []byte

// DefaultName is the filename reported for the embedded scenario.
const DefaultName = "default.hcl"

// hclFile is the top-level structure of a scenario file for decoding.
type hclFile struct {
	Host      hcl.Expression `hcl:"host,optional"`
	Users     hcl.Expression `hcl:"users,optional"`
	SpawnRate hcl.Expression `hcl:"spawn_rate,optional"`
	RunTime   hcl.Expression `hcl:"run_time,optional"`
	WaitTime  *hclWaitTime   `hcl:"wait_time,block"`
	Tasks     []*hclTask     `hcl:"task,block"`
}

type hclWaitTime struct {
	Min hcl.Expression `hcl:"min,optional"`
	Max hcl.Expression `hcl:"max,optional"`
}

type hclTask struct {
	ID      string         `hcl:"id,label"`
	Weight  hcl.Expression `hcl:"weight,optional"`
	Method  hcl.Expression `hcl:"method,optional"`
	Path    hcl.Expression `hcl:"path"`
	Name    hcl.Expression `hcl:"name,optional"`
	Headers hcl.Expression `hcl:"headers,optional"`
	JSON    hcl.Expression `hcl:"json,optional"`
}

// sourced pairs a raw expression with the file that defined it.
type sourced struct {
	expr hcl.Expression
	file string
}

type mergedFile struct {
	host, users, spawnRate, runTime *sourced
	waitTime                        *hclWaitTime
	waitTimeFile                    string
	tasks                           []*hclTask
	taskFiles                       []string
}

// Loader reads and evaluates scenarios.
type Loader struct {
	evalCtx *hcl.EvalContext
}

// NewLoader creates a loader whose expressions see the process environment.
func NewLoader() *Loader {
	return &Loader{evalCtx: defaultEvalContext()}
}

// NewLoaderWithEnv creates a loader whose `env` variable is built from the
// given KEY=VALUE entries instead of the process environment.
func NewLoaderWithEnv(environ []string) *Loader {
	return &Loader{evalCtx: NewEvalContext(environ)}
}

// Load reads a scenario from a single file or from every .hcl file under a directory.
func (l *Loader) Load(ctx context.Context, path string) (*Scenario, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Scenario loader started.", "path", path)

	files, err := fsutil.ResolveFiles(path, ".hcl")
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .hcl scenario files found in %s", path)
	}
	logger.Debug("Discovered scenario files.", "count", len(files))

	parser := hclparse.NewParser()
	merged := &mergedFile{}
	for _, file := range files {
		hclF, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}
		if err := l.decodeInto(merged, hclF, file); err != nil {
			return nil, err
		}
	}
	return l.evaluate(ctx, merged)
}

// LoadDefault evaluates the embedded default scenario.
func (l *Loader) LoadDefault(ctx context.Context) (*Scenario, error) {
	ctxlog.FromContext(ctx).Debug("Loading embedded default scenario.")
	return l.Parse(ctx, defaultScenario, DefaultName)
}

// Parse evaluates scenario source held in memory.
func (l *Loader) Parse(ctx context.Context, src []byte, filename string) (*Scenario, error) {
	hclF, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}
	merged := &mergedFile{}
	if err := l.decodeInto(merged, hclF, filename); err != nil {
		return nil, err
	}
	return l.evaluate(ctx, merged)
}

func (l *Loader) decodeInto(merged *mergedFile, f *hcl.File, filename string) error {
	var root hclFile
	if diags := gohcl.DecodeBody(f.Body, nil, &root); diags.HasErrors() {
		return fmt.Errorf("failed to decode HCL file %s: %w", filename, diags)
	}

	settings := []struct {
		name string
		expr hcl.Expression
		dst  **sourced
	}{
		{"host", root.Host, &merged.host},
		{"users", root.Users, &merged.users},
		{"spawn_rate", root.SpawnRate, &merged.spawnRate},
		{"run_time", root.RunTime, &merged.runTime},
	}
	for _, s := range settings {
		if !isExprDefined(s.expr) {
			continue
		}
		if *s.dst != nil {
			return fmt.Errorf("setting '%s' in %s is already defined in %s", s.name, filename, (*s.dst).file)
		}
		*s.dst = &sourced{expr: s.expr, file: filename}
	}

	if root.WaitTime != nil {
		if merged.waitTime != nil {
			return fmt.Errorf("block 'wait_time' in %s is already defined in %s", filename, merged.waitTimeFile)
		}
		merged.waitTime = root.WaitTime
		merged.waitTimeFile = filename
	}

	for _, t := range root.Tasks {
		for i, existing := range merged.tasks {
			if existing.ID == t.ID {
				return fmt.Errorf("task '%s' in %s is already defined in %s", t.ID, filename, merged.taskFiles[i])
			}
		}
		merged.tasks = append(merged.tasks, t)
		merged.taskFiles = append(merged.taskFiles, filename)
	}
	return nil
}

func (l *Loader) evaluate(ctx context.Context, m *mergedFile) (*Scenario, error) {
	logger := ctxlog.FromContext(ctx)

	sc := &Scenario{
		Host:      DefaultHost,
		Users:     DefaultUsers,
		SpawnRate: DefaultSpawnRate,
	}

	if m.host != nil {
		if err := l.decode(m.host.expr, m.host.file, "host", &sc.Host); err != nil {
			return nil, err
		}
	}
	if m.users != nil {
		if err := l.decode(m.users.expr, m.users.file, "users", &sc.Users); err != nil {
			return nil, err
		}
	}
	if m.spawnRate != nil {
		if err := l.decode(m.spawnRate.expr, m.spawnRate.file, "spawn_rate", &sc.SpawnRate); err != nil {
			return nil, err
		}
	}
	if m.runTime != nil {
		d, err := l.duration(m.runTime.expr, m.runTime.file, "run_time")
		if err != nil {
			return nil, err
		}
		sc.RunTime = d
	}
	if m.waitTime != nil {
		if err := l.evaluateWaitTime(sc, m.waitTime, m.waitTimeFile); err != nil {
			return nil, err
		}
	}

	for i, ht := range m.tasks {
		task, err := l.evaluateTask(ht, m.taskFiles[i])
		if err != nil {
			return nil, err
		}
		sc.Tasks = append(sc.Tasks, task)
	}

	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	logger.Debug("Scenario evaluated.",
		"host", sc.Host,
		"users", sc.Users,
		"spawn_rate", sc.SpawnRate,
		"run_time", sc.RunTime,
		"tasks", len(sc.Tasks),
	)
	return sc, nil
}

func (l *Loader) evaluateWaitTime(sc *Scenario, wt *hclWaitTime, file string) error {
	if isExprDefined(wt.Min) {
		d, err := l.duration(wt.Min, file, "wait_time.min")
		if err != nil {
			return err
		}
		sc.WaitMin = d
	}
	sc.WaitMax = sc.WaitMin
	if isExprDefined(wt.Max) {
		d, err := l.duration(wt.Max, file, "wait_time.max")
		if err != nil {
			return err
		}
		sc.WaitMax = d
	}
	return nil
}

func (l *Loader) evaluateTask(ht *hclTask, file string) (*Task, error) {
	where := fmt.Sprintf("task '%s'", ht.ID)
	task := &Task{
		ID:     ht.ID,
		Method: DefaultMethod,
		Weight: DefaultWeight,
		Source: file,
	}

	if !isExprDefined(ht.Path) {
		return nil, fmt.Errorf("%s in %s: missing required attribute 'path'", where, file)
	}
	if err := l.decode(ht.Path, file, where+" path", &task.Path); err != nil {
		return nil, err
	}
	if isExprDefined(ht.Weight) {
		if err := l.decode(ht.Weight, file, where+" weight", &task.Weight); err != nil {
			return nil, err
		}
	}
	if isExprDefined(ht.Method) {
		if err := l.decode(ht.Method, file, where+" method", &task.Method); err != nil {
			return nil, err
		}
	}
	task.Method = strings.ToUpper(task.Method)

	task.Name = task.Method + " " + task.Path
	if isExprDefined(ht.Name) {
		if err := l.decode(ht.Name, file, where+" name", &task.Name); err != nil {
			return nil, err
		}
	}
	if isExprDefined(ht.Headers) {
		if err := l.decode(ht.Headers, file, where+" headers", &task.Headers); err != nil {
			return nil, err
		}
	}
	if isExprDefined(ht.JSON) {
		task.body = ht.JSON
		task.evalCtx = l.evalCtx
		// Evaluate once up front so a broken body fails at load time, not mid-run.
		if _, err := task.Body(); err != nil {
			return nil, fmt.Errorf("in %s: %w", file, err)
		}
	}
	return task, nil
}

func (l *Loader) decode(expr hcl.Expression, file, what string, target any) error {
	if diags := gohcl.DecodeExpression(expr, l.evalCtx, target); diags.HasErrors() {
		return fmt.Errorf("invalid %s in %s: %w", what, file, diags)
	}
	return nil
}

func (l *Loader) duration(expr hcl.Expression, file, what string) (time.Duration, error) {
	var raw string
	if err := l.decode(expr, file, what, &raw); err != nil {
		return 0, err
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s in %s: %w", what, file, err)
	}
	return d, nil
}
