// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// Package scenario provides the Go representation of a load-test scenario
// written in HCL. A scenario names the target host, how many virtual users to
// run, how quickly to spawn them, how long each user pauses between requests,
// and the weighted set of tasks the users choose from.
//
// # Core Concepts
//
//   - Scenario: the fully evaluated settings of a run. Settings are plain Go
//     values once loading is done, because they never change during a run.
//
//   - Task: one kind of request a virtual user can issue. A task keeps its
//     `json` body as an unevaluated hcl.Expression. The body is evaluated again
//     for every request, so functions such as unique_id() produce a fresh value
//     each time and a server enforcing unique ids never sees a duplicate.
//
// A scenario may be a single file or a directory of .hcl files. Tasks from all
// files are merged; each top-level setting may appear in only one file.
//
// When no scenario path is given the embedded default is used. It issues
// GET /albums three times as often as POST /albums and waits between 100ms and
// 500ms after every request.
package scenario
