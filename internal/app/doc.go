// Package app wires the lab commands together: it owns the logger, turns
// validated configuration into runs of the load generator, the chart
// renderer and the word-count verifier, and writes their reports. It is
// decoupled from the CLI so the same runs can be driven from tests.
package app
