// Package stats aggregates load-test outcomes per request name and renders
// the end-of-run reports.
package stats

import (
	"sort"
	"sync"
	"time"

	metrics "github.com/rcrowley/go-metrics"
	"github.com/specialistvlad/labbench/internal/loadgen"
)

// AggregatedName labels the row that sums every request name.
const AggregatedName = "Aggregated"

// Registry name prefixes. Per-name metrics live under requestPrefix so no
// request name can collide with the totals.
const (
	requestPrefix = "request."
	totalPrefix   = "total."
)

// reservoirSize bounds the latency samples kept per name. Runs shorter than
// this produce exact percentiles.
const reservoirSize = 100000

type entry struct {
	method   string
	requests metrics.Counter
	failures metrics.Counter
	bytes    metrics.Counter
	latency  metrics.Histogram // microseconds
}

type failureKey struct {
	method, name, message string
}

// Stats is a loadgen.Recorder backed by a go-metrics registry.
type Stats struct {
	registry metrics.Registry
	now      func() time.Time

	mu       sync.Mutex
	started  time.Time
	entries  map[string]*entry
	total    *entry
	failures map[failureKey]int64
}

var _ loadgen.Recorder = (*Stats)(nil)

// New creates an empty Stats whose clock starts now.
func New() *Stats {
	return newWithClock(time.Now)
}

func newWithClock(now func() time.Time) *Stats {
	s := &Stats{
		registry: metrics.NewRegistry(),
		now:      now,
		started:  now(),
		entries:  make(map[string]*entry),
		failures: make(map[failureKey]int64),
	}
	s.total = s.newEntry(totalPrefix, "")
	return s
}

// Reset restarts the clock. Call it when the first user is about to start.
func (s *Stats) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = s.now()
}

// Registry exposes the underlying metrics registry.
func (s *Stats) Registry() metrics.Registry {
	return s.registry
}

func (s *Stats) newEntry(prefix, method string) *entry {
	return &entry{
		method:   method,
		requests: metrics.GetOrRegisterCounter(prefix+"requests", s.registry),
		failures: metrics.GetOrRegisterCounter(prefix+"failures", s.registry),
		bytes:    metrics.GetOrRegisterCounter(prefix+"bytes", s.registry),
		latency: s.registry.GetOrRegister(prefix+"latency", func() metrics.Histogram {
			return metrics.NewHistogram(metrics.NewUniformSample(reservoirSize))
		}).(metrics.Histogram),
	}
}

func (s *Stats) entryFor(o loadgen.Outcome) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[o.Name]
	if !ok {
		e = s.newEntry(requestPrefix+o.Name+".", o.Method)
		s.entries[o.Name] = e
	}
	if !o.Success {
		s.failures[failureKey{o.Method, o.Name, o.Failure}]++
	}
	return e
}

// Record implements loadgen.Recorder.
func (s *Stats) Record(o loadgen.Outcome) {
	e := s.entryFor(o)
	for _, target := range []*entry{e, s.total} {
		target.requests.Inc(1)
		target.bytes.Inc(o.Size)
		target.latency.Update(o.Latency.Microseconds())
		if !o.Success {
			target.failures.Inc(1)
		}
	}
}

// Row is one line of the statistics table. Latencies are milliseconds.
type Row struct {
	Method    string  `json:"method"`
	Name      string  `json:"name"`
	Requests  int64   `json:"requests"`
	Failures  int64   `json:"failures"`
	MedianMs  float64 `json:"median_ms"`
	MeanMs    float64 `json:"mean_ms"`
	MinMs     float64 `json:"min_ms"`
	MaxMs     float64 `json:"max_ms"`
	P95Ms     float64 `json:"p95_ms"`
	P99Ms     float64 `json:"p99_ms"`
	AvgSize   float64 `json:"avg_size"`
	RPS       float64 `json:"rps"`
	FailureRS float64 `json:"failures_per_s"`
}

// FailureRow groups identical failures.
type FailureRow struct {
	Method      string `json:"method"`
	Name        string `json:"name"`
	Message     string `json:"message"`
	Occurrences int64  `json:"occurrences"`
}

// Snapshot is a point-in-time copy of the statistics.
type Snapshot struct {
	Started  time.Time     `json:"started"`
	Elapsed  time.Duration `json:"elapsed_ns"`
	Rows     []Row         `json:"rows"`
	Total    Row           `json:"total"`
	Failures []FailureRow  `json:"failures"`
}

func usToMs(v float64) float64 { return v / 1000 }

func (e *entry) row(name string, elapsed time.Duration) Row {
	h := e.latency.Snapshot()
	r := Row{
		Method:   e.method,
		Name:     name,
		Requests: e.requests.Count(),
		Failures: e.failures.Count(),
	}
	if r.Requests > 0 {
		ps := h.Percentiles([]float64{0.5, 0.95, 0.99})
		r.MedianMs = usToMs(ps[0])
		r.P95Ms = usToMs(ps[1])
		r.P99Ms = usToMs(ps[2])
		r.MeanMs = usToMs(h.Mean())
		r.MinMs = usToMs(float64(h.Min()))
		r.MaxMs = usToMs(float64(h.Max()))
		r.AvgSize = float64(e.bytes.Count()) / float64(r.Requests)
	}
	if secs := elapsed.Seconds(); secs > 0 {
		r.RPS = float64(r.Requests) / secs
		r.FailureRS = float64(r.Failures) / secs
	}
	return r
}

// Snapshot returns the current statistics with rows sorted by name.
func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	started := s.started
	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	entries := make(map[string]*entry, len(s.entries))
	for k, v := range s.entries {
		entries[k] = v
	}
	failures := make([]FailureRow, 0, len(s.failures))
	for k, n := range s.failures {
		failures = append(failures, FailureRow{Method: k.method, Name: k.name, Message: k.message, Occurrences: n})
	}
	s.mu.Unlock()

	elapsed := s.now().Sub(started)
	sort.Strings(names)

	snap := Snapshot{Started: started, Elapsed: elapsed, Rows: make([]Row, 0, len(names))}
	for _, name := range names {
		snap.Rows = append(snap.Rows, entries[name].row(name, elapsed))
	}
	snap.Total = s.total.row(AggregatedName, elapsed)

	sort.Slice(failures, func(i, j int) bool {
		if failures[i].Occurrences != failures[j].Occurrences {
			return failures[i].Occurrences > failures[j].Occurrences
		}
		if failures[i].Name != failures[j].Name {
			return failures[i].Name < failures[j].Name
		}
		return failures[i].Message < failures[j].Message
	})
	snap.Failures = failures
	return snap
}
