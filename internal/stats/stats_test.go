package stats

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/specialistvlad/labbench/internal/loadgen"
	"github.com/stretchr/testify/require"
)

// fakeClock advances only when told to.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func ok(name, method string, latency time.Duration, size int64) loadgen.Outcome {
	return loadgen.Outcome{Name: name, Method: method, Status: 200, Latency: latency, Size: size, Success: true}
}

func failed(name, method, msg string, latency time.Duration) loadgen.Outcome {
	return loadgen.Outcome{Name: name, Method: method, Status: 409, Latency: latency, Success: false, Failure: msg}
}

func populated(t *testing.T) *Stats {
	t.Helper()
	clock := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := newWithClock(clock.now)

	for i := 1; i <= 9; i++ {
		s.Record(ok("GET /albums", "GET", time.Duration(i)*time.Millisecond, 100))
	}
	s.Record(ok("POST /albums", "POST", 20*time.Millisecond, 50))
	s.Record(failed("POST /albums", "POST", "409 duplicate", 30*time.Millisecond))
	s.Record(failed("POST /albums", "POST", "409 duplicate", 40*time.Millisecond))

	clock.advance(4 * time.Second)
	return s
}

func TestSnapshot_RowsAndTotals(t *testing.T) {
	t.Parallel()

	snap := populated(t).Snapshot()
	require.Equal(t, 4*time.Second, snap.Elapsed)
	require.Len(t, snap.Rows, 2)

	get := snap.Rows[0]
	require.Equal(t, "GET /albums", get.Name)
	require.Equal(t, "GET", get.Method)
	require.EqualValues(t, 9, get.Requests)
	require.Zero(t, get.Failures)
	require.InDelta(t, 5.0, get.MedianMs, 1e-9)
	require.InDelta(t, 5.0, get.MeanMs, 1e-9)
	require.InDelta(t, 1.0, get.MinMs, 1e-9)
	require.InDelta(t, 9.0, get.MaxMs, 1e-9)
	require.InDelta(t, 100.0, get.AvgSize, 1e-9)
	require.InDelta(t, 2.25, get.RPS, 1e-9)

	post := snap.Rows[1]
	require.EqualValues(t, 3, post.Requests)
	require.EqualValues(t, 2, post.Failures)
	require.InDelta(t, 0.5, post.FailureRS, 1e-9)

	require.Equal(t, AggregatedName, snap.Total.Name)
	require.EqualValues(t, 12, snap.Total.Requests)
	require.EqualValues(t, 2, snap.Total.Failures)
	require.InDelta(t, 40.0, snap.Total.MaxMs, 1e-9)

	require.Equal(t, []FailureRow{
		{Method: "POST", Name: "POST /albums", Message: "409 duplicate", Occurrences: 2},
	}, snap.Failures)
}

func TestSnapshot_Empty(t *testing.T) {
	t.Parallel()

	snap := New().Snapshot()
	require.Empty(t, snap.Rows)
	require.Empty(t, snap.Failures)
	require.Zero(t, snap.Total.Requests)
	require.Zero(t, snap.Total.MeanMs)
}

func TestStats_ConcurrentRecord(t *testing.T) {
	t.Parallel()

	s := New()
	var wg sync.WaitGroup
	for u := 0; u < 8; u++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				s.Record(ok("GET /albums", "GET", time.Millisecond, 10))
			}
		}()
	}
	wg.Wait()

	snap := s.Snapshot()
	require.EqualValues(t, 4000, snap.Total.Requests)
	require.EqualValues(t, 4000, snap.Rows[0].Requests)
}

func TestWriteTable(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	require.NoError(t, populated(t).Snapshot().WriteTable(buf))
	out := buf.String()

	require.Contains(t, out, "GET /albums")
	require.Contains(t, out, "Aggregated")
	require.Contains(t, out, "2(66.67%)")
	require.Contains(t, out, "# occurrences")
	require.Contains(t, out, "POST POST /albums: 409 duplicate")
}

func TestSaveCSV(t *testing.T) {
	t.Parallel()

	prefix := filepath.Join(t.TempDir(), "run")
	paths, err := populated(t).Snapshot().SaveCSV(prefix)
	require.NoError(t, err)
	require.Equal(t, []string{prefix + "_stats.csv", prefix + "_failures.csv"}, paths)

	f, err := os.Open(paths[0])
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4) // header, two names, aggregated
	require.Equal(t, "Name", records[0][1])
	require.Equal(t, "Aggregated", records[3][1])
	require.Equal(t, "12", records[3][2])

	failures, err := os.ReadFile(paths[1])
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(failures), "Method,Name,Error,Occurrences\n"))
	require.Contains(t, string(failures), "POST,POST /albums,409 duplicate,2")
}

func TestTimings_UsesMedianSeconds(t *testing.T) {
	t.Parallel()

	stages := populated(t).Snapshot().Timings()
	require.Len(t, stages, 2)
	require.Equal(t, "GET /albums", stages[0].Name)
	require.InDelta(t, 0.005, stages[0].Seconds, 1e-12)
}

func TestRegistry_ExposesCounters(t *testing.T) {
	t.Parallel()

	s := populated(t)
	require.NotNil(t, s.Registry().Get("request.POST /albums.failures"))
	require.NotNil(t, s.Registry().Get("total.latency"))
}

func TestSnapshot_RequestNamedLikeTotals(t *testing.T) {
	t.Parallel()

	s := New()
	s.Record(ok(AggregatedName, "GET", time.Millisecond, 10))
	s.Record(ok("GET /albums", "GET", 2*time.Millisecond, 10))
	s.Record(failed("GET /albums", "GET", "500 boom", 3*time.Millisecond))

	snap := s.Snapshot()
	rows := map[string]Row{}
	for _, r := range snap.Rows {
		rows[r.Name] = r
	}
	require.EqualValues(t, 1, rows[AggregatedName].Requests)
	require.Zero(t, rows[AggregatedName].Failures)
	require.EqualValues(t, 2, rows["GET /albums"].Requests)
	require.EqualValues(t, 3, snap.Total.Requests)
	require.EqualValues(t, 1, snap.Total.Failures)
}
