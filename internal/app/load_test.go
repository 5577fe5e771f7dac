package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/specialistvlad/labbench/internal/scenario"
	"github.com/specialistvlad/labbench/internal/timings"
	"github.com/stretchr/testify/require"
)

const defaultTestWait = 2 * time.Second

const fastScenario = `
host       = "http://localhost:1"
users      = 2
spawn_rate = 50

wait_time {
  min = "0s"
  max = "0s"
}

task "get_albums" {
  weight = 3
  path   = "/albums"
}

task "post_album" {
  method = "POST"
  path   = "/albums"
  json   = { id = unique_id("test"), title = "Blue Train" }
}
`

// albumServer accepts GETs and rejects POSTs whose id was already seen.
type albumServer struct {
	mu   sync.Mutex
	ids  map[string]bool
	hits int
}

func (s *albumServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hits++

	switch r.Method {
	case http.MethodGet:
		w.Write([]byte(`[]`))
	case http.MethodPost:
		var body struct {
			ID string `json:"id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ID == "" {
			http.Error(w, "bad album", http.StatusBadRequest)
			return
		}
		if s.ids[body.ID] {
			http.Error(w, "duplicate", http.StatusConflict)
			return
		}
		s.ids[body.ID] = true
		w.WriteHeader(http.StatusCreated)
	}
}

func writeScenario(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "albums.hcl")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o600))
	return path
}

func TestRunLoad_ReportsAndOutputs(t *testing.T) {
	t.Parallel()

	backend := &albumServer{ids: map[string]bool{}}
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	a, out, logs := setupApp(t)
	dir := t.TempDir()
	cfg, err := NewLoadConfig(LoadConfig{
		ScenarioPath: writeScenario(t, fastScenario),
		Host:         &srv.URL,
		MaxRequests:  40,
		WaitReady:    defaultTestWait,
		CSVPrefix:    filepath.Join(dir, "run"),
		TimingsOut:   filepath.Join(dir, "latencies.yaml"),
	})
	require.NoError(t, err)

	require.NoError(t, a.RunLoad(context.Background(), cfg))

	report := out.String()
	require.Contains(t, report, "GET /albums")
	require.Contains(t, report, "Aggregated")
	require.NotContains(t, report, "# occurrences")
	require.Contains(t, logs.String(), "Load run finished")

	require.FileExists(t, filepath.Join(dir, "run_stats.csv"))
	require.FileExists(t, filepath.Join(dir, "run_failures.csv"))

	stages, err := timings.Load(cfg.TimingsOut)
	require.NoError(t, err)
	require.NotEmpty(t, stages)
	for _, s := range stages {
		require.Contains(t, []string{"GET /albums", "POST /albums"}, s.Name)
	}

	backend.mu.Lock()
	defer backend.mu.Unlock()
	require.Equal(t, 41, backend.hits) // 40 requests plus the readiness ping
}

func TestRunLoad_FailuresAreReported(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	a, out, _ := setupApp(t)
	cfg, err := NewLoadConfig(LoadConfig{
		ScenarioPath: writeScenario(t, fastScenario),
		Host:         &srv.URL,
		MaxRequests:  10,
	})
	require.NoError(t, err)

	err = a.RunLoad(context.Background(), cfg)
	require.ErrorIs(t, err, ErrRequestFailures)
	require.ErrorContains(t, err, "10 of 10")
	require.Contains(t, out.String(), "# occurrences")
	require.Contains(t, out.String(), "500 boom")
}

func TestRunLoad_OverridesAreValidated(t *testing.T) {
	t.Parallel()

	a, _, _ := setupApp(t)
	host := "localhost:8080"
	cfg, err := NewLoadConfig(LoadConfig{ScenarioPath: writeScenario(t, fastScenario), Host: &host})
	require.NoError(t, err)

	err = a.RunLoad(context.Background(), cfg)
	require.ErrorContains(t, err, "invalid scenario")
	require.ErrorContains(t, err, "must start with http://")
}

func TestRunLoad_BadScenario(t *testing.T) {
	t.Parallel()

	a, _, _ := setupApp(t)
	cfg, err := NewLoadConfig(LoadConfig{ScenarioPath: writeScenario(t, "task \"x\" {\n")})
	require.NoError(t, err)

	err = a.RunLoad(context.Background(), cfg)
	require.ErrorContains(t, err, "failed to load scenario")
	require.False(t, errors.Is(err, ErrRequestFailures))
}

func TestRunLoad_TargetNeverReady(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	a, out, _ := setupApp(t)
	cfg, err := NewLoadConfig(LoadConfig{
		ScenarioPath: writeScenario(t, fastScenario),
		Host:         &url,
		WaitReady:    300 * time.Millisecond,
	})
	require.NoError(t, err)

	require.ErrorContains(t, a.RunLoad(context.Background(), cfg), "not reachable")
	require.Empty(t, out.String())
}

func TestRunLoad_HostFromEnvironment(t *testing.T) {
	t.Parallel()

	backend := &albumServer{ids: map[string]bool{}}
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	src := strings.Replace(fastScenario, `"http://localhost:1"`, "env.ALBUMS_URL", 1)
	a, out, _ := setupApp(t, WithScenarioLoader(scenario.NewLoaderWithEnv([]string{"ALBUMS_URL=" + srv.URL})))
	cfg, err := NewLoadConfig(LoadConfig{ScenarioPath: writeScenario(t, src), MaxRequests: 8})
	require.NoError(t, err)

	require.NoError(t, a.RunLoad(context.Background(), cfg))
	require.Contains(t, out.String(), "Aggregated")

	backend.mu.Lock()
	defer backend.mu.Unlock()
	require.Equal(t, 8, backend.hits)
}
