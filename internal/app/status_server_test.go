package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/specialistvlad/labbench/internal/loadgen"
	"github.com/specialistvlad/labbench/internal/stats"
	"github.com/specialistvlad/labbench/internal/testutil"
	"github.com/stretchr/testify/require"
)

func TestStatusServer(t *testing.T) {
	t.Parallel()

	st := stats.New()
	st.Record(loadgen.Outcome{Name: "GET /albums", Method: "GET", Status: 200, Latency: time.Millisecond, Success: true})

	logs := &testutil.SafeBuffer{}
	srv := newStatusServer(slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug})), st.Snapshot)
	require.Nil(t, srv.Addr())
	require.NoError(t, srv.Start("127.0.0.1:0"))
	base := "http://" + srv.Addr().String()

	resp, err := http.Get(base + "/health")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "OK\n", string(body))

	resp, err = http.Get(base + "/stats")
	require.NoError(t, err)
	var snap stats.Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	resp.Body.Close()
	require.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	require.EqualValues(t, 1, snap.Total.Requests)
	require.Len(t, snap.Rows, 1)

	require.NoError(t, srv.Shutdown(context.Background()))
	_, err = http.Get(base + "/health")
	require.Error(t, err)
	require.Contains(t, logs.String(), "Health check endpoint hit.")
}

func TestStatusServer_PortInUse(t *testing.T) {
	t.Parallel()

	first := newStatusServer(slog.New(slog.NewTextHandler(io.Discard, nil)), stats.New().Snapshot)
	require.NoError(t, first.Start("127.0.0.1:0"))
	t.Cleanup(func() { first.Shutdown(context.Background()) })

	second := newStatusServer(slog.New(slog.NewTextHandler(io.Discard, nil)), stats.New().Snapshot)
	require.ErrorContains(t, second.Start(first.Addr().String()), "failed to start status server")
	require.NoError(t, second.Shutdown(context.Background()))
}
