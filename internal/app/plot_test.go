package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunPlot_DefaultTable(t *testing.T) {
	t.Parallel()

	a, out, _ := setupApp(t)
	path := filepath.Join(t.TempDir(), "latency_bar.png")
	cfg, err := NewPlotConfig(PlotConfig{Out: path})
	require.NoError(t, err)

	require.NoError(t, a.RunPlot(context.Background(), cfg))
	require.Equal(t, "Saved: "+path+"\n", out.String())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "\x89PNG\r\n\x1a\n", string(data[:8]))
}

func TestRunPlot_FromTimingsFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	input := filepath.Join(dir, "latencies.yaml")
	require.NoError(t, os.WriteFile(input, []byte("GET /albums: 0.004\nPOST /albums: 0.012\n"), 0o600))

	a, out, _ := setupApp(t)
	cfg, err := NewPlotConfig(PlotConfig{Input: input, Out: filepath.Join(dir, "load.png"), Title: "Album API", DPI: 72})
	require.NoError(t, err)

	require.NoError(t, a.RunPlot(context.Background(), cfg))
	require.Contains(t, out.String(), "Saved: ")
	require.FileExists(t, cfg.Out)
}

func TestRunPlot_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("{}\n"), 0o600))

	testCases := []struct {
		name    string
		input   string
		wantErr string
	}{
		{name: "missing input", input: filepath.Join(dir, "nope.yaml"), wantErr: "nope.yaml"},
		{name: "empty table", input: empty, wantErr: "no stages"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			a, out, _ := setupApp(t)
			cfg, err := NewPlotConfig(PlotConfig{Input: tc.input, Out: filepath.Join(t.TempDir(), "x.png")})
			require.NoError(t, err)

			require.ErrorContains(t, a.RunPlot(context.Background(), cfg), tc.wantErr)
			require.Empty(t, out.String())
		})
	}
}
