package chart

import (
	"bytes"
	"image/png"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/labbench/internal/timings"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/plot/vg"
)

func TestBuild_BarsInMillisecondsInOrder(t *testing.T) {
	t.Parallel()

	p, err := Build(timings.Default(), DefaultOptions())
	require.NoError(t, err)
	require.Equal(t, DefaultTitle, p.Title.Text)
	require.Equal(t, DefaultYLabel, p.Y.Label.Text)

	bars, err := newBars(timings.Default(), DefaultOptions().Width)
	require.NoError(t, err)
	require.Len(t, bars.Values, 5)
	require.InDelta(t, 247.902, bars.Values[0], 1e-9)
	require.InDelta(t, 127.319, bars.Values[3], 1e-9)
	require.InDelta(t, 275.870, bars.Values[4], 1e-9)
}

func TestBuild_RejectsEmpty(t *testing.T) {
	t.Parallel()

	_, err := Build(nil, DefaultOptions())
	require.ErrorContains(t, err, "no stages")
}

func TestRender_PNGAtRequestedDPI(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	opts := Options{Title: "t", DPI: 100, Width: 4 * vg.Inch, Height: 3 * vg.Inch}
	require.NoError(t, Render(buf, timings.Default(), opts))

	cfg, err := png.DecodeConfig(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Equal(t, 400, cfg.Width)
	require.Equal(t, 300, cfg.Height)
}

func TestSave_WritesFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), DefaultOutput)
	require.NoError(t, Save(path, []timings.Stage{{Name: "only", Seconds: 0.5}}, DefaultOptions()))
	require.FileExists(t, path)

	empty := filepath.Join(t.TempDir(), "empty.png")
	require.Error(t, Save(empty, nil, DefaultOptions()))
	require.NoFileExists(t, empty)
}
