package stats

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/specialistvlad/labbench/internal/timings"
)

// WriteTable renders the request statistics and grouped failures as an aligned text table.
func (sn Snapshot) WriteTable(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Type\tName\t# reqs\t# fails\tMed\tAvg\tMin\tMax\tp95\tp99\tAvg size\treq/s\tfailures/s")
	for _, r := range sn.allRows() {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%.0f\t%.0f\t%.0f\t%.0f\t%.0f\t%.0f\t%.0f\t%.2f\t%.2f\n",
			r.Method, r.Name, r.Requests, failCell(r), r.MedianMs, r.MeanMs, r.MinMs, r.MaxMs,
			r.P95Ms, r.P99Ms, r.AvgSize, r.RPS, r.FailureRS)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(sn.Failures) == 0 {
		return nil
	}
	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "# occurrences\tError")
	for _, f := range sn.Failures {
		fmt.Fprintf(tw, "%d\t%s %s: %s\n", f.Occurrences, f.Method, f.Name, f.Message)
	}
	return tw.Flush()
}

func (sn Snapshot) allRows() []Row {
	rows := make([]Row, 0, len(sn.Rows)+1)
	return append(append(rows, sn.Rows...), sn.Total)
}

func failCell(r Row) string {
	pct := 0.0
	if r.Requests > 0 {
		pct = float64(r.Failures) / float64(r.Requests) * 100
	}
	return fmt.Sprintf("%d(%.2f%%)", r.Failures, pct)
}

func ff(v float64) string { return strconv.FormatFloat(v, 'f', 3, 64) }

// WriteStatsCSV writes one CSV record per request name plus the aggregated row.
func (sn Snapshot) WriteStatsCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{
		"Type", "Name", "Request Count", "Failure Count", "Median Response Time",
		"Average Response Time", "Min Response Time", "Max Response Time",
		"95%", "99%", "Average Content Size", "Requests/s", "Failures/s",
	})
	for _, r := range sn.allRows() {
		_ = cw.Write([]string{
			r.Method, r.Name,
			strconv.FormatInt(r.Requests, 10), strconv.FormatInt(r.Failures, 10),
			ff(r.MedianMs), ff(r.MeanMs), ff(r.MinMs), ff(r.MaxMs),
			ff(r.P95Ms), ff(r.P99Ms), ff(r.AvgSize), ff(r.RPS), ff(r.FailureRS),
		})
	}
	cw.Flush()
	return cw.Error()
}

// WriteFailuresCSV writes one CSV record per distinct failure.
func (sn Snapshot) WriteFailuresCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"Method", "Name", "Error", "Occurrences"})
	for _, f := range sn.Failures {
		_ = cw.Write([]string{f.Method, f.Name, f.Message, strconv.FormatInt(f.Occurrences, 10)})
	}
	cw.Flush()
	return cw.Error()
}

// SaveCSV writes <prefix>_stats.csv and <prefix>_failures.csv and returns their paths.
func (sn Snapshot) SaveCSV(prefix string) ([]string, error) {
	outputs := []struct {
		path  string
		write func(io.Writer) error
	}{
		{prefix + "_stats.csv", sn.WriteStatsCSV},
		{prefix + "_failures.csv", sn.WriteFailuresCSV},
	}

	paths := make([]string, 0, len(outputs))
	for _, o := range outputs {
		f, err := os.Create(o.path)
		if err != nil {
			return paths, fmt.Errorf("failed to create %s: %w", o.path, err)
		}
		if err := o.write(f); err != nil {
			f.Close()
			return paths, fmt.Errorf("failed to write %s: %w", o.path, err)
		}
		if err := f.Close(); err != nil {
			return paths, fmt.Errorf("failed to close %s: %w", o.path, err)
		}
		paths = append(paths, o.path)
	}
	return paths, nil
}

// Timings returns the median latency of every request name in seconds, in
// row order, ready to be charted.
func (sn Snapshot) Timings() []timings.Stage {
	out := make([]timings.Stage, 0, len(sn.Rows))
	for _, r := range sn.Rows {
		out = append(out, timings.Stage{Name: r.Name, Seconds: r.MedianMs / 1000})
	}
	return out
}
