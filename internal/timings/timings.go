// Package timings reads and writes ordered stage -> seconds tables, the input
// of the latency bar chart.
package timings

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Stage is one named duration in seconds.
type Stage struct {
	Name    string
	Seconds float64
}

// Default returns the single-run MapReduce measurements charted when no
// timings file is given.
func Default() []Stage {
	return []Stage{
		{Name: "split", Seconds: 0.247902},
		{Name: "map0", Seconds: 0.148496},
		{Name: "map1", Seconds: 0.150162},
		{Name: "map2", Seconds: 0.127319},
		{Name: "reduce", Seconds: 0.275870},
	}
}

// Milliseconds converts every stage duration to milliseconds, keeping order.
func Milliseconds(stages []Stage) []float64 {
	out := make([]float64, len(stages))
	for i, s := range stages {
		out[i] = s.Seconds * 1000
	}
	return out
}

// Names returns the stage names in order.
func Names(stages []Stage) []string {
	out := make([]string, len(stages))
	for i, s := range stages {
		out[i] = s.Name
	}
	return out
}

// Parse decodes a flat YAML or JSON mapping of stage name to seconds. The
// order of keys in the document is the order of the returned stages.
func Parse(data []byte) ([]Stage, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse timings: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, fmt.Errorf("timings document is empty")
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("timings must be a mapping of stage name to seconds (line %d)", root.Line)
	}

	stages := make([]Stage, 0, len(root.Content)/2)
	seen := make(map[string]int, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, val := root.Content[i], root.Content[i+1]
		if key.Kind != yaml.ScalarNode || val.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("line %d: stage entries must be scalar name: seconds pairs", key.Line)
		}
		if line, dup := seen[key.Value]; dup {
			return nil, fmt.Errorf("line %d: stage '%s' already defined on line %d", key.Line, key.Value, line)
		}
		seen[key.Value] = key.Line

		tag := val.ShortTag()
		if tag != "!!int" && tag != "!!float" {
			return nil, fmt.Errorf("line %d: stage '%s' has non-numeric duration '%s'", val.Line, key.Value, val.Value)
		}
		secs, err := strconv.ParseFloat(val.Value, 64)
		if err != nil || math.IsNaN(secs) || math.IsInf(secs, 0) {
			return nil, fmt.Errorf("line %d: stage '%s' has non-numeric duration '%s'", val.Line, key.Value, val.Value)
		}
		if secs < 0 {
			return nil, fmt.Errorf("line %d: stage '%s' has negative duration %g", val.Line, key.Value, secs)
		}
		stages = append(stages, Stage{Name: key.Value, Seconds: secs})
	}
	return stages, nil
}

// Load reads and parses a timings file.
func Load(path string) ([]Stage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read timings file: %w", err)
	}
	stages, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return stages, nil
}

// Write encodes stages as a YAML mapping, preserving order.
func Write(w io.Writer, stages []Stage) error {
	root := &yaml.Node{Kind: yaml.MappingNode}
	for _, s := range stages {
		root.Content = append(root.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s.Name},
			&yaml.Node{Kind: yaml.ScalarNode, Value: strconv.FormatFloat(s.Seconds, 'f', -1, 64)},
		)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return fmt.Errorf("failed to encode timings: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to encode timings: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// Save writes stages to path.
func Save(path string, stages []Stage) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create timings file: %w", err)
	}
	if err := Write(f, stages); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
