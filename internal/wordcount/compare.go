package wordcount

import (
	"fmt"
	"io"
)

// Mismatch is one ground-truth word whose reduced count differs.
type Mismatch struct {
	Word    string
	Truth   int
	Reduced int
}

// Result summarizes a comparison.
type Result struct {
	TruthWords   int
	ReducedWords int
	Mismatched   int
	// Mismatches holds at most the report limit entries, in ground-truth order.
	Mismatches []Mismatch
}

// Passed reports an exact match.
func (r Result) Passed() bool { return r.Mismatched == 0 }

// Compare checks every ground-truth word against candidate, where a missing
// word counts as 0. Words present only in candidate are not mismatches.
// A limit <= 0 keeps no mismatch details.
func Compare(truth *Counts, candidate map[string]int, limit int) Result {
	res := Result{TruthWords: truth.Len(), ReducedWords: len(candidate)}
	for _, w := range truth.order {
		want, got := truth.counts[w], candidate[w]
		if want == got {
			continue
		}
		res.Mismatched++
		if res.Mismatched <= limit {
			res.Mismatches = append(res.Mismatches, Mismatch{Word: w, Truth: want, Reduced: got})
		}
	}
	return res
}

// Verdict is the final report line.
func (r Result) Verdict() string {
	if r.Passed() {
		return "PASS"
	}
	return "NOT EXACT MATCH"
}

// WriteReport prints the mismatches, the totals and the verdict.
func (r Result) WriteReport(w io.Writer) error {
	for _, m := range r.Mismatches {
		if _, err := fmt.Fprintf(w, "Mismatch: %s truth %d reduced %d\n", m.Word, m.Truth, m.Reduced); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w,
		"Total unique words truth: %d\nTotal unique words reduced: %d\nTotal mismatched words: %d\n%s\n",
		r.TruthWords, r.ReducedWords, r.Mismatched, r.Verdict())
	return err
}
