// Package wordcount recomputes word frequencies from a text and checks a
// reducer's result against them.
package wordcount

import (
	"regexp"
	"strings"
)

// DefaultReportLimit caps how many mismatches are printed.
const DefaultReportLimit = 20

var (
	wordPattern  = regexp.MustCompile(`[a-z']+`)
	tokenPattern = regexp.MustCompile(`^[a-z']+$`)
)

// Counts maps a word to its frequency and remembers first-occurrence order.
type Counts struct {
	order  []string
	counts map[string]int
}

// NewCounts returns an empty Counts.
func NewCounts() *Counts {
	return &Counts{counts: make(map[string]int)}
}

// Add increments word by n.
func (c *Counts) Add(word string, n int) {
	if _, ok := c.counts[word]; !ok {
		c.order = append(c.order, word)
	}
	c.counts[word] += n
}

// Get returns the count of word, 0 when absent.
func (c *Counts) Get(word string) int { return c.counts[word] }

// Len is the number of unique words.
func (c *Counts) Len() int { return len(c.order) }

// Words returns unique words in first-occurrence order.
func (c *Counts) Words() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Map returns a copy of the counts.
func (c *Counts) Map() map[string]int {
	out := make(map[string]int, len(c.counts))
	for w, n := range c.counts {
		out[w] = n
	}
	return out
}

// Tokenize lowercases text and counts every run of letters and apostrophes.
// Invalid UTF-8 bytes are dropped before matching.
func Tokenize(text string) *Counts {
	text = strings.ToLower(strings.ToValidUTF8(text, ""))
	c := NewCounts()
	for _, w := range wordPattern.FindAllString(text, -1) {
		c.Add(w, 1)
	}
	return c
}
