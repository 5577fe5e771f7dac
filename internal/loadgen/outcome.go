// Package loadgen runs virtual users against an HTTP target. Each user picks
// scenario tasks by weight, issues the request, hands the classified outcome
// to a Recorder and pauses for a random wait before the next request.
package loadgen

import (
	"fmt"
	"time"
)

// Outcome is the classified result of a single request.
type Outcome struct {
	Name     string
	Method   string
	URL      string
	Status   int
	Body     string
	Size     int64
	Latency  time.Duration
	Err      error
	Success  bool
	Failure  string
	Finished time.Time
}

// Recorder receives outcomes. Implementations must be safe for concurrent use.
type Recorder interface {
	Record(o Outcome)
}

// Classify decides whether a request succeeded. A transport error is a failure
// carrying the error text; a status of 400 or above is a failure carrying
// "<status> <body>"; everything else is a success.
func Classify(status int, body string, err error) (bool, string) {
	if err != nil {
		return false, err.Error()
	}
	if status >= 400 {
		return false, fmt.Sprintf("%d %s", status, body)
	}
	return true, ""
}
