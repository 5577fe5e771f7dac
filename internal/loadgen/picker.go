package loadgen

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/specialistvlad/labbench/internal/scenario"
)

// Picker selects tasks with probability proportional to their weight.
type Picker struct {
	tasks      []*scenario.Task
	cumulative []int
	total      int
}

// NewPicker builds a picker over tasks. Every weight must be positive.
func NewPicker(tasks []*scenario.Task) (*Picker, error) {
	if len(tasks) == 0 {
		return nil, fmt.Errorf("no tasks to pick from")
	}
	p := &Picker{tasks: tasks, cumulative: make([]int, len(tasks))}
	for i, t := range tasks {
		if t.Weight < 1 {
			return nil, fmt.Errorf("task '%s' has non-positive weight %d", t.ID, t.Weight)
		}
		p.total += t.Weight
		p.cumulative[i] = p.total
	}
	return p, nil
}

// At maps n in [0, total weight) to a task.
func (p *Picker) At(n int) *scenario.Task {
	i := sort.SearchInts(p.cumulative, n+1)
	return p.tasks[i]
}

// Pick draws a task using r.
func (p *Picker) Pick(r *rand.Rand) *scenario.Task {
	return p.At(r.IntN(p.total))
}

// randomWait returns a uniformly random duration in [min, max].
func randomWait(r *rand.Rand, min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(r.Int64N(int64(max-min)+1))
}
