package orchestrator

import (
	"slices"
	"sync"

	"github.com/RoaringBitmap/roaring"
	"github.com/agentic-research/protocli/api"
)

// RunResult accumulates invocation outcomes by sequence number.
type RunResult struct {
	mu          sync.Mutex
	found       *roaring.Bitmap
	failed      *roaring.Bitmap
	invocations []api.Invocation
}

func newRunResult() *RunResult {
	return &RunResult{
		found:  roaring.New(),
		failed: roaring.New(),
	}
}

// discovered marks seq as submitted.
func (r *RunResult) discovered(seq int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.found.Add(uint32(seq))
}

// record stores a finished invocation.
func (r *RunResult) record(inv api.Invocation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !inv.Succeeded() {
		r.failed.Add(uint32(inv.Seq))
	}
	r.invocations = append(r.invocations, inv)
}

// Outcome folds the recorded invocations into a verdict.
func (r *RunResult) Outcome() api.Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch {
	case r.found.IsEmpty():
		return api.NoInputFound
	case r.failed.IsEmpty():
		return api.AllSucceeded
	default:
		return api.SomeFailed
	}
}

// Invocations returns the recorded invocations ordered by sequence number.
func (r *RunResult) Invocations() []api.Invocation {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := slices.Clone(r.invocations)
	slices.SortFunc(out, func(a, b api.Invocation) int { return a.Seq - b.Seq })
	return out
}
