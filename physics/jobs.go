package physics

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/milk9111/physics2d/common"
)

// ErrDependencyFailed wraps the error of a job whose dependency failed.
var ErrDependencyFailed = errors.New("dependency failed")

// JobHandle is the future of scheduled work. A nil handle is already complete.
type JobHandle struct {
	done chan struct{}
	err  error
}

func newJobHandle() *JobHandle {
	return &JobHandle{done: make(chan struct{})}
}

// CompletedJob returns a handle that is already done with err.
func CompletedJob(err error) *JobHandle {
	h := newJobHandle()
	h.err = err
	close(h.done)
	return h
}

// Complete waits for the job and returns its error.
func (h *JobHandle) Complete() error {
	if h == nil {
		return nil
	}
	<-h.done
	return h.err
}

func (h *JobHandle) IsCompleted() bool {
	if h == nil {
		return true
	}
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// Schedule runs fn once dep finished. A failed dep skips fn and poisons the result.
func Schedule(fn func() error, dep *JobHandle) *JobHandle {
	h := newJobHandle()
	go func() {
		defer close(h.done)
		if err := dep.Complete(); err != nil {
			h.err = fmt.Errorf("%w: %w", ErrDependencyFailed, err)
			return
		}
		if fn != nil {
			h.err = fn()
		}
	}()
	return h
}

// ScheduleParallelFor runs fn over [0,n) in batches once dep finished.
func ScheduleParallelFor(n, batchSize, threads int, fn func(begin, end int) error, dep *JobHandle) *JobHandle {
	return Schedule(func() error {
		return common.ParallelFor(context.Background(), n, batchSize, threads, func(_ context.Context, begin, end int) error {
			return fn(begin, end)
		})
	}, dep)
}

// CombineDependencies completes when every handle has; it carries the first error.
func CombineDependencies(handles ...*JobHandle) *JobHandle {
	pending := handles[:0:0]
	for _, h := range handles {
		if h != nil {
			pending = append(pending, h)
		}
	}
	switch len(pending) {
	case 0:
		return nil
	case 1:
		return pending[0]
	}

	combined := newJobHandle()
	go func() {
		defer close(combined.done)
		var once sync.Once
		for _, h := range pending {
			if err := h.Complete(); err != nil {
				once.Do(func() { combined.err = err })
			}
		}
	}()
	return combined
}
