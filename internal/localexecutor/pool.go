package localexecutor

import (
	"context"
	"runtime"

	"golang.org/x/sync/semaphore"

	"github.com/vk/taskgraph/internal/ctxlog"
	"github.com/vk/taskgraph/internal/future"
)

// Pool runs work on goroutines, at most size at a time. Submissions waiting
// for a slot are canceled when their context is done.
type Pool struct {
	size int64
	sem  *semaphore.Weighted
}

// NewPool returns a pool admitting size concurrent tasks. A size below one
// uses runtime.NumCPU().
func NewPool(size int) *Pool {
	if size < 1 {
		size = runtime.NumCPU()
	}
	return &Pool{size: int64(size), sem: semaphore.NewWeighted(int64(size))}
}

// Size returns the number of concurrent slots.
func (p *Pool) Size() int {
	return int(p.size)
}

func (p *Pool) Execute(ctx context.Context, fn func(context.Context) error) *future.Future[struct{}] {
	f := future.New[struct{}]()
	go func() {
		if err := p.sem.Acquire(ctx, 1); err != nil {
			ctxlog.FromContext(ctx).Debug("Pool: Submission abandoned while waiting for a slot.", "error", err)
			f.Fail(err)
			return
		}
		defer p.sem.Release(1)
		run(ctx, f, fn)
	}()
	return f
}
