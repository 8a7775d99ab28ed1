// Package localexecutor provides in-process implementations of
// task.Executor.
package localexecutor

import (
	"context"

	"github.com/vk/taskgraph/internal/future"
	"github.com/vk/taskgraph/internal/task"
)

// Inline runs work synchronously on the submitting goroutine.
type Inline struct{}

func (Inline) Execute(ctx context.Context, fn func(context.Context) error) *future.Future[struct{}] {
	f := future.New[struct{}]()
	run(ctx, f, fn)
	return f
}

// Goroutine runs every submission on a new goroutine.
type Goroutine struct{}

func (Goroutine) Execute(ctx context.Context, fn func(context.Context) error) *future.Future[struct{}] {
	f := future.New[struct{}]()
	go run(ctx, f, fn)
	return f
}

// run executes fn unless ctx is already done and resolves f with the outcome.
func run(ctx context.Context, f *future.Future[struct{}], fn func(context.Context) error) {
	if err := ctx.Err(); err != nil {
		f.Fail(err)
		return
	}
	err := task.Recover(func() error { return fn(ctx) })
	if err != nil {
		f.Fail(err)
		return
	}
	f.Complete(struct{}{})
}

var (
	_ task.Executor = Inline{}
	_ task.Executor = Goroutine{}
	_ task.Executor = (*Pool)(nil)
)
