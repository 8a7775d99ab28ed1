package node

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/vk/taskgraph/internal/ctxlog"
	"github.com/vk/taskgraph/internal/future"
	"github.com/vk/taskgraph/internal/localexecutor"
	"github.com/vk/taskgraph/internal/nodeid"
	"github.com/vk/taskgraph/internal/task"
)

// Node is a single vertex of the execution graph together with its
// computation and result.
type Node struct {
	key   nodeid.Key
	props task.NodeProperties

	// fn is nil once the node was scheduled or pre-empted.
	fn        atomic.Pointer[task.Func]
	scheduled atomic.Bool
	result    *future.Future[any]
}

// New returns an unscheduled node. A nil props.Executor runs the
// computation on its own goroutine.
func New(key nodeid.Key, fn task.Func, props task.NodeProperties) *Node {
	if props.Executor == nil {
		props.Executor = localexecutor.Goroutine{}
	}
	n := &Node{key: key, props: props, result: future.New[any]()}
	n.fn.Store(&fn)
	return n
}

// FromTask returns an unscheduled node for a factory product.
func FromTask(t task.NodeTask) *Node {
	return New(t.Key, t.Func, t.Properties)
}

// Key returns the node's key.
func (n *Node) Key() nodeid.Key {
	return n.key
}

// Future returns the future resolved with the node's result.
func (n *Node) Future() *future.Future[any] {
	return n.result
}

// WasScheduled reports whether EnsureScheduled claimed the computation.
func (n *Node) WasScheduled() bool {
	return n.scheduled.Load()
}

// EnsureScheduled submits the computation to the node's executor unless
// that already happened or the node was resolved without running. An
// already canceled ctx cancels the node instead. Computation failures other
// than skips and cancellation are reported to onError exactly once,
// before the node's future resolves. An
// executor that fails to accept the work fails the node, is reported to
// onError and is returned.
func (n *Node) EnsureScheduled(ctx context.Context, onError task.ErrorHandler) error {
	ref := n.fn.Swap(nil)
	if ref == nil {
		return nil
	}
	n.scheduled.Store(true)
	logger := ctxlog.FromContext(ctx).With("node", n.key.String())

	if ctx.Err() != nil {
		logger.Debug("Node: Canceled before scheduling.")
		n.Cancel()
		return nil
	}

	if onError == nil {
		onError = func(nodeid.Key, error) {}
	}

	compute := *ref
	done, err := n.submit(ctx, func(ctx context.Context) error {
		v, err := compute(ctx)
		if err != nil {
			return err
		}
		n.result.Complete(v)
		return nil
	})
	if err != nil {
		logger.Error("Node: Executor rejected computation.", "error", err)
		onError(n.key, err)
		n.PropagateFailure(err)
		return err
	}

	done.OnComplete(func(_ struct{}, err error) {
		if isError(err) {
			logger.Debug("Node: Computation failed.", "error", err)
			onError(n.key, err)
		}
		n.completeTask(err)
	})
	return nil
}

// submit hands fn to the node's executor, converting a panicking or
// misbehaving executor into an error.
func (n *Node) submit(ctx context.Context, fn func(context.Context) error) (done *future.Future[struct{}], err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrExecutorRejected, r)
		}
	}()
	done = n.props.Executor.Execute(ctx, fn)
	if done == nil {
		return nil, fmt.Errorf("%w: executor returned no completion", ErrExecutorRejected)
	}
	return done, nil
}

func (n *Node) completeTask(err error) {
	if err != nil {
		n.PropagateFailure(err)
	} else if !n.result.IsDone() {
		n.PropagateFailure(errors.New("node computation completed without a result"))
	}
}

// isError reports whether err is a failure of the computation itself.
func isError(err error) bool {
	return err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, task.ErrSkipped)
}

// Cancel resolves an unresolved node as canceled.
func (n *Node) Cancel() {
	n.PropagateFailure(context.Canceled)
}

// PropagateDependencyFailure resolves the node as failed with cause without
// running its computation. If the node has a dependency error handler, the
// handler runs first on the node's executor; its own failure is only
// logged. A canceled ctx resolves the node as canceled instead. A node
// already scheduled ignores the notice.
func (n *Node) PropagateDependencyFailure(ctx context.Context, cause error) {
	ref := n.fn.Swap(nil)
	if ref == nil {
		return
	}
	if ctx.Err() != nil {
		n.Cancel()
		return
	}
	handler := n.props.DependencyErrorHandler
	if handler == nil {
		n.PropagateFailure(cause)
		return
	}

	logger := ctxlog.FromContext(ctx).With("node", n.key.String())
	done, err := n.submit(ctx, func(ctx context.Context) error {
		return handler(ctx, n.key, cause)
	})
	if err != nil {
		logger.Error("Node: Executor rejected dependency error handler.", "error", err)
		n.PropagateFailure(cause)
		return
	}
	done.OnComplete(func(_ struct{}, handlerErr error) {
		if handlerErr != nil && !errors.Is(handlerErr, cause) {
			logger.Warn("Node: Dependency error handler failed.", "error", handlerErr, "cause", cause)
		}
		n.PropagateFailure(cause)
	})
}

// PropagateFailure resolves the node with err. It is not reported to any
// error handler and prevents a later scheduling.
func (n *Node) PropagateFailure(err error) {
	n.fn.Store(nil)
	n.result.Fail(err)
}

// HasResult reports whether the node resolved successfully.
func (n *Node) HasResult() bool {
	return n.result.State() == future.Succeeded
}

// Result returns the node's output. Before resolution it returns an error
// wrapping ErrNotCompleted; a failed node returns its original cause; a
// canceled node returns context.Canceled.
func (n *Node) Result() (any, error) {
	return ExpectedResult(n.key, n.result)
}

// ExpectedResult reads a resolved result future of the node key.
func ExpectedResult(key nodeid.Key, f *future.Future[any]) (any, error) {
	if !f.IsDone() {
		return nil, fmt.Errorf("%w: %s", ErrNotCompleted, key)
	}
	return f.Result()
}
