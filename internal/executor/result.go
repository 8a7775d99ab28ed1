package executor

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/taskgraph/internal/future"
	"github.com/vk/taskgraph/internal/node"
	"github.com/vk/taskgraph/internal/nodeid"
)

// ResultType classifies a finished execution.
type ResultType int

const (
	ResultSuccess ResultType = iota
	ResultErrored
	ResultCanceled
)

func (t ResultType) String() string {
	switch t {
	case ResultSuccess:
		return "SUCCESS"
	case ResultErrored:
		return "ERRORED"
	case ResultCanceled:
		return "CANCELED"
	default:
		return fmt.Sprintf("ResultType(%d)", int(t))
	}
}

// Result is the outcome of an execution for its requested keys.
type Result struct {
	resultType ResultType
	requested  map[nodeid.Key]struct{}
	order      []nodeid.Key
	futures    map[nodeid.Key]*future.Future[any]
}

// Type returns the overall classification.
func (r *Result) Type() ResultType {
	return r.resultType
}

// Keys returns the requested keys in registration order.
func (r *Result) Keys() []nodeid.Key {
	return append([]nodeid.Key(nil), r.order...)
}

// Get returns the output of a requested node. A failed node yields a
// *NodeError wrapping its cause; a node skipped because of a dependency
// yields a *NodeError matching task.ErrSkipped; a canceled node yields
// context.Canceled.
func (r *Result) Get(key nodeid.Key) (any, error) {
	if _, ok := r.requested[key]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotRequested, key)
	}
	f, ok := r.futures[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotAvailable, key)
	}
	v, err := node.ExpectedResult(key, f)
	if err == nil {
		return v, nil
	}
	if errors.Is(err, context.Canceled) {
		return nil, context.Canceled
	}
	return nil, &NodeError{Key: key, Cause: err}
}
