// Package task defines the surface task authors implement: node factories,
// the computations they return, and the executors computations run on.
package task

import (
	"context"

	"github.com/vk/taskgraph/internal/future"
	"github.com/vk/taskgraph/internal/nodeid"
)

// Func is the computation of a single node. It receives the node's
// cancellation context and returns the node's output.
type Func func(ctx context.Context) (any, error)

// Factory creates the computation of the node identified by args.Key. It
// declares the node's dependencies by binding inputs through args.Inputs
// while it runs. Returning a nil Func is an error.
type Factory func(ctx context.Context, args *CreateArgs) (Func, error)

// Executor runs submitted work. The returned future resolves when fn
// returns; it is canceled without running fn when ctx is done first.
type Executor interface {
	Execute(ctx context.Context, fn func(context.Context) error) *future.Future[struct{}]
}

// ErrorHandler observes node computation failures.
type ErrorHandler func(key nodeid.Key, err error)

// DependencyErrorHandler runs for a node whose dependency failed, instead
// of the node's computation. Its error is only logged.
type DependencyErrorHandler func(ctx context.Context, key nodeid.Key, cause error) error

// NodeProperties configure how a single node runs.
type NodeProperties struct {
	// Executor runs the node's computation. Nil means the caller's default.
	Executor Executor
	// DependencyErrorHandler is optional.
	DependencyErrorHandler DependencyErrorHandler
}

// CreateArgs are passed to a Factory.
type CreateArgs struct {
	Key    nodeid.Key
	Inputs InputBinder
	// Spec is the node's declared configuration, empty when none exists.
	Spec Spec
	// Properties start from the factory defaults and may be changed by the
	// factory for the node being created.
	Properties NodeProperties
}

// Arg returns the factory argument of the node being created.
func (a *CreateArgs) Arg() any {
	return a.Key.Arg
}

// NodeTask is what a factory produced for one node.
type NodeTask struct {
	Key        nodeid.Key
	Func       Func
	Properties NodeProperties
}

// BindSpecInputs binds every input declared in the node's spec, in
// declaration order.
func (a *CreateArgs) BindSpecInputs() []*InputRef {
	refs := make([]*InputRef, 0, len(a.Spec.Inputs))
	for _, k := range a.Spec.Inputs {
		refs = append(refs, a.Inputs.BindInput(k))
	}
	return refs
}
