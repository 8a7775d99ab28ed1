package builder

import (
	"context"
	"fmt"
	"sync"

	"github.com/vk/taskgraph/internal/ctxlog"
	"github.com/vk/taskgraph/internal/future"
	"github.com/vk/taskgraph/internal/graph"
	"github.com/vk/taskgraph/internal/node"
	"github.com/vk/taskgraph/internal/nodeid"
	"github.com/vk/taskgraph/internal/registry"
	"github.com/vk/taskgraph/internal/task"
)

// ExecutorFactory turns a discovered graph into the caller's executor.
type ExecutorFactory[E any] func(ctx context.Context, dag *graph.DependencyDag[nodeid.Key], nodes []*node.Node) (E, error)

// Option configures a Builder.
type Option func(*options)

type options struct {
	onCreateError func(key nodeid.Key, err error)
	specs         task.SpecSource
	nodeExecutor  task.Executor
}

// WithNodeCreateErrorHandler observes every factory failure, including the
// ones losing the race to become the build's result.
func WithNodeCreateErrorHandler(h func(key nodeid.Key, err error)) Option {
	return func(o *options) {
		o.onCreateError = h
	}
}

// WithSpecs supplies the declared configuration handed to factories.
func WithSpecs(specs task.SpecSource) Option {
	return func(o *options) {
		o.specs = specs
	}
}

// WithNodeExecutor sets the executor of nodes whose factory left it unset.
func WithNodeExecutor(exec task.Executor) Option {
	return func(o *options) {
		o.nodeExecutor = exec
	}
}

// Builder collects graph roots and discovers the graph reachable from them.
type Builder[E any] struct {
	registry    *registry.Registry
	newExecutor ExecutorFactory[E]
	opts        options

	mu      sync.Mutex
	roots   *graph.OrderedSet[nodeid.Key]
	started bool
}

// New returns a builder using the factories of reg.
func New[E any](reg *registry.Registry, newExecutor ExecutorFactory[E], opts ...Option) *Builder[E] {
	b := &Builder[E]{
		registry:    reg,
		newExecutor: newExecutor,
		roots:       graph.NewOrderedSet[nodeid.Key](),
	}
	for _, opt := range opts {
		opt(&b.opts)
	}
	return b
}

// AddNode requests key as a root of the graph.
func (b *Builder[E]) AddNode(key nodeid.Key) error {
	if _, ok := b.registry.Lookup(key.Factory); !ok {
		return fmt.Errorf("%w: %q (node %s)", ErrUnknownFactory, key.Factory, key)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.started {
		return ErrAlreadyBuilding
	}
	if !b.roots.Add(key) {
		return fmt.Errorf("%w: %s", ErrDuplicateNode, key)
	}
	return nil
}

// Build discovers the graph asynchronously. The returned future resolves
// with the executor built from the graph, or with the first failure.
func (b *Builder[E]) Build(ctx context.Context) *future.Future[E] {
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return future.Failure[E](ErrAlreadyBuilding)
	}
	b.started = true
	roots := b.roots.Items()
	b.mu.Unlock()

	run := newBuild(ctx, b)
	ctxlog.FromContext(ctx).Debug("Build: Starting graph discovery.", "roots", len(roots))
	run.start(roots)
	return run.result
}
