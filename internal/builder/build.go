package builder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/vk/taskgraph/internal/ctxlog"
	"github.com/vk/taskgraph/internal/future"
	"github.com/vk/taskgraph/internal/graph"
	"github.com/vk/taskgraph/internal/localexecutor"
	"github.com/vk/taskgraph/internal/node"
	"github.com/vk/taskgraph/internal/nodeid"
	"github.com/vk/taskgraph/internal/registry"
	"github.com/vk/taskgraph/internal/task"
)

// entry is the discovery state of one key.
type entry struct {
	key    nodeid.Key
	cfg    registry.FactoryConfig
	task   task.NodeTask
	inputs []nodeid.Key
}

// build is a single discovery run.
type build[E any] struct {
	b      *Builder[E]
	ctx    context.Context
	cancel context.CancelFunc
	result *future.Future[E]

	// outstanding counts queued or running factories plus one guard held
	// while the roots are enqueued.
	outstanding atomic.Int64

	mu       sync.Mutex
	entries  map[nodeid.Key]*entry
	order    []nodeid.Key
	queue    []*entry
	draining bool
	failure  error
	deferred []error

	nodesMu sync.RWMutex
	nodes   map[nodeid.Key]*node.Node
}

func newBuild[E any](ctx context.Context, b *Builder[E]) *build[E] {
	buildCtx, cancel := context.WithCancel(ctx)
	return &build[E]{
		b:       b,
		ctx:     buildCtx,
		cancel:  cancel,
		result:  future.New[E](),
		entries: make(map[nodeid.Key]*entry),
	}
}

func (r *build[E]) start(roots []nodeid.Key) {
	r.outstanding.Add(1)
	r.enqueue(roots)
	r.finishOne()
}

// enqueue registers every unknown key and drains the work queue unless
// another caller already does.
func (r *build[E]) enqueue(keys []nodeid.Key) {
	r.mu.Lock()
	for _, key := range keys {
		if _, exists := r.entries[key]; exists {
			continue
		}
		cfg, _ := r.b.registry.Lookup(key.Factory)
		e := &entry{key: key, cfg: cfg}
		r.entries[key] = e
		r.order = append(r.order, key)
		r.queue = append(r.queue, e)
		r.outstanding.Add(1)
	}
	if r.draining {
		r.mu.Unlock()
		return
	}
	r.draining = true
	for len(r.queue) > 0 {
		e := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		r.submit(e)
		r.mu.Lock()
	}
	r.draining = false
	r.mu.Unlock()
}

func (r *build[E]) submit(e *entry) {
	executor := e.cfg.FactoryExecutor
	if executor == nil {
		executor = localexecutor.Inline{}
	}
	done, err := r.execute(executor, func(ctx context.Context) error {
		return r.createNode(ctx, e)
	})
	if err != nil {
		r.fail(e.key, err)
		r.finishOne()
		return
	}
	done.OnComplete(func(_ struct{}, err error) {
		if err != nil {
			r.fail(e.key, err)
		}
		r.finishOne()
	})
}

func (r *build[E]) execute(executor task.Executor, fn func(context.Context) error) (done *future.Future[struct{}], err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("factory executor panicked: %v", rec)
		}
	}()
	done = executor.Execute(r.ctx, fn)
	if done == nil {
		return nil, errors.New("factory executor returned no completion")
	}
	return done, nil
}

func (r *build[E]) createNode(ctx context.Context, e *entry) error {
	logger := ctxlog.FromContext(ctx).With("node", e.key.String())
	binder := &inputBinder[E]{run: r, owner: e.key, seen: make(map[nodeid.Key]struct{})}
	args := &task.CreateArgs{
		Key:        e.key,
		Inputs:     binder,
		Properties: e.cfg.NodeDefaults,
	}
	if r.b.opts.specs != nil {
		if spec, ok := r.b.opts.specs.Spec(e.key); ok {
			args.Spec = spec
		}
	}

	var fn task.Func
	err := task.Recover(func() error {
		var err error
		fn, err = e.cfg.Factory(ctx, args)
		return err
	})
	inputs := binder.close()
	if err != nil {
		return err
	}
	if fn == nil {
		return fmt.Errorf("%w: %s", ErrInvalidFactoryOutput, e.key)
	}

	props := args.Properties
	if props.Executor == nil {
		props.Executor = r.b.opts.nodeExecutor
	}

	r.mu.Lock()
	e.task = task.NodeTask{Key: e.key, Func: fn, Properties: props}
	e.inputs = inputs
	r.mu.Unlock()
	logger.Debug("Build: Node created.", "inputs", len(inputs))

	r.enqueue(inputs)
	return nil
}

func (r *build[E]) deferError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deferred = append(r.deferred, err)
}

// fail records the first factory failure and cancels the build.
func (r *build[E]) fail(key nodeid.Key, err error) {
	r.mu.Lock()
	first := r.failure == nil
	if first {
		r.failure = err
	}
	r.mu.Unlock()
	if first {
		ctxlog.FromContext(r.ctx).Debug("Build: Factory failed, canceling discovery.", "node", key.String(), "error", err)
		r.cancel()
	}
	if h := r.b.opts.onCreateError; h != nil {
		safeCall(r.ctx, func() { h(key, err) })
	}
}

func (r *build[E]) finishOne() {
	if r.outstanding.Add(-1) == 0 {
		r.complete()
	}
}

func (r *build[E]) complete() {
	defer r.cancel()
	logger := ctxlog.FromContext(r.ctx)

	r.mu.Lock()
	failure := r.failure
	deferred := r.deferred
	entries := make([]*entry, 0, len(r.order))
	for _, key := range r.order {
		entries = append(entries, r.entries[key])
	}
	r.mu.Unlock()

	if failure != nil {
		r.result.Fail(failure)
		return
	}
	if len(deferred) > 0 {
		r.result.Fail(errors.Join(deferred...))
		return
	}

	gb := graph.NewBuilder[nodeid.Key]()
	nodes := make([]*node.Node, 0, len(entries))
	nodeMap := make(map[nodeid.Key]*node.Node, len(entries))
	for _, e := range entries {
		gb.AddNode(e.key).AddChildren(e.inputs...)
		n := node.FromTask(e.task)
		nodes = append(nodes, n)
		nodeMap[e.key] = n
	}
	dag, err := graph.NewDependencyDag(gb.Build())
	if err != nil {
		r.result.Fail(err)
		return
	}

	r.nodesMu.Lock()
	r.nodes = nodeMap
	r.nodesMu.Unlock()

	// The executor must outlive the discovery context.
	execCtx := context.WithoutCancel(r.ctx)
	exec, err := r.b.newExecutor(execCtx, dag, nodes)
	if err != nil {
		r.result.Fail(fmt.Errorf("creating graph executor: %w", err))
		return
	}
	logger.Debug("Build: Graph discovery complete.", "nodes", len(nodes), "edges", dag.DependencyGraph().EdgeCount())
	r.result.Complete(exec)
}

// resultOf reads the output of a discovered node.
func (r *build[E]) resultOf(key nodeid.Key) (any, error) {
	r.nodesMu.RLock()
	n, ok := r.nodes[key]
	r.nodesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", node.ErrNotCompleted, key)
	}
	return n.Result()
}

func safeCall(ctx context.Context, fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			ctxlog.FromContext(ctx).Error("Build: Error handler panicked.", "panic", rec)
		}
	}()
	fn()
}
