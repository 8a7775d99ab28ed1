package executor

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/vk/taskgraph/internal/events"
	"github.com/vk/taskgraph/internal/future"
	"github.com/vk/taskgraph/internal/graph"
	"github.com/vk/taskgraph/internal/metrics"
	"github.com/vk/taskgraph/internal/node"
	"github.com/vk/taskgraph/internal/nodeid"
	"github.com/vk/taskgraph/internal/restriction"
	"github.com/vk/taskgraph/internal/task"
)

// Properties configures an execution. Changes made after Execute have no
// effect on the running execution.
type Properties struct {
	// StopOnFailure cancels the remaining nodes once a computation fails.
	StopOnFailure bool
	// DeliverResultOnFailure completes the execution future with a Result
	// even when nodes failed or were canceled.
	DeliverResultOnFailure bool
	// ComputeErrorHandler is notified of every failed computation.
	ComputeErrorHandler task.ErrorHandler

	mu         sync.Mutex
	resultKeys []nodeid.Key
	requested  map[nodeid.Key]struct{}
}

// AddResultKey requests the output of key in the execution Result.
func (p *Properties) AddResultKey(key nodeid.Key) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.requested == nil {
		p.requested = make(map[nodeid.Key]struct{})
	}
	if _, ok := p.requested[key]; ok {
		return
	}
	p.requested[key] = struct{}{}
	p.resultKeys = append(p.resultKeys, key)
}

// ResultKeys returns the requested keys in registration order.
func (p *Properties) ResultKeys() []nodeid.Key {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]nodeid.Key(nil), p.resultKeys...)
}

type settings struct {
	stopOnFailure          bool
	deliverResultOnFailure bool
	computeErrorHandler    task.ErrorHandler
	resultKeys             []nodeid.Key
}

func (p *Properties) snapshot() settings {
	return settings{
		stopOnFailure:          p.StopOnFailure,
		deliverResultOnFailure: p.DeliverResultOnFailure,
		computeErrorHandler:    p.ComputeErrorHandler,
		resultKeys:             p.ResultKeys(),
	}
}

// BuiltGraph is the graph owned by an executor that was not executed yet.
type BuiltGraph struct {
	Dag   *graph.DependencyDag[nodeid.Key]
	Nodes []*node.Node
}

// Option configures a GraphExecutor.
type Option func(*GraphExecutor)

// WithMetrics records node and execution metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *GraphExecutor) { e.metrics = m }
}

// WithPublisher sends node lifecycle events to p.
func WithPublisher(p events.Publisher) Option {
	return func(e *GraphExecutor) {
		if p != nil {
			e.publisher = p
		}
	}
}

// WithRunID overrides the generated run id attached to logs and events.
func WithRunID(id string) Option {
	return func(e *GraphExecutor) {
		if id != "" {
			e.runID = id
		}
	}
}

// GraphExecutor executes the nodes of one dependency graph at most once.
type GraphExecutor struct {
	dag      *graph.DependencyDag[nodeid.Key]
	nodes    []*node.Node
	byKey    map[nodeid.Key]*node.Node
	strategy restriction.Factory
	props    Properties

	metrics   *metrics.Metrics
	publisher events.Publisher
	runID     string

	executed atomic.Bool
}

// New returns an executor for nodes, whose dependencies are described by
// dag. A nil strategy releases every node immediately.
func New(dag *graph.DependencyDag[nodeid.Key], nodes []*node.Node, strategy restriction.Factory, opts ...Option) *GraphExecutor {
	if strategy == nil {
		strategy = restriction.Eager()
	}
	e := &GraphExecutor{
		dag:       dag,
		nodes:     nodes,
		byKey:     make(map[nodeid.Key]*node.Node, len(nodes)),
		strategy:  strategy,
		publisher: events.Nop{},
		runID:     uuid.NewString(),
	}
	for _, n := range nodes {
		e.byKey[n.Key()] = n
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewFactory returns a function creating executors for discovered graphs,
// suitable as the executor factory of a graph builder.
func NewFactory(strategy restriction.Factory, opts ...Option) func(context.Context, *graph.DependencyDag[nodeid.Key], []*node.Node) (*GraphExecutor, error) {
	return func(_ context.Context, dag *graph.DependencyDag[nodeid.Key], nodes []*node.Node) (*GraphExecutor, error) {
		return New(dag, nodes, strategy, opts...), nil
	}
}

// Properties returns the mutable execution properties.
func (e *GraphExecutor) Properties() *Properties {
	return &e.props
}

// RunID returns the id attached to the logs and events of the execution.
func (e *GraphExecutor) RunID() string {
	return e.runID
}

// FutureOf returns the result future of the node with key. It is only
// available before Execute.
func (e *GraphExecutor) FutureOf(key nodeid.Key) (*future.Future[any], error) {
	if e.executed.Load() {
		return nil, ErrAlreadyExecuted
	}
	n, ok := e.byKey[key]
	if !ok {
		return nil, ErrUnknownNode
	}
	return n.Future(), nil
}

// BuiltGraph returns the graph and nodes owned by the executor. It is only
// available before Execute.
func (e *GraphExecutor) BuiltGraph() (*BuiltGraph, error) {
	if e.executed.Load() {
		return nil, ErrAlreadyExecuted
	}
	return &BuiltGraph{Dag: e.dag, Nodes: append([]*node.Node(nil), e.nodes...)}, nil
}

// Execute starts the execution of every node and returns a future resolved
// once all nodes resolved. Canceling ctx cancels nodes not yet running and
// is visible to running computations.
func (e *GraphExecutor) Execute(ctx context.Context) (*future.Future[*Result], error) {
	if !e.executed.CompareAndSwap(false, true) {
		return nil, ErrAlreadyExecuted
	}
	r := newRun(ctx, e, e.props.snapshot())
	r.start()
	return r.result, nil
}
