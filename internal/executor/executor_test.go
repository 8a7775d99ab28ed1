package executor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/vk/taskgraph/internal/builder"
	"github.com/vk/taskgraph/internal/events"
	"github.com/vk/taskgraph/internal/future"
	"github.com/vk/taskgraph/internal/graph"
	"github.com/vk/taskgraph/internal/metrics"
	"github.com/vk/taskgraph/internal/node"
	"github.com/vk/taskgraph/internal/nodeid"
	"github.com/vk/taskgraph/internal/registry"
	"github.com/vk/taskgraph/internal/restriction"
	"github.com/vk/taskgraph/internal/task"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var errBoom = errors.New("boom")

func key(name string) nodeid.Key {
	return nodeid.New("t", name)
}

// testGraph assembles nodes and their dependency edges by hand.
type testGraph struct {
	edges  *graph.Builder[nodeid.Key]
	nodes  []*node.Node
	byName map[string]*node.Node
}

func newTestGraph() *testGraph {
	return &testGraph{edges: graph.NewBuilder[nodeid.Key](), byName: map[string]*node.Node{}}
}

func (g *testGraph) add(name string, fn task.Func, deps ...string) *node.Node {
	return g.addWith(name, fn, task.NodeProperties{}, deps...)
}

func (g *testGraph) addWith(name string, fn task.Func, props task.NodeProperties, deps ...string) *node.Node {
	keys := make([]nodeid.Key, 0, len(deps))
	for _, d := range deps {
		keys = append(keys, key(d))
	}
	g.edges.AddNodeWithChildren(key(name), keys...)
	n := node.New(key(name), fn, props)
	g.nodes = append(g.nodes, n)
	g.byName[name] = n
	return n
}

func (g *testGraph) executor(t *testing.T, strategy restriction.Factory, opts ...Option) *GraphExecutor {
	t.Helper()
	dag, err := graph.NewDependencyDag(g.edges.Build())
	require.NoError(t, err)
	return New(dag, g.nodes, strategy, opts...)
}

func constant(v any) task.Func {
	return func(context.Context) (any, error) { return v, nil }
}

func failing(err error) task.Func {
	return func(context.Context) (any, error) { return nil, err }
}

// sumOf adds the int results of the given nodes.
func sumOf(deps ...*node.Node) task.Func {
	return func(context.Context) (any, error) {
		total := 0
		for _, d := range deps {
			v, err := d.Result()
			if err != nil {
				return nil, err
			}
			total += v.(int)
		}
		return total, nil
	}
}

func blockUntilCanceled(started chan<- struct{}) task.Func {
	return func(ctx context.Context) (any, error) {
		if started != nil {
			close(started)
		}
		<-ctx.Done()
		return nil, ctx.Err()
	}
}

func wait[T any](t *testing.T, f *future.Future[T]) (T, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	v, err := f.Wait(ctx)
	require.NotErrorIs(t, err, context.DeadlineExceeded, "execution did not finish")
	return v, err
}

func execute(t *testing.T, ctx context.Context, e *GraphExecutor) (*Result, error) {
	t.Helper()
	f, err := e.Execute(ctx)
	require.NoError(t, err)
	return wait(t, f)
}

// executionResult unwraps the Result carried by a failed execution.
func executionResult(t *testing.T, err error) *Result {
	t.Helper()
	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
	return execErr.Result
}

func TestExecutor_Success(t *testing.T) {
	for _, tc := range []struct {
		name     string
		strategy func(t *testing.T) restriction.Factory
	}{
		{name: "eager", strategy: func(*testing.T) restriction.Factory { return nil }},
		{name: "weak leaves", strategy: func(t *testing.T) restriction.Factory {
			f, err := restriction.WeakLeavesOfEndNodes(1)
			require.NoError(t, err)
			return f
		}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			// --- Arrange ---
			g := newTestGraph()
			a := g.add("a", constant(1))
			b := g.add("b", constant(2))
			c := g.add("c", sumOf(a, b), "a", "b")
			d := g.add("d", constant(10))
			g.add("e", sumOf(c, d), "c", "d")
			e := g.executor(t, tc.strategy(t))
			e.Properties().AddResultKey(key("e"))
			e.Properties().AddResultKey(key("c"))

			// --- Act ---
			res, err := execute(t, context.Background(), e)

			// --- Assert ---
			require.NoError(t, err)
			assert.Equal(t, ResultSuccess, res.Type())
			assert.Equal(t, []nodeid.Key{key("e"), key("c")}, res.Keys())
			v, err := res.Get(key("e"))
			require.NoError(t, err)
			assert.Equal(t, 13, v)
			v, err = res.Get(key("c"))
			require.NoError(t, err)
			assert.Equal(t, 3, v)
		})
	}
}

func TestExecutor_EmptyGraph(t *testing.T) {
	e := newTestGraph().executor(t, nil)

	res, err := execute(t, context.Background(), e)

	require.NoError(t, err)
	assert.Equal(t, ResultSuccess, res.Type())
}

func TestExecutor_FailureSkipsDependentsWithoutStopping(t *testing.T) {
	// --- Arrange ---
	g := newTestGraph()
	var dependentRan atomic.Bool
	g.add("a", failing(errBoom))
	g.add("b", func(context.Context) (any, error) {
		dependentRan.Store(true)
		return "b", nil
	}, "a")
	g.add("c", constant("c"))
	e := g.executor(t, nil)

	var mu sync.Mutex
	var reported []nodeid.Key
	props := e.Properties()
	props.ComputeErrorHandler = func(k nodeid.Key, err error) {
		mu.Lock()
		defer mu.Unlock()
		reported = append(reported, k)
		assert.ErrorIs(t, err, errBoom)
	}
	for _, name := range []string{"a", "b", "c"} {
		props.AddResultKey(key(name))
	}

	// --- Act ---
	_, err := execute(t, context.Background(), e)

	// --- Assert ---
	res := executionResult(t, err)
	assert.Equal(t, ResultErrored, res.Type())
	assert.False(t, dependentRan.Load())
	assert.Equal(t, []nodeid.Key{key("a")}, reported)

	_, err = res.Get(key("a"))
	var nodeErr *NodeError
	require.ErrorAs(t, err, &nodeErr)
	assert.Equal(t, key("a"), nodeErr.Key)
	assert.ErrorIs(t, err, errBoom)
	assert.NotErrorIs(t, err, task.ErrSkipped)

	_, err = res.Get(key("b"))
	assert.ErrorIs(t, err, task.ErrSkipped)
	assert.ErrorIs(t, err, errBoom)
	var depErr *node.DependencyError
	require.ErrorAs(t, err, &depErr)
	assert.Equal(t, key("a"), depErr.Dependency)

	v, err := res.Get(key("c"))
	require.NoError(t, err)
	assert.Equal(t, "c", v)
}

func TestExecutor_StopOnFailure(t *testing.T) {
	// --- Arrange ---
	g := newTestGraph()
	g.add("fail", failing(errBoom))
	g.add("slow", blockUntilCanceled(nil))
	g.add("after", constant("after"), "slow")
	e := g.executor(t, nil)
	props := e.Properties()
	props.StopOnFailure = true
	props.DeliverResultOnFailure = true
	props.AddResultKey(key("slow"))
	props.AddResultKey(key("after"))

	// --- Act ---
	res, err := execute(t, context.Background(), e)

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, ResultErrored, res.Type())
	_, err = res.Get(key("slow"))
	assert.ErrorIs(t, err, context.Canceled)
	_, err = res.Get(key("after"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExecutor_Cancellation(t *testing.T) {
	// --- Arrange ---
	g := newTestGraph()
	started := make(chan struct{})
	g.add("running", blockUntilCanceled(started))
	g.add("waiting", constant("never"), "running")
	e := g.executor(t, nil)
	e.Properties().AddResultKey(key("waiting"))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Act ---
	f, err := e.Execute(ctx)
	require.NoError(t, err)
	<-started
	cancel()
	_, err = wait(t, f)

	// --- Assert ---
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, future.Canceled, f.State())
	_, err = g.byName["waiting"].Result()
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, g.byName["waiting"].WasScheduled())
}

func TestExecutor_CancellationKeepsResolvedResults(t *testing.T) {
	// --- Arrange ---
	g := newTestGraph()
	started := make(chan struct{})
	g.add("done", constant("v"))
	g.add("running", blockUntilCanceled(started), "done")
	g.add("waiting", constant("never"), "running")
	e := g.executor(t, nil)
	props := e.Properties()
	props.DeliverResultOnFailure = true
	for _, name := range []string{"done", "running", "waiting"} {
		props.AddResultKey(key(name))
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Act ---
	f, err := e.Execute(ctx)
	require.NoError(t, err)
	<-started
	cancel()
	res, err := wait(t, f)

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, ResultCanceled, res.Type())
	v, err := res.Get(key("done"))
	require.NoError(t, err)
	assert.Equal(t, "v", v)
	for _, name := range []string{"running", "waiting"} {
		_, err = res.Get(key(name))
		assert.ErrorIs(t, err, context.Canceled, name)
	}
}

func TestExecutor_CanceledBeforeExecute(t *testing.T) {
	g := newTestGraph()
	var ran atomic.Bool
	g.add("a", func(context.Context) (any, error) {
		ran.Store(true)
		return nil, nil
	})
	e := g.executor(t, nil)
	e.Properties().DeliverResultOnFailure = true
	e.Properties().AddResultKey(key("a"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := execute(t, ctx, e)

	require.NoError(t, err)
	assert.Equal(t, ResultCanceled, res.Type())
	assert.False(t, ran.Load())
	_, err = res.Get(key("a"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExecutor_SkipIsNotAFailure(t *testing.T) {
	// --- Arrange ---
	g := newTestGraph()
	g.add("a", failing(task.Skip("nothing to do")))
	g.add("b", constant("b"), "a")
	e := g.executor(t, nil)
	var handled atomic.Int32
	e.Properties().ComputeErrorHandler = func(nodeid.Key, error) { handled.Add(1) }
	e.Properties().AddResultKey(key("a"))
	e.Properties().AddResultKey(key("b"))

	// --- Act ---
	res, err := execute(t, context.Background(), e)

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, ResultSuccess, res.Type())
	assert.Zero(t, handled.Load())
	_, err = res.Get(key("a"))
	assert.ErrorIs(t, err, task.ErrSkipped)
	_, err = res.Get(key("b"))
	assert.ErrorIs(t, err, task.ErrSkipped)
}

func TestExecutor_DependencyErrorHandler(t *testing.T) {
	// --- Arrange ---
	g := newTestGraph()
	g.add("a", failing(errBoom))
	causes := make(chan error, 1)
	g.addWith("b", constant("b"), task.NodeProperties{
		DependencyErrorHandler: func(_ context.Context, k nodeid.Key, cause error) error {
			assert.Equal(t, key("b"), k)
			causes <- cause
			return nil
		},
	}, "a")
	e := g.executor(t, nil)

	// --- Act ---
	_, err := execute(t, context.Background(), e)

	// --- Assert ---
	executionResult(t, err)
	cause := <-causes
	var depErr *node.DependencyError
	require.ErrorAs(t, cause, &depErr)
	assert.Equal(t, key("a"), depErr.Dependency)
	assert.ErrorIs(t, cause, errBoom)
}

func TestExecutor_PanickingHandlerDoesNotMaskFailure(t *testing.T) {
	g := newTestGraph()
	g.add("a", failing(errBoom))
	e := g.executor(t, nil)
	e.Properties().ComputeErrorHandler = func(nodeid.Key, error) { panic("handler broke") }
	e.Properties().AddResultKey(key("a"))

	_, err := execute(t, context.Background(), e)

	res := executionResult(t, err)
	_, err = res.Get(key("a"))
	assert.ErrorIs(t, err, errBoom)
}

func TestExecutor_PanickingComputation(t *testing.T) {
	g := newTestGraph()
	g.add("a", func(context.Context) (any, error) { panic("kaboom") })
	e := g.executor(t, nil)
	e.Properties().AddResultKey(key("a"))

	_, err := execute(t, context.Background(), e)

	res := executionResult(t, err)
	_, err = res.Get(key("a"))
	var panicErr *task.PanicError
	require.ErrorAs(t, err, &panicErr)
	assert.Equal(t, "kaboom", panicErr.Value)
}

func TestResult_GetErrors(t *testing.T) {
	g := newTestGraph()
	g.add("a", constant(1))
	e := g.executor(t, nil)
	e.Properties().AddResultKey(key("missing"))

	res, err := execute(t, context.Background(), e)
	require.NoError(t, err)

	_, err = res.Get(key("a"))
	assert.ErrorIs(t, err, ErrNotRequested)
	_, err = res.Get(key("missing"))
	assert.ErrorIs(t, err, ErrNotAvailable)
}

func TestExecutor_OnlyBeforeExecute(t *testing.T) {
	// --- Arrange ---
	g := newTestGraph()
	a := g.add("a", constant(1))
	e := g.executor(t, nil)

	// --- Act / Assert (before) ---
	f, err := e.FutureOf(key("a"))
	require.NoError(t, err)
	assert.Same(t, a.Future(), f)
	_, err = e.FutureOf(key("nope"))
	assert.ErrorIs(t, err, ErrUnknownNode)

	built, err := e.BuiltGraph()
	require.NoError(t, err)
	assert.Len(t, built.Nodes, 1)
	assert.True(t, built.Dag.DependencyGraph().Contains(key("a")))

	// --- Act / Assert (after) ---
	_, err = execute(t, context.Background(), e)
	require.NoError(t, err)

	_, err = e.Execute(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyExecuted)
	_, err = e.FutureOf(key("a"))
	assert.ErrorIs(t, err, ErrAlreadyExecuted)
	_, err = e.BuiltGraph()
	assert.ErrorIs(t, err, ErrAlreadyExecuted)

	v, err := f.Result()
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

// recordingPublisher collects published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *recordingPublisher) count(typ events.Type) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, ev := range p.events {
		if ev.Type == typ {
			n++
		}
	}
	return n
}

func TestExecutor_MetricsAndEvents(t *testing.T) {
	// --- Arrange ---
	g := newTestGraph()
	g.add("a", failing(errBoom))
	g.add("b", constant(1), "a")
	g.add("c", constant(2))
	reg := prometheus.NewRegistry()
	pub := &recordingPublisher{}
	e := g.executor(t, nil, WithMetrics(metrics.New(reg)), WithPublisher(pub), WithRunID("run-1"))
	e.Properties().DeliverResultOnFailure = true

	// --- Act ---
	res, err := execute(t, context.Background(), e)

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, ResultErrored, res.Type())
	assert.Equal(t, "run-1", e.RunID())

	assert.Equal(t, 2, pub.count(events.NodeScheduled))
	assert.Equal(t, 1, pub.count(events.NodeSucceeded))
	assert.Equal(t, 1, pub.count(events.NodeFailed))
	assert.Equal(t, 1, pub.count(events.NodeSkipped))
	pub.mu.Lock()
	last := pub.events[len(pub.events)-1]
	for _, ev := range pub.events {
		assert.Equal(t, "run-1", ev.RunID)
	}
	pub.mu.Unlock()
	assert.Equal(t, events.ExecutionFinished, last.Type)
	assert.Equal(t, "ERRORED", last.Result)

	expected := `
# HELP taskgraph_executions_total Finished graph executions, by result.
# TYPE taskgraph_executions_total counter
taskgraph_executions_total{result="ERRORED"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "taskgraph_executions_total"))
	count, err := testutil.GatherAndCount(reg, "taskgraph_nodes_completed_total")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

// splitFactory splits "x" into "x.1" and "x.2" until depth levels and
// returns the names of all leaves below a node.
func splitFactory(depth int) task.Factory {
	return func(_ context.Context, args *task.CreateArgs) (task.Func, error) {
		name := args.Arg().(string)
		if strings.Count(name, ".") >= depth {
			return constant([]string{name}), nil
		}
		refs := []*task.InputRef{
			args.Inputs.BindInput(nodeid.New("split", name+".1")),
			args.Inputs.BindInput(nodeid.New("split", name+".2")),
		}
		return func(context.Context) (any, error) {
			var leaves []string
			for _, ref := range refs {
				v, err := task.Consume[[]string](ref)
				if err != nil {
					return nil, err
				}
				leaves = append(leaves, v...)
			}
			return leaves, nil
		}, nil
	}
}

func TestExecutor_BuiltFromDiscoveredGraph(t *testing.T) {
	// --- Arrange ---
	reg, err := registry.New(registry.FactoryConfig{
		Key:     nodeid.FactoryKey{Name: "split"},
		Factory: splitFactory(2),
	})
	require.NoError(t, err)
	b := builder.New[*GraphExecutor](reg, NewFactory(nil))
	root := nodeid.New("split", "a")
	require.NoError(t, b.AddNode(root))

	e, err := wait(t, b.Build(context.Background()))
	require.NoError(t, err)
	built, err := e.BuiltGraph()
	require.NoError(t, err)
	require.Len(t, built.Nodes, 7)
	e.Properties().AddResultKey(root)

	// --- Act ---
	res, err := execute(t, context.Background(), e)

	// --- Assert ---
	require.NoError(t, err)
	v, err := res.Get(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.1.1", "a.1.2", "a.2.1", "a.2.2"}, v)
}
