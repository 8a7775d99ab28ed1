package app

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/vk/taskgraph/internal/builder"
	"github.com/vk/taskgraph/internal/ctxlog"
	"github.com/vk/taskgraph/internal/events"
	"github.com/vk/taskgraph/internal/events/socketio"
	"github.com/vk/taskgraph/internal/executor"
	"github.com/vk/taskgraph/internal/gridfile"
	"github.com/vk/taskgraph/internal/localexecutor"
	"github.com/vk/taskgraph/internal/nodeid"
	"github.com/vk/taskgraph/internal/restriction"
)

// ErrExecutionFailed is returned by Run when the execution did not succeed.
var ErrExecutionFailed = errors.New("execution did not succeed")

// Run loads the grid, executes it and prints the requested results. The
// returned Result is nil when nothing was executed.
func (a *App) Run(ctx context.Context) (*executor.Result, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	a.healthCheckServer()
	defer a.closeHealthCheckServer()

	grid, err := gridfile.Load(ctx, a.config.GridPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load grid: %w", err)
	}
	roots := grid.Roots()
	if len(roots) == 0 {
		a.logger.Warn("No nodes found in grid, execution not required.")
		return nil, nil
	}
	a.logger.Info("Grids loaded successfully.", "nodes_declared", len(grid.Nodes), "results", len(roots))

	strategy, err := a.strategy(grid.Run)
	if err != nil {
		return nil, err
	}

	publisher, closePublisher, err := a.publisher(ctx)
	if err != nil {
		return nil, err
	}
	defer closePublisher()

	pool := localexecutor.NewPool(a.config.WorkerCount)
	a.logger.Debug("Worker pool configured.", "workers", pool.Size())

	b := builder.New[*executor.GraphExecutor](a.registry,
		executor.NewFactory(strategy, executor.WithMetrics(a.metrics), executor.WithPublisher(publisher)),
		builder.WithSpecs(grid.Specs),
		builder.WithNodeExecutor(pool),
		builder.WithNodeCreateErrorHandler(func(key nodeid.Key, err error) {
			a.logger.Error("Failed to create node.", "node", key.String(), "error", err)
		}),
	)
	for _, key := range roots {
		if err := b.AddNode(key); err != nil {
			return nil, fmt.Errorf("failed to add result node: %w", err)
		}
	}

	a.logger.Debug("Building dependency graph from grid...")
	exec, err := b.Build(ctx).Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to build dependency graph: %w", err)
	}
	built, err := exec.BuiltGraph()
	if err != nil {
		return nil, err
	}
	a.logger.Debug("Dependency graph built.", "node_count", len(built.Nodes), "edge_count", built.Dag.DependencyGraph().EdgeCount())

	props := exec.Properties()
	props.DeliverResultOnFailure = true
	if grid.Run.DeliverResultOnFailure != nil {
		props.DeliverResultOnFailure = *grid.Run.DeliverResultOnFailure
	}
	if grid.Run.StopOnFailure != nil {
		props.StopOnFailure = *grid.Run.StopOnFailure
	}
	for _, key := range roots {
		props.AddResultKey(key)
	}

	a.logger.Info("🚀 Starting concurrent execution...", "run_id", exec.RunID())
	f, err := exec.Execute(ctx)
	if err != nil {
		return nil, err
	}
	// Nodes observe ctx, so the execution resolves after a cancellation too.
	<-f.Done()
	res, err := f.Result()
	if err != nil {
		var execErr *executor.ExecutionError
		if errors.As(err, &execErr) {
			a.printResults(execErr.Result)
		}
		return nil, fmt.Errorf("execution failed: %w", err)
	}

	a.printResults(res)
	a.logger.Info("🏁 Execution finished.", "result", res.Type().String())
	if res.Type() != executor.ResultSuccess {
		return res, fmt.Errorf("%w: %s", ErrExecutionFailed, res.Type())
	}
	return res, nil
}

// strategy resolves the scheduling strategy: flags first, then the grid's
// run block, then eager scheduling.
func (a *App) strategy(run gridfile.RunConfig) (restriction.Factory, error) {
	name := a.config.Strategy
	if name == "" && run.Strategy != nil {
		name = *run.Strategy
	}
	if err := validateStrategy(name); err != nil {
		return nil, err
	}
	if name != StrategyWeakLeaves {
		return restriction.Eager(), nil
	}

	budget := a.config.Budget
	if budget == 0 && run.Budget != nil {
		budget = *run.Budget
	}
	if budget == 0 {
		budget = 1
	}
	a.logger.Debug("Using weak leaves strategy.", "budget", budget)
	return restriction.WeakLeavesOfEndNodes(budget)
}

// publisher returns the event publisher of a run and its cleanup.
func (a *App) publisher(ctx context.Context) (events.Publisher, func(), error) {
	logPublisher := events.LogPublisher{}
	if a.config.EventsURL == "" {
		return logPublisher, func() {}, nil
	}
	sio, err := socketio.Dial(ctx, socketio.Config{URL: a.config.EventsURL})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect event publisher: %w", err)
	}
	return events.Multi{logPublisher, sio}, func() {
		if err := sio.Close(); err != nil {
			a.logger.Warn("Failed to close event publisher.", "error", err)
		}
	}, nil
}

// printResults writes one line per requested result, sorted by key.
func (a *App) printResults(res *executor.Result) {
	keys := res.Keys()
	sort.Slice(keys, func(i, j int) bool { return nodeid.Less(keys[i], keys[j]) })

	fmt.Fprintf(a.outW, "Results (%s):\n", res.Type())
	for _, key := range keys {
		v, err := res.Get(key)
		if err != nil {
			fmt.Fprintf(a.outW, "      %s ! %v\n", key, err)
			continue
		}
		fmt.Fprintf(a.outW, "      %s = %v\n", key, v)
	}
}
