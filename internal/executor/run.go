package executor

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/vk/taskgraph/internal/ctxlog"
	"github.com/vk/taskgraph/internal/events"
	"github.com/vk/taskgraph/internal/future"
	"github.com/vk/taskgraph/internal/node"
	"github.com/vk/taskgraph/internal/nodeid"
	"github.com/vk/taskgraph/internal/restriction"
	"github.com/vk/taskgraph/internal/task"
)

// Node outcomes used for metrics labels.
const (
	outcomeSucceeded = "succeeded"
	outcomeFailed    = "failed"
	outcomeSkipped   = "skipped"
	outcomeCanceled  = "canceled"
)

// nodeState tracks one node during a run.
type nodeState struct {
	node *node.Node
	// pending counts unsatisfied dependencies plus the strategy release and
	// the wiring release.
	pending     atomic.Int64
	scheduledAt atomic.Int64
}

// run is a single execution of a GraphExecutor.
type run struct {
	exec     *GraphExecutor
	settings settings
	ctx      context.Context
	cancel   context.CancelFunc
	logger   *slog.Logger

	states    map[nodeid.Key]*nodeState
	strategy  restriction.Strategy
	remaining atomic.Int64
	errored   atomic.Bool
	canceled  atomic.Bool

	result *future.Future[*Result]
}

func newRun(ctx context.Context, e *GraphExecutor, s settings) *run {
	logger := ctxlog.FromContext(ctx).With("run_id", e.runID)
	ctx, cancel := context.WithCancel(ctxlog.WithLogger(ctx, logger))
	r := &run{
		exec:     e,
		settings: s,
		ctx:      ctx,
		cancel:   cancel,
		logger:   logger,
		states:   make(map[nodeid.Key]*nodeState, len(e.nodes)),
		result:   future.New[*Result](),
	}
	deps := e.dag.DependencyGraph()
	for _, n := range e.nodes {
		st := &nodeState{node: n}
		st.pending.Store(int64(len(deps.Children(n.Key())) + 2))
		r.states[n.Key()] = st
	}
	r.remaining.Store(int64(len(e.nodes)))
	return r
}

func (r *run) start() {
	r.logger.Info("Executor: Starting graph execution.", "nodes", len(r.states), "results", len(r.settings.resultKeys))
	if len(r.states) == 0 {
		r.finish()
		return
	}

	for _, n := range r.exec.nodes {
		st := r.states[n.Key()]
		n.Future().OnComplete(func(_ any, err error) {
			r.completeNode(st, err)
		})
	}

	restricted := make([]restriction.Node, 0, len(r.exec.nodes))
	for _, n := range r.exec.nodes {
		st := r.states[n.Key()]
		restricted = append(restricted, restriction.Node{
			Key:     n.Key(),
			Release: restriction.RunOnce(func() { r.release(st) }),
		})
	}
	r.strategy = r.exec.strategy.BuildStrategy(r.exec.dag, restricted)

	// No node may start before the strategy exists.
	for _, n := range r.exec.nodes {
		r.release(r.states[n.Key()])
	}
}

func (r *run) release(st *nodeState) {
	if st.pending.Add(-1) == 0 {
		r.schedule(st)
	}
}

func (r *run) schedule(st *nodeState) {
	key := st.node.Key()
	if r.ctx.Err() == nil {
		st.scheduledAt.Store(time.Now().UnixNano())
		r.exec.metrics.NodeScheduled()
		r.publish(events.Event{Type: events.NodeScheduled, Node: key.String()})
	}
	// Rejections are reported through onError and the node's future.
	_ = st.node.EnsureScheduled(r.ctx, r.onError)
}

func (r *run) onError(key nodeid.Key, err error) {
	r.errored.Store(true)
	r.logger.Warn("Executor: Node computation failed.", "node", key.String(), "error", err)
	if r.settings.stopOnFailure {
		r.logger.Info("Executor: Stopping execution after failure.", "node", key.String())
		r.cancel()
	}
	handler := r.settings.computeErrorHandler
	if handler == nil {
		return
	}
	if herr := task.Recover(func() error {
		handler(key, err)
		return nil
	}); herr != nil {
		r.logger.Error("Executor: Compute error handler failed.", "node", key.String(), "error", herr)
	}
}

func (r *run) completeNode(st *nodeState, err error) {
	key := st.node.Key()
	outcome := classify(err)
	switch outcome {
	case outcomeFailed:
		r.errored.Store(true)
	case outcomeCanceled:
		r.canceled.Store(true)
	}

	forward := r.exec.dag.ForwardGraph()
	for _, child := range forward.Children(key) {
		cst, ok := r.states[child]
		if !ok {
			continue
		}
		switch outcome {
		case outcomeSucceeded:
			r.release(cst)
		case outcomeCanceled:
			cst.node.Cancel()
		default:
			cst.node.PropagateDependencyFailure(r.ctx, &node.DependencyError{Dependency: key, Cause: err})
		}
	}

	r.strategy.SetNodeComputed(key)
	r.record(st, outcome, err)

	if r.remaining.Add(-1) == 0 {
		r.finish()
	}
}

func (r *run) record(st *nodeState, outcome string, err error) {
	key := st.node.Key()
	factory := key.Factory.String()
	if at := st.scheduledAt.Load(); at != 0 {
		r.exec.metrics.NodeFinished(factory, outcome, time.Since(time.Unix(0, at)))
	} else {
		r.exec.metrics.NodeResolvedUnscheduled(factory, outcome)
	}

	ev := events.Event{Node: key.String()}
	switch outcome {
	case outcomeSucceeded:
		ev.Type = events.NodeSucceeded
	case outcomeSkipped:
		ev.Type = events.NodeSkipped
		ev.Error = err.Error()
	case outcomeCanceled:
		ev.Type = events.NodeCanceled
	default:
		ev.Type = events.NodeFailed
		ev.Error = err.Error()
	}
	r.publish(ev)
}

func classify(err error) string {
	switch {
	case err == nil:
		return outcomeSucceeded
	case errors.Is(err, context.Canceled):
		return outcomeCanceled
	case errors.Is(err, task.ErrSkipped):
		return outcomeSkipped
	default:
		return outcomeFailed
	}
}

func (r *run) finish() {
	defer r.cancel()

	resultType := ResultSuccess
	switch {
	case r.errored.Load():
		resultType = ResultErrored
	case r.canceled.Load():
		resultType = ResultCanceled
	}

	res := &Result{
		resultType: resultType,
		requested:  make(map[nodeid.Key]struct{}, len(r.settings.resultKeys)),
		order:      r.settings.resultKeys,
		futures:    make(map[nodeid.Key]*future.Future[any], len(r.settings.resultKeys)),
	}
	for _, key := range r.settings.resultKeys {
		res.requested[key] = struct{}{}
		if n, ok := r.exec.byKey[key]; ok {
			res.futures[key] = n.Future()
		}
	}

	r.exec.metrics.ExecutionFinished(resultType.String())
	r.publish(events.Event{Type: events.ExecutionFinished, Result: resultType.String()})
	r.logger.Info("Executor: Graph execution finished.", "result", resultType.String())

	switch {
	case resultType == ResultSuccess || r.settings.deliverResultOnFailure:
		r.result.Complete(res)
	case resultType == ResultErrored:
		r.result.Fail(&ExecutionError{Result: res})
	default:
		r.result.Cancel()
	}
}

func (r *run) publish(ev events.Event) {
	ev.RunID = r.exec.runID
	ev.Time = time.Now()
	r.exec.publisher.Publish(r.ctx, ev)
}
