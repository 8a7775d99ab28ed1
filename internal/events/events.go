// Package events publishes node lifecycle events of graph executions.
package events

import (
	"context"
	"time"

	"github.com/vk/taskgraph/internal/ctxlog"
)

// Type names a lifecycle transition.
type Type string

const (
	NodeScheduled     Type = "node_scheduled"
	NodeSucceeded     Type = "node_succeeded"
	NodeFailed        Type = "node_failed"
	NodeSkipped       Type = "node_skipped"
	NodeCanceled      Type = "node_canceled"
	ExecutionFinished Type = "execution_finished"
)

// Event is one lifecycle transition of a run.
type Event struct {
	RunID  string    `json:"run_id"`
	Type   Type      `json:"type"`
	Node   string    `json:"node,omitempty"`
	Error  string    `json:"error,omitempty"`
	Result string    `json:"result,omitempty"`
	Time   time.Time `json:"time"`
}

// Publisher receives events. Publish must not block for long; it is called
// from node completion paths.
type Publisher interface {
	Publish(ctx context.Context, ev Event)
}

// LogPublisher writes events to the context logger.
type LogPublisher struct{}

func (LogPublisher) Publish(ctx context.Context, ev Event) {
	logger := ctxlog.FromContext(ctx)
	attrs := []any{"run_id", ev.RunID, "event", string(ev.Type)}
	if ev.Node != "" {
		attrs = append(attrs, "node", ev.Node)
	}
	if ev.Error != "" {
		attrs = append(attrs, "error", ev.Error)
	}
	if ev.Result != "" {
		attrs = append(attrs, "result", ev.Result)
	}
	switch ev.Type {
	case NodeFailed:
		logger.Warn("Node event.", attrs...)
	case ExecutionFinished:
		logger.Info("Execution event.", attrs...)
	default:
		logger.Debug("Node event.", attrs...)
	}
}

// Multi fans events out to several publishers.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, ev Event) {
	for _, p := range m {
		p.Publish(ctx, ev)
	}
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, Event) {}
