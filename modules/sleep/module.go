package sleep

import (
	"context"
	"fmt"
	"time"

	"github.com/vk/taskgraph/internal/ctxlog"
	"github.com/vk/taskgraph/internal/registry"
	"github.com/vk/taskgraph/internal/task"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// NewSleep waits for the `duration` param (a Go duration string) and then
// returns the optional `value` param. Cancellation interrupts the wait.
func NewSleep(_ context.Context, args *task.CreateArgs) (task.Func, error) {
	raw, ok := args.Spec.Param("duration").(string)
	if !ok {
		return nil, fmt.Errorf("node %s: param \"duration\" must be a string", args.Key)
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return nil, fmt.Errorf("node %s: %w", args.Key, err)
	}
	value := args.Spec.Param("value")
	key := args.Key

	return func(ctx context.Context) (any, error) {
		ctxlog.FromContext(ctx).Debug("Sleeping.", "node", key.String(), "duration", d)
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-timer.C:
			return value, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}, nil
}

// Register registers the factory with the engine.
func (m *Module) Register(c *registry.Collector) {
	c.RegisterFactory("sleep", NewSleep)
}
