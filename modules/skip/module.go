package skip

import (
	"context"

	"github.com/vk/taskgraph/internal/registry"
	"github.com/vk/taskgraph/internal/task"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// NewSkip returns a computation that skips with the `reason` param.
func NewSkip(_ context.Context, args *task.CreateArgs) (task.Func, error) {
	reason, _ := args.Spec.Param("reason").(string)
	if reason == "" {
		reason = "skipped on request"
	}
	return func(context.Context) (any, error) {
		return nil, task.Skip(reason)
	}, nil
}

// Register registers the factory with the engine.
func (m *Module) Register(c *registry.Collector) {
	c.RegisterFactory("skip", NewSkip)
}
