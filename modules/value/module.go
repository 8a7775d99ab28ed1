package value

import (
	"context"
	"fmt"

	"github.com/vk/taskgraph/internal/registry"
	"github.com/vk/taskgraph/internal/task"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// NewValue returns the `value` parameter of the node unchanged.
func NewValue(_ context.Context, args *task.CreateArgs) (task.Func, error) {
	v, ok := args.Spec.Params["value"]
	if !ok {
		return nil, fmt.Errorf("node %s: missing required param \"value\"", args.Key)
	}
	return func(context.Context) (any, error) {
		return v, nil
	}, nil
}

// Register registers the factory with the engine.
func (m *Module) Register(c *registry.Collector) {
	c.RegisterFactory("value", NewValue)
}
