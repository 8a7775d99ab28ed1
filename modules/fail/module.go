package fail

import (
	"context"
	"errors"

	"github.com/vk/taskgraph/internal/registry"
	"github.com/vk/taskgraph/internal/task"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// NewFail returns a computation failing with the `message` param.
func NewFail(_ context.Context, args *task.CreateArgs) (task.Func, error) {
	msg, _ := args.Spec.Param("message").(string)
	if msg == "" {
		msg = "failed on purpose"
	}
	return func(context.Context) (any, error) {
		return nil, errors.New(msg)
	}, nil
}

// Register registers the factory with the engine.
func (m *Module) Register(c *registry.Collector) {
	c.RegisterFactory("fail", NewFail)
}
