package sum

import (
	"context"
	"fmt"

	"github.com/vk/taskgraph/internal/registry"
	"github.com/vk/taskgraph/internal/task"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// NewSum adds the numeric outputs of the node's inputs. The result is an
// int when every input is an int, a float64 otherwise.
func NewSum(_ context.Context, args *task.CreateArgs) (task.Func, error) {
	refs := args.BindSpecInputs()
	return func(context.Context) (any, error) {
		var ints int
		var floats float64
		isFloat := false
		for _, ref := range refs {
			v, err := ref.Consume()
			if err != nil {
				return nil, err
			}
			switch n := v.(type) {
			case int:
				ints += n
			case int64:
				ints += int(n)
			case float64:
				floats += n
				isFloat = true
			default:
				return nil, fmt.Errorf("%w: input %s is %T, not a number", task.ErrInputType, ref.Key(), v)
			}
		}
		if isFloat {
			return floats + float64(ints), nil
		}
		return ints, nil
	}, nil
}

// Register registers the factory with the engine.
func (m *Module) Register(c *registry.Collector) {
	c.RegisterFactory("sum", NewSum)
}
