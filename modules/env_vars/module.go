package env_vars

import (
	"context"
	"os"
	"strings"

	"github.com/vk/taskgraph/internal/registry"
	"github.com/vk/taskgraph/internal/task"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// NewEnvVars returns the process environment as a map. The optional
// `prefix` param keeps only variables starting with it.
func NewEnvVars(_ context.Context, args *task.CreateArgs) (task.Func, error) {
	prefix, _ := args.Spec.Param("prefix").(string)
	return func(context.Context) (any, error) {
		envMap := make(map[string]string)
		for _, e := range os.Environ() {
			pair := strings.SplitN(e, "=", 2)
			if len(pair) == 2 && strings.HasPrefix(pair[0], prefix) {
				envMap[pair[0]] = pair[1]
			}
		}
		return envMap, nil
	}, nil
}

// Register registers the factory with the engine.
func (m *Module) Register(c *registry.Collector) {
	c.RegisterFactory("env_vars", NewEnvVars)
}
