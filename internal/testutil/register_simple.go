package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/vk/taskgraph/internal/registry"
	"github.com/vk/taskgraph/internal/task"
)

// SimpleModule is a test helper for easily creating a mock module that
// registers a single factory.
type SimpleModule struct {
	Name    string
	Factory task.Factory
}

// Register implements the registry.Module interface.
func (m *SimpleModule) Register(c *registry.Collector) {
	if m.Name != "" && m.Factory != nil {
		c.RegisterFactory(m.Name, m.Factory)
	}
}

// SpyModule registers the "spy" factory. Spy nodes wait for their inputs and
// return their argument; the module remembers which spies ran.
type SpyModule struct {
	mu  sync.Mutex
	ran map[string]int
}

// Register implements the registry.Module interface.
func (m *SpyModule) Register(c *registry.Collector) {
	c.RegisterFactory("spy", func(_ context.Context, args *task.CreateArgs) (task.Func, error) {
		id := fmt.Sprint(args.Arg())
		refs := args.BindSpecInputs()
		return func(context.Context) (any, error) {
			for _, ref := range refs {
				if _, err := ref.Consume(); err != nil {
					return nil, err
				}
			}
			m.mu.Lock()
			defer m.mu.Unlock()
			if m.ran == nil {
				m.ran = make(map[string]int)
			}
			m.ran[id]++
			return id, nil
		}, nil
	})
}

// Runs returns how often the spy with the given id ran.
func (m *SpyModule) Runs(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ran[id]
}
