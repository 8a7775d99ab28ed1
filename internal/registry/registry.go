package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/vk/taskgraph/internal/nodeid"
	"github.com/vk/taskgraph/internal/task"
)

// ErrDuplicateFactory is returned when two configs share a factory key.
var ErrDuplicateFactory = errors.New("factory already registered")

// FactoryConfig describes one node factory.
type FactoryConfig struct {
	Key     nodeid.FactoryKey
	Factory task.Factory
	// FactoryExecutor runs Factory. Nil runs it on the discovering goroutine.
	FactoryExecutor task.Executor
	// NodeDefaults seed the properties of every node the factory creates.
	NodeDefaults task.NodeProperties
}

// Module contributes factories to a registry.
type Module interface {
	Register(c *Collector)
}

// Registry is an immutable set of factory configs keyed by factory key.
type Registry struct {
	factories map[nodeid.FactoryKey]FactoryConfig
}

// New builds a registry from configs. Duplicate keys and configs without a
// factory are rejected.
func New(configs ...FactoryConfig) (*Registry, error) {
	r := &Registry{factories: make(map[nodeid.FactoryKey]FactoryConfig, len(configs))}
	for _, cfg := range configs {
		if cfg.Factory == nil {
			return nil, fmt.Errorf("factory %q has no factory function", cfg.Key)
		}
		if _, exists := r.factories[cfg.Key]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateFactory, cfg.Key)
		}
		r.factories[cfg.Key] = cfg
	}
	return r, nil
}

// FromModules collects the factories of every module into a registry.
func FromModules(modules ...Module) (*Registry, error) {
	c := &Collector{}
	for _, m := range modules {
		m.Register(c)
	}
	return New(c.configs...)
}

// Lookup returns the config registered for key.
func (r *Registry) Lookup(key nodeid.FactoryKey) (FactoryConfig, bool) {
	cfg, ok := r.factories[key]
	return cfg, ok
}

// Len returns the number of registered factories.
func (r *Registry) Len() int {
	return len(r.factories)
}

// Keys returns the registered factory keys in lexical order.
func (r *Registry) Keys() []nodeid.FactoryKey {
	keys := make([]nodeid.FactoryKey, 0, len(r.factories))
	for k := range r.factories {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys
}

// Collector accumulates factory configs from modules.
type Collector struct {
	configs []FactoryConfig
}

// Register adds a full factory config.
func (c *Collector) Register(cfg FactoryConfig) {
	slog.Debug("Registering node factory.", "factory", cfg.Key.String())
	c.configs = append(c.configs, cfg)
}

// RegisterFactory adds a factory with default properties.
func (c *Collector) RegisterFactory(name string, factory task.Factory) {
	c.Register(FactoryConfig{Key: nodeid.FactoryKey{Name: name}, Factory: factory})
}
