// Package restriction decides when nodes become eligible for scheduling,
// independently of whether their dependencies are satisfied.
package restriction

import (
	"sync"

	"github.com/vk/taskgraph/internal/graph"
	"github.com/vk/taskgraph/internal/nodeid"
)

// Node pairs a node key with the callback admitting it for scheduling.
type Node struct {
	Key     nodeid.Key
	Release func()
}

// Strategy receives completion notices for the nodes it restricts.
type Strategy interface {
	SetNodeComputed(key nodeid.Key)
}

// Factory builds a Strategy for one execution. BuildStrategy may release
// nodes before it returns.
type Factory interface {
	BuildStrategy(dag *graph.DependencyDag[nodeid.Key], nodes []Node) Strategy
}

// FactoryFunc adapts a function to Factory.
type FactoryFunc func(dag *graph.DependencyDag[nodeid.Key], nodes []Node) Strategy

func (f FactoryFunc) BuildStrategy(dag *graph.DependencyDag[nodeid.Key], nodes []Node) Strategy {
	return f(dag, nodes)
}

// RunOnce returns a function calling f on its first invocation only.
func RunOnce(f func()) func() {
	var once sync.Once
	return func() { once.Do(f) }
}

type eager struct{}

// Eager returns the non-restricting factory: every node is released while
// the strategy is built.
func Eager() Factory {
	return eager{}
}

func (eager) BuildStrategy(_ *graph.DependencyDag[nodeid.Key], nodes []Node) Strategy {
	for _, n := range nodes {
		n.Release()
	}
	return noopStrategy{}
}

type noopStrategy struct{}

func (noopStrategy) SetNodeComputed(nodeid.Key) {}
