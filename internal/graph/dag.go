package graph

import "sync"

// DependencyDag is an acyclic graph whose edges point from a node to its
// dependencies, paired with the lazily computed forward view.
type DependencyDag[N comparable] struct {
	views *dagViews[N]
	// reversed swaps the roles of the two views.
	reversed bool
}

type dagViews[N comparable] struct {
	dependency *Directed[N]

	once    sync.Once
	forward *Directed[N]
}

func (v *dagViews[N]) forwardGraph() *Directed[N] {
	v.once.Do(func() {
		v.forward = v.dependency.Reverse()
	})
	return v.forward
}

// NewDependencyDag validates that g is acyclic and wraps it. The returned
// error is a *CycleError when it is not.
func NewDependencyDag[N comparable](g *Directed[N]) (*DependencyDag[N], error) {
	if err := g.CheckNotCyclic(); err != nil {
		return nil, err
	}
	return &DependencyDag[N]{views: &dagViews[N]{dependency: g}}, nil
}

// DependencyGraph returns the view whose edges point to dependencies.
func (d *DependencyDag[N]) DependencyGraph() *Directed[N] {
	if d.reversed {
		return d.views.forwardGraph()
	}
	return d.views.dependency
}

// ForwardGraph returns the view whose edges point to dependents. It is
// computed on first use and shared by every view of the same DAG.
func (d *DependencyDag[N]) ForwardGraph() *Directed[N] {
	if d.reversed {
		return d.views.dependency
	}
	return d.views.forwardGraph()
}

// Reverse returns the DAG with its two views swapped. It does not copy
// either graph.
func (d *DependencyDag[N]) Reverse() *DependencyDag[N] {
	return &DependencyDag[N]{views: d.views, reversed: !d.reversed}
}

// LeafToRootNodes maps every dependency-free node reachable from roots to
// the roots depending on it.
func (d *DependencyDag[N]) LeafToRootNodes(roots []N) *LeafRoots[N] {
	return d.DependencyGraph().LeafToRootNodes(roots, nil)
}
