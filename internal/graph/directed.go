package graph

// Directed is an immutable directed graph. It is safe for concurrent reads.
type Directed[N comparable] struct {
	nodes    *OrderedSet[N]
	parents  *OrderedSet[N]
	children map[N]*OrderedSet[N]
}

// HasChildren reports whether n has at least one outgoing edge. Unknown
// nodes have no children.
func (g *Directed[N]) HasChildren(n N) bool {
	_, ok := g.children[n]
	return ok
}

// Children returns the children of n in insertion order, or nil when n is
// unknown or a leaf.
func (g *Directed[N]) Children(n N) []N {
	set, ok := g.children[n]
	if !ok {
		return nil
	}
	return set.Items()
}

// Parents returns every node with at least one child, in insertion order.
func (g *Directed[N]) Parents() []N {
	return g.parents.Items()
}

// Nodes returns every node mentioned while building the graph.
func (g *Directed[N]) Nodes() []N {
	return g.nodes.Items()
}

// Contains reports whether n was mentioned while building the graph.
func (g *Directed[N]) Contains(n N) bool {
	return g.nodes.Contains(n)
}

// Reverse returns a new graph with every edge flipped.
func (g *Directed[N]) Reverse() *Directed[N] {
	b := NewBuilder[N]()
	for _, n := range g.nodes.items {
		b.nodes.Add(n)
	}
	for _, parent := range g.parents.items {
		for _, child := range g.children[parent].items {
			b.AddNode(child).AddChild(parent)
		}
	}
	return b.Build()
}

// EdgeCount returns the number of edges in the graph.
func (g *Directed[N]) EdgeCount() int {
	count := 0
	for _, set := range g.children {
		count += set.Len()
	}
	return count
}

func (g *Directed[N]) childItems(n N) []N {
	set, ok := g.children[n]
	if !ok {
		return nil
	}
	return set.items
}
