package graph

// Builder accumulates edges for a Directed graph. A Builder is not safe for
// concurrent use.
type Builder[N comparable] struct {
	nodes    *OrderedSet[N]
	children map[N]*OrderedSet[N]
}

// NewBuilder returns an empty graph builder.
func NewBuilder[N comparable]() *Builder[N] {
	return &Builder[N]{
		nodes:    NewOrderedSet[N](),
		children: make(map[N]*OrderedSet[N]),
	}
}

// AddNode registers n and returns a handle for declaring its children.
// Adding the same node twice returns a handle to the same child set.
func (b *Builder[N]) AddNode(n N) *ChildrenBuilder[N] {
	b.nodes.Add(n)
	return &ChildrenBuilder[N]{builder: b, parent: n}
}

// AddNodeWith registers n and lets fn declare its children.
func (b *Builder[N]) AddNodeWith(n N, fn func(*ChildrenBuilder[N])) {
	fn(b.AddNode(n))
}

// AddNodeWithChildren registers n together with the given children.
func (b *Builder[N]) AddNodeWithChildren(n N, children ...N) {
	b.AddNode(n).AddChildren(children...)
}

// Build returns an immutable snapshot of the edges added so far. Parents
// whose child set is empty are not recorded as parents.
func (b *Builder[N]) Build() *Directed[N] {
	g := &Directed[N]{
		nodes:    b.nodes.clone(),
		parents:  NewOrderedSet[N](),
		children: make(map[N]*OrderedSet[N], len(b.children)),
	}
	for _, n := range b.nodes.items {
		set, ok := b.children[n]
		if !ok || set.Len() == 0 {
			continue
		}
		g.parents.Add(n)
		g.children[n] = set.clone()
	}
	return g
}

func (b *Builder[N]) childSet(parent N) *OrderedSet[N] {
	set, ok := b.children[parent]
	if !ok {
		set = NewOrderedSet[N]()
		b.children[parent] = set
	}
	return set
}

// ChildrenBuilder declares the children of one parent node.
type ChildrenBuilder[N comparable] struct {
	builder *Builder[N]
	parent  N
}

// Parent returns the node whose children this builder declares.
func (c *ChildrenBuilder[N]) Parent() N {
	return c.parent
}

// AddChild adds an edge from the parent to child.
func (c *ChildrenBuilder[N]) AddChild(child N) *ChildrenBuilder[N] {
	c.builder.childSet(c.parent).Add(child)
	c.builder.nodes.Add(child)
	return c
}

// AddChildWith adds an edge to child and lets fn declare the child's own
// children.
func (c *ChildrenBuilder[N]) AddChildWith(child N, fn func(*ChildrenBuilder[N])) *ChildrenBuilder[N] {
	c.AddChild(child)
	fn(&ChildrenBuilder[N]{builder: c.builder, parent: child})
	return c
}

// AddChildren adds an edge from the parent to every given child.
func (c *ChildrenBuilder[N]) AddChildren(children ...N) *ChildrenBuilder[N] {
	for _, child := range children {
		c.AddChild(child)
	}
	return c
}
