package graph

// Node visitation states for the depth-first searches below.
const (
	unvisited = iota
	onPath
	done
)

type frame[N comparable] struct {
	node     N
	children []N
	next     int
}

// CheckNotCyclic returns a *CycleError if the graph contains a cycle. The
// error lists the nodes of the first cycle found, in edge order.
func (g *Directed[N]) CheckNotCyclic() error {
	state := make(map[N]int, g.nodes.Len())
	for _, start := range g.parents.items {
		if state[start] != unvisited {
			continue
		}
		var path []N
		stack := []*frame[N]{{node: start, children: g.childItems(start)}}
		state[start] = onPath
		path = append(path, start)

		for len(stack) > 0 {
			top := stack[len(stack)-1]
			if top.next == len(top.children) {
				state[top.node] = done
				stack = stack[:len(stack)-1]
				path = path[:len(path)-1]
				continue
			}
			child := top.children[top.next]
			top.next++

			switch state[child] {
			case onPath:
				for i, n := range path {
					if n == child {
						return newCycleError(path[i:], child)
					}
				}
			case unvisited:
				state[child] = onPath
				path = append(path, child)
				stack = append(stack, &frame[N]{node: child, children: g.childItems(child)})
			}
		}
	}
	return nil
}

// ReachableNodes returns every node reachable from the given roots, roots
// included, in breadth-first discovery order. Unknown roots are returned
// as-is.
func (g *Directed[N]) ReachableNodes(roots ...N) *OrderedSet[N] {
	result := NewOrderedSet[N]()
	queue := make([]N, 0, len(roots))
	for _, r := range roots {
		if result.Add(r) {
			queue = append(queue, r)
		}
	}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, child := range g.childItems(n) {
			if result.Add(child) {
				queue = append(queue, child)
			}
		}
	}
	return result
}

// LeafRoots maps leaves to the roots they are reachable from.
type LeafRoots[N comparable] struct {
	// Leaves lists the leaves in the order they were first reached.
	Leaves []N
	roots  map[N]Set[N]
}

// Roots returns the roots from which leaf is reachable, or nil.
func (l *LeafRoots[N]) Roots(leaf N) Set[N] {
	return l.roots[leaf]
}

// Len returns the number of leaves.
func (l *LeafRoots[N]) Len() int {
	return len(l.Leaves)
}

// LeafToRootNodes finds, for every leaf reachable from the given roots, the
// set of those roots from which it can be reached. A root without children
// is its own leaf. newSet chooses the container of each root set; nil means
// NewOrderedSet.
func (g *Directed[N]) LeafToRootNodes(roots []N, newSet func() Set[N]) *LeafRoots[N] {
	if newSet == nil {
		newSet = func() Set[N] { return NewOrderedSet[N]() }
	}
	result := &LeafRoots[N]{roots: make(map[N]Set[N])}

	for _, root := range roots {
		seen := map[N]struct{}{root: {}}
		stack := []N{root}
		for len(stack) > 0 {
			n := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			children := g.childItems(n)
			if len(children) == 0 {
				set, ok := result.roots[n]
				if !ok {
					set = newSet()
					result.roots[n] = set
					result.Leaves = append(result.Leaves, n)
				}
				set.Add(root)
				continue
			}
			for i := len(children) - 1; i >= 0; i-- {
				child := children[i]
				if _, ok := seen[child]; ok {
					continue
				}
				seen[child] = struct{}{}
				stack = append(stack, child)
			}
		}
	}
	return result
}

// SortRecursively orders nodes so that every node comes after the nodes it
// reaches from the given roots, visiting children depth first in insertion
// order. Nodes that no root reaches keep their relative order at the end.
// Cycles are tolerated; a node already on the path is not revisited.
func SortRecursively[N comparable](g *Directed[N], roots []N, nodes []N) []N {
	wanted := NewOrderedSet(nodes...)
	result := make([]N, 0, wanted.Len())
	state := make(map[N]int)

	for _, root := range roots {
		if state[root] != unvisited {
			continue
		}
		state[root] = onPath
		stack := []*frame[N]{{node: root, children: g.childItems(root)}}
		for len(stack) > 0 {
			top := stack[len(stack)-1]
			if top.next == len(top.children) {
				state[top.node] = done
				if wanted.Contains(top.node) {
					result = append(result, top.node)
				}
				stack = stack[:len(stack)-1]
				continue
			}
			child := top.children[top.next]
			top.next++
			if state[child] == unvisited {
				state[child] = onPath
				stack = append(stack, &frame[N]{node: child, children: g.childItems(child)})
			}
		}
	}

	for _, n := range wanted.items {
		if state[n] == unvisited {
			result = append(result, n)
		}
	}
	return result
}
