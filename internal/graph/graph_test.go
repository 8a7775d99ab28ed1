package graph

import (
	"errors"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_ChildrenAndParents(t *testing.T) {
	b := NewBuilder[string]()
	b.AddNode("a").AddChild("b").AddChild("c")
	b.AddNode("b").AddChildren("d")
	b.AddNode("lonely")

	g := b.Build()

	assert.True(t, g.HasChildren("a"))
	assert.True(t, g.HasChildren("b"))
	assert.False(t, g.HasChildren("c"))
	assert.False(t, g.HasChildren("lonely"), "nodes without children are not parents")
	assert.False(t, g.HasChildren("unknown"))

	assert.Equal(t, []string{"b", "c"}, g.Children("a"))
	assert.Nil(t, g.Children("unknown"))
	assert.Equal(t, []string{"a", "b"}, g.Parents())
	assert.Equal(t, []string{"a", "b", "c", "d", "lonely"}, g.Nodes())
	assert.Equal(t, 3, g.EdgeCount())
}

func TestBuilder_NestedChildren(t *testing.T) {
	b := NewBuilder[string]()
	b.AddNodeWith("root", func(root *ChildrenBuilder[string]) {
		root.AddChildWith("child1", func(c *ChildrenBuilder[string]) {
			c.AddChild("child1.child1")
		})
		root.AddChild("child2")
	})

	g := b.Build()

	assert.Equal(t, []string{"child1", "child2"}, g.Children("root"))
	assert.Equal(t, []string{"child1.child1"}, g.Children("child1"))
}

func TestBuilder_SnapshotIsImmutable(t *testing.T) {
	b := NewBuilder[string]()
	b.AddNode("a").AddChild("b")
	g := b.Build()

	b.AddNode("a").AddChild("c")
	b.AddNode("x").AddChild("y")

	assert.Equal(t, []string{"b"}, g.Children("a"))
	assert.False(t, g.HasChildren("x"))

	g.Children("a")[0] = "mutated"
	assert.Equal(t, []string{"b"}, g.Children("a"), "returned slices are copies")
}

func TestDirected_Reverse(t *testing.T) {
	b := NewBuilder[string]()
	b.AddNodeWithChildren("a", "b", "c")
	b.AddNodeWithChildren("b", "c")

	r := b.Build().Reverse()

	assert.Equal(t, []string{"a"}, r.Children("b"))
	assert.ElementsMatch(t, []string{"a", "b"}, r.Children("c"))
	assert.False(t, r.HasChildren("a"))
}

func TestDirected_CheckNotCyclic(t *testing.T) {
	testCases := []struct {
		name      string
		build     func(b *Builder[string])
		wantCycle []string
	}{
		{
			name: "diamond is acyclic",
			build: func(b *Builder[string]) {
				b.AddNodeWithChildren("a", "b", "c")
				b.AddNodeWithChildren("b", "d")
				b.AddNodeWithChildren("c", "d")
			},
		},
		{
			name: "self loop",
			build: func(b *Builder[string]) {
				b.AddNodeWithChildren("a", "a")
			},
			wantCycle: []string{"a", "a"},
		},
		{
			name: "three node cycle behind a prefix",
			build: func(b *Builder[string]) {
				b.AddNodeWithChildren("start", "x")
				b.AddNodeWithChildren("x", "y")
				b.AddNodeWithChildren("y", "z")
				b.AddNodeWithChildren("z", "x")
			},
			wantCycle: []string{"x", "y", "z", "x"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			b := NewBuilder[string]()
			tc.build(b)

			err := b.Build().CheckNotCyclic()

			if tc.wantCycle == nil {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrCyclic))
			var cycleErr *CycleError
			require.ErrorAs(t, err, &cycleErr)
			if diff := cmp.Diff(tc.wantCycle, cycleErr.Path); diff != "" {
				t.Errorf("cycle path mismatch (-want +got):\n%s", diff)
			}
			for _, n := range tc.wantCycle {
				assert.Contains(t, err.Error(), n)
			}
		})
	}
}

func TestDirected_CheckNotCyclic_DeepChain(t *testing.T) {
	b := NewBuilder[int]()
	for i := 0; i < 100000; i++ {
		b.AddNode(i).AddChild(i + 1)
	}
	assert.NoError(t, b.Build().CheckNotCyclic())
}

func TestDirected_ReachableNodes(t *testing.T) {
	b := NewBuilder[string]()
	b.AddNodeWithChildren("a", "b")
	b.AddNodeWithChildren("b", "c")
	b.AddNodeWithChildren("x", "y")
	g := b.Build()

	assert.Equal(t, []string{"a", "b", "c"}, g.ReachableNodes("a").Items())
	assert.Equal(t, []string{"b", "x", "c", "y"}, g.ReachableNodes("b", "x").Items())
	assert.Equal(t, []string{"ghost"}, g.ReachableNodes("ghost").Items())
}

func TestDirected_LeafToRootNodes(t *testing.T) {
	b := NewBuilder[string]()
	b.AddNodeWithChildren("root1", "common", "leaf1")
	b.AddNodeWithChildren("root2", "common")
	b.AddNodeWithChildren("common", "leaf2", "leaf3")
	g := b.Build()

	res := g.LeafToRootNodes([]string{"root1", "root2", "leafroot"}, nil)

	assert.Equal(t, []string{"leaf2", "leaf3", "leaf1", "leafroot"}, res.Leaves)
	assert.Equal(t, []string{"root1", "root2"}, res.Roots("leaf2").Items())
	assert.Equal(t, []string{"root1"}, res.Roots("leaf1").Items())
	assert.Equal(t, []string{"leafroot"}, res.Roots("leafroot").Items())
	assert.Nil(t, res.Roots("common"))
}

func TestDirected_LeafToRootNodes_SortedSets(t *testing.T) {
	b := NewBuilder[string]()
	b.AddNodeWithChildren("z", "leaf")
	b.AddNodeWithChildren("a", "leaf")
	g := b.Build()

	res := g.LeafToRootNodes([]string{"z", "a"}, NewSortedSet(func(x, y string) bool { return x < y }))

	assert.Equal(t, []string{"a", "z"}, res.Roots("leaf").Items())
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}

func TestSortRecursively_DoubleSplit(t *testing.T) {
	src := []string{"root", "child1", "child2", "child1.child1", "child1.child2", "child2.child1", "child2.child2"}
	orders := map[string][]int{
		"forward":  {0, 1, 2, 3, 4, 5, 6},
		"backward": {6, 5, 4, 3, 2, 1, 0},
		"random":   {3, 4, 1, 6, 5, 0, 2},
	}

	b := NewBuilder[string]()
	b.AddNodeWith("root", func(root *ChildrenBuilder[string]) {
		for _, name := range []string{"child1", "child2"} {
			root.AddChildWith(name, func(c *ChildrenBuilder[string]) {
				c.AddChildren(name+".child1", name+".child2")
			})
		}
	})
	g := b.Build()

	for name, order := range orders {
		t.Run(name, func(t *testing.T) {
			toSort := make([]string, 0, len(order))
			for _, i := range order {
				toSort = append(toSort, src[i])
			}

			sorted := SortRecursively(g, []string{"root"}, toSort)

			assert.ElementsMatch(t, toSort, sorted)
			before := func(first, second string) {
				assert.Less(t, indexOf(sorted, first), indexOf(sorted, second), "%s before %s in %v", first, second, sorted)
			}
			for _, n := range src[1:] {
				before(n, "root")
			}
			before("child1.child1", "child1")
			before("child1.child2", "child1")
			before("child2.child1", "child2")
			before("child2.child2", "child2")
			before("child1", "child2.child1")
			before("child1", "child2")
		})
	}
}

func TestSortRecursively_Loop(t *testing.T) {
	b := NewBuilder[string]()
	b.AddNodeWith("a", func(a *ChildrenBuilder[string]) {
		a.AddChildWith("b", func(c *ChildrenBuilder[string]) {
			c.AddChild("c")
		})
	})
	b.AddNode("c").AddChild("a")
	g := b.Build()

	for _, toSort := range [][]string{{"a", "b", "c"}, {"c", "b", "a"}, {"b", "a", "c"}} {
		assert.Equal(t, []string{"c", "b", "a"}, SortRecursively(g, []string{"a"}, toSort))
	}
}

func TestSortRecursively_UnreachableKeepOrder(t *testing.T) {
	b := NewBuilder[string]()
	b.AddNodeWithChildren("root", "x")
	g := b.Build()

	sorted := SortRecursively(g, []string{"root"}, []string{"island2", "root", "island1", "x"})

	assert.Equal(t, []string{"x", "root", "island2", "island1"}, sorted)
}

func TestOrderedSet(t *testing.T) {
	s := NewOrderedSet("a", "b", "c")
	assert.False(t, s.Add("a"))
	assert.True(t, s.Remove("b"))
	assert.False(t, s.Remove("b"))
	assert.Equal(t, []string{"a", "c"}, s.Items())

	first, ok := s.PopFirst()
	require.True(t, ok)
	assert.Equal(t, "a", first)
	assert.True(t, s.Contains("c"))
	assert.Equal(t, 1, s.Len())
}

// adjacency returns the sorted children of every node of g.
func adjacency(g *Directed[string]) map[string][]string {
	adj := make(map[string][]string)
	for _, n := range g.Nodes() {
		children := append([]string{}, g.Children(n)...)
		sort.Strings(children)
		adj[n] = children
	}
	return adj
}

func TestDirected_ReverseTwiceRestoresAdjacency(t *testing.T) {
	testCases := []struct {
		name  string
		build func(b *Builder[string])
	}{
		{name: "empty", build: func(*Builder[string]) {}},
		{name: "single node", build: func(b *Builder[string]) { b.AddNode("a") }},
		{name: "chain", build: func(b *Builder[string]) {
			b.AddNodeWithChildren("a", "b")
			b.AddNodeWithChildren("b", "c")
		}},
		{name: "diamond", build: func(b *Builder[string]) {
			b.AddNodeWithChildren("a", "b", "c")
			b.AddNodeWithChildren("b", "d")
			b.AddNodeWithChildren("c", "d")
		}},
		{name: "disconnected with isolated node", build: func(b *Builder[string]) {
			b.AddNodeWithChildren("a", "b", "c")
			b.AddNodeWithChildren("x", "y")
			b.AddNode("lonely")
		}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// --- Arrange ---
			b := NewBuilder[string]()
			tc.build(b)
			g := b.Build()

			// --- Act ---
			twice := g.Reverse().Reverse()

			// --- Assert ---
			assert.ElementsMatch(t, g.Nodes(), twice.Nodes())
			assert.Equal(t, g.EdgeCount(), twice.EdgeCount())
			if diff := cmp.Diff(adjacency(g), adjacency(twice)); diff != "" {
				t.Errorf("adjacency mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
