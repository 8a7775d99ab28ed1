// Package graph provides the immutable directed graphs the engine is built on.
//
// # Model
//
// A Directed graph maps each node to an insertion-ordered set of children.
// Nodes without children are not stored as parents, so HasChildren is a
// single map lookup. Graphs are built with a Builder and frozen by Build;
// mutating the builder afterwards never affects a built graph.
//
// # Dependency DAGs
//
// A DependencyDag wraps an acyclic Directed graph whose edges point from a
// node to the nodes it depends on. The forward view (dependency to dependent)
// is computed once, on first use, and Reverse swaps the two views without
// copying either.
//
// # Traversal
//
// All traversals use explicit stacks or queues, never recursion, so deep
// chains cannot exhaust the goroutine stack.
package graph
