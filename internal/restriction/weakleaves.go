package restriction

import (
	"fmt"
	"sync"

	"github.com/vk/taskgraph/internal/graph"
	"github.com/vk/taskgraph/internal/nodeid"
)

// QueueSorter orders the end nodes before admission starts.
type QueueSorter func(endNodes []nodeid.Key) []nodeid.Key

// Option configures WeakLeavesOfEndNodes.
type Option func(*weakLeaves)

// WithQueueSorter replaces the default discovery ordering of end nodes.
func WithQueueSorter(sorter QueueSorter) Option {
	return func(w *weakLeaves) {
		w.queueSorter = sorter
	}
}

type weakLeaves struct {
	maxRetainedLeaves int
	queueSorter       QueueSorter
}

// WeakLeavesOfEndNodes returns a factory bounding how many leaves (nodes
// without dependencies) are retained by end nodes (nodes nothing depends
// on) that were admitted but are not computed yet. Non-leaf nodes are
// released immediately. Leaves are released one end node at a time,
// preferring end nodes that already have some of their leaves released. At
// least one end node is always open, so a single end node releases all of
// its leaves at once whatever the budget.
func WeakLeavesOfEndNodes(maxRetainedLeaves int, opts ...Option) (Factory, error) {
	if maxRetainedLeaves < 1 {
		return nil, fmt.Errorf("maxRetainedLeaves must be at least 1, got %d", maxRetainedLeaves)
	}
	w := &weakLeaves{
		maxRetainedLeaves: maxRetainedLeaves,
		queueSorter:       func(keys []nodeid.Key) []nodeid.Key { return keys },
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

func (w *weakLeaves) BuildStrategy(dag *graph.DependencyDag[nodeid.Key], nodes []Node) Strategy {
	s := newWeakLeavesStrategy(w.maxRetainedLeaves, dag, nodes, w.queueSorter)
	s.mu.Lock()
	releases := s.scheduleLocked(nil)
	s.mu.Unlock()
	runAll(releases)
	return s
}

type keySet map[nodeid.Key]struct{}

type weakLeavesStrategy struct {
	maxRetainedLeaves int

	mu         sync.Mutex
	leafNodes  map[nodeid.Key]func()
	endToLeafs *graph.LeafRoots[nodeid.Key]
	leafToEnds *graph.LeafRoots[nodeid.Key]

	endNodeQueue          *graph.OrderedSet[nodeid.Key]
	computedEndNodes      keySet
	releasedNotComputed   keySet
	retainingNotComputed  *graph.OrderedSet[nodeid.Key]
	scheduledLeafRetainer map[nodeid.Key]keySet
}

func newWeakLeavesStrategy(max int, dag *graph.DependencyDag[nodeid.Key], nodes []Node, sorter QueueSorter) *weakLeavesStrategy {
	deps := dag.DependencyGraph()
	forward := dag.ForwardGraph()

	leafNodes := make(map[nodeid.Key]func())
	var leafKeys []nodeid.Key
	endNodes := graph.NewOrderedSet[nodeid.Key]()
	for _, n := range nodes {
		if deps.HasChildren(n.Key) {
			n.Release()
		} else {
			leafNodes[n.Key] = RunOnce(n.Release)
			leafKeys = append(leafKeys, n.Key)
		}
		if !forward.HasChildren(n.Key) {
			endNodes.Add(n.Key)
		}
	}
	for _, key := range deps.Parents() {
		if !forward.HasChildren(key) {
			endNodes.Add(key)
		}
	}

	sortedLeafs := graph.SortRecursively(deps, endNodes.Items(), leafKeys)
	endToLeafs := forward.LeafToRootNodes(sortedLeafs, nil)

	return &weakLeavesStrategy{
		maxRetainedLeaves:     max,
		leafNodes:             leafNodes,
		endToLeafs:            endToLeafs,
		leafToEnds:            deps.LeafToRootNodes(endNodes.Items(), nil),
		endNodeQueue:          graph.NewOrderedSet(sorter(append([]nodeid.Key(nil), endToLeafs.Leaves...))...),
		computedEndNodes:      make(keySet),
		releasedNotComputed:   make(keySet),
		retainingNotComputed:  graph.NewOrderedSet[nodeid.Key](),
		scheduledLeafRetainer: make(map[nodeid.Key]keySet),
	}
}

func runAll(releases []func()) {
	for _, release := range releases {
		release()
	}
}

func (s *weakLeavesStrategy) pollNextEndNode() (nodeid.Key, bool) {
	if candidate, ok := s.retainingNotComputed.PopFirst(); ok {
		s.endNodeQueue.Remove(candidate)
		return candidate, true
	}
	return s.endNodeQueue.PopFirst()
}

func (s *weakLeavesStrategy) scheduleOne(releases []func()) []func() {
	endNode, ok := s.pollNextEndNode()
	if !ok {
		return releases
	}
	if _, computed := s.computedEndNodes[endNode]; !computed {
		s.releasedNotComputed[endNode] = struct{}{}
	}

	leafs := s.endToLeafs.Roots(endNode)
	if leafs == nil {
		return releases
	}
	for _, leaf := range leafs.Items() {
		s.addScheduledLeaf(leaf)
		if release, ok := s.leafNodes[leaf]; ok {
			delete(s.leafNodes, leaf)
			releases = append(releases, release)
		}
	}
	return releases
}

func (s *weakLeavesStrategy) addScheduledLeaf(leaf nodeid.Key) {
	retainers, ok := s.scheduledLeafRetainer[leaf]
	if !ok {
		retainers = make(keySet)
		s.scheduledLeafRetainer[leaf] = retainers
	}
	if ends := s.leafToEnds.Roots(leaf); ends != nil {
		for _, end := range ends.Items() {
			if _, computed := s.computedEndNodes[end]; computed {
				continue
			}
			if _, released := s.releasedNotComputed[end]; !released {
				s.retainingNotComputed.Add(end)
			}
			retainers[end] = struct{}{}
		}
	}
	if len(retainers) == 0 {
		delete(s.scheduledLeafRetainer, leaf)
	}
}

func (s *weakLeavesStrategy) removeLeaf(endNode, leaf nodeid.Key) {
	retainers, ok := s.scheduledLeafRetainer[leaf]
	if !ok {
		return
	}
	delete(retainers, endNode)
	if len(retainers) == 0 {
		delete(s.scheduledLeafRetainer, leaf)
	}
}

func (s *weakLeavesStrategy) scheduleLocked(releases []func()) []func() {
	if len(s.releasedNotComputed) == 0 {
		releases = s.scheduleOne(releases)
	}
	for s.endNodeQueue.Len() > 0 && len(s.scheduledLeafRetainer) < s.maxRetainedLeaves {
		releases = s.scheduleOne(releases)
	}
	return releases
}

// SetNodeComputed frees the leaves retained by a computed end node and
// admits further end nodes. Notices for other nodes are ignored.
func (s *weakLeavesStrategy) SetNodeComputed(key nodeid.Key) {
	leafs := s.endToLeafs.Roots(key)
	if leafs == nil {
		return
	}

	s.mu.Lock()
	s.computedEndNodes[key] = struct{}{}
	delete(s.releasedNotComputed, key)
	s.retainingNotComputed.Remove(key)
	for _, leaf := range leafs.Items() {
		s.removeLeaf(key, leaf)
	}
	releases := s.scheduleLocked(nil)
	s.mu.Unlock()

	runAll(releases)
}
