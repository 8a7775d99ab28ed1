package graph

import "sort"

// Set is the container used by traversal results. Implementations decide
// the iteration order of Items.
type Set[N comparable] interface {
	Add(n N) bool
	Remove(n N) bool
	Contains(n N) bool
	Len() int
	Items() []N
}

// OrderedSet is a Set iterating in insertion order.
type OrderedSet[N comparable] struct {
	index map[N]int
	items []N
}

// NewOrderedSet returns an empty insertion-ordered set holding the given items.
func NewOrderedSet[N comparable](items ...N) *OrderedSet[N] {
	s := &OrderedSet[N]{index: make(map[N]int, len(items))}
	for _, n := range items {
		s.Add(n)
	}
	return s
}

func (s *OrderedSet[N]) Add(n N) bool {
	if _, ok := s.index[n]; ok {
		return false
	}
	s.index[n] = len(s.items)
	s.items = append(s.items, n)
	return true
}

func (s *OrderedSet[N]) Remove(n N) bool {
	i, ok := s.index[n]
	if !ok {
		return false
	}
	delete(s.index, n)
	s.items = append(s.items[:i], s.items[i+1:]...)
	for j := i; j < len(s.items); j++ {
		s.index[s.items[j]] = j
	}
	return true
}

func (s *OrderedSet[N]) Contains(n N) bool {
	_, ok := s.index[n]
	return ok
}

func (s *OrderedSet[N]) Len() int {
	return len(s.items)
}

// Items returns a copy of the elements in insertion order.
func (s *OrderedSet[N]) Items() []N {
	out := make([]N, len(s.items))
	copy(out, s.items)
	return out
}

// First returns the oldest element.
func (s *OrderedSet[N]) First() (N, bool) {
	if len(s.items) == 0 {
		var zero N
		return zero, false
	}
	return s.items[0], true
}

// PopFirst removes and returns the oldest element.
func (s *OrderedSet[N]) PopFirst() (N, bool) {
	n, ok := s.First()
	if ok {
		s.Remove(n)
	}
	return n, ok
}

func (s *OrderedSet[N]) clone() *OrderedSet[N] {
	return NewOrderedSet(s.items...)
}

// SortedSet is a Set whose Items are ordered by a comparison function.
type SortedSet[N comparable] struct {
	members map[N]struct{}
	less    func(a, b N) bool
}

// NewSortedSet returns a factory of sets ordered by less, suitable as the
// newSet argument of LeafToRootNodes.
func NewSortedSet[N comparable](less func(a, b N) bool) func() Set[N] {
	return func() Set[N] {
		return &SortedSet[N]{members: make(map[N]struct{}), less: less}
	}
}

func (s *SortedSet[N]) Add(n N) bool {
	if _, ok := s.members[n]; ok {
		return false
	}
	s.members[n] = struct{}{}
	return true
}

func (s *SortedSet[N]) Remove(n N) bool {
	if _, ok := s.members[n]; !ok {
		return false
	}
	delete(s.members, n)
	return true
}

func (s *SortedSet[N]) Contains(n N) bool {
	_, ok := s.members[n]
	return ok
}

func (s *SortedSet[N]) Len() int {
	return len(s.members)
}

func (s *SortedSet[N]) Items() []N {
	out := make([]N, 0, len(s.members))
	for n := range s.members {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return s.less(out[i], out[j]) })
	return out
}
