package graph

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCyclic is matched by every error reporting a cycle.
var ErrCyclic = errors.New("graph contains a cycle")

// CycleError describes one cycle found in a graph. Path starts and ends
// with the same node.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("graph: cycle detected: %s", strings.Join(e.Path, " -> "))
}

func (e *CycleError) Unwrap() error {
	return ErrCyclic
}

func newCycleError[N comparable](path []N, closing N) *CycleError {
	parts := make([]string, 0, len(path)+1)
	for _, n := range path {
		parts = append(parts, fmt.Sprint(n))
	}
	parts = append(parts, fmt.Sprint(closing))
	return &CycleError{Path: parts}
}
