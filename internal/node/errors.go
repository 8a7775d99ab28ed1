package node

import (
	"errors"
	"fmt"

	"github.com/vk/taskgraph/internal/nodeid"
	"github.com/vk/taskgraph/internal/task"
)

var (
	// ErrNotCompleted is returned when reading the result of an unresolved node.
	ErrNotCompleted = errors.New("result of node read before computation")
	// ErrExecutorRejected wraps failures of an executor to accept work.
	ErrExecutorRejected = errors.New("executor rejected node computation")
)

// DependencyError resolves a node that never ran because one of its
// dependencies failed or was skipped. It matches task.ErrSkipped as well as
// the dependency's own cause.
type DependencyError struct {
	Dependency nodeid.Key
	Cause      error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("dependency %s failed: %v", e.Dependency, e.Cause)
}

func (e *DependencyError) Unwrap() []error {
	return []error{task.ErrSkipped, e.Cause}
}
