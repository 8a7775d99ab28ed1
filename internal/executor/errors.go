package executor

import (
	"errors"
	"fmt"

	"github.com/vk/taskgraph/internal/nodeid"
)

var (
	// ErrAlreadyExecuted is returned by operations not allowed once Execute
	// was called, including a second Execute.
	ErrAlreadyExecuted = errors.New("graph execution already started")
	// ErrUnknownNode is returned for keys that are not part of the graph.
	ErrUnknownNode = errors.New("node is not part of the graph")
	// ErrNotRequested is returned by Result.Get for keys never registered
	// as result keys.
	ErrNotRequested = errors.New("key was not requested as a result")
	// ErrNotAvailable is returned by Result.Get for a requested key with no
	// node in the graph.
	ErrNotAvailable = errors.New("no result available for key")
)

// NodeError is the failure of one node, as returned by Result.Get.
type NodeError struct {
	Key   nodeid.Key
	Cause error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("node %s: %v", e.Key, e.Cause)
}

func (e *NodeError) Unwrap() error {
	return e.Cause
}

// ExecutionError fails an execution in which at least one computation
// failed. Result holds the per-key outcomes.
type ExecutionError struct {
	Result *Result
}

func (e *ExecutionError) Error() string {
	return "graph execution failed"
}
