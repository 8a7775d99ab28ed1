package task

import (
	"fmt"
	"sync/atomic"

	"github.com/vk/taskgraph/internal/nodeid"
)

// InputBinder declares dependencies of the node being created. It is only
// valid while the factory runs; binding afterwards panics.
type InputBinder interface {
	BindInput(key nodeid.Key) *InputRef
}

// InputRef gives a computation access to the output of one dependency. It
// may be consumed at most once.
type InputRef struct {
	key      nodeid.Key
	consumed atomic.Bool
	resolve  func() (any, error)
}

// NewInputRef returns a reference to the output of key, read through
// resolve when consumed.
func NewInputRef(key nodeid.Key, resolve func() (any, error)) *InputRef {
	return &InputRef{key: key, resolve: resolve}
}

// Key returns the key of the referenced dependency.
func (r *InputRef) Key() nodeid.Key {
	return r.key
}

// Consume returns the dependency's output.
func (r *InputRef) Consume() (any, error) {
	if !r.consumed.CompareAndSwap(false, true) {
		return nil, fmt.Errorf("%w: %s", ErrInputConsumed, r.key)
	}
	return r.resolve()
}

// Consume reads ref and asserts its output to T.
func Consume[T any](ref *InputRef) (T, error) {
	var zero T
	raw, err := ref.Consume()
	if err != nil {
		return zero, err
	}
	v, ok := raw.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s produced %T, want %T", ErrInputType, ref.key, raw, zero)
	}
	return v, nil
}
