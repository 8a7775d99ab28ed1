package builder

import (
	"fmt"
	"sync"

	"github.com/vk/taskgraph/internal/nodeid"
	"github.com/vk/taskgraph/internal/task"
)

// inputBinder records the dependencies a factory declares.
type inputBinder[E any] struct {
	run   *build[E]
	owner nodeid.Key

	mu     sync.Mutex
	closed bool
	seen   map[nodeid.Key]struct{}
	keys   []nodeid.Key
}

// BindInput declares that the node being created consumes the output of
// key. It panics once the owning factory has returned.
func (b *inputBinder[E]) BindInput(key nodeid.Key) *task.InputRef {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		panic(fmt.Sprintf("input binder of %s used after its factory returned", b.owner))
	}

	ref := task.NewInputRef(key, func() (any, error) { return b.run.resultOf(key) })
	if _, ok := b.run.b.registry.Lookup(key.Factory); !ok {
		b.run.deferError(fmt.Errorf("%w: %q (input %s of %s)", ErrUnknownFactory, key.Factory, key, b.owner))
		return ref
	}
	if _, dup := b.seen[key]; !dup {
		b.seen[key] = struct{}{}
		b.keys = append(b.keys, key)
	}
	return ref
}

func (b *inputBinder[E]) close() []nodeid.Key {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return b.keys
}
