// Package future provides a single-assignment result container with
// completion callbacks.
package future

import (
	"context"
	"errors"
	"sync"
)

// State is the completion state of a Future.
type State int32

const (
	Pending State = iota
	Succeeded
	Failed
	Canceled
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case Canceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Future is completed exactly once with a value, an error or a
// cancellation. The first completion wins; later ones are ignored.
type Future[T any] struct {
	mu        sync.Mutex
	state     State
	value     T
	err       error
	done      chan struct{}
	callbacks []func(T, error)
}

// New returns a pending future.
func New[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Completed returns a future already holding value.
func Completed[T any](value T) *Future[T] {
	f := New[T]()
	f.Complete(value)
	return f
}

// Failure returns a future already failed with err.
func Failure[T any](err error) *Future[T] {
	f := New[T]()
	f.Fail(err)
	return f
}

// Complete resolves the future with value. It reports whether this call
// completed the future.
func (f *Future[T]) Complete(value T) bool {
	return f.resolve(Succeeded, value, nil)
}

// Fail resolves the future with err. An error matching context.Canceled
// resolves it as canceled.
func (f *Future[T]) Fail(err error) bool {
	if err == nil {
		err = errors.New("future failed with a nil error")
	}
	var zero T
	if errors.Is(err, context.Canceled) {
		return f.resolve(Canceled, zero, err)
	}
	return f.resolve(Failed, zero, err)
}

// Cancel resolves the future as canceled.
func (f *Future[T]) Cancel() bool {
	var zero T
	return f.resolve(Canceled, zero, context.Canceled)
}

func (f *Future[T]) resolve(state State, value T, err error) bool {
	f.mu.Lock()
	if f.state != Pending {
		f.mu.Unlock()
		return false
	}
	f.state = state
	f.value = value
	f.err = err
	callbacks := f.callbacks
	f.callbacks = nil
	close(f.done)
	f.mu.Unlock()

	for _, cb := range callbacks {
		cb(value, err)
	}
	return true
}

// OnComplete registers cb to run once the future resolves. If it already
// has, cb runs synchronously on the calling goroutine.
func (f *Future[T]) OnComplete(cb func(T, error)) {
	f.mu.Lock()
	if f.state == Pending {
		f.callbacks = append(f.callbacks, cb)
		f.mu.Unlock()
		return
	}
	value, err := f.value, f.err
	f.mu.Unlock()
	cb(value, err)
}

// Done returns a channel closed when the future resolves.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// State returns the current completion state.
func (f *Future[T]) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// IsDone reports whether the future has resolved.
func (f *Future[T]) IsDone() bool {
	return f.State() != Pending
}

// Result returns the outcome of a resolved future. On a pending future it
// returns ErrPending.
func (f *Future[T]) Result() (T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == Pending {
		var zero T
		return zero, ErrPending
	}
	return f.value, f.err
}

// Wait blocks until the future resolves or ctx is done.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.Result()
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// ErrPending is returned by Result before the future resolves.
var ErrPending = errors.New("future has not completed")

// Then returns a future resolved with fn applied to a successful value of f.
// Failures and cancellation pass through unchanged.
func Then[T, U any](f *Future[T], fn func(T) (U, error)) *Future[U] {
	out := New[U]()
	f.OnComplete(func(v T, err error) {
		if err != nil {
			out.Fail(err)
			return
		}
		u, err := fn(v)
		if err != nil {
			out.Fail(err)
			return
		}
		out.Complete(u)
	})
	return out
}
