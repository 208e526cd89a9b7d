package relaybuf

import (
	"context"
	"io"
	"iter"
	"sync/atomic"
)

// Iterator is a single-pass view of a relay for its consumer.
type Iterator[T any] struct {
	r       *Relay[T]
	stopped atomic.Bool
}

// Iter returns an iterator over r.
func (r *Relay[T]) Iter() *Iterator[T] {
	return &Iterator[T]{r: r}
}

// Next behaves like Relay.Next until Stop is called, after which it returns
// io.EOF.
func (it *Iterator[T]) Next(ctx context.Context) (T, error) {
	if it.stopped.Load() {
		var zero T
		return zero, io.EOF
	}
	return it.r.Next(ctx)
}

// Stop marks the iterator exhausted. The relay is left untouched: buffered
// events stay queued and the relay is not ended. Stop does not wake a Next
// call that is already waiting; cancel its context for that.
func (it *Iterator[T]) Stop() {
	it.stopped.Store(true)
}

// All returns a sequence yielding events until the relay ends or ctx is done.
// Breaking out of the loop stops consuming without ending the relay. Use Next
// directly to tell end-of-stream apart from cancellation.
func (r *Relay[T]) All(ctx context.Context) iter.Seq[T] {
	return func(yield func(T) bool) {
		for {
			v, err := r.Next(ctx)
			if err != nil {
				return
			}
			if !yield(v) {
				return
			}
		}
	}
}
