package relaybuf

import (
	"context"
	"io"
	"slices"
	"sync"

	"github.com/juju/errors"
	"github.com/sirupsen/logrus"
)

// ErrConcurrentNext is returned by Next when another pull is already
// suspended on the relay. A relay serves exactly one consumer, and that
// consumer must wait for each Next to return before calling it again.
const ErrConcurrentNext = errors.ConstError("relaybuf: Next called while another Next is waiting")

type route int

const (
	routeDiscard route = iota
	routeHandoff
	routeBuffer
	routeOverflow
)

// Relay turns pushed events into a pull sequence for a single consumer.
//
// Up to the waterline, events the consumer has not yet pulled wait in a FIFO
// queue. An event emitted while a consumer is suspended in Next is handed to
// it directly. An event emitted while the queue is at the waterline and no
// consumer is waiting goes to the overflow listeners instead and is never
// returned by Next.
//
// A Relay must be created with New. Producers, the consumer and listener
// registration may run on different goroutines.
type Relay[T any] struct {
	mu sync.Mutex

	pending *ringBuffer[T]
	// waiter is the channel of a consumer suspended in Next. It has room for
	// exactly one event and is closed by End. Non-nil only while pending is
	// empty.
	waiter    chan T
	listeners []func(T)
	done      bool

	logger  logrus.FieldLogger
	metrics *Collector
}

// New creates an empty relay.
func New[T any](opts ...Option) *Relay[T] {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Relay[T]{
		pending: newRingBuffer[T](o.waterline),
		logger:  o.logger,
		metrics: o.metrics,
	}
}

// Emit publishes event. It never blocks and never fails.
//
// Events emitted after End are discarded. Otherwise the event goes to a
// suspended consumer if there is one, then to the pending queue if it is below
// the waterline, and finally to every overflow listener, in registration
// order, on the calling goroutine.
func (r *Relay[T]) Emit(event T) {
	r.mu.Lock()
	rt, listeners := r.routeLocked(event)
	r.metrics.observeEmit(rt, r.pending.len())
	r.mu.Unlock()

	if rt != routeOverflow {
		return
	}
	r.logger.WithFields(logrus.Fields{
		"waterline": r.pending.capacity(),
		"listeners": len(listeners),
	}).Debug("relay saturated, routing event to overflow listeners")
	for _, l := range listeners {
		l(event)
	}
}

func (r *Relay[T]) routeLocked(event T) (route, []func(T)) {
	switch {
	case r.done:
		return routeDiscard, nil
	case r.waiter != nil:
		r.waiter <- event
		r.waiter = nil
		return routeHandoff, nil
	case r.pending.push(event):
		return routeBuffer, nil
	default:
		// Registration only appends, so the clipped slice stays a stable
		// snapshot once the lock is released.
		return routeOverflow, slices.Clip(r.listeners)
	}
}

// End marks the relay as terminated. Later events are discarded, while events
// already buffered remain available to Next. A consumer suspended in Next is
// woken with io.EOF. Calling End more than once has no further effect.
func (r *Relay[T]) End() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done {
		return
	}
	r.done = true
	if r.waiter != nil {
		close(r.waiter)
		r.waiter = nil
	}
	r.logger.WithField("pending", r.pending.len()).Debug("relay ended")
}

// AddOverflowListener registers l to receive every event that arrives while
// the relay is saturated. Listeners cannot be removed. A listener added while
// an overflow dispatch is in progress sees only later events.
//
// Listeners run on the goroutine that called Emit, without the relay's lock
// held. When several goroutines emit, a listener may run concurrently with
// itself and must synchronize any state it shares.
func (r *Relay[T]) AddOverflowListener(l func(T)) {
	if l == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, l)
}

// Next returns the oldest pending event. If none is pending it waits for the
// next emitted event, End, or ctx to be done.
//
// Next returns io.EOF once the relay has ended and every buffered event has
// been pulled. Buffered events are returned even if ctx is already done. Only
// one call may wait at a time; an overlapping call returns ErrConcurrentNext
// and leaves the waiting call in place.
func (r *Relay[T]) Next(ctx context.Context) (T, error) {
	var zero T

	r.mu.Lock()
	if v, ok := r.pending.pop(); ok {
		r.metrics.observePull(r.pending.len())
		r.mu.Unlock()
		return v, nil
	}
	if r.done {
		r.mu.Unlock()
		return zero, io.EOF
	}
	if r.waiter != nil {
		r.mu.Unlock()
		r.logger.Warn("rejected overlapping Next on relay")
		return zero, ErrConcurrentNext
	}
	wait := make(chan T, 1)
	r.waiter = wait
	r.mu.Unlock()

	select {
	case v, ok := <-wait:
		return r.received(v, ok)
	case <-ctx.Done():
	}

	r.mu.Lock()
	if r.waiter == wait {
		r.waiter = nil
		r.mu.Unlock()
		r.logger.WithError(ctx.Err()).Debug("relay wait cancelled")
		return zero, ctx.Err()
	}
	r.mu.Unlock()

	// Emit or End claimed the slot before the cancellation was seen, so the
	// channel already holds the outcome.
	v, ok := <-wait
	return r.received(v, ok)
}

func (r *Relay[T]) received(v T, ok bool) (T, error) {
	if !ok {
		return v, io.EOF
	}
	r.mu.Lock()
	r.metrics.observePull(r.pending.len())
	r.mu.Unlock()
	return v, nil
}

// Drain pulls events and passes them to fn until the relay ends, ctx is done
// or fn returns an error. It returns the number of events passed to fn. Reaching
// the end of the relay is not an error.
func (r *Relay[T]) Drain(ctx context.Context, fn func(T) error) (int, error) {
	var n int
	for {
		v, err := r.Next(ctx)
		if err != nil {
			if err == io.EOF {
				return n, nil
			}
			return n, err
		}
		n++
		if err := fn(v); err != nil {
			return n, err
		}
	}
}

// Done reports whether End has been called.
func (r *Relay[T]) Done() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done
}

// Len returns the number of events waiting to be pulled.
func (r *Relay[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pending.len()
}

// Waterline returns the maximum number of events the relay buffers.
func (r *Relay[T]) Waterline() int {
	return r.pending.capacity()
}
