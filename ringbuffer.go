package relaybuf

const minRingSize = 8

// ringBuffer is a FIFO of events bounded by limit. The backing slice starts
// empty and doubles on demand, so an idle buffer costs nothing regardless of
// its limit.
type ringBuffer[T any] struct {
	data  []T
	head  int
	count int
	limit int
}

// newRingBuffer creates a new ring buffer holding at most limit events.
func newRingBuffer[T any](limit int) *ringBuffer[T] {
	return &ringBuffer[T]{limit: max(limit, 0)}
}

// push appends v and reports whether there was room for it.
func (r *ringBuffer[T]) push(v T) bool {
	if r.full() {
		return false
	}
	if r.count == len(r.data) {
		r.grow()
	}
	r.data[(r.head+r.count)%len(r.data)] = v
	r.count++
	return true
}

// grow doubles the backing slice, never past limit, and unwraps the
// buffered events to the front.
func (r *ringBuffer[T]) grow() {
	size := minRingSize
	if n := len(r.data); n > 0 {
		size = n * 2
		if n > r.limit/2 {
			size = r.limit
		}
	}
	size = min(size, r.limit)

	data := make([]T, size)
	n := copy(data, r.data[r.head:])
	copy(data[n:], r.data[:r.head])
	r.data = data
	r.head = 0
}

// pop removes and returns the oldest event.
func (r *ringBuffer[T]) pop() (T, bool) {
	var zero T
	if r.empty() {
		return zero, false
	}
	v := r.data[r.head]
	r.data[r.head] = zero
	r.head = (r.head + 1) % len(r.data)
	r.count--
	return v, true
}

// len returns the number of buffered events.
func (r *ringBuffer[T]) len() int {
	return r.count
}

// capacity returns the maximum number of buffered events.
func (r *ringBuffer[T]) capacity() int {
	return r.limit
}

// empty returns true if the ring buffer is empty.
func (r *ringBuffer[T]) empty() bool {
	return r.count == 0
}

// full returns true if the ring buffer holds limit events.
func (r *ringBuffer[T]) full() bool {
	return r.count >= r.limit
}
