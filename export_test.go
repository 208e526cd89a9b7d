package relaybuf

// Waiting reports whether a consumer is suspended in Next.
func Waiting[T any](r *Relay[T]) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.waiter != nil
}

// PendingSlots returns the number of slots allocated for buffered events.
func PendingSlots[T any](r *Relay[T]) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending.data)
}
