package server

import (
	"encoding/json"
	"sync/atomic"
)

// ringBuffer is a fixed-capacity FIFO for append-mostly data such as the API
// log. Writers claim a slot with an atomic add and store through atomic.Value,
// so concurrent appends never share a slot.
type ringBuffer[T any] struct {
	buf  []atomic.Value
	size int64
	head atomic.Int64 // total appends
}

func newRingBuffer[T any](capacity int) *ringBuffer[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &ringBuffer[T]{
		buf:  make([]atomic.Value, capacity),
		size: int64(capacity),
	}
}

// Append adds v, overwriting the oldest entry when full.
func (r *ringBuffer[T]) Append(v T) {
	idx := r.head.Add(1) - 1
	r.buf[idx%r.size].Store(v)
}

// Snapshot returns up to limit of the most recent entries, oldest first.
// limit <= 0 returns everything held.
func (r *ringBuffer[T]) Snapshot(limit int) []T {
	total := r.head.Load()
	if total == 0 {
		return nil
	}
	n := min(total, r.size)
	if limit > 0 && int64(limit) < n {
		n = int64(limit)
	}
	start := total - n
	result := make([]T, 0, n)
	for i := int64(0); i < n; i++ {
		if v := r.buf[(start+i)%r.size].Load(); v != nil {
			result = append(result, v.(T))
		}
	}
	return result
}

// Clear resets the buffer. Not safe to call concurrently with Append.
func (r *ringBuffer[T]) Clear() {
	r.head.Store(0)
	for i := range r.buf {
		r.buf[i] = atomic.Value{}
	}
}

func (r *ringBuffer[T]) Len() int {
	return int(min(r.head.Load(), r.size))
}

func (r *ringBuffer[T]) MarshalJSON() ([]byte, error) {
	if r == nil {
		return []byte("[]"), nil
	}
	items := r.Snapshot(0)
	if items == nil {
		items = []T{}
	}
	return json.Marshal(items)
}
