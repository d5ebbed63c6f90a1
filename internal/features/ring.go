// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package features

// Ring is a fixed-capacity FIFO. Pushing into a full ring evicts the
// oldest element.
type Ring[T any] struct {
	buf   []T
	start int
	size  int
}

// NewRing returns an empty ring holding up to capacity elements.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[T]{buf: make([]T, capacity)}
}

// Push appends v, evicting the oldest element when full.
func (r *Ring[T]) Push(v T) {
	if r.size == len(r.buf) {
		r.buf[r.start] = v
		r.start = (r.start + 1) % len(r.buf)
		return
	}
	r.buf[(r.start+r.size)%len(r.buf)] = v
	r.size++
}

// Len is the number of held elements.
func (r *Ring[T]) Len() int { return r.size }

// Cap is the fixed capacity.
func (r *Ring[T]) Cap() int { return len(r.buf) }

// At returns the i-th oldest element.
func (r *Ring[T]) At(i int) T {
	if i < 0 || i >= r.size {
		panic("features: ring index out of range")
	}
	return r.buf[(r.start+i)%len(r.buf)]
}

// Last copies the newest n elements, oldest first.
func (r *Ring[T]) Last(n int) []T {
	n = min(n, r.size)
	out := make([]T, n)
	for i := range out {
		out[i] = r.At(r.size - n + i)
	}
	return out
}

// Reset drops all elements.
func (r *Ring[T]) Reset() {
	clear(r.buf)
	r.start, r.size = 0, 0
}
