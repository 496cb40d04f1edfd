package buffer

import (
	"errors"
	"fmt"
	"sync"
)

// ErrNoMark is returned by Reset when no checkpoint has been saved.
var ErrNoMark = errors.New("buffer: reset without mark")

// RingBuffer is a fixed-capacity circular buffer with overwrite semantics.
//
// A buffer of capacity C stores at most C-1 unread elements. Writes never
// block and never fail: when the buffer is full each written element
// advances the read cursor, discarding the oldest unread element. Reads
// never block either; they return whatever is available up to the
// requested count.
//
// Mark saves the read and write cursors; Reset restores them. Only one
// checkpoint is kept, a second Mark replaces the first.
type RingBuffer[T any] struct {
	mu sync.Mutex

	buf        []T
	head, tail int // read and write cursors, both in [0, len(buf))

	marked             bool
	markHead, markTail int
}

// RingN creates a RingBuffer with the given capacity. It panics if size < 2.
func RingN[T any](size int) *RingBuffer[T] {
	if size < 2 {
		panic(fmt.Sprintf("buffer: invalid ring capacity %d", size))
	}
	return &RingBuffer[T]{buf: make([]T, size)}
}

// Cap returns the capacity the buffer was created with.
func (rb *RingBuffer[T]) Cap() int {
	return len(rb.buf)
}

// Available returns the number of unread elements.
func (rb *RingBuffer[T]) Available() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.availableLocked()
}

func (rb *RingBuffer[T]) availableLocked() int {
	c := len(rb.buf)
	return (rb.tail - rb.head + c) % c
}

// Write appends every element of p, overwriting the oldest unread data when
// the buffer is full. It returns the write cursor after the write.
func (rb *RingBuffer[T]) Write(p []T) int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	c := len(rb.buf)
	for _, v := range p {
		rb.buf[rb.tail] = v
		rb.tail = (rb.tail + 1) % c
		if rb.tail == rb.head {
			rb.head = (rb.head + 1) % c
		}
	}
	return rb.tail
}

// Read returns up to n unread elements in a new slice and advances the read
// cursor by the number returned.
func (rb *RingBuffer[T]) Read(n int) []T {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	n = min(n, rb.availableLocked())
	if n <= 0 {
		return nil
	}
	out := make([]T, n)
	rb.copyLocked(out)
	return out
}

// ReadInto fills p with up to len(p) unread elements and returns the count.
func (rb *RingBuffer[T]) ReadInto(p []T) int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	n := min(len(p), rb.availableLocked())
	rb.copyLocked(p[:n])
	return n
}

func (rb *RingBuffer[T]) copyLocked(p []T) {
	c := len(rb.buf)
	n := copy(p, rb.buf[rb.head:])
	if n < len(p) {
		copy(p[n:], rb.buf)
	}
	rb.head = (rb.head + len(p)) % c
}

// Discard advances the read cursor by up to n elements and returns the
// number discarded.
func (rb *RingBuffer[T]) Discard(n int) int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	n = max(0, min(n, rb.availableLocked()))
	rb.head = (rb.head + n) % len(rb.buf)
	return n
}

// Mark saves the current cursors, replacing any previous mark.
func (rb *RingBuffer[T]) Mark() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.marked = true
	rb.markHead, rb.markTail = rb.head, rb.tail
}

// Reset restores the cursors saved by the last Mark. The mark stays valid,
// so Reset may be called again. It returns ErrNoMark if Mark was never
// called.
func (rb *RingBuffer[T]) Reset() error {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	if !rb.marked {
		return ErrNoMark
	}
	rb.head, rb.tail = rb.markHead, rb.markTail
	return nil
}

// Clear empties the buffer and drops the mark.
func (rb *RingBuffer[T]) Clear() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.head, rb.tail = 0, 0
	rb.marked = false
}
