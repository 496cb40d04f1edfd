package buffer

import (
	"fmt"
	"io"
	"sync"
)

// Queue is a bounded FIFO that blocks producers when full and consumers
// when empty. Items come out in exactly the order they were pushed.
type Queue[T any] struct {
	cond *sync.Cond

	mu         sync.Mutex
	items      []T
	head, tail int64
	closeWrite bool
	closeErr   error
}

// QueueN creates a Queue holding at most size items.
func QueueN[T any](size int) *Queue[T] {
	if size < 1 {
		panic(fmt.Sprintf("buffer: invalid queue size %d", size))
	}
	q := &Queue[T]{items: make([]T, size)}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push appends t, blocking while the queue is full.
//
// Returns an error wrapping io.ErrClosedPipe after CloseWrite, or wrapping
// the close error after CloseWithError.
func (q *Queue[T]) Push(t T) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	size := int64(len(q.items))
	for {
		if q.closeErr != nil {
			return fmt.Errorf("buffer: push to closed queue: %w", q.closeErr)
		}
		if q.closeWrite {
			return fmt.Errorf("buffer: push to closed queue: %w", io.ErrClosedPipe)
		}
		if q.tail-q.head < size {
			break
		}
		q.cond.Wait()
	}
	q.items[q.tail%size] = t
	q.tail++
	q.cond.Broadcast()
	return nil
}

// Pop removes and returns the oldest item, blocking while the queue is
// empty. After CloseWrite it drains the remaining items and then returns
// io.EOF.
func (q *Queue[T]) Pop() (t T, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for {
		if q.closeErr != nil {
			return t, fmt.Errorf("buffer: pop from closed queue: %w", q.closeErr)
		}
		if q.head != q.tail {
			break
		}
		if q.closeWrite {
			return t, io.EOF
		}
		q.cond.Wait()
	}
	i := q.head % int64(len(q.items))
	t = q.items[i]
	var zero T
	q.items[i] = zero
	q.head++
	q.cond.Broadcast()
	return t, nil
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int(q.tail - q.head)
}

// CloseWrite stops further pushes. Queued items can still be popped.
func (q *Queue[T]) CloseWrite() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closeWrite = true
	q.cond.Broadcast()
	return nil
}

// CloseWithError closes both ends immediately. Blocked and later calls
// return err. A nil err means io.ErrClosedPipe. Only the first error is kept.
func (q *Queue[T]) CloseWithError(err error) error {
	if err == nil {
		err = io.ErrClosedPipe
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closeErr == nil {
		q.closeErr = err
		q.closeWrite = true
	}
	q.cond.Broadcast()
	return nil
}

// Close is CloseWithError(io.ErrClosedPipe).
func (q *Queue[T]) Close() error {
	return q.CloseWithError(io.ErrClosedPipe)
}

// Error returns the error the queue was closed with, if any.
func (q *Queue[T]) Error() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closeErr
}
