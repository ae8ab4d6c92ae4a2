package multistream

import (
	"errors"
	"io"
	"sync/atomic"
)

var ErrEmptyBuffer = errors.New("multistream: empty buffer")
var ErrShortBuffer = io.ErrShortBuffer

// RingBuffer is a fixed capacity FIFO that overwrites its oldest entries when
// a write does not fit. One reader and one writer may use it concurrently.
type RingBuffer[T any] struct {
	buffer []T
	head   uint64
	tail   uint64
	size   uint64
}

func NewRingBuffer[T any](capacity int) *RingBuffer[T] {
	return &RingBuffer[T]{
		buffer: make([]T, capacity),
		size:   uint64(capacity),
	}
}

// Len returns the number of entries available to Read.
func (rb *RingBuffer[T]) Len() int {
	return int(atomic.LoadUint64(&rb.head) - atomic.LoadUint64(&rb.tail))
}

// Cap returns the capacity of the buffer.
func (rb *RingBuffer[T]) Cap() int {
	return int(rb.size)
}

// Write appends data. When data is longer than the buffer only its newest
// entries are kept.
func (rb *RingBuffer[T]) Write(data []T) (int, error) {
	if len(data) == 0 {
		return 0, ErrEmptyBuffer
	}
	if uint64(len(data)) > rb.size {
		data = data[uint64(len(data))-rb.size:]
	}
	writable := uint64(len(data))

	head := atomic.LoadUint64(&rb.head)
	tail := atomic.LoadUint64(&rb.tail)

	for i := uint64(0); i < writable; i++ {
		rb.buffer[(head+i)%rb.size] = data[i]
	}

	// Move tail forward over anything we overwrote.
	atomic.StoreUint64(&rb.head, head+writable)
	if writable > rb.size-(head-tail) {
		atomic.StoreUint64(&rb.tail, head+writable-rb.size)
	}

	return int(writable), nil
}

// Peek copies up to len(buf) of the oldest entries into buf without
// consuming them.
func (rb *RingBuffer[T]) Peek(buf []T) int {
	head := atomic.LoadUint64(&rb.head)
	tail := atomic.LoadUint64(&rb.tail)
	n := min(uint64(len(buf)), head-tail)
	for i := uint64(0); i < n; i++ {
		buf[i] = rb.buffer[(tail+i)%rb.size]
	}
	return int(n)
}

// Read moves up to len(buf) of the oldest entries into buf.
func (rb *RingBuffer[T]) Read(buf []T) (int, error) {
	if len(buf) == 0 {
		return 0, ErrShortBuffer
	}

	head := atomic.LoadUint64(&rb.head)
	tail := atomic.LoadUint64(&rb.tail)
	if head == tail {
		return 0, ErrEmptyBuffer
	}

	toRead := min(uint64(len(buf)), head-tail)
	var zero T
	for i := uint64(0); i < toRead; i++ {
		idx := (tail + i) % rb.size
		buf[i] = rb.buffer[idx]
		rb.buffer[idx] = zero
	}

	atomic.StoreUint64(&rb.tail, tail+toRead)
	return int(toRead), nil
}
