// Package ringbuf implements the fixed size circular byte buffer used to coalesce
// small writes into full network segments.
package ringbuf

import (
	"sync/atomic"

	"github.com/bassosimone/runtimex"
)

// DefaultSize fits one Ethernet segment payload.
const DefaultSize = 1400

// Buffer is a circular byte buffer over an externally allocated array. One slot is
// always left unused to tell a full buffer from an empty one, so a buffer over n
// bytes holds at most n-1.
//
// Buffer takes no locks. One goroutine may call Put while another calls Get; any
// other sharing, and every call to Readable, Discard, MakeContiguous or Reset,
// requires the caller to hold exclusive ownership.
type Buffer struct {
	data []byte
	head atomic.Int64
	tail atomic.Int64
}

func New(buffer []byte) *Buffer {
	runtimex.Assert(len(buffer) >= 2)
	return &Buffer{data: buffer}
}

func NewSize(size int) *Buffer {
	return New(make([]byte, size))
}

func (b *Buffer) Cap() int {
	return len(b.data) - 1
}

func (b *Buffer) Len() int {
	return b.used(int(b.head.Load()), int(b.tail.Load()))
}

func (b *Buffer) Free() int {
	return b.Cap() - b.Len()
}

func (b *Buffer) IsEmpty() bool {
	return b.head.Load() == b.tail.Load()
}

func (b *Buffer) IsFull() bool {
	return b.Free() == 0
}

// Put copies as much of p as fits without overwriting unread data and returns the
// number of bytes accepted.
func (b *Buffer) Put(p []byte) int {
	head, tail := int(b.head.Load()), int(b.tail.Load())
	n := min(len(p), b.Cap()-b.used(head, tail))
	if n == 0 {
		return 0
	}
	first := copy(b.data[head:], p[:n])
	copy(b.data, p[first:n])
	head = (head + n) % len(b.data)
	b.check(head, tail)
	b.head.Store(int64(head))
	return n
}

// Get copies up to len(p) of the oldest unread bytes into p and returns the count.
func (b *Buffer) Get(p []byte) int {
	head, tail := int(b.head.Load()), int(b.tail.Load())
	n := min(len(p), b.used(head, tail))
	if n == 0 {
		return 0
	}
	first := copy(p[:n], b.data[tail:])
	if first < n {
		copy(p[first:n], b.data)
	}
	tail = (tail + n) % len(b.data)
	b.check(head, tail)
	b.tail.Store(int64(tail))
	return n
}

// Readable returns the unread bytes as at most two non-wrapping slices aliasing the
// buffer. They stay valid until the next mutation.
func (b *Buffer) Readable() (first []byte, second []byte) {
	head, tail := int(b.head.Load()), int(b.tail.Load())
	if head >= tail {
		return b.data[tail:head], nil
	}
	return b.data[tail:], b.data[:head]
}

// Discard drops n unread bytes. Indices return to zero once the buffer drains.
func (b *Buffer) Discard(n int) {
	head, tail := int(b.head.Load()), int(b.tail.Load())
	runtimex.Assert(n >= 0 && n <= b.used(head, tail))
	tail = (tail + n) % len(b.data)
	if tail == head {
		head, tail = 0, 0
	}
	b.check(head, tail)
	b.tail.Store(int64(tail))
	b.head.Store(int64(head))
}

// MakeContiguous rotates the stored bytes so the oldest one sits at index zero.
// The rotation goes through a temporary copy of the whole content, which makes it
// unsuitable for large buffers.
func (b *Buffer) MakeContiguous() {
	head, tail := int(b.head.Load()), int(b.tail.Load())
	if tail == 0 {
		return
	}
	used := b.used(head, tail)
	if used == 0 {
		b.Reset()
		return
	}
	temp := make([]byte, used)
	first := copy(temp, b.data[tail:])
	if first < used {
		copy(temp[first:], b.data)
	}
	copy(b.data, temp)
	b.check(used, 0)
	b.tail.Store(0)
	b.head.Store(int64(used))
}

func (b *Buffer) Reset() {
	b.head.Store(0)
	b.tail.Store(0)
}

func (b *Buffer) used(head int, tail int) int {
	if head >= tail {
		return head - tail
	}
	return len(b.data) - tail + head
}

func (b *Buffer) check(head int, tail int) {
	runtimex.Assert(head >= 0 && head < len(b.data))
	runtimex.Assert(tail >= 0 && tail < len(b.data))
	runtimex.Assert(b.used(head, tail) <= b.Cap())
}
