package mbuf

import (
	"fmt"
)

// Buffer is an exclusively owned, growable byte region.
//
// Capacity is the size of the storage, Len the number of bytes at its front
// holding valid data, and Pos a read cursor into that data. A Buffer never
// shrinks; Clear only forgets the data. Growth is strictly additive: when an
// append does not fit, capacity grows by exactly the size of the incoming
// data, which keeps buffers on the Pool's class ladder whenever callers stay
// within the class they asked for.
//
// The zero value owns no storage and behaves like a released buffer.
// A Buffer is not safe for concurrent use.
type Buffer struct {
	buf []byte // storage, len(buf) is the capacity
	n   int    // valid data length
	pos int    // read cursor, 0 <= pos <= n
}

// New allocates a Buffer with the given capacity.
// It panics if capacity is not in (0, MaxCapacity]: a buffer that cannot be
// allocated cannot be constructed at all.
func New(capacity int) *Buffer {
	if capacity <= 0 || capacity > MaxCapacity {
		panic(fmt.Errorf("%w: %d", ErrInvalidCapacity, capacity))
	}
	return &Buffer{buf: alloc(capacity)}
}

// grow replaces the storage with one larger by exactly n bytes. The new
// region is filled before the swap, so on error the buffer is untouched.
func (b *Buffer) grow(n int) error {
	if n > MaxCapacity-len(b.buf) {
		return fmt.Errorf("%w: cannot grow %d bytes by %d (max %d)", ErrTooLarge, len(b.buf), n, MaxCapacity)
	}
	next := alloc(len(b.buf) + n)
	copy(next, b.buf[:b.n])
	b.buf = next
	return nil
}

// reserve makes room for n more bytes of data.
func (b *Buffer) reserve(n int) error {
	if b.buf == nil {
		return ErrReleased
	}
	if n > len(b.buf)-b.n {
		return b.grow(n)
	}
	return nil
}

// Append copies p after the valid data, growing the storage by len(p) if it
// does not fit. On error the buffer keeps its previous contents.
func (b *Buffer) Append(p []byte) error {
	if err := b.reserve(len(p)); err != nil {
		return err
	}
	b.n += copy(b.buf[b.n:], p)
	return nil
}

// AppendString is like Append but takes a string.
func (b *Buffer) AppendString(s string) error {
	if err := b.reserve(len(s)); err != nil {
		return err
	}
	b.n += copy(b.buf[b.n:], s)
	return nil
}

// SetData overwrites the buffer from offset 0 with p and resets the cursor.
// Bytes past len(p) are left as they are but are no longer valid.
//
// SetData never grows; it panics if len(p) exceeds the capacity.
func (b *Buffer) SetData(p []byte) {
	if len(p) > len(b.buf) {
		panic(fmt.Errorf("%w: %d > %d", ErrDataTooLarge, len(p), len(b.buf)))
	}
	b.n = copy(b.buf, p)
	b.pos = 0
}

// Data returns the valid bytes. The slice aliases the storage and is only
// valid until the next mutation; callers must not modify it, use DataMut
// for in-place edits.
func (b *Buffer) Data() []byte { return b.buf[:b.n:b.n] }

// DataMut returns the valid bytes for in-place modification. Its capacity is
// clipped to Len, so appending to it never writes into the buffer's storage.
func (b *Buffer) DataMut() []byte { return b.buf[:b.n:b.n] }

// Clear forgets the data and resets the cursor. The storage is kept.
func (b *Buffer) Clear() {
	b.n = 0
	b.pos = 0
}

// Release drops the storage. After Release the buffer has zero capacity,
// appends fail with ErrReleased and a Pool will not accept it.
func (b *Buffer) Release() {
	b.buf = nil
	b.n = 0
	b.pos = 0
}

// Released reports whether the buffer owns no storage.
func (b *Buffer) Released() bool { return b.buf == nil }

// Len returns the number of valid bytes.
func (b *Buffer) Len() int { return b.n }

// Cap returns the size of the storage.
func (b *Buffer) Cap() int { return len(b.buf) }

// Pos returns the read cursor.
func (b *Buffer) Pos() int { return b.pos }

// Available returns the number of valid bytes not yet read.
func (b *Buffer) Available() int { return b.n - b.pos }

// Free returns the number of bytes that can be appended without growing.
func (b *Buffer) Free() int { return len(b.buf) - b.n }

// String returns the valid bytes as a string.
func (b *Buffer) String() string {
	if b == nil {
		return "<nil>"
	}
	return string(b.buf[:b.n])
}
