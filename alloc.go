package mbuf

import (
	"math"
	"unsafe"

	"golang.org/x/exp/constraints"
)

// Alignment is the byte boundary every buffer's storage starts on.
const Alignment = 8

// MaxCapacity is the largest storage a single Buffer may own.
// It is kept within int32 so the same limit holds on 32-bit platforms.
const MaxCapacity = math.MaxInt32 &^ (Alignment - 1)

// Roundup rounds n up to the nearest multiple of align.
func Roundup[T constraints.Integer](n, align T) T { return (n + (align - 1)) &^ (align - 1) }

// alloc returns n zeroed bytes backed by whole 64-bit words, so the first
// byte is always 8-byte aligned. The returned slice has len == cap == n and
// keeps the word array alive on its own.
func alloc(n int) []byte {
	words := make([]uint64, Roundup(n, Alignment)/Alignment)
	return unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(words))), n)
}
