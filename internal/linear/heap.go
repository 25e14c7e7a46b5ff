// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package linear emulates the GPU-addressable linear heap.
//
// Memory handed to the GPU command stream must live in a physically
// contiguous region whose addresses the GPU can encode as an offset from
// a fixed base. Heap carves blocks out of one such region and reports
// both the CPU view of a block and the physical address the GPU sees.
package linear

import (
	"errors"
	"fmt"
	"sort"
	"unsafe"
)

// Address map of the linear region.
const (
	// VirtBase is the CPU virtual address of the first heap byte.
	VirtBase uint32 = 0x14000000

	// PhysBase is the physical address of the first heap byte.
	PhysBase uint32 = 0x20000000

	// BufferBasePhys is the physical base address that GPU buffer
	// addresses are encoded relative to.
	BufferBasePhys uint32 = 0x18000000
)

// Alignment requirements.
const (
	// MinAlign is the minimum alignment of every block. The command
	// stream address encoding drops the low four bits of buffer addresses.
	MinAlign = 16

	// TextureAlign is the alignment used for texture storage.
	TextureAlign = 0x80
)

// Heap errors.
var (
	// ErrOutOfMemory is returned when no free span can hold a request.
	ErrOutOfMemory = errors.New("linear: out of memory")

	// ErrInvalidAlignment is returned for alignments that are not a power
	// of two.
	ErrInvalidAlignment = errors.New("linear: alignment must be a power of two")

	// ErrInvalidSize is returned for negative sizes.
	ErrInvalidSize = errors.New("linear: invalid size")
)

// span is a free range [off, off+size).
type span struct {
	off  uint32
	size uint32
}

// Block is an allocation in a Heap. The zero Block is invalid.
type Block struct {
	heap *Heap
	off  uint32
	size uint32
}

// Valid reports whether b refers to an allocation.
func (b Block) Valid() bool { return b.heap != nil }

// Size returns the block size in bytes, after rounding.
func (b Block) Size() int { return int(b.size) }

// Offset returns the block offset from the start of the heap.
func (b Block) Offset() uint32 { return b.off }

// VirtAddr returns the CPU virtual address of the block.
func (b Block) VirtAddr() uint32 { return VirtBase + b.off }

// PhysAddr returns the physical address of the block.
func (b Block) PhysAddr() uint32 { return PhysBase + b.off }

// BufferOffset returns the block address as the GPU command stream
// encodes it: relative to BufferBasePhys.
func (b Block) BufferOffset() uint32 { return b.PhysAddr() - BufferBasePhys }

// Words returns the block memory as 32-bit words.
func (b Block) Words() []uint32 {
	if b.heap == nil {
		return nil
	}
	return b.heap.mem[b.off/4 : (b.off+b.size)/4 : (b.off+b.size)/4]
}

// Bytes returns the block memory as bytes. It aliases Words.
func (b Block) Bytes() []byte {
	if b.heap == nil || b.size == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&b.heap.mem[b.off/4])), b.size)
}

// Stats describes heap occupancy.
type Stats struct {
	// TotalBytes is the heap capacity.
	TotalBytes uint64

	// UsedBytes is the sum of live block sizes.
	UsedBytes uint64

	// PeakBytes is the highest UsedBytes seen.
	PeakBytes uint64

	// Blocks is the number of live blocks.
	Blocks int

	// FreeSpans is the number of disjoint free ranges.
	FreeSpans int

	// LargestFree is the size of the largest free range.
	LargestFree uint64

	// Failures counts allocations that returned ErrOutOfMemory.
	Failures uint64
}

// String returns a human-readable summary.
func (s Stats) String() string {
	return fmt.Sprintf("Heap[%d/%d KB used, peak %d KB, %d blocks, %d spans, largest %d KB, %d failures]",
		s.UsedBytes/1024, s.TotalBytes/1024, s.PeakBytes/1024,
		s.Blocks, s.FreeSpans, s.LargestFree/1024, s.Failures)
}

// Heap is a first-fit allocator over a fixed linear region. Adjacent
// free spans are coalesced on Free.
//
// Heap is not safe for concurrent use.
type Heap struct {
	mem      []uint32
	size     uint32
	free     []span // sorted by off
	live     map[uint32]uint32
	used     uint64
	peak     uint64
	failures uint64
}

// New creates a heap of size bytes, rounded up to MinAlign.
func New(size int) *Heap {
	if size < 0 {
		size = 0
	}
	//nolint:gosec // G115: heap sizes are far below 4 GiB
	n := alignUp(uint32(size), MinAlign)
	h := &Heap{
		mem:  make([]uint32, n/4),
		size: n,
		live: make(map[uint32]uint32),
	}
	if n > 0 {
		h.free = []span{{off: 0, size: n}}
	}
	return h
}

// Alloc reserves size bytes aligned to align, which is raised to at least
// MinAlign. The block contents are zeroed.
func (h *Heap) Alloc(size, align int) (Block, error) {
	if size < 0 {
		return Block{}, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	if align < MinAlign {
		align = MinAlign
	}
	if align&(align-1) != 0 {
		return Block{}, fmt.Errorf("%w: %d", ErrInvalidAlignment, align)
	}
	if uint64(size) > uint64(h.size) {
		h.failures++
		return Block{}, fmt.Errorf("%w: %d bytes requested, heap is %d", ErrOutOfMemory, size, h.size)
	}

	//nolint:gosec // G115: bounded by h.size above
	need := alignUp(uint32(size), MinAlign)
	if need == 0 {
		need = MinAlign
	}
	a := uint32(align) //nolint:gosec // G115: power of two below heap size

	for i, s := range h.free {
		start := alignUp(s.off, a)
		end := s.off + s.size
		if start < s.off || start > end || end-start < need {
			continue
		}

		h.carve(i, start, need)
		h.live[start] = need
		h.used += uint64(need)
		if h.used > h.peak {
			h.peak = h.used
		}

		b := Block{heap: h, off: start, size: need}
		clear(b.Words())
		return b, nil
	}

	h.failures++
	return Block{}, fmt.Errorf("%w: %d bytes (align %d), %d of %d bytes in use",
		ErrOutOfMemory, need, align, h.used, h.size)
}

// carve removes [start, start+n) from free span i, keeping the leftovers.
func (h *Heap) carve(i int, start, n uint32) {
	s := h.free[i]
	var parts []span
	if start > s.off {
		parts = append(parts, span{off: s.off, size: start - s.off})
	}
	if tail := s.off + s.size - (start + n); tail > 0 {
		parts = append(parts, span{off: start + n, size: tail})
	}

	rest := append([]span(nil), h.free[i+1:]...)
	h.free = append(append(h.free[:i], parts...), rest...)
}

// Free returns b to the heap. Freeing an invalid block is a no-op; the
// call reports whether b was live.
func (h *Heap) Free(b Block) bool {
	if b.heap != h {
		return false
	}
	size, ok := h.live[b.off]
	if !ok {
		return false
	}
	delete(h.live, b.off)
	h.used -= uint64(size)

	i := sort.Search(len(h.free), func(i int) bool { return h.free[i].off > b.off })
	h.free = append(h.free, span{})
	copy(h.free[i+1:], h.free[i:])
	h.free[i] = span{off: b.off, size: size}

	// Merge with the following span, then the preceding one.
	if i+1 < len(h.free) && h.free[i].off+h.free[i].size == h.free[i+1].off {
		h.free[i].size += h.free[i+1].size
		h.free = append(h.free[:i+1], h.free[i+2:]...)
	}
	if i > 0 && h.free[i-1].off+h.free[i-1].size == h.free[i].off {
		h.free[i-1].size += h.free[i].size
		h.free = append(h.free[:i], h.free[i+1:]...)
	}
	return true
}

// Reset frees every block at once.
func (h *Heap) Reset() {
	clear(h.live)
	h.used = 0
	h.free = h.free[:0]
	if h.size > 0 {
		h.free = append(h.free, span{off: 0, size: h.size})
	}
}

// Stats returns current occupancy.
func (h *Heap) Stats() Stats {
	var largest uint32
	for _, s := range h.free {
		if s.size > largest {
			largest = s.size
		}
	}
	return Stats{
		TotalBytes:  uint64(h.size),
		UsedBytes:   h.used,
		PeakBytes:   h.peak,
		Blocks:      len(h.live),
		FreeSpans:   len(h.free),
		LargestFree: uint64(largest),
		Failures:    h.failures,
	}
}

func alignUp(v, align uint32) uint32 {
	return (v + align - 1) &^ (align - 1)
}
