package pica

import "fmt"

// Stats describes the resources and memory of a Context.
type Stats struct {
	// Frame is the current frame number.
	Frame uint32

	// Textures is the number of live textures, including the default one.
	Textures int

	// PendingTextures is the number of deleted textures not yet released.
	PendingTextures int

	// Buffers is the number of live buffers, including the index buffer.
	Buffers int

	// PendingBuffers is the number of deleted buffers not yet released.
	PendingBuffers int

	// ReleasedTextures and ReleasedBuffers count sweep releases.
	ReleasedTextures uint64
	ReleasedBuffers  uint64

	// FallbackBinds counts texture binds redirected to the default texture.
	FallbackBinds uint64

	// HeapTotalBytes is the linear heap capacity.
	HeapTotalBytes uint64

	// HeapUsedBytes is the linear heap memory held by live and pending
	// resources.
	HeapUsedBytes uint64

	// HeapPeakBytes is the highest HeapUsedBytes seen.
	HeapPeakBytes uint64

	// AllocFailures counts heap allocations that failed.
	AllocFailures uint64

	// Uploads counts transfers to HAL mirrors.
	TextureUploads uint64
	BufferUploads  uint64
}

// Utilization returns the fraction of the heap in use, from 0 to 1.
func (s Stats) Utilization() float64 {
	if s.HeapTotalBytes == 0 {
		return 0
	}
	return float64(s.HeapUsedBytes) / float64(s.HeapTotalBytes)
}

// String returns a human-readable summary.
func (s Stats) String() string {
	return fmt.Sprintf("Frame %d: %d textures (+%d pending), %d buffers (+%d pending), heap %.1f%% of %d KB, %d failures",
		s.Frame,
		s.Textures, s.PendingTextures,
		s.Buffers, s.PendingBuffers,
		s.Utilization()*100, s.HeapTotalBytes/1024,
		s.AllocFailures)
}

// Stats returns a snapshot of the context's resource counters.
func (c *Context) Stats() Stats {
	heap := c.dev.Heap().Stats()
	up := c.dev.Uploads()
	return Stats{
		Frame:            c.clock.Now(),
		Textures:         c.textures.Len(),
		PendingTextures:  c.textures.Pending(),
		Buffers:          c.buffers.Len(),
		PendingBuffers:   c.buffers.Pending(),
		ReleasedTextures: c.texFreed,
		ReleasedBuffers:  c.bufFreed,
		FallbackBinds:    c.fallbackBinds,
		HeapTotalBytes:   heap.TotalBytes,
		HeapUsedBytes:    heap.UsedBytes,
		HeapPeakBytes:    heap.PeakBytes,
		AllocFailures:    heap.Failures,
		TextureUploads:   up.Textures,
		BufferUploads:    up.Buffers,
	}
}
