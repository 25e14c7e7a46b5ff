package pica

import (
	"fmt"
	"unsafe"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/pica/internal/debug"
	"github.com/gogpu/pica/internal/native"
	"github.com/gogpu/pica/internal/pool"
)

// VertexFormat selects a vertex layout.
type VertexFormat uint8

const (
	// VertexColored is position (3 x float32) and packed color.
	VertexColored VertexFormat = iota

	// VertexTextured is position (3 x float32), packed color and
	// texture coordinates (2 x float32).
	VertexTextured
)

// Stride returns the size of one vertex in bytes.
func (f VertexFormat) Stride() int {
	switch f {
	case VertexTextured:
		return 24
	default:
		return 16
	}
}

// String returns the format name.
func (f VertexFormat) String() string {
	switch f {
	case VertexColored:
		return "Colored"
	case VertexTextured:
		return "Textured"
	default:
		return fmt.Sprintf("VertexFormat(%d)", f)
	}
}

// CreateBuffer allocates count*stride zeroed bytes of 16-byte aligned
// vertex storage. On heap exhaustion it returns NullResource and an error
// wrapping ErrAllocation.
func (c *Context) CreateBuffer(count, stride int) (ResourceID, error) {
	return c.createBuffer(count, stride, gputypes.BufferUsageVertex, "vertex buffer")
}

// CreateVertexBuffer allocates storage for count vertices of format.
func (c *Context) CreateVertexBuffer(format VertexFormat, count int) (ResourceID, error) {
	return c.createBuffer(count, format.Stride(), gputypes.BufferUsageVertex, "static "+format.String())
}

// CreateDynamicVertexBuffer allocates storage for up to maxVertices
// vertices of format, meant to be refilled with LockBuffer every frame.
func (c *Context) CreateDynamicVertexBuffer(format VertexFormat, maxVertices int) (ResourceID, error) {
	return c.createBuffer(maxVertices, format.Stride(), gputypes.BufferUsageVertex, "dynamic "+format.String())
}

func (c *Context) createBuffer(count, stride int, usage gputypes.BufferUsage, label string) (ResourceID, error) {
	if c.closed {
		return NullResource, ErrClosed
	}
	if count < 0 || stride < 0 {
		return NullResource, fmt.Errorf("%w: %d x %d", ErrInvalidBuffer, count, stride)
	}

	size := count * stride
	buf, err := c.dev.NewBuffer(size, usage, label)
	if err != nil {
		Logger().Warn("pica: buffer allocation failed", "size", size, "err", err)
		return NullResource, fmt.Errorf("%w: %s of %d bytes: %w", ErrAllocation, label, size, err)
	}
	return bufferID(c.buffers.Insert(buf, c.clock.Now())), nil
}

// LockBuffer returns the buffer contents for writing. The returned slice
// stays valid until the buffer is deleted. Unknown IDs return nil.
func (c *Context) LockBuffer(id ResourceID) []byte {
	buf, ok := c.buffers.Get(id.bufferPoolID())
	if !ok {
		debug.Assert(false, "LockBuffer on unknown buffer %v", id)
		return nil
	}
	return buf.Bytes()
}

// UnlockBuffer publishes writes made through LockBuffer and makes the
// buffer the current vertex source.
func (c *Context) UnlockBuffer(id ResourceID) {
	buf, ok := c.buffers.Touch(id.bufferPoolID(), c.clock.Now())
	if !ok {
		debug.Assert(false, "UnlockBuffer on unknown buffer %v", id)
		return
	}
	buf.MarkDirty()
	c.dev.BindVertexBuffer(buf)
}

// BindBuffer makes id the vertex source and marks it used in the current
// frame. Unknown IDs are ignored.
func (c *Context) BindBuffer(id ResourceID) {
	buf, ok := c.buffers.Touch(id.bufferPoolID(), c.clock.Now())
	if !ok {
		debug.Assert(id == NullResource, "BindBuffer on unknown buffer %v", id)
		return
	}
	c.dev.BindVertexBuffer(buf)
}

// DeleteBuffer schedules the buffer *id for release and sets *id to
// NullResource. Deleting a null or already deleted buffer is a no-op.
// The shared index buffer lives until Close or Reset, so deleting it only
// clears the handle.
func (c *Context) DeleteBuffer(id *ResourceID) {
	if id == nil || *id == NullResource {
		return
	}
	if *id == c.indexBuf {
		*id = NullResource
		return
	}
	pid := id.bufferPoolID()
	debug.Assert(pid != pool.Null, "DeleteBuffer given texture %v", *id)
	*id = NullResource
	if c.buffers.Unref(&pid) {
		Logger().Debug("pica: buffer deleted", "frame", c.clock.Now())
	}
}

// CreateIndexBuffer fills the context's shared 16-bit index buffer with
// count indices and returns its ID. The buffer is allocated by the first
// call; later calls refill it and may not ask for more indices than the
// first one. An error means the context cannot draw indexed geometry.
func (c *Context) CreateIndexBuffer(count int, fill func([]uint16)) (ResourceID, error) {
	if c.closed {
		return NullResource, ErrClosed
	}
	if count < 0 {
		return NullResource, fmt.Errorf("%w: %d indices", ErrInvalidBuffer, count)
	}

	buf, ok := c.buffers.Get(c.indexBuf.bufferPoolID())
	if !ok {
		var err error
		buf, err = c.dev.NewBuffer(count*2, gputypes.BufferUsageIndex, "index buffer")
		if err != nil {
			Logger().Error("pica: index buffer allocation failed", "count", count, "err", err)
			return NullResource, fmt.Errorf("%w: index buffer of %d indices: %w", ErrAllocation, count, err)
		}
		c.indexBuf = bufferID(c.buffers.Insert(buf, c.clock.Now()))
		c.indexCap = count
	} else if count > c.indexCap {
		return NullResource, fmt.Errorf("%w: index buffer holds %d indices, %d requested",
			ErrInvalidBuffer, c.indexCap, count)
	}

	if fill != nil && count > 0 {
		fill(indices(buf, count))
		buf.MarkDirty()
	}
	return c.indexBuf, nil
}

// BindIndexBuffer makes id the index source for indexed draws.
func (c *Context) BindIndexBuffer(id ResourceID) {
	buf, ok := c.buffers.Touch(id.bufferPoolID(), c.clock.Now())
	if !ok {
		debug.Assert(false, "BindIndexBuffer on unknown buffer %v", id)
		return
	}
	c.dev.BindIndexBuffer(buf)
}

// indices views the first count entries of b as 16-bit indices. Buffer
// storage is 16-byte aligned.
func indices(b *native.Buffer, count int) []uint16 {
	data := b.Bytes()
	return unsafe.Slice((*uint16)(unsafe.Pointer(unsafe.SliceData(data))), count)
}
