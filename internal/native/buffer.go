// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/pica/internal/gpucmd"
	"github.com/gogpu/pica/internal/linear"
)

// indexTypeUnsignedShort selects 16-bit indices in INDEXBUFFER_CONFIG.
const indexTypeUnsignedShort = 1 << 31

// copyBufferAlignment is the HAL size granularity for buffer writes.
const copyBufferAlignment = 4

// Buffer is vertex or index storage in the linear heap, 16-byte aligned.
type Buffer struct {
	block linear.Block
	size  int
	label string
	usage gputypes.BufferUsage

	mirror hal.Buffer
	dirty  bool
}

// Size returns the requested size in bytes.
func (b *Buffer) Size() int { return b.size }

// Label returns the debug label.
func (b *Buffer) Label() string { return b.label }

// Bytes returns the buffer contents. Callers that write to it must call
// MarkDirty.
func (b *Buffer) Bytes() []byte {
	data := b.block.Bytes()
	if len(data) > b.size {
		data = data[:b.size]
	}
	return data
}

// PhysAddr returns the physical address of the buffer.
func (b *Buffer) PhysAddr() uint32 { return b.block.PhysAddr() }

// BufferOffset returns the address as encoded in the command stream.
func (b *Buffer) BufferOffset() uint32 { return b.block.BufferOffset() }

// MarkDirty schedules a mirror refresh on the next flush or bind.
func (b *Buffer) MarkDirty() { b.dirty = true }

// NewBuffer allocates size bytes of zeroed, 16-byte aligned storage.
// usage selects the mirror usage flags.
func (d *Device) NewBuffer(size int, usage gputypes.BufferUsage, label string) (*Buffer, error) {
	if d.closed {
		return nil, ErrDeviceClosed
	}
	block, err := d.heap.Alloc(size, linear.MinAlign)
	if err != nil {
		return nil, fmt.Errorf("native: buffer of %d bytes: %w", size, err)
	}

	buf := &Buffer{block: block, size: size, label: label, usage: usage}

	if d.device != nil && size > 0 {
		//nolint:gosec // G115: size validated non-negative by Alloc
		alignedSize := (uint64(size) + copyBufferAlignment - 1) &^ (copyBufferAlignment - 1)
		mirror, err := d.device.CreateBuffer(&hal.BufferDescriptor{
			Label: label,
			Size:  alignedSize,
			Usage: usage | gputypes.BufferUsageCopyDst,
		})
		if err != nil {
			d.heap.Free(block)
			return nil, fmt.Errorf("native: create buffer mirror %q: %w", label, err)
		}
		buf.mirror = mirror
	}

	slogger().Debug("native: buffer created", "label", label, "size", size,
		"phys", fmt.Sprintf("%#08x", block.PhysAddr()))
	return buf, nil
}

// FlushBuffer refreshes the mirror of b if its contents changed.
func (d *Device) FlushBuffer(b *Buffer) {
	if !b.dirty {
		return
	}
	b.dirty = false
	if b.mirror == nil || d.queue == nil {
		return
	}
	data := b.block.Bytes()
	n := (b.size + copyBufferAlignment - 1) &^ (copyBufferAlignment - 1)
	if n > len(data) {
		n = len(data)
	}
	d.queue.WriteBuffer(b.mirror, 0, data[:n])
	d.uploads.Buffers++
	d.uploads.BytesWritten += uint64(n) //nolint:gosec // G115: n is non-negative
}

// BindVertexBuffer makes b the vertex attribute source.
func (d *Device) BindVertexBuffer(b *Buffer) {
	d.FlushBuffer(b)
	d.cmds.AddWrite(gpucmd.RegAttribBuffersLoc, linear.BufferBasePhys>>3)
	d.cmds.AddWrite(gpucmd.RegAttribBuffer0Offset, b.BufferOffset())
}

// BindIndexBuffer makes b the source of 16-bit indices.
func (d *Device) BindIndexBuffer(b *Buffer) {
	d.FlushBuffer(b)
	d.cmds.AddWrite(gpucmd.RegIndexBufferConfig, b.BufferOffset()|indexTypeUnsignedShort)
}

// DestroyBuffer frees the storage and the mirror.
func (d *Device) DestroyBuffer(b *Buffer) {
	if b == nil {
		return
	}
	if b.mirror != nil && d.device != nil {
		d.device.DestroyBuffer(b.mirror)
	}
	b.mirror = nil
	d.heap.Free(b.block)
	b.block = linear.Block{}
	slogger().Debug("native: buffer destroyed", "label", b.label)
}
