// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package native owns the GPU-side storage behind textures and buffers.
//
// Texel and vertex data live in the linear heap, which the GPU reads
// directly through physical addresses recorded in the command list. When
// a HAL device is attached, every resource also gets a hal.Texture or
// hal.Buffer mirror that is refreshed from the linear copy on bind.
package native

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/pica/internal/gpucmd"
	"github.com/gogpu/pica/internal/linear"
)

// Device errors.
var (
	// ErrNoAdapter is returned when a HAL instance exposes no adapters.
	ErrNoAdapter = errors.New("native: no GPU adapters found")

	// ErrDeviceClosed is returned when allocating on a closed device.
	ErrDeviceClosed = errors.New("native: device closed")
)

// UploadStats counts transfers from the linear heap to HAL mirrors.
type UploadStats struct {
	Textures     uint64
	Buffers      uint64
	BytesWritten uint64
}

// Device pairs the linear heap with an optional HAL device and records
// bind commands.
//
// Device is not safe for concurrent use.
type Device struct {
	device   hal.Device
	queue    hal.Queue
	instance hal.Instance
	owned    bool

	heap *linear.Heap
	cmds gpucmd.List

	uploads UploadStats
	closed  bool
}

// New creates a device over an externally owned HAL device and queue.
// Both may be nil, in which case resources live only in the linear heap.
func New(device hal.Device, queue hal.Queue, heapSize int) *Device {
	return &Device{
		device: device,
		queue:  queue,
		heap:   linear.New(heapSize),
	}
}

// OpenNoop creates a device backed by the hal/noop backend. The device
// owns its HAL instance and destroys it on Close.
func OpenNoop(heapSize int) (*Device, error) {
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		return nil, fmt.Errorf("native: create noop instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, ErrNoAdapter
	}
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("native: open noop device: %w", err)
	}

	d := New(openDev.Device, openDev.Queue, heapSize)
	d.instance = instance
	d.owned = true
	slogger().Debug("native: noop device opened", "adapter", adapters[0].Info.Name, "heap", heapSize)
	return d, nil
}

// HAL returns the attached HAL device and queue, which may be nil.
func (d *Device) HAL() (hal.Device, hal.Queue) { return d.device, d.queue }

// Heap returns the linear heap.
func (d *Device) Heap() *linear.Heap { return d.heap }

// Commands returns the command list recorded since the last flush.
func (d *Device) Commands() *gpucmd.List { return &d.cmds }

// Uploads returns transfer counters.
func (d *Device) Uploads() UploadStats { return d.uploads }

// FlushCommands hands the recorded command list to the GPU and starts a
// new one. It returns the number of register writes flushed.
func (d *Device) FlushCommands() int {
	n := d.cmds.Len()
	if n > 0 {
		slogger().Debug("native: command list flushed", "writes", n)
	}
	d.cmds.Reset()
	return n
}

// Close releases the HAL device if this Device opened it. Resources must
// already have been destroyed.
func (d *Device) Close() {
	if d.closed {
		return
	}
	d.closed = true

	if s := d.heap.Stats(); s.Blocks > 0 {
		slogger().Warn("native: closing device with live heap blocks", "blocks", s.Blocks, "bytes", s.UsedBytes)
	}
	d.heap.Reset()
	d.cmds.Reset()

	if d.owned {
		if d.device != nil {
			d.device.Destroy()
		}
		if d.instance != nil {
			d.instance.Destroy()
		}
	}
	d.device = nil
	d.queue = nil
	d.instance = nil
}
