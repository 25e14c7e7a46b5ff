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

// TextureFormat is the GPU texel format code written to TEXUNIT0_TYPE.
type TextureFormat uint8

const (
	// TextureFormatRGBA8 is 32-bit RGBA, 8 bits per channel.
	TextureFormatRGBA8 TextureFormat = 0
)

// String returns a human-readable name for the format.
func (f TextureFormat) String() string {
	switch f {
	case TextureFormatRGBA8:
		return "RGBA8"
	default:
		return fmt.Sprintf("Unknown(%d)", f)
	}
}

// BytesPerPixel returns the number of bytes per texel.
func (f TextureFormat) BytesPerPixel() int { return 4 }

// ToWGPUFormat converts to the HAL mirror format.
func (f TextureFormat) ToWGPUFormat() gputypes.TextureFormat {
	return gputypes.TextureFormatRGBA8Unorm
}

// Texture sampler parameter fields, as laid out in TEXUNIT0_PARAM.
const (
	filterNearest = 0
	wrapRepeat    = 2

	// DefaultTextureParam selects nearest filtering and repeat wrapping.
	DefaultTextureParam uint32 = filterNearest<<1 | filterNearest<<2 | wrapRepeat<<8 | wrapRepeat<<12
)

// Texture is GPU texture storage in tiled layout.
type Texture struct {
	block   linear.Block
	width   int
	height  int
	format  TextureFormat
	param   uint32
	dynamic bool
	label   string

	mirror hal.Texture
	dirty  bool
}

// Width returns the texture width in texels.
func (t *Texture) Width() int { return t.width }

// Height returns the texture height in texels.
func (t *Texture) Height() int { return t.height }

// Format returns the texel format.
func (t *Texture) Format() TextureFormat { return t.format }

// SizeBytes returns the size of the texel storage.
func (t *Texture) SizeBytes() int { return t.block.Size() }

// PhysAddr returns the physical address of the texel storage.
func (t *Texture) PhysAddr() uint32 { return t.block.PhysAddr() }

// Dynamic reports whether the texture was created for frequent updates.
func (t *Texture) Dynamic() bool { return t.dynamic }

// Label returns the debug label.
func (t *Texture) Label() string { return t.label }

// Texels returns the tiled texel storage. Callers that write to it must
// call MarkDirty.
func (t *Texture) Texels() []uint32 { return t.block.Words() }

// MarkDirty schedules a mirror refresh on the next bind.
func (t *Texture) MarkDirty() { t.dirty = true }

// NewTexture allocates zeroed RGBA8 storage of width x height texels.
func (d *Device) NewTexture(width, height int, dynamic bool, label string) (*Texture, error) {
	if d.closed {
		return nil, ErrDeviceClosed
	}
	format := TextureFormatRGBA8
	block, err := d.heap.Alloc(width*height*format.BytesPerPixel(), linear.TextureAlign)
	if err != nil {
		return nil, fmt.Errorf("native: texture %dx%d: %w", width, height, err)
	}

	tex := &Texture{
		block:   block,
		width:   width,
		height:  height,
		format:  format,
		param:   DefaultTextureParam,
		dynamic: dynamic,
		label:   label,
		dirty:   true,
	}

	if d.device != nil {
		mirror, err := d.device.CreateTexture(&hal.TextureDescriptor{
			Label: label,
			Size: hal.Extent3D{
				Width:              uint32(width),  //nolint:gosec // G115: bounded by texture limits
				Height:             uint32(height), //nolint:gosec // G115: bounded by texture limits
				DepthOrArrayLayers: 1,
			},
			MipLevelCount: 1,
			SampleCount:   1,
			Dimension:     gputypes.TextureDimension2D,
			Format:        format.ToWGPUFormat(),
			Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
		})
		if err != nil {
			d.heap.Free(block)
			return nil, fmt.Errorf("native: create texture mirror %q: %w", label, err)
		}
		tex.mirror = mirror
	}

	slogger().Debug("native: texture created",
		"label", label, "width", width, "height", height,
		"phys", fmt.Sprintf("%#08x", block.PhysAddr()))
	return tex, nil
}

// TransferToVRAM would move static texture storage into VRAM. VRAM
// copies of linear-heap textures sample as garbage on this GPU, so the
// storage stays in the linear heap and TransferToVRAM reports false.
func (d *Device) TransferToVRAM(t *Texture) bool {
	slogger().Debug("native: texture stays in linear heap", "label", t.label)
	return false
}

// BindTexture records the texture unit 0 state for t and refreshes its
// mirror if the texels changed since the last bind.
func (d *Device) BindTexture(t *Texture) {
	if t.dirty {
		d.uploadTexture(t)
	}

	//nolint:gosec // G115: dimensions bounded by texture limits
	d.cmds.AddWrite(gpucmd.RegTexUnit0Dim, uint32(t.width)<<16|uint32(t.height))
	d.cmds.AddWrite(gpucmd.RegTexUnit0Param, t.param)
	d.cmds.AddWrite(gpucmd.RegTexUnit0Addr1, t.block.PhysAddr()>>3)
	d.cmds.AddWrite(gpucmd.RegTexUnit0Type, uint32(t.format))
}

func (d *Device) uploadTexture(t *Texture) {
	t.dirty = false
	if t.mirror == nil || d.queue == nil {
		return
	}
	data := t.block.Bytes()
	//nolint:gosec // G115: dimensions bounded by texture limits
	d.queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: t.mirror, MipLevel: 0},
		data,
		&hal.ImageDataLayout{
			Offset:       0,
			BytesPerRow:  uint32(t.width * t.format.BytesPerPixel()),
			RowsPerImage: uint32(t.height),
		},
		&hal.Extent3D{Width: uint32(t.width), Height: uint32(t.height), DepthOrArrayLayers: 1},
	)
	d.uploads.Textures++
	d.uploads.BytesWritten += uint64(len(data))
}

// DestroyTexture frees the texel storage and the mirror.
func (d *Device) DestroyTexture(t *Texture) {
	if t == nil {
		return
	}
	if t.mirror != nil && d.device != nil {
		d.device.DestroyTexture(t.mirror)
	}
	t.mirror = nil
	d.heap.Free(t.block)
	t.block = linear.Block{}
	slogger().Debug("native: texture destroyed", "label", t.label)
}
