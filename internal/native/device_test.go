// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/pica/internal/gpucmd"
	"github.com/gogpu/pica/internal/linear"
)

// openTestDevice opens a noop-backed device and closes it at test end.
func openTestDevice(t *testing.T, heapSize int) *Device {
	t.Helper()
	d, err := OpenNoop(heapSize)
	if err != nil {
		t.Fatalf("OpenNoop failed: %v", err)
	}
	t.Cleanup(d.Close)
	return d
}

func TestOpenNoop(t *testing.T) {
	d := openTestDevice(t, 1<<20)
	dev, queue := d.HAL()
	if dev == nil || queue == nil {
		t.Fatal("noop device has no HAL device or queue")
	}
	if d.Heap().Stats().TotalBytes != 1<<20 {
		t.Errorf("heap size = %d, want %d", d.Heap().Stats().TotalBytes, 1<<20)
	}
}

func TestTextureLifecycle(t *testing.T) {
	d := openTestDevice(t, 1<<20)

	tex, err := d.NewTexture(16, 8, false, "test")
	if err != nil {
		t.Fatalf("NewTexture: %v", err)
	}
	if tex.Width() != 16 || tex.Height() != 8 {
		t.Errorf("size = %dx%d, want 16x8", tex.Width(), tex.Height())
	}
	if tex.SizeBytes() != 16*8*4 {
		t.Errorf("SizeBytes() = %d, want %d", tex.SizeBytes(), 16*8*4)
	}
	if len(tex.Texels()) != 16*8 {
		t.Errorf("len(Texels()) = %d, want %d", len(tex.Texels()), 16*8)
	}
	if tex.PhysAddr()%linear.TextureAlign != 0 {
		t.Errorf("texture at %#x not %d-aligned", tex.PhysAddr(), linear.TextureAlign)
	}
	if tex.Format().String() != "RGBA8" {
		t.Errorf("Format() = %v", tex.Format())
	}

	d.BindTexture(tex)
	if got := d.Uploads().Textures; got != 1 {
		t.Errorf("uploads after first bind = %d, want 1", got)
	}
	d.BindTexture(tex)
	if got := d.Uploads().Textures; got != 1 {
		t.Errorf("clean bind uploaded again: %d", got)
	}
	tex.MarkDirty()
	d.BindTexture(tex)
	if got := d.Uploads().Textures; got != 2 {
		t.Errorf("dirty bind uploads = %d, want 2", got)
	}

	cmds := d.Commands()
	if v, ok := cmds.Last(gpucmd.RegTexUnit0Addr1); !ok || v != tex.PhysAddr()>>3 {
		t.Errorf("ADDR1 = %#x, want %#x", v, tex.PhysAddr()>>3)
	}
	if v, _ := cmds.Last(gpucmd.RegTexUnit0Dim); v != 16<<16|8 {
		t.Errorf("DIM = %#x, want %#x", v, 16<<16|8)
	}
	if v, _ := cmds.Last(gpucmd.RegTexUnit0Param); v != DefaultTextureParam {
		t.Errorf("PARAM = %#x, want %#x", v, DefaultTextureParam)
	}

	if n := d.FlushCommands(); n != 12 {
		t.Errorf("FlushCommands() = %d, want 12", n)
	}
	if d.Commands().Len() != 0 {
		t.Error("command list not reset")
	}

	d.DestroyTexture(tex)
	if s := d.Heap().Stats(); s.Blocks != 0 {
		t.Errorf("heap still has %d blocks", s.Blocks)
	}
}

func TestTextureOutOfMemory(t *testing.T) {
	d := openTestDevice(t, 4096)
	_, err := d.NewTexture(64, 64, false, "too big")
	if !errors.Is(err, linear.ErrOutOfMemory) {
		t.Fatalf("NewTexture error = %v, want ErrOutOfMemory", err)
	}
}

func TestBufferLifecycle(t *testing.T) {
	d := openTestDevice(t, 1<<16)

	buf, err := d.NewBuffer(24*3, gputypes.BufferUsageVertex, "vb")
	if err != nil {
		t.Fatalf("NewBuffer: %v", err)
	}
	if buf.PhysAddr()%linear.MinAlign != 0 {
		t.Errorf("buffer at %#x not 16-aligned", buf.PhysAddr())
	}
	if len(buf.Bytes()) != 72 {
		t.Errorf("len(Bytes()) = %d, want 72", len(buf.Bytes()))
	}

	buf.Bytes()[0] = 1
	buf.MarkDirty()
	d.BindVertexBuffer(buf)
	if got := d.Uploads().Buffers; got != 1 {
		t.Errorf("buffer uploads = %d, want 1", got)
	}
	if v, ok := d.Commands().Last(gpucmd.RegAttribBuffer0Offset); !ok || v != buf.BufferOffset() {
		t.Errorf("ATTRIBBUFFER0_OFFSET = %#x, want %#x", v, buf.BufferOffset())
	}
	if v, _ := d.Commands().Last(gpucmd.RegAttribBuffersLoc); v != linear.BufferBasePhys>>3 {
		t.Errorf("ATTRIBBUFFERS_LOC = %#x, want %#x", v, linear.BufferBasePhys>>3)
	}

	d.DestroyBuffer(buf)
	if s := d.Heap().Stats(); s.UsedBytes != 0 {
		t.Errorf("heap still uses %d bytes", s.UsedBytes)
	}
}

func TestBindIndexBufferEncoding(t *testing.T) {
	d := openTestDevice(t, 1<<16)
	ib, err := d.NewBuffer(6*2, gputypes.BufferUsageIndex, "ib")
	if err != nil {
		t.Fatal(err)
	}
	defer d.DestroyBuffer(ib)

	d.BindIndexBuffer(ib)
	v, ok := d.Commands().Last(gpucmd.RegIndexBufferConfig)
	if !ok {
		t.Fatal("no INDEXBUFFER_CONFIG write")
	}
	want := (ib.PhysAddr() - linear.BufferBasePhys) | 1<<31
	if v != want {
		t.Errorf("INDEXBUFFER_CONFIG = %#x, want %#x", v, want)
	}
}

func TestHeadlessDevice(t *testing.T) {
	d := New(nil, nil, 1<<16)
	defer d.Close()

	tex, err := d.NewTexture(8, 8, true, "headless")
	if err != nil {
		t.Fatalf("NewTexture: %v", err)
	}
	d.BindTexture(tex)
	if d.Uploads().Textures != 0 {
		t.Error("headless device recorded an upload")
	}
	if !tex.Dynamic() {
		t.Error("Dynamic() = false")
	}
	if d.TransferToVRAM(tex) {
		t.Error("TransferToVRAM reported a move")
	}
	d.DestroyTexture(tex)
}

func TestClosedDevice(t *testing.T) {
	d := New(nil, nil, 1<<16)
	d.Close()
	d.Close()
	if _, err := d.NewTexture(8, 8, false, ""); !errors.Is(err, ErrDeviceClosed) {
		t.Errorf("NewTexture on closed device error = %v", err)
	}
	if _, err := d.NewBuffer(16, gputypes.BufferUsageVertex, ""); !errors.Is(err, ErrDeviceClosed) {
		t.Errorf("NewBuffer on closed device error = %v", err)
	}
}
