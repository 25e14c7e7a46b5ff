package pica

import (
	"errors"
	"testing"

	"github.com/gogpu/pica/internal/gpucmd"
	"github.com/gogpu/pica/internal/linear"
)

func TestVertexFormatStride(t *testing.T) {
	tests := []struct {
		format VertexFormat
		stride int
		name   string
	}{
		{VertexColored, 16, "Colored"},
		{VertexTextured, 24, "Textured"},
	}
	for _, tt := range tests {
		if got := tt.format.Stride(); got != tt.stride {
			t.Errorf("%v.Stride() = %d, want %d", tt.format, got, tt.stride)
		}
		if got := tt.format.String(); got != tt.name {
			t.Errorf("String() = %q, want %q", got, tt.name)
		}
	}
}

func TestCreateVertexBuffer(t *testing.T) {
	ctx := newTestContext(t)

	id, err := ctx.CreateVertexBuffer(VertexTextured, 4)
	if err != nil {
		t.Fatal(err)
	}
	data := ctx.LockBuffer(id)
	if len(data) != 4*24 {
		t.Fatalf("len(LockBuffer) = %d, want %d", len(data), 4*24)
	}
	for i, b := range data {
		if b != 0 {
			t.Fatalf("byte %d = %d, want zeroed storage", i, b)
		}
	}

	data[0] = 0xAB
	ctx.UnlockBuffer(id)
	if got := ctx.Stats().BufferUploads; got != 1 {
		t.Errorf("BufferUploads = %d, want 1", got)
	}

	buf, _ := ctx.buffers.Get(id.bufferPoolID())
	if buf.PhysAddr()%linear.MinAlign != 0 {
		t.Errorf("buffer at %#x not 16-byte aligned", buf.PhysAddr())
	}
	if v, ok := lastWrite(ctx, gpucmd.RegAttribBuffer0Offset); !ok || v != buf.BufferOffset() {
		t.Errorf("ATTRIBBUFFER0_OFFSET = %#x, want %#x", v, buf.BufferOffset())
	}
}

func TestCreateBufferErrors(t *testing.T) {
	ctx := newTestContext(t, WithHeadless(), WithHeapSize(4096))

	if _, err := ctx.CreateBuffer(-1, 16); !errors.Is(err, ErrInvalidBuffer) {
		t.Errorf("negative count = %v, want ErrInvalidBuffer", err)
	}
	id, err := ctx.CreateDynamicVertexBuffer(VertexColored, 1024)
	if !errors.Is(err, ErrAllocation) {
		t.Errorf("oversized buffer = %v, want ErrAllocation", err)
	}
	if id != NullResource {
		t.Errorf("id = %v, want null", id)
	}
}

func TestDynamicBufferRefill(t *testing.T) {
	ctx := newTestContext(t)
	id, err := ctx.CreateDynamicVertexBuffer(VertexColored, 64)
	if err != nil {
		t.Fatal(err)
	}

	for frame := range 3 {
		ctx.BeginFrame()
		data := ctx.LockBuffer(id)
		data[0] = byte(frame)
		ctx.UnlockBuffer(id)
		ctx.EndFrame()
	}
	if got := ctx.Stats().BufferUploads; got != 3 {
		t.Errorf("BufferUploads = %d, want 3", got)
	}
	if last, _ := ctx.buffers.LastUsed(id.bufferPoolID()); last != 2 {
		t.Errorf("lastUsed = %d, want 2", last)
	}
}

func TestBindBufferStampsFrame(t *testing.T) {
	ctx := newTestContext(t, WithHeadless())
	id, _ := ctx.CreateBuffer(3, 16)

	runFrames(ctx, 5)
	ctx.BindBuffer(id)
	ctx.DeleteBuffer(&id)
	if id != NullResource {
		t.Error("DeleteBuffer did not clear the handle")
	}

	// Bound at 5: kept through the sweep of frame 8, released at 9.
	runFrames(ctx, 4)
	if ctx.Stats().PendingBuffers != 1 {
		t.Fatal("buffer released inside the safety window")
	}
	runFrames(ctx, 1)
	if ctx.Stats().PendingBuffers != 0 {
		t.Error("buffer not released after the safety window")
	}
}

func TestIndexBuffer(t *testing.T) {
	ctx := newTestContext(t)

	quads := func(idx []uint16) {
		for i := 0; i+6 <= len(idx); i += 6 {
			v := uint16(i / 6 * 4) //nolint:gosec // G115: test sizes are small
			copy(idx[i:], []uint16{v, v + 1, v + 2, v + 2, v + 3, v})
		}
	}
	id, err := ctx.CreateIndexBuffer(12, quads)
	if err != nil {
		t.Fatal(err)
	}

	buf, _ := ctx.buffers.Get(id.bufferPoolID())
	if got := indices(buf, 12)[6]; got != 4 {
		t.Errorf("index 6 = %d, want 4", got)
	}

	ctx.BindIndexBuffer(id)
	want := (buf.PhysAddr() - linear.BufferBasePhys) | 1<<31
	if v, ok := lastWrite(ctx, gpucmd.RegIndexBufferConfig); !ok || v != want {
		t.Errorf("INDEXBUFFER_CONFIG = %#x, want %#x", v, want)
	}

	again, err := ctx.CreateIndexBuffer(6, quads)
	if err != nil {
		t.Fatal(err)
	}
	if again != id {
		t.Errorf("second CreateIndexBuffer = %v, want shared %v", again, id)
	}
	if _, err := ctx.CreateIndexBuffer(24, quads); !errors.Is(err, ErrInvalidBuffer) {
		t.Errorf("growing the index buffer = %v, want ErrInvalidBuffer", err)
	}

	ctx.DeleteBuffer(&again)
	if again != NullResource {
		t.Error("handle not cleared")
	}
	if ctx.Stats().PendingBuffers != 0 {
		t.Error("shared index buffer was queued for deletion")
	}
}

func TestIndexBufferAllocationFailure(t *testing.T) {
	ctx := newTestContext(t, WithHeadless(), WithHeapSize(1024))
	_, err := ctx.CreateIndexBuffer(4096, nil)
	if !errors.Is(err, ErrAllocation) {
		t.Errorf("CreateIndexBuffer = %v, want ErrAllocation", err)
	}
}
