package pica

import (
	"errors"
	"testing"

	"github.com/gogpu/pica/internal/gpucmd"
	"github.com/gogpu/pica/internal/linear"
	"github.com/gogpu/pica/internal/morton"
)

// gradient returns a bitmap whose texels encode their coordinates.
func gradient(w, h int) *Bitmap {
	bmp := NewBitmap(w, h)
	for y := range h {
		for x := range w {
			bmp.Set(x, y, uint32(y)<<16|uint32(x)) //nolint:gosec // G115: test sizes are small
		}
	}
	return bmp
}

func TestCreateTextureValidation(t *testing.T) {
	ctx := newTestContext(t, WithHeadless())

	tests := []struct {
		name string
		w, h int
		want error
	}{
		{"minimum", 8, 8, nil},
		{"wide", 1024, 64, nil},
		{"max area", 512, 512, nil},
		{"below minimum", 4, 8, ErrInvalidDimensions},
		{"not tile aligned", 12, 16, ErrInvalidDimensions},
		{"zero", 0, 0, ErrInvalidDimensions},
		{"too wide", 2048, 8, ErrTextureTooLarge},
		{"too tall", 8, 1032, ErrTextureTooLarge},
		{"area over limit", 1024, 512, ErrTextureTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := ctx.CreateTexture(NewBitmap(tt.w, tt.h), 0)
			if tt.want == nil {
				if err != nil {
					t.Fatalf("CreateTexture(%dx%d) = %v", tt.w, tt.h, err)
				}
				ctx.DeleteTexture(&id)
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("CreateTexture(%dx%d) error = %v, want %v", tt.w, tt.h, err, tt.want)
			}
			if id != NullResource {
				t.Errorf("failed CreateTexture returned %v", id)
			}
		})
	}

	if _, err := ctx.CreateTexture(nil, 0); !errors.Is(err, ErrNilBitmap) {
		t.Errorf("CreateTexture(nil) = %v, want ErrNilBitmap", err)
	}
}

func TestCreateTextureAllocationFailure(t *testing.T) {
	ctx := newTestContext(t, WithHeapSize(8*1024))

	id, err := ctx.CreateTexture(NewBitmap(64, 64), 0)
	if !errors.Is(err, ErrAllocation) {
		t.Fatalf("error = %v, want ErrAllocation", err)
	}
	if !errors.Is(err, linear.ErrOutOfMemory) {
		t.Errorf("error = %v, want it to wrap linear.ErrOutOfMemory", err)
	}
	if id != NullResource {
		t.Errorf("id = %v, want null", id)
	}
	if ctx.Stats().AllocFailures != 1 {
		t.Errorf("AllocFailures = %d, want 1", ctx.Stats().AllocFailures)
	}

	// The context stays usable.
	if _, err := ctx.CreateTexture(NewBitmap(16, 16), 0); err != nil {
		t.Errorf("small texture after failure: %v", err)
	}
}

func TestCreateTextureTiledLayout(t *testing.T) {
	ctx := newTestContext(t, WithHeadless())
	src := gradient(16, 16)

	id, err := ctx.CreateTexture(src, 0)
	if err != nil {
		t.Fatal(err)
	}
	tex, ok := ctx.textures.Get(id.texturePoolID())
	if !ok {
		t.Fatal("texture not live")
	}

	texels := tex.Texels()
	// Top-left bitmap texel lands on the bottom texture row.
	if got := texels[morton.Index(0, 15, 16)]; got != src.At(0, 0) {
		t.Errorf("texel for (0,0) = %#x, want %#x", got, src.At(0, 0))
	}
	if got := texels[morton.Index(9, 0, 16)]; got != src.At(9, 15) {
		t.Errorf("texel for (9,15) = %#x, want %#x", got, src.At(9, 15))
	}

	back, err := ctx.ReadTexture(id)
	if err != nil {
		t.Fatal(err)
	}
	for y := range 16 {
		for x := range 16 {
			if back.At(x, y) != src.At(x, y) {
				t.Fatalf("ReadTexture(%d,%d) = %#x, want %#x", x, y, back.At(x, y), src.At(x, y))
			}
		}
	}
}

func TestCreateTextureFromView(t *testing.T) {
	ctx := newTestContext(t, WithHeadless())
	big := gradient(32, 32)
	view := big.View(8, 16, 16, 8)

	id, err := ctx.CreateTexture(view, TextureFlagDynamic)
	if err != nil {
		t.Fatal(err)
	}
	back, _ := ctx.ReadTexture(id)
	for y := range 8 {
		for x := range 16 {
			if back.At(x, y) != big.At(x+8, y+16) {
				t.Fatalf("texel (%d,%d) = %#x, want %#x", x, y, back.At(x, y), big.At(x+8, y+16))
			}
		}
	}
}

func TestUpdateTexture(t *testing.T) {
	ctx := newTestContext(t)
	id, err := ctx.CreateTexture(solidBitmap(32, 32, White), TextureFlagDynamic)
	if err != nil {
		t.Fatal(err)
	}
	ctx.BindTexture(id)
	uploads := ctx.Stats().TextureUploads

	red := PackRGBA(255, 0, 0, 255)
	ctx.UpdateTexturePart(id, 8, 16, solidBitmap(8, 8, red))

	back, _ := ctx.ReadTexture(id)
	for y := range 32 {
		for x := range 32 {
			want := White
			if x >= 8 && x < 16 && y >= 16 && y < 24 {
				want = red
			}
			if back.At(x, y) != want {
				t.Fatalf("texel (%d,%d) = %#08x, want %#08x", x, y, back.At(x, y), want)
			}
		}
	}

	ctx.BindTexture(id)
	if got := ctx.Stats().TextureUploads; got != uploads+1 {
		t.Errorf("TextureUploads = %d, want %d after update", got, uploads+1)
	}
}

func TestUpdateTextureWithStride(t *testing.T) {
	ctx := newTestContext(t, WithHeadless())
	id, _ := ctx.CreateTexture(NewBitmap(16, 16), 0)

	atlas := gradient(64, 64)
	region := atlas.View(4, 4, 8, 8)
	ctx.UpdateTexture(id, 8, 0, region, atlas.Stride())

	back, _ := ctx.ReadTexture(id)
	for y := range 8 {
		for x := range 8 {
			if got, want := back.At(x+8, y), atlas.At(x+4, y+4); got != want {
				t.Fatalf("texel (%d,%d) = %#x, want %#x", x+8, y, got, want)
			}
		}
	}
	if back.At(0, 0) != 0 {
		t.Error("texels outside the region changed")
	}
}

func TestUpdateTextureOutOfBoundsIgnored(t *testing.T) {
	ctx := newTestContext(t, WithHeadless())
	id, _ := ctx.CreateTexture(NewBitmap(8, 8), 0)
	before, _ := ctx.ReadTexture(id)

	defer func() {
		// picadebug builds panic on the violation.
		_ = recover()
		after, _ := ctx.ReadTexture(id)
		for i, p := range after.Pixels() {
			if p != before.Pixels()[i] {
				t.Fatalf("texel %d changed by rejected update", i)
			}
		}
	}()
	ctx.UpdateTexturePart(id, 4, 4, solidBitmap(8, 8, White))
}

func TestBindTexture(t *testing.T) {
	ctx := newTestContext(t)
	id, err := ctx.CreateTexture(NewBitmap(32, 16), 0)
	if err != nil {
		t.Fatal(err)
	}
	tex, _ := ctx.textures.Get(id.texturePoolID())

	runFrames(ctx, 2)
	ctx.BindTexture(id)

	if v, ok := lastWrite(ctx, gpucmd.RegTexUnit0Addr1); !ok || v != tex.PhysAddr()>>3 {
		t.Errorf("TEXUNIT0_ADDR1 = %#x, want %#x", v, tex.PhysAddr()>>3)
	}
	if v, _ := lastWrite(ctx, gpucmd.RegTexUnit0Dim); v != 32<<16|16 {
		t.Errorf("TEXUNIT0_DIM = %#x, want %#x", v, 32<<16|16)
	}
	if last, _ := ctx.textures.LastUsed(id.texturePoolID()); last != 2 {
		t.Errorf("lastUsed = %d, want 2", last)
	}
}

func TestBindDeletedTextureUsesDefault(t *testing.T) {
	ctx := newTestContext(t)

	ctx.BindTexture(ctx.DefaultTexture())
	defaultAddr, _ := lastWrite(ctx, gpucmd.RegTexUnit0Addr1)

	id, _ := ctx.CreateTexture(NewBitmap(16, 16), 0)
	stale := id
	ctx.DeleteTexture(&id)
	runFrames(ctx, 2)

	for _, bind := range []ResourceID{NullResource, stale} {
		ctx.BindTexture(bind)
		if v, _ := lastWrite(ctx, gpucmd.RegTexUnit0Addr1); v != defaultAddr {
			t.Errorf("BindTexture(%v) bound %#x, want default %#x", bind, v, defaultAddr)
		}
	}
	if got := ctx.Stats().FallbackBinds; got != 2 {
		t.Errorf("FallbackBinds = %d, want 2", got)
	}

	// A pending texture is not re-stamped by the fallback bind.
	if last, _ := ctx.textures.LastUsed(stale.texturePoolID()); last != 0 {
		t.Errorf("pending lastUsed = %d, want 0", last)
	}
}

func TestStaleTextureIDAfterReuse(t *testing.T) {
	ctx := newTestContext(t, WithHeadless())

	id, _ := ctx.CreateTexture(NewBitmap(8, 8), 0)
	stale := id
	ctx.DeleteTexture(&id)
	runFrames(ctx, int(ctx.SafetyWindow())+1)

	fresh, _ := ctx.CreateTexture(solidBitmap(8, 8, White), 0)
	if fresh == stale {
		t.Fatal("reused slot produced an identical ID")
	}
	if _, err := ctx.ReadTexture(stale); !errors.Is(err, ErrUnknownResource) {
		t.Errorf("stale ID resolved: %v", err)
	}
	ctx.DeleteTexture(&stale)
	if _, err := ctx.ReadTexture(fresh); err != nil {
		t.Errorf("deleting a stale ID affected the new texture: %v", err)
	}
}

func TestTextureAndBufferIDsDoNotAlias(t *testing.T) {
	ctx := newTestContext(t, WithHeadless())
	buf, _ := ctx.CreateBuffer(4, 16)

	if _, err := ctx.ReadTexture(buf); !errors.Is(err, ErrUnknownResource) {
		t.Errorf("buffer ID resolved as a texture: %v", err)
	}
	if _, ok := ctx.buffers.Get(ctx.DefaultTexture().bufferPoolID()); ok {
		t.Error("texture ID resolved as a buffer")
	}
}
