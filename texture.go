package pica

import (
	"fmt"

	"github.com/gogpu/pica/internal/debug"
	"github.com/gogpu/pica/internal/morton"
	"github.com/gogpu/pica/internal/native"
	"github.com/gogpu/pica/internal/pool"
)

// Texture size limits of the GPU.
const (
	// MaxTextureWidth and MaxTextureHeight bound each dimension.
	MaxTextureWidth  = 1024
	MaxTextureHeight = 1024

	// MaxTextureSize bounds width*height.
	MaxTextureSize = 512 * 512

	// MinTextureSize is the smallest allowed dimension.
	MinTextureSize = TileSize
)

// TextureFlags modify texture creation.
type TextureFlags uint8

const (
	// TextureFlagDynamic marks a texture that is updated often. Dynamic
	// textures are never considered for VRAM placement.
	TextureFlagDynamic TextureFlags = 1 << iota
)

// CreateTexture uploads bmp into a new tiled texture and returns its ID.
//
// Both dimensions must be multiples of TileSize and at least
// MinTextureSize. If the linear heap cannot hold the texture,
// CreateTexture returns NullResource and an error wrapping ErrAllocation;
// the caller decides whether that is fatal.
func (c *Context) CreateTexture(bmp *Bitmap, flags TextureFlags) (ResourceID, error) {
	if c.closed {
		return NullResource, ErrClosed
	}
	if bmp == nil {
		return NullResource, ErrNilBitmap
	}
	w, h := bmp.Width(), bmp.Height()
	if err := checkTextureSize(w, h); err != nil {
		return NullResource, err
	}

	dynamic := flags&TextureFlagDynamic != 0
	tex, err := c.dev.NewTexture(w, h, dynamic, fmt.Sprintf("texture %dx%d", w, h))
	if err != nil {
		Logger().Warn("pica: texture allocation failed", "width", w, "height", h, "err", err)
		return NullResource, fmt.Errorf("%w: texture %dx%d: %w", ErrAllocation, w, h, err)
	}

	morton.Transcode(tex.Texels(), w, h, 0, 0, bmp.Pixels(), w, h, bmp.Stride())
	tex.MarkDirty()
	if !dynamic {
		c.dev.TransferToVRAM(tex)
	}

	id := textureID(c.textures.Insert(tex, c.clock.Now()))
	Logger().Debug("pica: texture created", "id", id, "width", w, "height", h, "dynamic", dynamic)
	return id, nil
}

func checkTextureSize(w, h int) error {
	if w < MinTextureSize || h < MinTextureSize || w%TileSize != 0 || h%TileSize != 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, w, h)
	}
	if w > MaxTextureWidth || h > MaxTextureHeight || w*h > MaxTextureSize {
		return fmt.Errorf("%w: %dx%d", ErrTextureTooLarge, w, h)
	}
	return nil
}

// UpdateTexture copies part into the texture at column x, row y (top-down).
// rowStride is the distance between rows of part in texels, so a region
// of a larger bitmap can be uploaded without copying it first.
//
// The region must lie inside the texture and id must name a live texture.
// Violations are ignored, and panic in picadebug builds.
func (c *Context) UpdateTexture(id ResourceID, x, y int, part *Bitmap, rowStride int) {
	tex, ok := c.textures.Get(id.texturePoolID())
	if !ok {
		debug.Assert(false, "UpdateTexture on unknown texture %v", id)
		Logger().Warn("pica: update of unknown texture ignored", "id", id)
		return
	}
	if part == nil {
		debug.Assert(false, "UpdateTexture with nil bitmap")
		return
	}
	pw, ph := part.Width(), part.Height()
	if x < 0 || y < 0 || x+pw > tex.Width() || y+ph > tex.Height() || rowStride < pw {
		debug.Assert(false, "region %dx%d at (%d,%d) stride %d outside %dx%d texture",
			pw, ph, x, y, rowStride, tex.Width(), tex.Height())
		Logger().Warn("pica: texture update outside bounds ignored", "id", id, "x", x, "y", y, "width", pw, "height", ph)
		return
	}

	morton.Transcode(tex.Texels(), tex.Width(), tex.Height(), x, y, part.Pixels(), pw, ph, rowStride)
	tex.MarkDirty()
}

// UpdateTexturePart is UpdateTexture with the bitmap's own row stride.
func (c *Context) UpdateTexturePart(id ResourceID, x, y int, part *Bitmap) {
	if part == nil {
		c.UpdateTexture(id, x, y, nil, 0)
		return
	}
	c.UpdateTexture(id, x, y, part, part.Stride())
}

// BindTexture makes id the texture sampled by subsequent draws and marks
// it used in the current frame. A null or deleted ID binds the default
// texture instead.
func (c *Context) BindTexture(id ResourceID) {
	if c.closed {
		return
	}
	now := c.clock.Now()
	tex, ok := c.textures.Touch(id.texturePoolID(), now)
	if !ok {
		c.fallbackBinds++
		if id != NullResource {
			Logger().Debug("pica: bind of deleted texture, using default", "id", id)
		}
		tex, ok = c.textures.Touch(c.defaultTex.texturePoolID(), now)
		if !ok {
			debug.Assert(false, "no default texture; call RestoreState")
			return
		}
	}
	c.dev.BindTexture(tex)
}

// DeleteTexture schedules the texture *id for release and sets *id to
// NullResource. Deleting a null or already deleted texture is a no-op.
// The storage is released by the first EndFrame after the texture has
// gone unbound for the whole safety window.
func (c *Context) DeleteTexture(id *ResourceID) {
	if id == nil || *id == NullResource {
		return
	}
	pid := id.texturePoolID()
	debug.Assert(pid != pool.Null, "DeleteTexture given buffer %v", *id)
	*id = NullResource
	if c.textures.Unref(&pid) {
		Logger().Debug("pica: texture deleted", "frame", c.clock.Now())
	}
}

// ReadTexture returns the contents of a live texture as a linear bitmap.
func (c *Context) ReadTexture(id ResourceID) (*Bitmap, error) {
	tex, ok := c.textures.Get(id.texturePoolID())
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrUnknownResource, id)
	}
	return readTexels(tex)
}

func readTexels(tex *native.Texture) (*Bitmap, error) {
	pix := morton.Detile(tex.Texels(), tex.Width(), tex.Height())
	return NewBitmapFromPixels(tex.Width(), tex.Height(), pix)
}
