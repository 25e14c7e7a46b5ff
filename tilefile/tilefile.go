// Package tilefile reads and writes pre-tiled texture files.
//
// A file starts with the four byte magic "PICT" and a version byte,
// followed by a zstd stream holding one msgpack-encoded Texture. Texels are
// stored in the GPU's 8x8 Morton layout so loading needs no transcode.
package tilefile

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/gogpu/pica"
	"github.com/gogpu/pica/internal/morton"
)

// Magic identifies a tile file.
const Magic = "PICT"

// Version is the current format version.
const Version = 1

// Texel layouts.
const (
	LayoutMorton8 = "morton8"
	LayoutLinear  = "linear"
)

// FormatRGBA8 is the only texel format written today.
const FormatRGBA8 = "rgba8"

// maxPayload bounds the decompressed size of a file: a full-size texture
// with every texel in its widest msgpack form, plus room for the header
// fields.
const maxPayload = pica.MaxTextureSize*5 + 64<<10

// Decoding errors.
var (
	ErrBadMagic = errors.New("tilefile: not a tile file")
	ErrVersion  = errors.New("tilefile: unsupported version")
	ErrCorrupt  = errors.New("tilefile: corrupt texture")
)

// Texture is the decoded content of a tile file.
type Texture struct {
	Width  int      `msgpack:"w"`
	Height int      `msgpack:"h"`
	Format string   `msgpack:"fmt"`
	Layout string   `msgpack:"layout"`
	Source string   `msgpack:"src,omitempty"`
	Pixels []uint32 `msgpack:"px"`
}

// Validate checks that the header fields agree with the pixel data.
func (t *Texture) Validate() error {
	if t.Width <= 0 || t.Height <= 0 {
		return fmt.Errorf("%w: size %dx%d", ErrCorrupt, t.Width, t.Height)
	}
	if t.Width > pica.MaxTextureWidth || t.Height > pica.MaxTextureHeight || t.Width*t.Height > pica.MaxTextureSize {
		return fmt.Errorf("%w: %dx%d exceeds texture limits", ErrCorrupt, t.Width, t.Height)
	}
	if t.Format != FormatRGBA8 {
		return fmt.Errorf("%w: format %q", ErrCorrupt, t.Format)
	}
	switch t.Layout {
	case LayoutMorton8:
		if t.Width%morton.TileSize != 0 || t.Height%morton.TileSize != 0 {
			return fmt.Errorf("%w: %dx%d is not tile aligned", ErrCorrupt, t.Width, t.Height)
		}
	case LayoutLinear:
	default:
		return fmt.Errorf("%w: layout %q", ErrCorrupt, t.Layout)
	}
	if len(t.Pixels) != t.Width*t.Height {
		return fmt.Errorf("%w: %d texels for %dx%d", ErrCorrupt, len(t.Pixels), t.Width, t.Height)
	}
	return nil
}

// FromBitmap tiles bmp. Its dimensions must be multiples of the tile
// size; see pica.Bitmap.PadToTiles.
func FromBitmap(bmp *pica.Bitmap) (*Texture, error) {
	w, h := bmp.Width(), bmp.Height()
	if w == 0 || h == 0 || w%morton.TileSize != 0 || h%morton.TileSize != 0 {
		return nil, fmt.Errorf("%w: %dx%d", pica.ErrInvalidDimensions, w, h)
	}
	t := &Texture{
		Width:  w,
		Height: h,
		Format: FormatRGBA8,
		Layout: LayoutMorton8,
		Pixels: make([]uint32, w*h),
	}
	morton.Transcode(t.Pixels, w, h, 0, 0, bmp.Pixels(), w, h, bmp.Stride())
	return t, nil
}

// Bitmap returns the texels as a top-down linear bitmap.
func (t *Texture) Bitmap() (*pica.Bitmap, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if t.Layout == LayoutLinear {
		return pica.NewBitmapFromPixels(t.Width, t.Height, t.Pixels)
	}
	return pica.NewBitmapFromPixels(t.Width, t.Height, morton.Detile(t.Pixels, t.Width, t.Height))
}

// Encode writes t to w.
func Encode(w io.Writer, t *Texture) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if _, err := io.WriteString(w, Magic); err != nil {
		return fmt.Errorf("tilefile: write header: %w", err)
	}
	if _, err := w.Write([]byte{Version}); err != nil {
		return fmt.Errorf("tilefile: write header: %w", err)
	}

	zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return fmt.Errorf("tilefile: zstd writer: %w", err)
	}
	if err := msgpack.NewEncoder(zw).Encode(t); err != nil {
		zw.Close()
		return fmt.Errorf("tilefile: encode: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("tilefile: compress: %w", err)
	}
	return nil
}

// Decode reads a texture from r. Files that decompress to more than a
// maximum-size texture are rejected as corrupt.
func Decode(r io.Reader) (*Texture, error) {
	br := bufio.NewReader(r)
	var hdr [len(Magic) + 1]byte
	if _, err := io.ReadFull(br, hdr[:]); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadMagic, err)
	}
	if string(hdr[:len(Magic)]) != Magic {
		return nil, ErrBadMagic
	}
	if v := hdr[len(Magic)]; v != Version {
		return nil, fmt.Errorf("%w: %d", ErrVersion, v)
	}

	zr, err := zstd.NewReader(br, zstd.WithDecoderMaxMemory(maxPayload), zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("%w: zstd: %w", ErrCorrupt, err)
	}
	defer zr.Close()

	var t Texture
	if err := msgpack.NewDecoder(io.LimitReader(zr, maxPayload)).Decode(&t); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}
