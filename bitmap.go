package pica

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"

	"github.com/gogpu/pica/internal/morton"
)

// TileSize is the texture tile edge in texels. Texture dimensions must be
// multiples of it.
const TileSize = morton.TileSize

// PackRGBA packs 8-bit channels into the GPU's RGBA8 texel word:
// red in the high byte, alpha in the low byte.
func PackRGBA(r, g, b, a uint8) uint32 {
	return uint32(r)<<24 | uint32(g)<<16 | uint32(b)<<8 | uint32(a)
}

// UnpackRGBA splits an RGBA8 texel word into channels.
func UnpackRGBA(c uint32) (r, g, b, a uint8) {
	return uint8(c >> 24), uint8(c >> 16), uint8(c >> 8), uint8(c) //nolint:gosec // G115: byte extraction
}

// White is an opaque white texel.
const White uint32 = 0xFFFFFFFF

// Bitmap is a linear, top-down grid of RGBA8 texel words.
//
// A Bitmap may be a view into a larger one, in which case Stride is larger
// than Width.
type Bitmap struct {
	width  int
	height int
	stride int
	pix    []uint32
}

// NewBitmap creates a zeroed (transparent black) bitmap.
func NewBitmap(width, height int) *Bitmap {
	return &Bitmap{
		width:  width,
		height: height,
		stride: width,
		pix:    make([]uint32, width*height),
	}
}

// NewBitmapFromPixels wraps pix as a width x height bitmap without copying.
// It returns ErrInvalidDimensions if pix is too short.
func NewBitmapFromPixels(width, height int, pix []uint32) (*Bitmap, error) {
	if width < 0 || height < 0 || len(pix) < width*height {
		return nil, ErrInvalidDimensions
	}
	return &Bitmap{width: width, height: height, stride: width, pix: pix}, nil
}

// Width returns the width in texels.
func (b *Bitmap) Width() int { return b.width }

// Height returns the height in texels.
func (b *Bitmap) Height() int { return b.height }

// Stride returns the distance between rows in texels.
func (b *Bitmap) Stride() int { return b.stride }

// Pixels returns the texel words, row by row with Stride spacing.
func (b *Bitmap) Pixels() []uint32 { return b.pix }

// At returns the texel at (x, y), or 0 outside the bitmap.
func (b *Bitmap) At(x, y int) uint32 {
	if x < 0 || x >= b.width || y < 0 || y >= b.height {
		return 0
	}
	return b.pix[x+y*b.stride]
}

// Set stores a texel. Writes outside the bitmap are ignored.
func (b *Bitmap) Set(x, y int, c uint32) {
	if x < 0 || x >= b.width || y < 0 || y >= b.height {
		return
	}
	b.pix[x+y*b.stride] = c
}

// Fill sets every texel to c.
func (b *Bitmap) Fill(c uint32) {
	for y := 0; y < b.height; y++ {
		row := b.pix[y*b.stride : y*b.stride+b.width]
		for i := range row {
			row[i] = c
		}
	}
}

// View returns the w x h region at (x, y) sharing storage with b.
// The region is clipped to the bitmap.
func (b *Bitmap) View(x, y, w, h int) *Bitmap {
	r := image.Rect(x, y, x+w, y+h).Intersect(image.Rect(0, 0, b.width, b.height))
	if r.Empty() {
		return &Bitmap{}
	}
	return &Bitmap{
		width:  r.Dx(),
		height: r.Dy(),
		stride: b.stride,
		pix:    b.pix[r.Min.X+r.Min.Y*b.stride:],
	}
}

// PadToTiles returns a copy of b enlarged to whole tiles, at least one
// tile in each direction. The padding is transparent. If b already fits,
// it is returned unchanged.
func (b *Bitmap) PadToTiles() *Bitmap {
	w := max(TileSize, roundUp(b.width, TileSize))
	h := max(TileSize, roundUp(b.height, TileSize))
	if w == b.width && h == b.height {
		return b
	}
	out := NewBitmap(w, h)
	for y := 0; y < b.height; y++ {
		copy(out.pix[y*w:y*w+b.width], b.pix[y*b.stride:y*b.stride+b.width])
	}
	return out
}

// BitmapFromImage converts any image to a bitmap with straight
// (non-premultiplied) alpha.
func BitmapFromImage(img image.Image) *Bitmap {
	bounds := img.Bounds()
	rgba, ok := img.(*image.NRGBA)
	if !ok || rgba.Rect.Min != (image.Point{}) {
		rgba = image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(rgba, rgba.Rect, img, bounds.Min, draw.Src)
	}

	w, h := rgba.Rect.Dx(), rgba.Rect.Dy()
	bmp := NewBitmap(w, h)
	for y := 0; y < h; y++ {
		row := rgba.Pix[y*rgba.Stride : y*rgba.Stride+w*4]
		for x := 0; x < w; x++ {
			p := row[x*4 : x*4+4 : x*4+4]
			bmp.pix[x+y*w] = PackRGBA(p[0], p[1], p[2], p[3])
		}
	}
	return bmp
}

// ToImage converts b to an *image.NRGBA.
func (b *Bitmap) ToImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, b.width, b.height))
	for y := 0; y < b.height; y++ {
		for x := 0; x < b.width; x++ {
			r, g, bl, a := UnpackRGBA(b.pix[x+y*b.stride])
			img.SetNRGBA(x, y, color.NRGBA{R: r, G: g, B: bl, A: a})
		}
	}
	return img
}

// ScaleTo returns b resampled to w x h with nearest-neighbor sampling.
func (b *Bitmap) ScaleTo(w, h int) *Bitmap {
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.NearestNeighbor.Scale(dst, dst.Rect, b.ToImage(), image.Rect(0, 0, b.width, b.height), draw.Src, nil)
	return BitmapFromImage(dst)
}

func roundUp(v, n int) int {
	return (v + n - 1) / n * n
}
