// Package morton converts between linear RGBA bitmaps and the tiled
// Z-order texel layout sampled by the GPU.
//
// Textures are stored as 8x8 tiles laid out left to right, bottom to top.
// Inside a tile, texels follow a recursive Z-order curve: four 4x4
// subtiles, each made of four 2x2 subtiles. The layout is row-flipped
// relative to a top-down bitmap, so source row 0 lands in the last
// texture row.
package morton

import "github.com/gogpu/pica/internal/debug"

// TileSize is the edge length of one tile, in texels.
const TileSize = 8

const tileMask = TileSize - 1

// SpreadBits spreads the three low bits of v into bit positions 0, 2 and 4.
//
// Only values 0..7 are meaningful; higher bits are discarded.
func SpreadBits(v uint32) uint32 {
	v &= tileMask
	v = (v | (v << 2)) & 0x33
	v = (v | (v << 1)) & 0x55
	return v
}

// CompactBits gathers bits 0, 2 and 4 of v back into bits 0..2.
// It is the inverse of SpreadBits.
func CompactBits(v uint32) uint32 {
	v &= 0x15
	v = (v | (v >> 1)) & 0x33
	v = (v | (v >> 2)) & 0x0f
	return v & tileMask
}

// Index returns the texel offset of texture coordinate (x, y) in a tiled
// texture that is width texels wide. Coordinates are in texture space:
// no row flip is applied here.
func Index(x, y, width int) int {
	interleaved := SpreadBits(uint32(x&tileMask)) | SpreadBits(uint32(y&tileMask))<<1 //nolint:gosec // G115: masked to 3 bits
	tileX := x &^ tileMask
	tileY := y &^ tileMask
	return int(interleaved) + tileX*TileSize + tileY*width
}

// Coords is the inverse of Index for a texture width texels wide.
func Coords(i, width int) (x, y int) {
	intra := uint32(i & (TileSize*TileSize - 1)) //nolint:gosec // G115: masked to 6 bits
	rest := i &^ (TileSize*TileSize - 1)
	row := TileSize * width
	tileY := (rest / row) * TileSize
	tileX := (rest % row) / TileSize
	return tileX + int(CompactBits(intra)), tileY + int(CompactBits(intra>>1))
}

// Transcode writes the srcW x srcH region of src into the tiled texture
// dst (dstW x dstH texels), placing source texel (0, 0) at texture column
// originX and bitmap row originY. rowStride is the distance between source
// rows, in texels.
//
// The region must fit inside the texture and dstW must be a multiple of
// TileSize. Violations corrupt dst silently; they are checked only in
// picadebug builds.
func Transcode(dst []uint32, dstW, dstH, originX, originY int, src []uint32, srcW, srcH, rowStride int) {
	debug.Assert(dstW%TileSize == 0 && dstH%TileSize == 0,
		"texture %dx%d is not tile aligned", dstW, dstH)
	debug.Assert(originX >= 0 && originY >= 0 && originX+srcW <= dstW && originY+srcH <= dstH,
		"region %dx%d at (%d,%d) exceeds %dx%d texture", srcW, srcH, originX, originY, dstW, dstH)
	debug.Assert(len(dst) >= dstW*dstH, "texture storage holds %d texels, need %d", len(dst), dstW*dstH)
	debug.Assert(srcH == 0 || len(src) >= (srcH-1)*rowStride+srcW, "source too small for %dx%d stride %d", srcW, srcH, rowStride)

	for y := 0; y < srcH; y++ {
		dstY := dstH - 1 - (y + originY)
		tileY := dstY &^ tileMask
		mortonY := SpreadBits(uint32(dstY&tileMask)) << 1 //nolint:gosec // G115: masked to 3 bits
		rowBase := tileY * dstW
		srcRow := src[y*rowStride : y*rowStride+srcW]

		for x, pixel := range srcRow {
			dstX := x + originX
			tileX := dstX &^ tileMask
			mortonX := SpreadBits(uint32(dstX & tileMask)) //nolint:gosec // G115: masked to 3 bits
			dst[int(mortonX|mortonY)+tileX*TileSize+rowBase] = pixel
		}
	}
}

// Detile converts a whole tiled texture back into a top-down linear
// bitmap of w x h texels.
func Detile(src []uint32, w, h int) []uint32 {
	out := make([]uint32, w*h)
	for y := 0; y < h; y++ {
		texY := h - 1 - y
		for x := 0; x < w; x++ {
			out[x+y*w] = src[Index(x, texY, w)]
		}
	}
	return out
}
