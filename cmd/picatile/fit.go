package main

import (
	"image"

	"github.com/disintegration/imaging"

	"github.com/gogpu/pica"
)

// nextPow2 returns the smallest power of two >= v, and 1 for v <= 1.
func nextPow2(v int) int {
	n := 1
	for n < v {
		n <<= 1
	}
	return n
}

// fitSize picks power-of-two texture dimensions for a w x h image. Each
// edge is rounded up, clamped to [pica.MinTextureSize, maxEdge], and the
// larger edge is halved until the area fits pica.MaxTextureSize.
func fitSize(w, h, maxEdge int) (int, int) {
	maxEdge = min(maxEdge, pica.MaxTextureWidth, pica.MaxTextureHeight)
	fw := min(max(nextPow2(w), pica.MinTextureSize), maxEdge)
	fh := min(max(nextPow2(h), pica.MinTextureSize), maxEdge)
	for fw*fh > pica.MaxTextureSize {
		if fw >= fh {
			fw /= 2
		} else {
			fh /= 2
		}
	}
	return fw, fh
}

// fitImage resamples img to power-of-two dimensions.
func fitImage(img image.Image, maxEdge int) image.Image {
	b := img.Bounds()
	w, h := fitSize(b.Dx(), b.Dy(), maxEdge)
	if w == b.Dx() && h == b.Dy() {
		return img
	}
	return imaging.Resize(img, w, h, imaging.Lanczos)
}
