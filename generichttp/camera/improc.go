// this file contains a few small image processing utilities for previews
package camera

import (
	"image"

	"github.com/disintegration/imaging"
)

// toGray8 converts a strided 16-bit buffer to an 8-bit image.  Without stretch
// the top byte of each sample is kept; with it, the range [min, max] of the
// buffer is mapped to [0, 255].
func toGray8(buf []uint16, width, height int, stretch bool) *image.Gray {
	var lo, span uint32 = 0, 65536
	if stretch && len(buf) > 0 {
		min, max := buf[0], buf[0]
		for _, v := range buf {
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
		}
		lo, span = uint32(min), uint32(max-min)+1
	}
	pix := make([]byte, len(buf))
	for idx, v := range buf {
		pix[idx] = byte((uint32(v) - lo) * 256 / span)
	}
	return &image.Gray{Pix: pix, Stride: width, Rect: image.Rect(0, 0, width, height)}
}

// downscale shrinks an image by factor, keeping the aspect ratio.
// A factor of 1 returns the image as it was.
func downscale(img image.Image, factor float64) image.Image {
	if factor >= 1 {
		return img
	}
	w := int(float64(img.Bounds().Dx()) * factor)
	if w < 1 {
		w = 1
	}
	return imaging.Resize(img, w, 0, imaging.Lanczos)
}
