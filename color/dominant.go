package color

import (
	"errors"
	"image"
	"image/color"
)

// ErrNoOpaquePixels is returned when an image has no pixel
// usable for the dominant color.
var ErrNoOpaquePixels = errors.New("image has no opaque pixels")

const (
	// Pixels more transparent than this are ignored.
	minAlpha = 125
	// Pixels brighter than this on every channel are ignored.
	maxBrightness = 250

	bucketShift = 3
	bucketBits  = 8 - bucketShift
)

// DefaultQuality is the default pixel sampling step.
const DefaultQuality = 10

type bucket struct {
	count   int
	r, g, b int
}

// Dominant returns the dominant color of the image.
// One pixel every quality pixels is sampled; pixels are grouped
// into 5-bit-per-channel buckets and the average color of the most
// populated bucket is returned.
func Dominant(img image.Image, quality int) (color.RGBA, error) {
	if quality < 1 {
		quality = 1
	}

	bounds := img.Bounds()
	width := bounds.Dx()

	buckets := make(map[int]*bucket)
	var best *bucket

	total := bounds.Dx() * bounds.Dy()
	for i := 0; i < total; i += quality {
		x := bounds.Min.X + i%width
		y := bounds.Min.Y + i/width

		px := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
		if px.A < minAlpha {
			continue
		}
		if px.R > maxBrightness && px.G > maxBrightness && px.B > maxBrightness {
			continue
		}

		key := int(px.R>>bucketShift)<<(2*bucketBits) |
			int(px.G>>bucketShift)<<bucketBits |
			int(px.B>>bucketShift)

		bk, ok := buckets[key]
		if !ok {
			bk = &bucket{}
			buckets[key] = bk
		}

		bk.count++
		bk.r += int(px.R)
		bk.g += int(px.G)
		bk.b += int(px.B)

		if best == nil || bk.count > best.count {
			best = bk
		}
	}

	if best == nil {
		return color.RGBA{}, ErrNoOpaquePixels
	}

	return color.RGBA{
		R: uint8(best.r / best.count),
		G: uint8(best.g / best.count),
		B: uint8(best.b / best.count),
		A: 0xff,
	}, nil
}
