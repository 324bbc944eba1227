package color

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"os"

	// Registered image decoders
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// Extractor returns the dominant color of an image source.
type Extractor interface {
	Extract(ctx context.Context, src string) (color.RGBA, error)
}

// FileExtractor decodes images from the file system.
type FileExtractor struct {
	// Quality is the pixel sampling step.
	Quality int
}

// NewFileExtractor returns a new file based extractor.
func NewFileExtractor() *FileExtractor {
	return &FileExtractor{
		Quality: DefaultQuality,
	}
}

// Extract decodes the image at path src and returns its dominant color.
func (fe *FileExtractor) Extract(ctx context.Context, src string) (color.RGBA, error) {
	if err := ctx.Err(); err != nil {
		return color.RGBA{}, err
	}

	file, err := os.Open(src)
	if err != nil {
		return color.RGBA{}, err
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("failed to decode %s: %w", src, err)
	}

	return Dominant(img, fe.Quality)
}

// PixelExtractor works on images already decoded in memory,
// looked up by source name.
type PixelExtractor struct {
	// Quality is the pixel sampling step.
	Quality int

	images map[string]image.Image
}

// NewPixelExtractor returns a new pixel buffer based extractor.
func NewPixelExtractor(images map[string]image.Image) *PixelExtractor {
	return &PixelExtractor{
		Quality: DefaultQuality,

		images: images,
	}
}

// Extract returns the dominant color of the image registered as src.
func (pe *PixelExtractor) Extract(ctx context.Context, src string) (color.RGBA, error) {
	if err := ctx.Err(); err != nil {
		return color.RGBA{}, err
	}

	img, ok := pe.images[src]
	if !ok {
		return color.RGBA{}, fmt.Errorf("image %q not found", src)
	}

	return Dominant(img, pe.Quality)
}
