package raster

import (
	"bufio"
	"context"
	"fmt"
	"image/png"
	"os"
	"path/filepath"

	"github.com/FerroO2000/barrace/internal"
	"github.com/FerroO2000/barrace/render"
)

// DefaultPNGEncoderPattern is the default file name pattern of the frames.
const DefaultPNGEncoderPattern = "frame_%06d.png"

// PNGEncoder writes every drawn frame of a canvas into a directory.
type PNGEncoder struct {
	tel *internal.Telemetry

	canvas  *Canvas
	dir     string
	pattern string

	enc *png.Encoder
}

var _ render.FrameEncoder = (*PNGEncoder)(nil)

// NewPNGEncoder returns an encoder writing the canvas into dir.
// The directory is created if missing.
func NewPNGEncoder(canvas *Canvas, dir string) (*PNGEncoder, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	return &PNGEncoder{
		tel: internal.NewTelemetry("render", "png_encoder"),

		canvas:  canvas,
		dir:     dir,
		pattern: DefaultPNGEncoderPattern,

		enc: &png.Encoder{CompressionLevel: png.BestSpeed},
	}, nil
}

// FramePath returns the path of the file of a frame.
func (pe *PNGEncoder) FramePath(frameIdx int) string {
	return filepath.Join(pe.dir, fmt.Sprintf(pe.pattern, frameIdx))
}

// EncodeFrame writes the current canvas content as the given frame.
func (pe *PNGEncoder) EncodeFrame(ctx context.Context, frameIdx int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path := pe.FramePath(frameIdx)

	file, err := os.Create(path)
	if err != nil {
		return err
	}

	bw := bufio.NewWriter(file)
	if err := pe.enc.Encode(bw, pe.canvas.Image()); err != nil {
		file.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}

	if err := bw.Flush(); err != nil {
		file.Close()
		return err
	}

	if frameIdx%100 == 0 {
		pe.tel.LogDebug("frame encoded", "frame", frameIdx, "path", path)
	}

	return file.Close()
}
