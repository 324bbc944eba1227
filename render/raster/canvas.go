// Package raster implements the drawing context on an in-memory RGBA image.
package raster

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	barcolor "github.com/FerroO2000/barrace/color"
	"github.com/FerroO2000/barrace/internal/scale"
	"github.com/FerroO2000/barrace/render"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
)

type point struct {
	x, y float64
	move bool
}

// Canvas is a render.Context drawing on an RGBA image.
type Canvas struct {
	img *image.RGBA
	ras *vector.Rasterizer

	font  *opentype.Font
	faces map[float64]font.Face

	fontSize  float64
	align     render.TextAlign
	fill      color.NRGBA
	stroke    color.NRGBA
	lineWidth float64
	alpha     float64

	path []point
}

var _ render.Context = (*Canvas)(nil)

// NewCanvas returns a canvas of the given size using the Go regular font.
func NewCanvas(width, height int) (*Canvas, error) {
	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}

	return &Canvas{
		img: image.NewRGBA(image.Rect(0, 0, width, height)),
		ras: vector.NewRasterizer(width, height),

		font:  f,
		faces: make(map[float64]font.Face),

		fontSize:  10,
		fill:      color.NRGBA{A: 0xff},
		stroke:    color.NRGBA{A: 0xff},
		lineWidth: 1,
		alpha:     1,
	}, nil
}

// Image returns the underlying image.
func (c *Canvas) Image() *image.RGBA {
	return c.img
}

func (c *Canvas) withAlpha(col color.NRGBA) *image.Uniform {
	col.A = uint8(math.Round(float64(col.A) * c.alpha))
	return image.NewUniform(col)
}

func rect(x, y, w, h float64) image.Rectangle {
	return image.Rect(
		int(math.Round(x)), int(math.Round(y)),
		int(math.Round(x+w)), int(math.Round(y+h)),
	)
}

// ClearRect makes the area transparent.
func (c *Canvas) ClearRect(x, y, w, h float64) {
	draw.Draw(c.img, rect(x, y, w, h), image.Transparent, image.Point{}, draw.Src)
}

// FillRect fills the area with the fill style.
func (c *Canvas) FillRect(x, y, w, h float64) {
	draw.Draw(c.img, rect(x, y, w, h), c.withAlpha(c.fill), image.Point{}, draw.Over)
}

// FillRoundRect fills a rectangle with rounded corners.
func (c *Canvas) FillRoundRect(x, y, w, h, radius float64) {
	if w <= 0 || h <= 0 {
		return
	}

	r := math.Min(radius, math.Min(w, h)/2)

	c.resetRasterizer()
	c.ras.MoveTo(c.x(x+r), c.y(y))
	c.ras.LineTo(c.x(x+w-r), c.y(y))
	c.ras.QuadTo(c.x(x+w), c.y(y), c.x(x+w), c.y(y+r))
	c.ras.LineTo(c.x(x+w), c.y(y+h-r))
	c.ras.QuadTo(c.x(x+w), c.y(y+h), c.x(x+w-r), c.y(y+h))
	c.ras.LineTo(c.x(x+r), c.y(y+h))
	c.ras.QuadTo(c.x(x), c.y(y+h), c.x(x), c.y(y+h-r))
	c.ras.LineTo(c.x(x), c.y(y+r))
	c.ras.QuadTo(c.x(x), c.y(y), c.x(x+r), c.y(y))
	c.ras.ClosePath()

	c.ras.Draw(c.img, c.img.Bounds(), c.withAlpha(c.fill), image.Point{})
}

// BeginPath discards the current path.
func (c *Canvas) BeginPath() {
	c.path = c.path[:0]
}

// MoveTo starts a new sub-path.
func (c *Canvas) MoveTo(x, y float64) {
	c.path = append(c.path, point{x: x, y: y, move: true})
}

// LineTo adds a segment to the current sub-path.
func (c *Canvas) LineTo(x, y float64) {
	c.path = append(c.path, point{x: x, y: y})
}

// Stroke draws the segments of the current path with the stroke style.
func (c *Canvas) Stroke() {
	if c.lineWidth <= 0 {
		return
	}

	half := c.lineWidth / 2

	c.resetRasterizer()
	for i := 1; i < len(c.path); i++ {
		p0, p1 := c.path[i-1], c.path[i]
		if p1.move {
			continue
		}

		dx, dy := p1.x-p0.x, p1.y-p0.y
		length := math.Hypot(dx, dy)
		if length == 0 {
			continue
		}

		// Normal of the segment scaled to half of the line width
		nx, ny := -dy/length*half, dx/length*half

		c.ras.MoveTo(c.x(p0.x+nx), c.y(p0.y+ny))
		c.ras.LineTo(c.x(p1.x+nx), c.y(p1.y+ny))
		c.ras.LineTo(c.x(p1.x-nx), c.y(p1.y-ny))
		c.ras.LineTo(c.x(p0.x-nx), c.y(p0.y-ny))
		c.ras.ClosePath()
	}

	c.ras.Draw(c.img, c.img.Bounds(), c.withAlpha(c.stroke), image.Point{})
}

func (c *Canvas) resetRasterizer() {
	b := c.img.Bounds()
	c.ras.Reset(b.Dx(), b.Dy())
	c.ras.DrawOp = draw.Over
}

func (c *Canvas) face() font.Face {
	if face, ok := c.faces[c.fontSize]; ok {
		return face
	}

	face, err := opentype.NewFace(c.font, &opentype.FaceOptions{
		Size:    c.fontSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil
	}

	c.faces[c.fontSize] = face
	return face
}

// MeasureText returns the advance width of the text.
func (c *Canvas) MeasureText(text string) float64 {
	face := c.face()
	if face == nil {
		return 0
	}
	return fromFixed(font.MeasureString(face, text))
}

// FillText draws the text with its baseline at y.
func (c *Canvas) FillText(text string, x, y float64) {
	face := c.face()
	if face == nil || text == "" {
		return
	}

	switch c.align {
	case render.TextAlignCenter:
		x -= c.MeasureText(text) / 2
	case render.TextAlignRight:
		x -= c.MeasureText(text)
	}

	d := &font.Drawer{
		Dst:  c.img,
		Src:  c.withAlpha(c.fill),
		Face: face,
		Dot:  fixed.Point26_6{X: toFixed(x), Y: toFixed(y)},
	}
	d.DrawString(text)
}

// SetFontSize sets the font size, in pixels.
func (c *Canvas) SetFontSize(size float64) {
	if size > 0 {
		c.fontSize = size
	}
}

// SetTextAlign sets the horizontal text alignment.
func (c *Canvas) SetTextAlign(align render.TextAlign) {
	c.align = align
}

// SetFillStyle sets the fill color. An invalid color is ignored.
func (c *Canvas) SetFillStyle(style string) {
	if col, err := barcolor.ParseHex(style); err == nil {
		c.fill = col
	}
}

// SetStrokeStyle sets the stroke color. An invalid color is ignored.
func (c *Canvas) SetStrokeStyle(style string) {
	if col, err := barcolor.ParseHex(style); err == nil {
		c.stroke = col
	}
}

// SetLineWidth sets the stroke width.
func (c *Canvas) SetLineWidth(width float64) {
	c.lineWidth = width
}

// SetGlobalAlpha sets the opacity applied to every drawing.
func (c *Canvas) SetGlobalAlpha(alpha float64) {
	c.alpha = math.Max(0, math.Min(1, alpha))
}

// x and y convert a coordinate, clamped to the rasterizer bounds.
func (c *Canvas) x(v float64) float32 {
	return f32(scale.Clamp(v, 0, float64(c.img.Bounds().Dx())))
}

func (c *Canvas) y(v float64) float32 {
	return f32(scale.Clamp(v, 0, float64(c.img.Bounds().Dy())))
}

func f32(v float64) float32 {
	return float32(v)
}

func toFixed(v float64) fixed.Int26_6 {
	return fixed.Int26_6(math.Round(v * 64))
}

func fromFixed(v fixed.Int26_6) float64 {
	return float64(v) / 64
}
