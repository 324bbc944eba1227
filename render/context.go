// Package render walks the computed frames and draws them on
// a 2D drawing surface. The surface itself is provided by the caller.
package render

import (
	"context"

	"github.com/FerroO2000/barrace/frame"
)

// TextAlign is the horizontal alignment of a text.
type TextAlign uint8

const (
	// TextAlignLeft aligns the text start to the anchor.
	TextAlignLeft TextAlign = iota
	// TextAlignCenter centers the text on the anchor.
	TextAlignCenter
	// TextAlignRight aligns the text end to the anchor.
	TextAlignRight
)

// Context is a 2D drawing context.
type Context interface {
	ClearRect(x, y, w, h float64)
	FillRect(x, y, w, h float64)
	FillRoundRect(x, y, w, h, radius float64)

	BeginPath()
	MoveTo(x, y float64)
	LineTo(x, y float64)
	Stroke()

	FillText(text string, x, y float64)
	MeasureText(text string) float64

	SetFontSize(size float64)
	SetTextAlign(align TextAlign)
	SetFillStyle(style string)
	SetStrokeStyle(style string)
	SetLineWidth(width float64)
	SetGlobalAlpha(alpha float64)
}

// BarDrawer draws one record of a frame.
type BarDrawer interface {
	DrawBar(c Context, rec *frame.Record, f *frame.Frame)
}

// ExtDrawer draws free-form content once per frame, after the bars.
type ExtDrawer interface {
	DrawExt(c Context, f *frame.Frame)
}

// FrameEncoder receives every drawn frame, e.g. to encode a video.
type FrameEncoder interface {
	EncodeFrame(ctx context.Context, frameIdx int) error
}

// BarDrawerFunc adapts a function to the BarDrawer interface.
type BarDrawerFunc func(c Context, rec *frame.Record, f *frame.Frame)

// DrawBar calls fn.
func (fn BarDrawerFunc) DrawBar(c Context, rec *frame.Record, f *frame.Frame) {
	fn(c, rec, f)
}

// ExtDrawerFunc adapts a function to the ExtDrawer interface.
type ExtDrawerFunc func(c Context, f *frame.Frame)

// DrawExt calls fn.
func (fn ExtDrawerFunc) DrawExt(c Context, f *frame.Frame) {
	fn(c, f)
}
