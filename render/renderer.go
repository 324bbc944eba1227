package render

import (
	"context"
	"fmt"
	"time"

	"github.com/FerroO2000/barrace/internal"
	"github.com/FerroO2000/barrace/internal/scale"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Option customizes a renderer.
type Option func(*Renderer)

// WithBarDrawer replaces the default bar painter.
func WithBarDrawer(bd BarDrawer) Option {
	return func(r *Renderer) {
		r.bar = bd
	}
}

// WithExtDrawer sets the per-frame extension drawer.
func WithExtDrawer(ed ExtDrawer) Option {
	return func(r *Renderer) {
		r.ext = ed
	}
}

// WithEncoder sets the encoder that receives every drawn frame.
func WithEncoder(enc FrameEncoder) Option {
	return func(r *Renderer) {
		r.encoder = enc
	}
}

// Renderer walks the frames of a scene in order and draws them.
type Renderer struct {
	tel *internal.Telemetry

	cfg    *Config
	canvas Context
	scene  *Scene
	layout *Layout

	bar     BarDrawer
	ext     ExtDrawer
	encoder FrameEncoder

	date *DateFormatter

	// Metrics
	drawTime *internal.Histogram
}

// NewRenderer returns a renderer drawing the scene on the canvas.
// It runs the layout pre-pass.
func NewRenderer(canvas Context, cfg *Config, itemCount int, scene *Scene, opts ...Option) *Renderer {
	tel := internal.NewTelemetry("render", "renderer")

	layout := NewLayout(canvas, cfg, itemCount, scene)

	r := &Renderer{
		tel: tel,

		cfg:    cfg,
		canvas: canvas,
		scene:  scene,
		layout: layout,

		date: NewDateFormatter(cfg.DateFormat),
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.bar == nil {
		r.bar = NewBarPainter(cfg, layout, scene)
	}

	r.drawTime = tel.NewHistogram("frame_draw_time",
		metric.WithDescription("Time spent drawing a frame"),
		metric.WithUnit("us"),
	)

	tel.LogDebug("layout ready",
		"bar_height", layout.BarHeight, "left", layout.Inner.Left, "right", layout.Inner.Right)

	return r
}

// Layout returns the layout computed by the pre-pass.
func (r *Renderer) Layout() *Layout {
	return r.layout
}

// Render draws every frame of the scene.
func (r *Renderer) Render(ctx context.Context) error {
	ctx, span := r.tel.NewTrace(ctx, "render")
	defer span.End()

	for i := range r.scene.Frames {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := r.DrawFrame(ctx, i); err != nil {
			return err
		}
	}

	span.SetAttributes(attribute.Int("frames", len(r.scene.Frames)))

	return nil
}

// DrawFrame draws the frame with the given index.
func (r *Renderer) DrawFrame(ctx context.Context, n int) error {
	if n < 0 || n >= len(r.scene.Frames) {
		return fmt.Errorf("frame %d out of range [0, %d)", n, len(r.scene.Frames))
	}

	start := time.Now()

	f := r.scene.Frames[n]
	c := r.canvas

	c.ClearRect(0, 0, r.cfg.Width, r.cfg.Height)

	c.SetGlobalAlpha(1)
	c.SetFillStyle(r.cfg.Background)
	c.FillRect(0, 0, r.cfg.Width, r.cfg.Height)

	r.drawAxis(n)
	r.drawDate(n)

	for i := range f.Records {
		r.bar.DrawBar(c, &f.Records[i], f)
	}

	if r.ext != nil {
		r.ext.DrawExt(c, f)
	}

	r.drawTime.Record(ctx, time.Since(start).Microseconds())

	if r.encoder != nil {
		if err := r.encoder.EncodeFrame(ctx, n); err != nil {
			return fmt.Errorf("encode frame %d: %w", n, err)
		}
	}

	return nil
}

func (r *Renderer) drawAxis(n int) {
	if r.scene.Axis == nil {
		return
	}

	c := r.canvas
	xScale := r.scene.Axis.Scale(n, r.layout.PlotWidth())
	cf := r.scene.Axis.CrossFade(n)

	c.SetFontSize(r.cfg.AxisTextSize)
	c.SetFillStyle(r.cfg.AxisColor)
	c.SetStrokeStyle(r.cfg.AxisColor)
	c.SetLineWidth(2)
	c.SetTextAlign(TextAlignCenter)

	r.drawTicks(xScale, cf.Second, cf.SecondAlpha)
	r.drawTicks(xScale, cf.Main, cf.MainAlpha)

	c.SetGlobalAlpha(1)
}

func (r *Renderer) drawTicks(xScale *scale.Linear, ticks []float64, alpha float64) {
	if alpha <= 0 {
		return
	}

	c := r.canvas
	c.SetGlobalAlpha(alpha)

	for _, val := range ticks {
		x := r.layout.Inner.Left + xScale.Map(val)

		c.BeginPath()
		c.MoveTo(x, r.layout.Inner.Top)
		c.LineTo(x, r.cfg.Height-r.layout.Inner.Bottom)
		c.Stroke()

		c.FillText(r.scene.TickFormat(val), x, r.cfg.AxisTextSize)
	}
}

func (r *Renderer) drawDate(n int) {
	if r.scene.FrameTime == nil {
		return
	}

	c := r.canvas
	c.SetGlobalAlpha(1)
	c.SetTextAlign(TextAlignRight)
	c.SetFontSize(r.cfg.DateLabelSize)
	c.SetFillStyle(r.cfg.DateColor)
	c.FillText(
		r.date.Format(r.scene.FrameTime(n)),
		r.cfg.Width-r.cfg.OuterMargin.Right,
		r.cfg.Height-r.cfg.OuterMargin.Bottom,
	)
}
