package render

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/FerroO2000/barrace/frame"
	"github.com/FerroO2000/barrace/ingress"
	"github.com/FerroO2000/barrace/processor"
	"github.com/FerroO2000/barrace/timeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder is a Context that records the drawing operations.
// Every character is measured as half of the font size.
type recorder struct {
	ops      []string
	fontSize float64
	alpha    float64
}

func (r *recorder) op(format string, args ...any) {
	r.ops = append(r.ops, fmt.Sprintf(format, args...))
}

func (r *recorder) ClearRect(x, y, w, h float64) { r.op("clear %g %g %g %g", x, y, w, h) }
func (r *recorder) FillRect(x, y, w, h float64) { r.op("fillRect %g %g %g %g", x, y, w, h) }
func (r *recorder) FillRoundRect(x, y, w, h, radius float64) {
	r.op("fillRoundRect %g %g %g %g %g", x, y, w, h, radius)
}
func (r *recorder) BeginPath() { r.op("beginPath") }
func (r *recorder) MoveTo(x, y float64) { r.op("moveTo %g %g", x, y) }
func (r *recorder) LineTo(x, y float64) { r.op("lineTo %g %g", x, y) }
func (r *recorder) Stroke() { r.op("stroke") }
func (r *recorder) FillText(text string, x, y float64) {
	r.op("fillText %s %g %g alpha=%g", text, x, y, r.alpha)
}
func (r *recorder) MeasureText(text string) float64 {
	return float64(len(text)) * r.fontSize / 2
}
func (r *recorder) SetFontSize(size float64) { r.fontSize = size }
func (r *recorder) SetTextAlign(align TextAlign) { r.op("align %d", align) }
func (r *recorder) SetFillStyle(style string) { r.op("fillStyle %s", style) }
func (r *recorder) SetStrokeStyle(style string) { r.op("strokeStyle %s", style) }
func (r *recorder) SetLineWidth(width float64) { r.op("lineWidth %g", width) }
func (r *recorder) SetGlobalAlpha(alpha float64) { r.alpha = alpha }

func (r *recorder) indexOf(prefix string) int {
	return slices.IndexFunc(r.ops, func(op string) bool { return strings.HasPrefix(op, prefix) })
}

type encoderFunc func(ctx context.Context, frameIdx int) error

func (fn encoderFunc) EncodeFrame(ctx context.Context, frameIdx int) error {
	return fn(ctx, frameIdx)
}

func newTestConfig() *Config {
	cfg := NewConfig()
	cfg.Language = "en"
	return cfg
}

func newTestScene(t *testing.T) *Scene {
	t.Helper()

	alpha := &timeline.Entity{Index: 0, ID: "A"}
	beta := &timeline.Entity{Index: 1, ID: "B"}

	alphaSample := &timeline.Sample{ID: "A", Name: "Alpha"}
	betaSample := &timeline.Sample{ID: "B", Name: "Be"}

	frames := make([]*frame.Frame, 0, 2)
	for i := range 2 {
		f := frame.New(i)
		f.Append(frame.Record{Entity: alpha, Sample: alphaSample, Value: 1234, State: frame.StateNormal, Alpha: 1, Pos: 0})
		f.Append(frame.Record{Entity: beta, Sample: betaSample, Value: 7, State: frame.StateNormal, Alpha: 1, Pos: 1})
		frames = append(frames, f)
	}

	ext := frame.NewExtremes()
	for _, f := range frames {
		for i := range f.Records {
			ext.Observe(&f.Records[i])
		}
	}

	axis := processor.NewAxisCalculator(&processor.AxisConfig{TickNumber: 5, FramesPerInterval: 2}).
		Calculate(t.Context(), frames, []int{0})

	start := time.Date(2020, 1, 2, 3, 4, 0, 0, time.UTC)

	return &Scene{
		Frames:   frames,
		Extremes: ext,
		Axis:     axis,
		FrameTime: func(frameIdx int) time.Time {
			return start.Add(time.Duration(frameIdx) * time.Hour)
		},
		Colors: map[string]string{"A": "#27C"},
	}
}

func Test_BarInfo(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("fruit - Apple", BarInfo(&timeline.Sample{ID: "a", Name: "Apple", Type: "fruit"}, nil))
	assert.Equal("Apple", BarInfo(&timeline.Sample{ID: "a", Name: "Apple"}, nil))
	assert.Equal("a", BarInfo(&timeline.Sample{ID: "a"}, nil))

	meta := ingress.Metadata{"a": {"name": "Apple", "type": "fruit"}}
	assert.Equal("fruit - Apple", BarInfo(&timeline.Sample{ID: "a"}, meta))
	assert.Equal("fruit - Pear", BarInfo(&timeline.Sample{ID: "a", Name: "Pear"}, meta))
}

func Test_ValueFormat(t *testing.T) {
	assert := assert.New(t)

	format := NewValueFormat("en")
	assert.Equal("1,234,567", format(1234567))
	assert.Equal("1,234.50", format(1234.5))
	assert.Equal("0.13", format(0.126))
	assert.Equal("7", format(7))
	assert.Equal("", format(math.NaN()))

	fallback := NewValueFormat("not a language")
	assert.Equal("1,000", fallback(1000))
}

func Test_CompactTick(t *testing.T) {
	assert := assert.New(t)

	cases := map[float64]string{
		0:      "0",
		1.5:    "1.5",
		950:    "950",
		1234:   "1.2K",
		12345:  "12K",
		123456: "123K",
		3e6:    "3M",
		2.5e9:  "2.5B",
		-1500:  "-1.5K",
	}

	for v, expected := range cases {
		assert.Equal(expected, CompactTick(v), v)
	}

	assert.Equal("", CompactTick(math.Inf(1)))
}

func Test_DateFormatter(t *testing.T) {
	assert := assert.New(t)

	ts := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)

	assert.Equal("2020-01-02 03:04", NewDateFormatter(DefaultConfigDateFormat).Format(ts))
	assert.Equal("2020", NewDateFormatter("%Y").Format(ts))
}

func Test_Layout(t *testing.T) {
	assert := assert.New(t)

	cfg := newTestConfig()
	scene := newTestScene(t)

	l := NewLayout(&recorder{}, cfg, 10, scene)

	// round((768 - 10 - 10) / 10 * 0.8)
	assert.Equal(60.0, l.BarHeight)

	assert.Equal(30.0, l.Inner.Top)
	assert.Equal(10.0, l.Inner.Bottom)

	// "1,234" is the widest value label: 5 * 60 / 2
	assert.Equal(10.0+150+10, l.Inner.Right)
	// "Alpha" is the widest bar label: 5 * 60 / 2
	assert.Equal(10.0+10+150, l.Inner.Left)

	assert.Equal(30.0, l.Y(0))
	assert.Equal(758.0, l.Y(10))
	assert.Equal(1366.0-340, l.PlotWidth())

	assert.Equal(cfg.OuterMargin, l.Outer)
}

func Test_Renderer_DrawFrame(t *testing.T) {
	assert := assert.New(t)

	cfg := newTestConfig()
	scene := newTestScene(t)

	rec := &recorder{}
	extCalls := 0
	encoded := []int{}

	r := NewRenderer(rec, cfg, 10, scene,
		WithExtDrawer(ExtDrawerFunc(func(c Context, f *frame.Frame) {
			extCalls++
			c.FillText("ext", 0, 0)
		})),
		WithEncoder(encoderFunc(func(_ context.Context, frameIdx int) error {
			encoded = append(encoded, frameIdx)
			return nil
		})),
	)

	rec.ops = nil
	require.NoError(t, r.DrawFrame(t.Context(), 1))

	assert.Equal("clear 0 0 1366 768", rec.ops[0])
	assert.Equal("fillStyle #1D1F21", rec.ops[1])
	assert.Equal("fillRect 0 0 1366 768", rec.ops[2])

	strokeIdx := slices.Index(rec.ops, "stroke")
	dateIdx := rec.indexOf("fillText 2020-01-02 04:04")
	alphaBarIdx := rec.indexOf("fillStyle #27C")
	extIdx := rec.indexOf("fillText ext")

	assert.Greater(strokeIdx, 2)
	assert.Greater(dateIdx, strokeIdx)
	assert.Greater(alphaBarIdx, dateIdx)
	assert.Greater(extIdx, alphaBarIdx)

	assert.Contains(rec.ops, "fillText Alpha 160 78 alpha=1")
	assert.Contains(rec.ops, fmt.Sprintf("fillRoundRect 170 30 %g 60 4", r.Layout().PlotWidth()))

	// B has no color yet
	assert.Contains(rec.ops[alphaBarIdx+1:extIdx], "fillStyle "+noColor)

	assert.Equal(1, extCalls)
	assert.Equal([]int{1}, encoded)

	assert.Error(r.DrawFrame(t.Context(), 2))
}

func Test_Renderer_Render(t *testing.T) {
	assert := assert.New(t)

	scene := newTestScene(t)

	drawn := 0
	encErr := errors.New("disk full")

	r := NewRenderer(&recorder{}, newTestConfig(), 10, scene,
		WithBarDrawer(BarDrawerFunc(func(_ Context, _ *frame.Record, _ *frame.Frame) {
			drawn++
		})),
	)
	assert.NoError(r.Render(t.Context()))
	assert.Equal(4, drawn)

	failing := NewRenderer(&recorder{}, newTestConfig(), 10, scene,
		WithEncoder(encoderFunc(func(_ context.Context, _ int) error {
			return encErr
		})),
	)
	assert.ErrorIs(failing.Render(t.Context()), encErr)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	assert.ErrorIs(r.Render(ctx), context.Canceled)
}
