package processor

import (
	"context"
	"math"
	"slices"

	"github.com/FerroO2000/barrace/frame"
	"github.com/FerroO2000/barrace/internal"
	"github.com/FerroO2000/barrace/internal/scale"
	"go.opentelemetry.io/otel/attribute"
)

const axisFadeExponent = 10

var easeAxisFade = scale.PolyInOut(axisFadeExponent)

// DomainFunc returns the value domain of the axis for a frame.
type DomainFunc func(f *frame.Frame) (float64, float64)

// DefaultDomain returns [0, max] of the frame.
// An empty frame has the [0, 0] domain.
func DefaultDomain(f *frame.Frame) (float64, float64) {
	if math.IsNaN(f.Max) {
		return 0, 0
	}
	return 0, f.Max
}

// AxisConfig contains the parameters of the axis calculator.
type AxisConfig struct {
	// TickNumber is the target number of ticks.
	TickNumber int

	// Domain returns the value domain of a frame.
	Domain DomainFunc

	// FramesPerInterval is the number of sub-frames between two keyframes.
	FramesPerInterval int
}

// AxisCalculator computes the tick sets of the keyframes.
type AxisCalculator struct {
	tel *internal.Telemetry

	cfg    *AxisConfig
	domain DomainFunc
}

// NewAxisCalculator returns a new axis calculator.
// A nil domain function falls back to DefaultDomain.
func NewAxisCalculator(cfg *AxisConfig) *AxisCalculator {
	domain := cfg.Domain
	if domain == nil {
		domain = DefaultDomain
	}

	return &AxisCalculator{
		tel: internal.NewTelemetry("processor", "axis"),

		cfg:    cfg,
		domain: domain,
	}
}

// Calculate computes the domain of every frame and the tick set
// of every keyframe.
func (ac *AxisCalculator) Calculate(ctx context.Context, frames []*frame.Frame, keyFrames []int) *AxisScales {
	_, span := ac.tel.NewTrace(ctx, "calculate")
	defer span.End()

	as := &AxisScales{
		fpi:     max(1, ac.cfg.FramesPerInterval),
		domains: make([][2]float64, len(frames)),
		ticks:   make([][]float64, 0, len(keyFrames)),
	}

	for i, f := range frames {
		d0, d1 := ac.domain(f)
		as.domains[i] = [2]float64{d0, d1}
	}

	for _, kf := range keyFrames {
		if kf < 0 || kf >= len(frames) {
			continue
		}

		d := as.domains[kf]
		as.ticks = append(as.ticks, scale.Ticks(d[0], d[1], ac.cfg.TickNumber))
	}

	span.SetAttributes(attribute.Int("keyframes", len(as.ticks)))

	return as
}

// AxisScales holds the axis domain of every frame
// and the tick set of every keyframe.
type AxisScales struct {
	fpi int

	domains [][2]float64
	ticks   [][]float64
}

// Domain returns the value domain of the frame.
func (as *AxisScales) Domain(frameIdx int) (float64, float64) {
	if len(as.domains) == 0 {
		return 0, 0
	}

	d := as.domains[min(max(frameIdx, 0), len(as.domains)-1)]
	return d[0], d[1]
}

// Scale returns the linear scale mapping the frame domain onto [0, width].
func (as *AxisScales) Scale(frameIdx int, width float64) *scale.Linear {
	d0, d1 := as.Domain(frameIdx)
	return scale.NewLinear(d0, d1, 0, width)
}

// KeyFrameTicks returns the tick set of the keyframe with the given ordinal.
func (as *AxisScales) KeyFrameTicks(keyFrame int) []float64 {
	if keyFrame < 0 || keyFrame >= len(as.ticks) {
		return nil
	}
	return as.ticks[keyFrame]
}

// KeyFramesCount returns the number of tick sets.
func (as *AxisScales) KeyFramesCount() int {
	return len(as.ticks)
}

// CrossFade describes the two tick layers to draw for a frame.
type CrossFade struct {
	// Main is the tick set of the keyframe at or before the frame.
	Main      []float64
	MainAlpha float64

	// Second is the tick set of the keyframe after the frame.
	Second      []float64
	SecondAlpha float64
}

// CrossFade returns the tick layers of a frame.
// When both keyframes share the same maximum tick,
// only the main layer is visible.
func (as *AxisScales) CrossFade(frameIdx int) CrossFade {
	if len(as.ticks) == 0 {
		return CrossFade{MainAlpha: 1}
	}

	idx := float64(frameIdx) / float64(as.fpi)
	idx1 := int(math.Floor(idx))
	idx2 := int(math.Ceil(idx))

	idx1 = min(idx1, len(as.ticks)-1)
	if idx2 >= len(as.ticks) {
		idx2 = idx1
	}

	cf := CrossFade{
		Main:   as.ticks[idx1],
		Second: as.ticks[idx2],
	}

	if maxTick(cf.Main) == maxTick(cf.Second) {
		cf.MainAlpha = 1
		cf.SecondAlpha = 0
		return cf
	}

	a := easeAxisFade(idx - math.Floor(idx))
	cf.MainAlpha = 1 - a
	cf.SecondAlpha = a

	return cf
}

func maxTick(ticks []float64) float64 {
	if len(ticks) == 0 {
		return math.Inf(-1)
	}
	return slices.Max(ticks)
}
