package processor

import (
	"context"
	"math"
	"sync/atomic"

	"github.com/FerroO2000/barrace/frame"
	"github.com/FerroO2000/barrace/internal"
	"github.com/FerroO2000/barrace/internal/scale"
	"go.opentelemetry.io/otel/attribute"
)

const (
	smoothingWindowDivisor = 7
	smoothingEaseExponent  = 1.5
)

var easeRankTransition = scale.PolyInOut(smoothingEaseExponent)

// SmootherConfig contains the parameters of the position smoother.
type SmootherConfig struct {
	// FramesPerInterval is the number of sub-frames between two keyframes.
	FramesPerInterval int

	// Freeze is the number of frames replicated at the end of the animation,
	// before the one interval hold.
	Freeze int

	// ItemCount is the number of visible entities.
	ItemCount int
}

// Smoother turns the rank sequence of every entity into
// a continuous position.
type Smoother struct {
	tel *internal.Telemetry

	cfg *SmootherConfig

	// Metrics
	despikedRanks atomic.Int64
	heldFrames    atomic.Int64
}

// NewSmoother returns a new position smoother.
func NewSmoother(cfg *SmootherConfig) *Smoother {
	s := &Smoother{
		tel: internal.NewTelemetry("processor", "smoother"),

		cfg: cfg,
	}

	s.tel.NewCounter("despiked_ranks", func() int64 { return s.despikedRanks.Load() })
	s.tel.NewCounter("held_frames", func() int64 { return s.heldFrames.Load() })

	return s
}

// HalfWindow returns the half width of the smoothing window.
func (s *Smoother) HalfWindow() int {
	return max(1, s.cfg.FramesPerInterval/smoothingWindowDivisor)
}

// Extend appends the freeze frames and the hold frames after the last frame.
// Each of them is a deep copy of the last frame.
func (s *Smoother) Extend(frames []*frame.Frame) []*frame.Frame {
	if len(frames) == 0 {
		return frames
	}

	last := frames[len(frames)-1]
	count := s.cfg.Freeze + s.cfg.FramesPerInterval

	for range count {
		frames = append(frames, last.Clone(len(frames)))
	}

	s.heldFrames.Add(int64(count))

	return frames
}

// Despike removes the single-frame rank reversals in place and
// returns the number of changed ranks.
// The first rank is aligned to the second one when they differ.
func Despike(ranks []float64) int {
	changed := 0

	for i := 1; i < len(ranks)-1; i++ {
		if ranks[i-1] == ranks[i+1] && ranks[i] != ranks[i-1] {
			ranks[i] = ranks[i-1]
			changed++
		}
	}

	if len(ranks) > 1 && ranks[0] != ranks[1] && !math.IsNaN(ranks[1]) {
		ranks[0] = ranks[1]
		changed++
	}

	return changed
}

// SmoothRanks returns the smoothed positions of a rank sequence.
// Each position is the mean of the ranks in the window [i-h, i+h),
// clipped to the sequence bounds, with an eased fractional part.
// Missing ranks (NaN) are ignored.
func (s *Smoother) SmoothRanks(ranks []float64) []float64 {
	half := s.HalfWindow()
	positions := make([]float64, len(ranks))

	for i := range ranks {
		lo := max(0, i-half)
		hi := min(len(ranks), i+half)

		mean := nanMean(ranks[lo:hi])
		whole := math.Floor(mean)

		positions[i] = whole + easeRankTransition(mean-whole)
	}

	return positions
}

func nanMean(values []float64) float64 {
	sum := 0.0
	count := 0

	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}

		sum += v
		count++
	}

	if count == 0 {
		return math.NaN()
	}

	return sum / float64(count)
}

// Smooth adds the smoothed position of each entity to the position
// of its records. The frames must have been ranked and extended.
func (s *Smoother) Smooth(ctx context.Context, frames []*frame.Frame, entityCount int) {
	_, span := s.tel.NewTrace(ctx, "smooth")
	defer span.End()

	var despiked int64
	ranks := make([]float64, len(frames))

	for entityIdx := range entityCount {
		found := false
		for i, f := range frames {
			rec, ok := f.Lookup(entityIdx)
			if !ok {
				ranks[i] = math.NaN()
				continue
			}

			ranks[i] = float64(rec.Rank)
			found = true
		}

		if !found {
			continue
		}

		despiked += int64(Despike(ranks))

		positions := s.SmoothRanks(ranks)
		for i, f := range frames {
			if rec, ok := f.Lookup(entityIdx); ok {
				rec.Pos += positions[i]
			}
		}
	}

	s.despikedRanks.Add(despiked)

	span.SetAttributes(
		attribute.Int("frames", len(frames)),
		attribute.Int64("despiked_ranks", despiked),
	)
}

// RenderOrder reorders the records of every frame so that the entities
// moving upward in the next frame are drawn last.
// The membership of the frames never changes.
func RenderOrder(frames []*frame.Frame) {
	// The last frame has no lookahead, so nothing is rising
	for i := 0; i < len(frames)-1; i++ {
		f := frames[i]
		next := frames[i+1]

		f.SortStable(func(a, b *frame.Record) int {
			return risingKey(next, a) - risingKey(next, b)
		})
	}
}

func risingKey(next *frame.Frame, rec *frame.Record) int {
	nextRec, ok := next.Lookup(rec.Entity.Index)
	if !ok {
		return 0
	}

	if nextRec.Pos-rec.Pos < 0 {
		return 1
	}

	return 0
}

// ClampAlpha fades out the records positioned below the visible window.
// The alpha fades linearly from 1 to 0 as the position moves
// from itemCount-1 to itemCount, and is never increased.
func ClampAlpha(frames []*frame.Frame, itemCount int) {
	threshold := float64(itemCount - 1)

	for _, f := range frames {
		for i := range f.Records {
			rec := &f.Records[i]
			if rec.Pos <= threshold {
				continue
			}

			fade := scale.Clamp(1-(rec.Pos-threshold), 0, 1)
			rec.Alpha = math.Min(rec.Alpha, fade)
		}
	}
}
