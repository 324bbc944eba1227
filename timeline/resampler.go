package timeline

import (
	"context"
	"math"
	"slices"
	"time"

	"github.com/FerroO2000/barrace/internal"
	"github.com/FerroO2000/barrace/internal/scale"
	"go.opentelemetry.io/otel/attribute"
)

// FramesPerInterval returns the number of sub-frames rendered
// between two keyframes. It is never lower than 1.
func FramesPerInterval(frameRate int, interval float64) int {
	return max(1, int(math.Round(float64(frameRate)*interval)))
}

// ResamplerConfig contains the parameters of the resampler.
type ResamplerConfig struct {
	// FrameRate is the number of frames per second.
	FrameRate int

	// Interval is the number of seconds spent between two keyframes.
	Interval float64

	// KeyFrameDelta overrides the inferred keyframe spacing when positive.
	KeyFrameDelta time.Duration
}

// Resampler builds the uniform keyframe grid and the per-entity series.
type Resampler struct {
	tel *internal.Telemetry

	cfg *ResamplerConfig
}

// NewResampler returns a new resampler.
func NewResampler(cfg *ResamplerConfig) *Resampler {
	return &Resampler{
		tel: internal.NewTelemetry("timeline", "resampler"),

		cfg: cfg,
	}
}

// Resample aligns the samples onto the keyframe grid.
// It returns a DegenerateTimelineError when less than 2 distinct
// timestamps are found.
func (r *Resampler) Resample(ctx context.Context, samples []*Sample) (*Timeline, error) {
	_, span := r.tel.NewTrace(ctx, "resample")
	defer span.End()

	tsList := distinctTimestamps(samples)
	if len(tsList) < 2 {
		return nil, &DegenerateTimelineError{DistinctTimestamps: len(tsList)}
	}

	delta := r.cfg.KeyFrameDelta
	if delta <= 0 {
		delta = minGap(tsList)
	}

	grid := buildGrid(tsList[0], tsList[len(tsList)-1], delta)

	fpi := FramesPerInterval(r.cfg.FrameRate, r.cfg.Interval)
	totalFrames := (len(grid) - 1) * fpi

	keyMillis := make([]float64, len(grid))
	keyFrames := make([]float64, len(grid))
	for i, ts := range grid {
		keyMillis[i] = toMillis(ts)
		keyFrames[i] = float64(i * fpi)
	}

	tl := &Timeline{
		Grid:              grid,
		Delta:             delta,
		FramesPerInterval: fpi,
		TotalFrames:       totalFrames,

		Entities: GroupEntities(samples),

		tsToFi: scale.NewPiecewise(keyMillis, keyFrames),
		fiToTs: scale.NewPiecewise(keyFrames, keyMillis),
	}

	interps := make([]*entityInterpolator, 0, len(tl.Entities))
	fieldSet := make(map[string]struct{})
	for _, ent := range tl.Entities {
		interp := newEntityInterpolator(ent)
		interps = append(interps, interp)

		for name := range interp.fields {
			fieldSet[name] = struct{}{}
		}
	}

	for name := range fieldSet {
		tl.Fields = append(tl.Fields, name)
	}
	slices.Sort(tl.Fields)

	for _, interp := range interps {
		tl.Series = append(tl.Series, interp.series(grid, tl.Fields))
	}

	span.SetAttributes(
		attribute.Int("entities", len(tl.Entities)),
		attribute.Int("keyframes", len(grid)),
		attribute.Int("total_frames", totalFrames),
	)

	r.tel.LogDebug("timeline resampled",
		"entities", len(tl.Entities), "keyframes", len(grid),
		"delta", delta, "total_frames", totalFrames)

	return tl, nil
}

func distinctTimestamps(samples []*Sample) []time.Time {
	seen := make(map[int64]struct{}, len(samples))
	tsList := []time.Time{}

	for _, s := range samples {
		key := s.Time.UnixMilli()
		if _, ok := seen[key]; ok {
			continue
		}

		seen[key] = struct{}{}
		tsList = append(tsList, s.Time)
	}

	slices.SortFunc(tsList, func(a, b time.Time) int {
		return a.Compare(b)
	})

	return tsList
}

// minGap returns the minimum positive gap between consecutive timestamps.
// The timestamps must be sorted and distinct.
func minGap(tsList []time.Time) time.Duration {
	delta := time.Duration(math.MaxInt64)
	for i := 1; i < len(tsList); i++ {
		if gap := tsList[i].Sub(tsList[i-1]); gap > 0 && gap < delta {
			delta = gap
		}
	}
	return delta
}

// buildGrid returns the timestamps from first to last spaced by delta.
// The last timestamp always closes the grid, so the final interval
// is shorter than delta when the span is not a multiple of it.
func buildGrid(first, last time.Time, delta time.Duration) []time.Time {
	grid := []time.Time{}
	for t := first; !t.After(last); t = t.Add(delta) {
		grid = append(grid, t)
	}

	if grid[len(grid)-1].Before(last) {
		grid = append(grid, last)
	}

	return grid
}

////////////////////
//  INTERPOLATOR  //
////////////////////

type entityInterpolator struct {
	entity *Entity

	value  *scale.Piecewise
	fields map[string]*scale.Piecewise
}

// newEntityInterpolator builds the linear interpolators of an entity.
// An auxiliary field is interpolated only when it is finite and
// not zero in the first sample; otherwise it is carried forward.
func newEntityInterpolator(ent *Entity) *entityInterpolator {
	xs := make([]float64, 0, len(ent.Samples))
	values := make([]float64, 0, len(ent.Samples))
	for _, s := range ent.Samples {
		xs = append(xs, toMillis(s.Time))
		values = append(values, s.Value)
	}

	interp := &entityInterpolator{
		entity: ent,
		value:  scale.NewPiecewise(xs, values),
		fields: make(map[string]*scale.Piecewise),
	}

	for name, firstVal := range ent.First().Fields {
		if math.IsNaN(firstVal) || math.IsInf(firstVal, 0) || firstVal == 0 {
			continue
		}

		ys := make([]float64, 0, len(ent.Samples))
		for _, s := range ent.Samples {
			v, ok := s.Field(name)
			if !ok {
				v = math.NaN()
			}
			ys = append(ys, v)
		}

		interp.fields[name] = scale.NewPiecewise(xs, ys)
	}

	return interp
}

func (ei *entityInterpolator) series(grid []time.Time, fields []string) *Series {
	series := &Series{
		Entity: ei.entity,
		Points: make([]Point, 0, len(grid)),
	}

	for _, ts := range grid {
		inRange := ei.entity.Covers(ts)
		sample := ei.entity.SampleAt(ts)
		x := toMillis(ts)

		point := Point{
			Time:   ts,
			Value:  math.NaN(),
			Fields: make([]float64, len(fields)),
			Sample: sample,
		}

		if inRange {
			point.Value = ei.value.At(x)
		}

		for i, name := range fields {
			fieldInterp, interpolated := ei.fields[name]

			switch {
			case interpolated && inRange:
				point.Fields[i] = fieldInterp.At(x)

			case interpolated:
				point.Fields[i] = math.NaN()

			default:
				v, ok := sample.Field(name)
				if !ok {
					v = math.NaN()
				}
				point.Fields[i] = v
			}
		}

		series.Points = append(series.Points, point)
	}

	return series
}
