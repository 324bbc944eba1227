package processor

import (
	"context"
	"math"
	"sync/atomic"

	"github.com/FerroO2000/barrace/frame"
	"github.com/FerroO2000/barrace/internal"
	"github.com/FerroO2000/barrace/timeline"
	"go.opentelemetry.io/otel/attribute"
)

// Expansion is the output of the expander.
type Expansion struct {
	// Frames contains one frame per global frame index,
	// from 0 to TotalFrames-1.
	Frames []*frame.Frame

	// Extremes are the global value extremes across every frame.
	Extremes *frame.Extremes
}

// Expander expands every keyframe interval into sub-frames.
type Expander struct {
	tel *internal.Telemetry

	classifier *Classifier

	// Metrics
	emittedRecords atomic.Int64
	skippedRecords atomic.Int64
}

// NewExpander returns a new frame expander.
func NewExpander(classifier *Classifier) *Expander {
	e := &Expander{
		tel: internal.NewTelemetry("processor", "expander"),

		classifier: classifier,
	}

	e.initMetrics()

	return e
}

func (e *Expander) initMetrics() {
	e.tel.NewCounter("emitted_records", func() int64 { return e.emittedRecords.Load() })
	e.tel.NewCounter("skipped_records", func() int64 { return e.skippedRecords.Load() })
}

// Expand produces one record per entity per sub-frame.
// Records whose alpha is 0 are not emitted, unless the entity is exiting.
func (e *Expander) Expand(ctx context.Context, tl *timeline.Timeline) *Expansion {
	_, span := e.tel.NewTrace(ctx, "expand")
	defer span.End()

	exp := &Expansion{
		Frames:   make([]*frame.Frame, tl.TotalFrames),
		Extremes: frame.NewExtremes(),
	}

	for i := range exp.Frames {
		exp.Frames[i] = frame.New(i)
	}

	fpi := tl.FramesPerInterval

	var emitted, skipped int64
	for _, series := range tl.Series {
		for i := 0; i < len(series.Points)-1; i++ {
			left := &series.Points[i]
			right := &series.Points[i+1]

			tr := e.classifier.Classify(left, right)

			from := int(math.Round(tl.FrameIndex(left.Time)))
			to := min(int(math.Round(tl.FrameIndex(right.Time))), tl.TotalFrames)

			for f := from; f < to; f++ {
				r := float64(f%fpi) / float64(fpi)

				alpha := tr.Alpha(r)
				if alpha == 0 && tr.State != frame.StateExiting {
					skipped++
					continue
				}

				offset := tr.Offset(r)

				rec := frame.Record{
					Entity: series.Entity,
					Sample: left.Sample,
					Value:  tr.Value(r),
					Fields: tr.Fields(r),
					State:  tr.State,
					Phase:  r,
					Alpha:  alpha,
					Offset: offset,
					Pos:    offset,
				}

				exp.Frames[f].Append(rec)
				exp.Extremes.Observe(&rec)

				emitted++
			}
		}
	}

	e.emittedRecords.Add(emitted)
	e.skippedRecords.Add(skipped)

	span.SetAttributes(
		attribute.Int("frames", len(exp.Frames)),
		attribute.Int64("emitted_records", emitted),
		attribute.Int64("skipped_records", skipped),
	)

	return exp
}
