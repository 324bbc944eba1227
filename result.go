package barrace

import (
	"time"

	"github.com/FerroO2000/barrace/frame"
	"github.com/FerroO2000/barrace/ingress"
	"github.com/FerroO2000/barrace/processor"
	"github.com/FerroO2000/barrace/render"
	"github.com/FerroO2000/barrace/timeline"
)

// Result is the output of a pipeline run.
type Result struct {
	Timeline *timeline.Timeline

	// Frames contains the animation frames followed by
	// the freeze and hold frames.
	Frames []*frame.Frame

	// Extremes are the global value extremes.
	Extremes *frame.Extremes

	// Axis holds the axis domain and ticks of every frame.
	Axis *processor.AxisScales

	// Colors maps every resolved color key to its color.
	Colors map[string]string

	cfg      *Config
	metadata ingress.Metadata
}

// FrameTime returns the timestamp of a frame.
// The freeze and hold frames share the last keyframe timestamp.
func (r *Result) FrameTime(frameIdx int) time.Time {
	return r.Timeline.FrameTime(float64(frameIdx))
}

// ColorKey returns the color key of a record.
func (r *Result) ColorKey(rec *frame.Record) string {
	if rec.Sample == nil {
		return rec.ID()
	}
	return r.cfg.ColorKey(rec.Sample, r.metadata)
}

// Color returns the color of a record.
// The second return value is false when the color of its key is unresolved.
func (r *Result) Color(rec *frame.Record) (string, bool) {
	col, ok := r.Colors[r.ColorKey(rec)]
	return col, ok
}

// Scene returns the scene to draw the result with a renderer.
func (r *Result) Scene() *render.Scene {
	return &render.Scene{
		Frames:    r.Frames,
		Extremes:  r.Extremes,
		Axis:      r.Axis,
		FrameTime: r.FrameTime,

		Colors:   r.Colors,
		ColorKey: r.ColorKey,
		Metadata: r.metadata,

		BarInfo:     r.cfg.BarInfo,
		ValueFormat: r.cfg.ValueFormat,
		TickFormat:  r.cfg.TickFormat,
	}
}
