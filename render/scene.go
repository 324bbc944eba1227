package render

import (
	"time"

	"github.com/FerroO2000/barrace/frame"
	"github.com/FerroO2000/barrace/ingress"
	"github.com/FerroO2000/barrace/processor"
)

// Scene is everything the renderer needs to draw the frames.
type Scene struct {
	Frames   []*frame.Frame
	Extremes *frame.Extremes
	Axis     *processor.AxisScales

	// FrameTime returns the timestamp of a frame.
	FrameTime func(frameIdx int) time.Time

	// Colors maps a color key to its color.
	Colors map[string]string
	// ColorKey returns the color key of a record.
	ColorKey func(rec *frame.Record) string

	Metadata ingress.Metadata

	BarInfo     BarInfoFunc
	ValueFormat ValueFormat
	TickFormat  TickFormat
}

func (s *Scene) fillDefaults(cfg *Config) {
	if s.BarInfo == nil {
		s.BarInfo = BarInfo
	}
	if s.ValueFormat == nil {
		s.ValueFormat = NewValueFormat(cfg.Language)
	}
	if s.TickFormat == nil {
		s.TickFormat = CompactTick
	}
	if s.ColorKey == nil {
		s.ColorKey = func(rec *frame.Record) string { return rec.ID() }
	}
}

// Label returns the label of a record.
func (s *Scene) Label(rec *frame.Record) string {
	if rec.Sample == nil {
		return rec.ID()
	}
	return s.BarInfo(rec.Sample, s.Metadata)
}

// Color returns the color of a record.
// The second return value is false when no color is known yet.
func (s *Scene) Color(rec *frame.Record) (string, bool) {
	col, ok := s.Colors[s.ColorKey(rec)]
	return col, ok
}
