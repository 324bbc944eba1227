package timeline

import (
	"math"
	"time"

	"github.com/FerroO2000/barrace/internal/scale"
)

// Point is the state of an entity at one keyframe.
type Point struct {
	// Time is the keyframe timestamp.
	Time time.Time

	// Value is the interpolated value, NaN outside of the entity coverage.
	Value float64

	// Fields holds one value per entry of Timeline.Fields.
	Fields []float64

	// Sample is the sample that carries the non-interpolated data
	// (name, type, metadata) at this keyframe.
	Sample *Sample
}

// Present states whether the entity has a finite value at the keyframe.
func (p *Point) Present() bool {
	return !math.IsNaN(p.Value) && !math.IsInf(p.Value, 0)
}

// Series is the keyframe-aligned sequence of an entity.
type Series struct {
	Entity *Entity
	Points []Point
}

// Timeline is the output of the resampler.
type Timeline struct {
	// Grid contains the keyframe timestamps.
	Grid []time.Time

	// Delta is the spacing between two keyframes.
	// Only the last interval may be shorter.
	Delta time.Duration

	// FramesPerInterval is the number of sub-frames between two keyframes.
	FramesPerInterval int

	// TotalFrames is (len(Grid) - 1) * FramesPerInterval.
	TotalFrames int

	// Fields contains the names of the interpolated auxiliary fields.
	Fields []string

	// Entities contains every entity in order of first appearance.
	Entities []*Entity

	// Series contains one series per entity, in the same order as Entities.
	Series []*Series

	// Keyframe i is the global frame i*FramesPerInterval
	tsToFi *scale.Piecewise
	fiToTs *scale.Piecewise
}

// KeyFramesCount returns the number of keyframes.
func (t *Timeline) KeyFramesCount() int {
	return len(t.Grid)
}

// FrameIndex maps a timestamp to a (fractional) global frame index.
// The result is clamped to [0, TotalFrames].
func (t *Timeline) FrameIndex(ts time.Time) float64 {
	first, last := toMillis(t.Grid[0]), toMillis(t.Grid[len(t.Grid)-1])
	return t.tsToFi.At(scale.Clamp(toMillis(ts), first, last))
}

// FrameTime maps a global frame index to its timestamp.
// The result is clamped to the grid extent.
func (t *Timeline) FrameTime(frameIdx float64) time.Time {
	return fromMillis(t.fiToTs.At(scale.Clamp(frameIdx, 0, float64(t.TotalFrames))))
}

// FieldIndex returns the position of the field in Fields, or -1.
func (t *Timeline) FieldIndex(name string) int {
	for i, f := range t.Fields {
		if f == name {
			return i
		}
	}
	return -1
}

// KeyFrames returns the global frame index of every keyframe
// that starts an interval.
func (t *Timeline) KeyFrames() []int {
	keyFrames := make([]int, 0, len(t.Grid))
	for f := 0; f < t.TotalFrames; f += t.FramesPerInterval {
		keyFrames = append(keyFrames, f)
	}
	return keyFrames
}

func toMillis(ts time.Time) float64 {
	return float64(ts.UnixMilli())
}

func fromMillis(ms float64) time.Time {
	return time.UnixMilli(int64(math.Round(ms)))
}
