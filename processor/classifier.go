// Package processor contains the passes that turn a resampled timeline
// into ranked, smoothed frames and the axis scales drawn over them.
package processor

import (
	"math"

	"github.com/FerroO2000/barrace/frame"
	"github.com/FerroO2000/barrace/internal/scale"
	"github.com/FerroO2000/barrace/timeline"
)

const (
	enteringValueRatio = 0.3
	exitingValueRatio  = 0.1

	enteringAlphaEnd  = 0.2
	exitingAlphaEnd   = 0.4
	enteringOffsetEnd = 0.2
)

// InterpFunc evaluates a quantity at the phase r of a keyframe interval.
type InterpFunc func(r float64) float64

func constant(v float64) InterpFunc {
	return func(float64) float64 { return v }
}

func linearFrom(from, to float64) InterpFunc {
	return func(r float64) float64 { return scale.Lerp(from, to, r) }
}

func clampedFrom(d0, d1, r0, r1 float64) InterpFunc {
	return scale.NewClampedLinear(d0, d1, r0, r1).Map
}

// Transition is the interpolation policy of an entity
// over one keyframe interval.
type Transition struct {
	// State is the presence classification of the interval.
	State frame.State

	value  InterpFunc
	fields []InterpFunc

	alpha  InterpFunc
	offset InterpFunc
}

// Value returns the interpolated value at phase r.
func (t *Transition) Value(r float64) float64 {
	return t.value(r)
}

// Fields returns every interpolated auxiliary field at phase r.
func (t *Transition) Fields(r float64) []float64 {
	fields := make([]float64, len(t.fields))
	for i, fn := range t.fields {
		fields[i] = fn(r)
	}
	return fields
}

// Alpha returns the opacity at phase r. The phase is eased before
// evaluating the alpha ramp.
func (t *Transition) Alpha(r float64) float64 {
	return t.alpha(scale.EasePolyOut(r))
}

// Offset returns the entry/exit position offset at phase r.
// Like Alpha, the phase is eased first.
func (t *Transition) Offset(r float64) float64 {
	return t.offset(scale.EasePolyOut(r))
}

// ClassifyState returns the state of an interval given
// the values at its left and right keyframes.
func ClassifyState(left, right float64) frame.State {
	leftOK := isFinite(left)
	rightOK := isFinite(right)

	switch {
	case leftOK && rightOK:
		return frame.StateNormal
	case rightOK:
		return frame.StateEntering
	case leftOK:
		return frame.StateExiting
	default:
		return frame.StateNull
	}
}

// Classifier builds the transitions of the keyframe intervals.
type Classifier struct{}

// NewClassifier returns a new classifier.
func NewClassifier() *Classifier {
	return &Classifier{}
}

// Classify returns the transition between two adjacent keyframe points
// of the same entity.
func (c *Classifier) Classify(left, right *timeline.Point) *Transition {
	state := ClassifyState(left.Value, right.Value)

	tr := &Transition{
		State:  state,
		fields: make([]InterpFunc, len(left.Fields)),
		alpha:  constant(1),
		offset: constant(0),
	}

	var interp func(l, r float64) InterpFunc

	switch state {
	case frame.StateNull:
		// Nothing to draw: the value collapses to zero
		interp = func(_, _ float64) InterpFunc { return constant(0) }
		tr.alpha = constant(0)

	case frame.StateEntering:
		interp = func(_, r float64) InterpFunc { return linearFrom(r*enteringValueRatio, r) }
		tr.alpha = clampedFrom(0, enteringAlphaEnd, 0, 1)
		tr.offset = clampedFrom(enteringOffsetEnd, 1, 1, 0)

	case frame.StateExiting:
		interp = func(l, _ float64) InterpFunc { return linearFrom(l, l*exitingValueRatio) }
		tr.alpha = clampedFrom(0, exitingAlphaEnd, 1, 0)
		tr.offset = clampedFrom(0, 1, 0, 1)

	default:
		interp = func(l, r float64) InterpFunc { return clampedFrom(0, 1, l, r) }
	}

	tr.value = interp(left.Value, right.Value)
	for i := range tr.fields {
		tr.fields[i] = interp(left.Fields[i], fieldAt(right.Fields, i))
	}

	return tr
}

func fieldAt(fields []float64, idx int) float64 {
	if idx >= len(fields) {
		return math.NaN()
	}
	return fields[idx]
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
