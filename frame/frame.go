// Package frame defines the per-frame entity records produced by the
// processor passes and consumed by renderers and sinks.
package frame

import (
	"math"
	"slices"

	"github.com/FerroO2000/barrace/timeline"
)

// State is the presence classification of an entity over a keyframe interval.
type State uint8

const (
	// StateNull means the entity is absent at both ends of the interval.
	StateNull State = iota
	// StateNormal means the entity is present at both ends of the interval.
	StateNormal
	// StateEntering means the entity appears at the end of the interval.
	StateEntering
	// StateExiting means the entity disappears at the end of the interval.
	StateExiting
)

func (s State) String() string {
	switch s {
	case StateNull:
		return "null"
	case StateNormal:
		return "normal"
	case StateEntering:
		return "entering"
	case StateExiting:
		return "exiting"
	default:
		return "unknown"
	}
}

// OffScreenRank returns the rank given to entities that are not ranked.
func OffScreenRank(itemCount int) int {
	return itemCount + 1
}

// Record is the state of one entity at one output frame.
type Record struct {
	// Entity is the owning entity.
	Entity *timeline.Entity

	// Sample carries the display and category data of the entity
	// (the sample at the left edge of the interval).
	Sample *timeline.Sample

	// Value is the interpolated value.
	Value float64

	// Fields are the interpolated auxiliary fields, indexed like Timeline.Fields.
	Fields []float64

	// State is the classification of the enclosing interval.
	State State

	// Phase is the position of the frame inside its interval, in [0, 1).
	Phase float64

	// Alpha is the opacity, in [0, 1].
	Alpha float64

	// Offset is the entry/exit position offset.
	Offset float64

	// Rank is the integer position of the entity inside the frame.
	Rank int

	// Pos is the smoothed continuous position, offset included.
	Pos float64
}

// ID returns the id of the owning entity.
func (r *Record) ID() string {
	return r.Entity.ID
}

// Excluded states whether the record is left out of the ranking.
func (r *Record) Excluded() bool {
	return r.State == StateExiting || r.State == StateNull || math.IsNaN(r.Value)
}

func (r Record) clone() Record {
	r.Fields = slices.Clone(r.Fields)
	return r
}

// Frame is the set of records of one output frame.
type Frame struct {
	// Index is the global frame index.
	Index int

	// Records contains at most one record per entity.
	Records []Record

	// Max is the maximum value of the frame, NaN when empty.
	Max float64

	// Min is the minimum value of the frame, NaN when empty.
	Min float64

	slots map[int]int
}

// New returns an empty frame.
func New(index int) *Frame {
	return &Frame{
		Index: index,
		Max:   math.NaN(),
		Min:   math.NaN(),
	}
}

// Append adds a record to the frame and updates its extremes.
func (f *Frame) Append(rec Record) {
	f.Records = append(f.Records, rec)
	f.slots = nil

	if math.IsNaN(rec.Value) {
		return
	}

	if math.IsNaN(f.Max) || rec.Value > f.Max {
		f.Max = rec.Value
	}
	if math.IsNaN(f.Min) || rec.Value < f.Min {
		f.Min = rec.Value
	}
}

// Len returns the number of records.
func (f *Frame) Len() int {
	return len(f.Records)
}

// Lookup returns the record of the entity with the given index.
func (f *Frame) Lookup(entityIdx int) (*Record, bool) {
	if f.slots == nil {
		f.reindex()
	}

	slot, ok := f.slots[entityIdx]
	if !ok {
		return nil, false
	}

	return &f.Records[slot], true
}

// SortStable reorders the records; the membership never changes.
func (f *Frame) SortStable(cmp func(a, b *Record) int) {
	slices.SortStableFunc(f.Records, func(a, b Record) int {
		return cmp(&a, &b)
	})
	f.slots = nil
}

func (f *Frame) reindex() {
	f.slots = make(map[int]int, len(f.Records))
	for i := range f.Records {
		f.slots[f.Records[i].Entity.Index] = i
	}
}

// Clone returns a deep copy of the frame with the given index.
func (f *Frame) Clone(index int) *Frame {
	cloned := &Frame{
		Index:   index,
		Records: make([]Record, 0, len(f.Records)),
		Max:     f.Max,
		Min:     f.Min,
	}

	for _, rec := range f.Records {
		cloned.Records = append(cloned.Records, rec.clone())
	}

	return cloned
}

// IDs returns the entity ids in record order.
func (f *Frame) IDs() []string {
	ids := make([]string, 0, len(f.Records))
	for i := range f.Records {
		ids = append(ids, f.Records[i].ID())
	}
	return ids
}

// Extremes tracks the global maximum and minimum values
// together with the records that reached them.
type Extremes struct {
	Max float64
	Min float64

	MaxRecord *Record
	MinRecord *Record
}

// NewExtremes returns empty extremes.
func NewExtremes() *Extremes {
	return &Extremes{
		Max: math.Inf(-1),
		Min: math.Inf(1),
	}
}

// Observe updates the extremes with the record.
func (e *Extremes) Observe(rec *Record) {
	if math.IsNaN(rec.Value) {
		return
	}

	if rec.Value > e.Max {
		e.Max = rec.Value
		cloned := rec.clone()
		e.MaxRecord = &cloned
	}

	if rec.Value < e.Min {
		e.Min = rec.Value
		cloned := rec.clone()
		e.MinRecord = &cloned
	}
}
