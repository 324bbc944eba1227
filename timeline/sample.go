// Package timeline aligns irregular per-entity samples onto a uniform
// keyframe grid and builds the per-entity interpolation functions.
package timeline

import (
	"slices"
	"time"
)

// Sample is one raw observation of an entity.
// It is never modified once created by a data source.
type Sample struct {
	// ID is the value of the id field.
	ID string

	// Name is the optional display name.
	Name string

	// Type is the optional display type.
	Type string

	// Time is the timestamp of the observation.
	Time time.Time

	// Value is the main numeric value. Malformed values are NaN.
	Value float64

	// Fields contains the auxiliary numeric columns.
	Fields map[string]float64

	// Meta contains the non-numeric columns.
	Meta map[string]string
}

// Field returns the auxiliary numeric field with the given name.
func (s *Sample) Field(name string) (float64, bool) {
	v, ok := s.Fields[name]
	return v, ok
}

// Entity is a tracked item identified by its id field.
type Entity struct {
	// Index is the position of the entity in the order of first appearance.
	Index int

	// ID is the value of the id field.
	ID string

	// Samples are the observations of the entity sorted by time.
	// Samples sharing a timestamp are collapsed into the first one.
	Samples []*Sample
}

// First returns the earliest sample of the entity.
func (e *Entity) First() *Sample {
	return e.Samples[0]
}

// Last returns the latest sample of the entity.
func (e *Entity) Last() *Sample {
	return e.Samples[len(e.Samples)-1]
}

// Covers states whether t falls inside the sample coverage of the entity.
func (e *Entity) Covers(t time.Time) bool {
	return !t.Before(e.First().Time) && !t.After(e.Last().Time)
}

// SampleAt returns the latest sample not after t,
// or the first sample when t precedes the coverage.
func (e *Entity) SampleAt(t time.Time) *Sample {
	idx, found := slices.BinarySearchFunc(e.Samples, t, func(s *Sample, t time.Time) int {
		return s.Time.Compare(t)
	})

	if found {
		return e.Samples[idx]
	}

	if idx == 0 {
		return e.Samples[0]
	}

	return e.Samples[idx-1]
}

// GroupEntities groups the samples by id, keeping the order of first appearance.
func GroupEntities(samples []*Sample) []*Entity {
	entities := []*Entity{}
	byID := make(map[string]*Entity)

	for _, s := range samples {
		ent, ok := byID[s.ID]
		if !ok {
			ent = &Entity{
				Index: len(entities),
				ID:    s.ID,
			}

			byID[s.ID] = ent
			entities = append(entities, ent)
		}

		ent.Samples = append(ent.Samples, s)
	}

	for _, ent := range entities {
		slices.SortStableFunc(ent.Samples, func(a, b *Sample) int {
			return a.Time.Compare(b.Time)
		})

		ent.Samples = slices.CompactFunc(ent.Samples, func(a, b *Sample) bool {
			return a.Time.Equal(b.Time)
		})
	}

	return entities
}
