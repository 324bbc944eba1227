package timeline

import "fmt"

// DegenerateTimelineError is returned when the samples do not contain
// enough distinct timestamps to infer a keyframe grid.
type DegenerateTimelineError struct {
	// DistinctTimestamps is the number of distinct timestamps found.
	DistinctTimestamps int
}

func (e *DegenerateTimelineError) Error() string {
	return fmt.Sprintf("degenerate timeline: %d distinct timestamps found, at least 2 are required", e.DistinctTimestamps)
}
