// Package egress contains the sinks that export the computed frames.
package egress

import (
	"context"
	"time"

	"github.com/FerroO2000/barrace/frame"
)

// FrameBatch is the unit delivered to the sinks: one frame
// together with its timestamp.
type FrameBatch struct {
	// Frame is the delivered frame.
	Frame *frame.Frame

	// Time is the timestamp of the frame.
	Time time.Time
}

// Sink receives the frames in increasing index order.
type Sink interface {
	// Name identifies the sink in logs and metrics.
	Name() string

	// Write exports the batch.
	Write(ctx context.Context, batch *FrameBatch) error

	// Close flushes any buffered data and releases the sink.
	Close(ctx context.Context) error
}

// FrameTimeFunc returns the timestamp of a frame index.
type FrameTimeFunc func(frameIdx int) time.Time
