package egress

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/FerroO2000/barrace/frame"
	"github.com/FerroO2000/barrace/internal"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

type deliveryMetrics struct {
	deliveredFrames atomic.Int64
	deliveryErrors  atomic.Int64
}

// Deliverer writes the frames to every sink.
// Each sink runs on its own goroutine and receives
// the frames in order.
type Deliverer struct {
	tel *internal.Telemetry

	sinks []Sink

	metrics *deliveryMetrics
}

// NewDeliverer returns a new deliverer for the sinks.
func NewDeliverer(sinks ...Sink) *Deliverer {
	d := &Deliverer{
		tel: internal.NewTelemetry("egress", "deliverer"),

		sinks: sinks,

		metrics: &deliveryMetrics{},
	}

	d.tel.NewCounter("delivered_frames", func() int64 { return d.metrics.deliveredFrames.Load() })
	d.tel.NewCounter("delivery_errors", func() int64 { return d.metrics.deliveryErrors.Load() })

	return d
}

// Deliver writes every frame to every sink. The first failing
// sink cancels the others; its error is returned.
func (d *Deliverer) Deliver(ctx context.Context, frames []*frame.Frame, frameTime FrameTimeFunc) error {
	ctx, span := d.tel.NewTrace(ctx, "deliver")
	defer span.End()

	span.SetAttributes(
		attribute.Int("frames", len(frames)),
		attribute.Int("sinks", len(d.sinks)),
	)

	group, groupCtx := errgroup.WithContext(ctx)

	for _, sink := range d.sinks {
		group.Go(func() error {
			return d.deliverTo(groupCtx, sink, frames, frameTime)
		})
	}

	return group.Wait()
}

func (d *Deliverer) deliverTo(ctx context.Context, sink Sink, frames []*frame.Frame, frameTime FrameTimeFunc) error {
	d.tel.LogDebug("delivering frames", "sink", sink.Name(), "frames", len(frames))

	for _, f := range frames {
		if err := ctx.Err(); err != nil {
			return err
		}

		batch := &FrameBatch{
			Frame: f,
			Time:  frameTime(f.Index),
		}

		if err := sink.Write(ctx, batch); err != nil {
			d.metrics.deliveryErrors.Add(1)
			d.tel.LogError("failed to write frame", err, "sink", sink.Name(), "frame", f.Index)

			return fmt.Errorf("sink %s: frame %d: %w", sink.Name(), f.Index, err)
		}

		d.metrics.deliveredFrames.Add(1)
	}

	return nil
}

// Close closes every sink and returns the first error.
func (d *Deliverer) Close(ctx context.Context) error {
	defer d.tel.Close()

	var firstErr error

	for _, sink := range d.sinks {
		if err := sink.Close(ctx); err != nil {
			d.tel.LogError("failed to close sink", err, "sink", sink.Name())

			if firstErr == nil {
				firstErr = fmt.Errorf("sink %s: %w", sink.Name(), err)
			}
		}
	}

	return firstErr
}
