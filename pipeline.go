// Package barrace turns sparse multi-entity time series into the frames
// of a bar chart race: interpolated values, smoothed positions, opacities
// and colors for every output frame.
package barrace

import (
	"context"
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"github.com/FerroO2000/barrace/color"
	"github.com/FerroO2000/barrace/ingress"
	"github.com/FerroO2000/barrace/internal"
	"github.com/FerroO2000/barrace/internal/config"
	"github.com/FerroO2000/barrace/processor"
	"github.com/FerroO2000/barrace/timeline"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"
)

// Option customizes a pipeline.
type Option func(*Pipeline)

// WithExtractor sets the dominant color extractor.
// The default one decodes image files.
func WithExtractor(extractor color.Extractor) Option {
	return func(p *Pipeline) {
		p.extractor = extractor
	}
}

// WithImages sets the image source of the color keys.
// The color of a key with an image is its dominant color.
func WithImages(images map[string]string) Option {
	return func(p *Pipeline) {
		p.images = images
	}
}

// WithMetadata sets the metadata available to the color keys and the labels.
func WithMetadata(metadata ingress.Metadata) Option {
	return func(p *Pipeline) {
		p.metadata = metadata
	}
}

// Pipeline runs the passes that produce the frames.
// Every run owns its color state, so a pipeline can be run many times.
type Pipeline struct {
	tel *internal.Telemetry

	cfg *Config

	extractor color.Extractor
	images    map[string]string
	metadata  ingress.Metadata

	resampler *timeline.Resampler
	expander  *processor.Expander
	ranker    *processor.Ranker
	smoother  *processor.Smoother
	axis      *processor.AxisCalculator

	// Metrics
	runs              atomic.Int64
	extractionErrors  atomic.Int64
	activeExtractions atomic.Int64
	runDuration       *internal.Histogram
}

// NewPipeline returns a new pipeline. The configuration is validated
// and every invalid value is replaced by its default.
func NewPipeline(cfg *Config, opts ...Option) *Pipeline {
	tel := internal.NewTelemetry("pipeline", "barrace")

	config.NewValidator(tel).Validate(cfg)

	fpi := timeline.FramesPerInterval(cfg.FrameRate, cfg.Interval)

	p := &Pipeline{
		tel: tel,

		cfg: cfg,

		resampler: timeline.NewResampler(&timeline.ResamplerConfig{
			FrameRate:     cfg.FrameRate,
			Interval:      cfg.Interval,
			KeyFrameDelta: cfg.KeyFrameDelta,
		}),
		expander: processor.NewExpander(processor.NewClassifier()),
		ranker: processor.NewRanker(&processor.RankerConfig{
			ItemCount: cfg.ItemCount,
			Sort:      cfg.Sort,
		}),
		smoother: processor.NewSmoother(&processor.SmootherConfig{
			FramesPerInterval: fpi,
			Freeze:            cfg.Freeze,
			ItemCount:         cfg.ItemCount,
		}),
		axis: processor.NewAxisCalculator(&processor.AxisConfig{
			TickNumber:        cfg.TickNumber,
			Domain:            cfg.XDomain,
			FramesPerInterval: fpi,
		}),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.extractor == nil {
		p.extractor = color.NewFileExtractor()
	}

	tel.NewCounter("runs", p.runs.Load)
	tel.NewCounter("extraction_errors", p.extractionErrors.Load)
	tel.NewUpDownCounter("active_extractions", p.activeExtractions.Load)
	p.runDuration = tel.NewHistogram("run_duration",
		metric.WithDescription("Duration of a pipeline run"),
		metric.WithUnit("ms"),
	)

	return p
}

// Config returns the validated configuration.
func (p *Pipeline) Config() *Config {
	return p.cfg
}

// Metadata returns the metadata of the pipeline.
func (p *Pipeline) Metadata() ingress.Metadata {
	return p.metadata
}

// Load reads the samples of the data source.
func (p *Pipeline) Load(ctx context.Context, src ingress.DataSource) ([]*timeline.Sample, error) {
	ctx, span := p.tel.NewTrace(ctx, "load")
	defer span.End()

	samples, err := src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", src.Name(), err)
	}

	span.SetAttributes(attribute.Int("samples", len(samples)))
	p.tel.LogInfo("samples loaded", "source", src.Name(), "samples", len(samples))

	return samples, nil
}

// Run computes the frames of the samples. The dominant colors of the
// images are extracted concurrently with the passes.
func (p *Pipeline) Run(ctx context.Context, samples []*timeline.Sample) (*Result, error) {
	ctx, span := p.tel.NewTrace(ctx, "run")
	defer span.End()

	start := time.Now()
	p.runs.Add(1)

	assigner := color.NewAssigner(p.cfg.Palette)

	extraction := p.extractColors(ctx, assigner)

	tl, err := p.resampler.Resample(ctx, samples)
	if err != nil {
		_ = extraction.Wait()
		return nil, err
	}

	exp := p.expander.Expand(ctx, tl)
	frames := exp.Frames

	p.ranker.Rank(ctx, frames)

	frames = p.smoother.Extend(frames)
	p.smoother.Smooth(ctx, frames, len(tl.Entities))

	processor.RenderOrder(frames)
	processor.ClampAlpha(frames, p.cfg.ItemCount)

	axis := p.axis.Calculate(ctx, frames, tl.KeyFrames())

	// Extraction failures only leave keys unassigned
	_ = extraction.Wait()

	p.assignPalette(assigner, tl)

	res := &Result{
		Timeline: tl,
		Frames:   frames,
		Extremes: exp.Extremes,
		Axis:     axis,
		Colors:   assigner.Colors(),

		cfg:      p.cfg,
		metadata: p.metadata,
	}

	span.SetAttributes(
		attribute.Int("frames", len(frames)),
		attribute.Int("entities", len(tl.Entities)),
	)

	elapsed := time.Since(start)
	p.runDuration.Record(ctx, elapsed.Milliseconds())

	p.tel.LogInfo("pipeline run completed",
		"frames", len(frames), "entities", len(tl.Entities),
		"keyframes", tl.KeyFramesCount(), "elapsed", elapsed)

	return res, nil
}

// extractColors starts the extraction of the image colors.
// The returned group never reports an error.
func (p *Pipeline) extractColors(ctx context.Context, assigner *color.Assigner) *errgroup.Group {
	group := &errgroup.Group{}
	group.SetLimit(p.cfg.ColorWorkers)

	// Sorted keys keep the extraction order stable across runs
	keys := make([]string, 0, len(p.images))
	for key := range p.images {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	for _, key := range keys {
		src := p.images[key]

		group.Go(func() error {
			p.activeExtractions.Add(1)
			defer p.activeExtractions.Add(-1)

			col, err := p.extractor.Extract(ctx, src)
			if err != nil {
				p.extractionErrors.Add(1)
				p.tel.LogWarn("failed to extract color", "key", key, "source", src, "error", err)
				return nil
			}

			assigner.Set(key, color.Hex(col))
			return nil
		})
	}

	return group
}

// assignPalette gives the next palette color to every key without an image,
// in order of entity then interval.
func (p *Pipeline) assignPalette(assigner *color.Assigner, tl *timeline.Timeline) {
	for _, series := range tl.Series {
		for i := 0; i < len(series.Points)-1; i++ {
			sample := series.Points[i].Sample
			if sample == nil {
				continue
			}

			key := p.cfg.ColorKey(sample, p.metadata)
			if _, hasImage := p.images[key]; hasImage {
				continue
			}

			assigner.Assign(key)
		}
	}
}
