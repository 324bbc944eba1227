package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/FerroO2000/barrace"
	"github.com/FerroO2000/barrace/egress"
	"github.com/FerroO2000/barrace/ingress"
	"github.com/FerroO2000/barrace/internal"
	"github.com/FerroO2000/barrace/render"
	"github.com/FerroO2000/barrace/render/raster"
)

type appOptions struct {
	dataPath     string
	metaPath     string
	outPath      string
	framesDir    string
	questDBAddr  string
	kafkaBrokers []string
}

// app runs the pipeline on the data file and exports the result.
type app struct {
	tel *internal.Telemetry

	fileCfg *fileConfig
	opts    *appOptions

	pipeline *barrace.Pipeline
	source   *ingress.CSVFileSource
}

func newApp(fileCfg *fileConfig, opts *appOptions) (*app, error) {
	cfg, err := fileCfg.pipelineConfig()
	if err != nil {
		return nil, err
	}

	pipelineOpts := []barrace.Option{
		barrace.WithImages(fileCfg.Images),
	}

	if opts.metaPath != "" {
		meta, err := ingress.LoadMetadata(context.Background(), opts.metaPath, cfg.CSV.IDField)
		if err != nil {
			return nil, fmt.Errorf("failed to load metadata: %w", err)
		}
		pipelineOpts = append(pipelineOpts, barrace.WithMetadata(meta))
	}

	return &app{
		tel: internal.NewTelemetry("cmd", "barrace"),

		fileCfg: fileCfg,
		opts:    opts,

		pipeline: barrace.NewPipeline(cfg, pipelineOpts...),
		source:   ingress.NewCSVFileSource(opts.dataPath, cfg.CSV),
	}, nil
}

// runOnce loads the data, runs the pipeline, then exports the frames.
func (a *app) runOnce(ctx context.Context) error {
	samples, err := a.pipeline.Load(ctx, a.source)
	if err != nil {
		return err
	}

	res, err := a.pipeline.Run(ctx, samples)
	if err != nil {
		return err
	}

	if err := a.deliver(ctx, res); err != nil {
		return err
	}

	if a.opts.framesDir != "" {
		if err := a.render(ctx, res); err != nil {
			return err
		}
	}

	return nil
}

func (a *app) openSinks(ctx context.Context) ([]egress.Sink, error) {
	sinks := []egress.Sink{}

	if a.opts.outPath != "" {
		fileCfg := egress.NewFileConfig(a.opts.outPath)
		fileCfg.BufferSize = a.fileCfg.Sinks.File.BufferSize

		fs, err := egress.NewFileSink(fileCfg)
		if err != nil {
			return sinks, fmt.Errorf("failed to open file sink: %w", err)
		}
		sinks = append(sinks, fs)
	}

	if a.opts.questDBAddr != "" {
		qdbCfg := egress.NewQuestDBConfig()
		qdbCfg.Address = a.opts.questDBAddr
		qdbCfg.Table = a.fileCfg.Sinks.QuestDB.Table

		qs, err := egress.NewQuestDBSink(ctx, qdbCfg)
		if err != nil {
			return sinks, fmt.Errorf("failed to open QuestDB sink: %w", err)
		}
		sinks = append(sinks, qs)
	}

	brokers := a.opts.kafkaBrokers
	if len(brokers) == 0 {
		brokers = a.fileCfg.Sinks.Kafka.Brokers
	}

	if len(brokers) > 0 {
		kafkaCfg := egress.NewKafkaConfig()
		kafkaCfg.Brokers = brokers
		kafkaCfg.Topic = a.fileCfg.Sinks.Kafka.Topic

		sinks = append(sinks, egress.NewKafkaSink(kafkaCfg))
	}

	return sinks, nil
}

func (a *app) deliver(ctx context.Context, res *barrace.Result) error {
	sinks, err := a.openSinks(ctx)

	d := egress.NewDeliverer(sinks...)
	if err != nil {
		return errors.Join(err, d.Close(ctx))
	}

	if len(sinks) == 0 {
		return nil
	}

	deliverErr := d.Deliver(ctx, res.Frames, res.FrameTime)

	return errors.Join(deliverErr, d.Close(ctx))
}

func (a *app) render(ctx context.Context, res *barrace.Result) error {
	renderCfg := a.pipeline.Config().Render

	canvas, err := raster.NewCanvas(int(renderCfg.Width), int(renderCfg.Height))
	if err != nil {
		return err
	}

	enc, err := raster.NewPNGEncoder(canvas, a.opts.framesDir)
	if err != nil {
		return fmt.Errorf("failed to create frames directory: %w", err)
	}

	r := render.NewRenderer(canvas, renderCfg, a.pipeline.Config().ItemCount, res.Scene(),
		render.WithEncoder(enc),
	)

	return r.Render(ctx)
}

// watch runs the pipeline, then again after every change of the data file.
func (a *app) watch(ctx context.Context) error {
	watcherCfg := ingress.NewWatcherConfig()
	watcherCfg.Debounce = a.fileCfg.Watch.Debounce

	w, err := ingress.NewWatcher(a.opts.dataPath, watcherCfg)
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", a.opts.dataPath, err)
	}
	defer w.Close()

	if err := a.runOnce(ctx); err != nil {
		a.tel.LogError("run failed", err)
	}

	w.Run(ctx, func(ctx context.Context) {
		if err := a.runOnce(ctx); err != nil {
			a.tel.LogError("run failed", err)
		}
	})

	return nil
}
