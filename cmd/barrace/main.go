// Command barrace computes the frames of a bar chart race from a CSV file
// and exports them to files, QuestDB or Kafka.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/FerroO2000/barrace/internal"
	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"
)

func run(ctx context.Context, cmd *cli.Command) error {
	if cmd.Bool("debug") {
		internal.SetLogLevel(slog.LevelDebug)
	}

	tel, err := initTelemetry(ctx, &telemetryConfig{
		grpcEndpoint: cmd.String("otel-grpc"),
		httpEndpoint: cmd.String("otel-http"),
		traceRatio:   cmd.Float("trace-ratio"),
	})
	if err != nil {
		return fmt.Errorf("failed to init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := tel.shutdown(shutdownCtx); err != nil {
			slog.Error("failed to shutdown telemetry", slog.String("error", err.Error()))
		}
	}()

	fileCfg, err := loadConfig(cmd.String("config"))
	if err != nil {
		return err
	}

	a, err := newApp(fileCfg, &appOptions{
		dataPath:     cmd.String("data"),
		metaPath:     cmd.String("meta"),
		outPath:      cmd.String("out"),
		framesDir:    cmd.String("frames"),
		questDBAddr:  cmd.String("questdb"),
		kafkaBrokers: cmd.StringSlice("kafka"),
	})
	if err != nil {
		return err
	}

	if !cmd.Bool("watch") {
		return a.runOnce(ctx)
	}

	return a.watch(ctx)
}

func main() {
	ctx, cancelCtx := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancelCtx()

	cmd := &cli.Command{
		Name:   "barrace",
		Usage:  "Compute the frames of a bar chart race from a CSV file",
		Action: run,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML config file",
				Sources: cli.EnvVars("BARRACE_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:     "data",
				Aliases:  []string{"d"},
				Usage:    "Path to the CSV data file",
				Required: true,
				Sources:  cli.EnvVars("BARRACE_DATA_FILE"),
			},
			&cli.StringFlag{
				Name:    "meta",
				Aliases: []string{"m"},
				Usage:   "Path to the CSV metadata file",
				Sources: cli.EnvVars("BARRACE_META_FILE"),
			},
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "Path of the CSV file receiving the frames",
			},
			&cli.StringFlag{
				Name:  "frames",
				Usage: "Directory receiving one PNG image per frame",
			},
			&cli.StringFlag{
				Name:    "questdb",
				Usage:   "Address of the QuestDB HTTP endpoint receiving the frames",
				Sources: cli.EnvVars("BARRACE_QUESTDB_ADDRESS"),
			},
			&cli.StringSliceFlag{
				Name:    "kafka",
				Usage:   "Kafka brokers receiving the frames",
				Sources: cli.EnvVars("BARRACE_KAFKA_BROKERS"),
			},
			&cli.BoolFlag{
				Name:    "watch",
				Aliases: []string{"w"},
				Usage:   "Run again every time the data file changes",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable the debug logs",
			},
			&cli.StringFlag{
				Name:    "otel-grpc",
				Usage:   "OpenTelemetry collector gRPC endpoint",
				Value:   "localhost:4317",
				Sources: cli.EnvVars("BARRACE_OTEL_GRPC_ENDPOINT"),
			},
			&cli.StringFlag{
				Name:    "otel-http",
				Usage:   "OpenTelemetry collector HTTP endpoint, used for the logs",
				Value:   "localhost:4318",
				Sources: cli.EnvVars("BARRACE_OTEL_HTTP_ENDPOINT"),
			},
			&cli.FloatFlag{
				Name:  "trace-ratio",
				Usage: "Sampling ratio of the traces",
				Value: 0.05,
			},
		},
	}

	if err := cmd.Run(ctx, os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		cancelCtx()
		os.Exit(1)
	}
}
