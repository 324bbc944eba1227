// Package internal contains the telemetry shared by every pass and sink.
package internal

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const scopeName = "github.com/FerroO2000/barrace"

var (
	logLevel = new(slog.LevelVar)

	baseLoggerOnce sync.Once
	baseLogger     *slog.Logger
)

// SetLogLevel sets the minimum level of the console logger.
func SetLogLevel(level slog.Level) {
	logLevel.Set(level)
}

func getBaseLogger() *slog.Logger {
	baseLoggerOnce.Do(func() {
		consoleHandler := tint.NewHandler(colorable.NewColorableStderr(), &tint.Options{
			Level:      logLevel,
			TimeFormat: time.TimeOnly,
			NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
		})

		otelHandler := otelslog.NewHandler(scopeName)

		baseLogger = slog.New(newFanoutHandler(consoleHandler, otelHandler))
	})

	return baseLogger
}

// Telemetry groups the logger, tracer and meter of a component.
type Telemetry struct {
	logger *slog.Logger
	tracer trace.Tracer
	meter  metric.Meter

	name string

	observables []*observable
}

// NewTelemetry returns the telemetry for the component
// of the given kind (e.g. processor, egress) and name.
func NewTelemetry(kind, name string) *Telemetry {
	return &Telemetry{
		logger: getBaseLogger().With("kind", kind, "name", name),
		tracer: otel.Tracer(scopeName),
		meter:  otel.Meter(scopeName),

		name: kind + "_" + name,
	}
}

// LogDebug logs a debug message.
func (t *Telemetry) LogDebug(msg string, args ...any) {
	t.logger.Debug(msg, args...)
}

// LogInfo logs an info message.
func (t *Telemetry) LogInfo(msg string, args ...any) {
	t.logger.Info(msg, args...)
}

// LogWarn logs a warning message.
func (t *Telemetry) LogWarn(msg string, args ...any) {
	t.logger.Warn(msg, args...)
}

// LogError logs an error message.
func (t *Telemetry) LogError(msg string, err error, args ...any) {
	t.logger.Error(msg, append([]any{"error", err}, args...)...)
}

// NewTrace starts a new span named after the component.
func (t *Telemetry) NewTrace(ctx context.Context, spanName string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, t.name+": "+spanName)
}

// InjectTrace writes the span context of ctx into the carrier.
func (t *Telemetry) InjectTrace(ctx context.Context, carrier propagation.TextMapCarrier) {
	otel.GetTextMapPropagator().Inject(ctx, carrier)
}

func (t *Telemetry) metricName(name string) string {
	return t.name + "_" + name
}

// NewCounter registers an observable monotonic counter
// whose value is read through the callback.
// Components sharing the kind and the name report their sum.
func (t *Telemetry) NewCounter(name string, callback func() int64) {
	t.joinObservable(name, true, callback)
}

// NewUpDownCounter registers an observable counter that may decrease.
// Its value leaves the total when the telemetry is closed.
func (t *Telemetry) NewUpDownCounter(name string, callback func() int64) {
	t.joinObservable(name, false, callback)
}

func (t *Telemetry) joinObservable(name string, monotonic bool, callback func() int64) {
	obs, err := getObservable(t.meter, t.metricName(name), monotonic)
	if err != nil {
		t.LogError("failed to create counter", err, "counter", name)
		return
	}

	obs.add(t, callback)
	t.observables = append(t.observables, obs)
}

// Close releases the counters of the component.
// The last value of its monotonic counters is kept in the totals.
func (t *Telemetry) Close() {
	for _, obs := range t.observables {
		obs.release(t)
	}
	t.observables = nil
}

// Histogram wraps an int64 histogram instrument.
type Histogram struct {
	hist metric.Int64Histogram
}

// NewHistogram registers a new histogram.
func (t *Telemetry) NewHistogram(name string, opts ...metric.Int64HistogramOption) *Histogram {
	hist, err := t.meter.Int64Histogram(t.metricName(name), opts...)
	if err != nil {
		t.LogError("failed to create histogram", err, "histogram", name)
		return &Histogram{}
	}

	return &Histogram{hist: hist}
}

// Record records a value into the histogram.
func (h *Histogram) Record(ctx context.Context, value int64) {
	if h.hist == nil {
		return
	}

	h.hist.Record(ctx, value)
}
