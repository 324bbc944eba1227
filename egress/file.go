package egress

import (
	"bufio"
	"context"
	"math"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/FerroO2000/barrace/internal"
	"github.com/FerroO2000/barrace/internal/config"
	"go.opentelemetry.io/otel/attribute"
)

//////////////
//  CONFIG  //
//////////////

// Default values for the file sink configuration.
const (
	DefaultFileConfigBufferSize               = 4096
	DefaultFileConfigFlushThresholdPercentage = 0.75
	DefaultFileConfigFlushDeadline            = time.Second
)

// FileConfig structs contains the configuration for the file sink.
type FileConfig struct {
	// Path is the path to the file.
	Path string

	// BufferSize is the size of the buffer used to write rows to the file.
	//
	// Default: 4096
	BufferSize int

	// FlushThresholdPercentage is the percentage of the buffer size that triggers a flush.
	//
	// Default: 0.75
	FlushThresholdPercentage float64

	// FlushDeadline is the maximum time to wait before flushing the buffer.
	//
	// Default: 1s
	FlushDeadline time.Duration
}

// NewFileConfig returns the default configuration for the file sink.
func NewFileConfig(path string) *FileConfig {
	return &FileConfig{
		Path:                     path,
		BufferSize:               DefaultFileConfigBufferSize,
		FlushThresholdPercentage: DefaultFileConfigFlushThresholdPercentage,
		FlushDeadline:            DefaultFileConfigFlushDeadline,
	}
}

// Validate checks the configuration.
func (c *FileConfig) Validate(ac *config.AnomalyCollector) {
	config.CheckPositive(ac, "BufferSize", &c.BufferSize, DefaultFileConfigBufferSize)
	config.CheckPositive(ac, "FlushThresholdPercentage", &c.FlushThresholdPercentage, DefaultFileConfigFlushThresholdPercentage)
	config.CheckNotGreaterThan(ac, "FlushThresholdPercentage", "1", &c.FlushThresholdPercentage, 1)
	config.CheckPositive(ac, "FlushDeadline", &c.FlushDeadline, DefaultFileConfigFlushDeadline)
}

///////////////
//  ENCODER  //
///////////////

var fileSinkHeader = []string{
	"frame", "time", "id", "name", "type", "state", "value", "alpha", "rank", "pos",
}

func encodeFrameRows(sb *strings.Builder, batch *FrameBatch) {
	ts := batch.Time.Format(time.RFC3339Nano)
	frameIdx := strconv.Itoa(batch.Frame.Index)

	for i := range batch.Frame.Records {
		rec := &batch.Frame.Records[i]

		sb.WriteString(frameIdx)
		sb.WriteByte(',')
		sb.WriteString(ts)
		sb.WriteByte(',')
		writeCSVString(sb, rec.ID())
		sb.WriteByte(',')

		name, typ := "", ""
		if rec.Sample != nil {
			name, typ = rec.Sample.Name, rec.Sample.Type
		}
		writeCSVString(sb, name)
		sb.WriteByte(',')
		writeCSVString(sb, typ)
		sb.WriteByte(',')

		sb.WriteString(rec.State.String())
		sb.WriteByte(',')
		writeCSVFloat(sb, rec.Value)
		sb.WriteByte(',')
		writeCSVFloat(sb, rec.Alpha)
		sb.WriteByte(',')
		sb.WriteString(strconv.Itoa(rec.Rank))
		sb.WriteByte(',')
		writeCSVFloat(sb, rec.Pos)
		sb.WriteByte('\n')
	}
}

func writeCSVString(sb *strings.Builder, s string) {
	if !strings.ContainsAny(s, ",\"\n\r") {
		sb.WriteString(s)
		return
	}

	sb.WriteByte('"')
	sb.WriteString(strings.ReplaceAll(s, `"`, `""`))
	sb.WriteByte('"')
}

func writeCSVFloat(sb *strings.Builder, v float64) {
	// Undefined values are left empty
	if math.IsNaN(v) {
		return
	}
	sb.WriteString(strconv.FormatFloat(v, 'f', -1, 64))
}

///////////////
//  METRICS  //
///////////////

type fileSinkMetrics struct {
	writtenBytes atomic.Int64
	writtenRows  atomic.Int64
	flushErrors  atomic.Int64
}

func (fsm *fileSinkMetrics) init(tel *internal.Telemetry) {
	tel.NewCounter("written_bytes", func() int64 { return fsm.writtenBytes.Load() })
	tel.NewCounter("written_rows", func() int64 { return fsm.writtenRows.Load() })
	tel.NewCounter("flush_errors", func() int64 { return fsm.flushErrors.Load() })
}

////////////
//  SINK  //
////////////

var _ Sink = (*FileSink)(nil)

// FileSink writes the frame records into a CSV file.
type FileSink struct {
	tel *internal.Telemetry

	cfg *FileConfig

	file   *os.File
	writer *bufio.Writer

	flushMux         *sync.Mutex
	bufSizeThreshold int64
	notFlushedBytes  atomic.Int64

	ticker   *time.Ticker
	stopCh   chan struct{}
	tickerWg *sync.WaitGroup

	metrics *fileSinkMetrics
}

// NewFileSink creates the file and returns a new file sink.
// The header row is written immediately.
func NewFileSink(cfg *FileConfig) (*FileSink, error) {
	tel := internal.NewTelemetry("egress", "file")
	config.NewValidator(tel).Validate(cfg)

	file, err := os.Create(cfg.Path)
	if err != nil {
		return nil, err
	}

	fs := &FileSink{
		tel: tel,

		cfg: cfg,

		file:   file,
		writer: bufio.NewWriterSize(file, cfg.BufferSize),

		flushMux:         &sync.Mutex{},
		bufSizeThreshold: int64(float64(cfg.BufferSize) * cfg.FlushThresholdPercentage),

		ticker:   time.NewTicker(cfg.FlushDeadline),
		stopCh:   make(chan struct{}),
		tickerWg: &sync.WaitGroup{},

		metrics: &fileSinkMetrics{},
	}

	fs.metrics.init(fs.tel)

	if _, err := fs.writer.WriteString(strings.Join(fileSinkHeader, ",") + "\n"); err != nil {
		file.Close()
		return nil, err
	}

	fs.tickerWg.Add(1)
	go fs.runTicker()

	return fs, nil
}

// Name returns the name of the sink.
func (fs *FileSink) Name() string {
	return "file"
}

func (fs *FileSink) runTicker() {
	defer fs.tickerWg.Done()

	for {
		select {
		case <-fs.stopCh:
			return

		case <-fs.ticker.C:
			if err := fs.flush(); err != nil {
				fs.tel.LogError("periodic flush failed", err, "path", fs.cfg.Path)
			}
		}
	}
}

// Write appends one row per record of the frame.
func (fs *FileSink) Write(ctx context.Context, batch *FrameBatch) error {
	_, span := fs.tel.NewTrace(ctx, "write frame")
	defer span.End()

	sb := &strings.Builder{}
	sb.Grow(batch.Frame.Len() * 64)
	encodeFrameRows(sb, batch)

	fs.flushMux.Lock()
	n, err := fs.writer.WriteString(sb.String())
	fs.flushMux.Unlock()

	if err != nil {
		return err
	}

	writtenBytes := int64(n)
	fs.metrics.writtenBytes.Add(writtenBytes)
	fs.metrics.writtenRows.Add(int64(batch.Frame.Len()))

	span.SetAttributes(attribute.Int64("written_bytes", writtenBytes))

	// Check wether to flush the writer
	if fs.notFlushedBytes.Add(writtenBytes) >= fs.bufSizeThreshold {
		return fs.flush()
	}

	return nil
}

func (fs *FileSink) flush() error {
	fs.flushMux.Lock()
	defer fs.flushMux.Unlock()

	if err := fs.writer.Flush(); err != nil {
		fs.metrics.flushErrors.Add(1)
		return err
	}

	fs.notFlushedBytes.Store(0)

	return nil
}

// Close flushes the buffer and closes the file.
func (fs *FileSink) Close(_ context.Context) error {
	defer fs.tel.Close()

	fs.ticker.Stop()
	close(fs.stopCh)
	fs.tickerWg.Wait()

	if err := fs.flush(); err != nil {
		fs.file.Close()
		return err
	}

	return fs.file.Close()
}
