package egress

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/FerroO2000/barrace/internal"
	"github.com/FerroO2000/barrace/internal/config"
	qdb "github.com/questdb/go-questdb-client/v3"
	"go.opentelemetry.io/otel/attribute"
)

//////////////
//  CONFIG  //
//////////////

// Default values for the QuestDB sink configuration.
const (
	DefaultQuestDBConfigAddress       = "localhost:9000"
	DefaultQuestDBConfigTable         = "bar_frames"
	DefaultQuestDBConfigAutoFlushRows = 75_000
	DefaultQuestDBConfigRetryTimeout  = time.Second
)

// QuestDBConfig structs contains the configuration for the QuestDB sink.
type QuestDBConfig struct {
	// Address of the QuestDB server.
	//
	// Default: "localhost:9000"
	Address string

	// Table is the name of the table the records are inserted into.
	//
	// Default: "bar_frames"
	Table string

	// AutoFlushRows is the number of buffered rows that triggers a flush.
	//
	// Default: 75000
	AutoFlushRows int

	// RetryTimeout is the maximum time spent retrying a failed flush.
	//
	// Default: 1s
	RetryTimeout time.Duration
}

// NewQuestDBConfig returns the default configuration for the QuestDB sink.
func NewQuestDBConfig() *QuestDBConfig {
	return &QuestDBConfig{
		Address:       DefaultQuestDBConfigAddress,
		Table:         DefaultQuestDBConfigTable,
		AutoFlushRows: DefaultQuestDBConfigAutoFlushRows,
		RetryTimeout:  DefaultQuestDBConfigRetryTimeout,
	}
}

// Validate checks the configuration.
func (c *QuestDBConfig) Validate(ac *config.AnomalyCollector) {
	config.CheckNotEmpty(ac, "Address", &c.Address, DefaultQuestDBConfigAddress)
	config.CheckNotEmpty(ac, "Table", &c.Table, DefaultQuestDBConfigTable)
	config.CheckPositive(ac, "AutoFlushRows", &c.AutoFlushRows, DefaultQuestDBConfigAutoFlushRows)
	config.CheckNotNegative(ac, "RetryTimeout", &c.RetryTimeout, DefaultQuestDBConfigRetryTimeout)
}

////////////
//  SINK  //
////////////

var _ Sink = (*QuestDBSink)(nil)

// QuestDBSink inserts one row per frame record into QuestDB.
// The id and the state are symbols, the designated timestamp
// is the frame time.
type QuestDBSink struct {
	tel *internal.Telemetry

	cfg *QuestDBConfig

	senderPool *qdb.LineSenderPool
	sender     qdb.LineSender

	// Metrics
	insertedRows atomic.Int64
}

// NewQuestDBSink connects to QuestDB and returns a new sink.
func NewQuestDBSink(ctx context.Context, cfg *QuestDBConfig) (*QuestDBSink, error) {
	config.NewValidator(internal.NewTelemetry("egress", "questdb")).Validate(cfg)

	senderPool, err := qdb.PoolFromOptions(
		qdb.WithAddress(cfg.Address),
		qdb.WithHttp(),
		qdb.WithAutoFlushRows(cfg.AutoFlushRows),
		qdb.WithRetryTimeout(cfg.RetryTimeout),
	)
	if err != nil {
		return nil, err
	}

	sender, err := senderPool.Sender(ctx)
	if err != nil {
		senderPool.Close(ctx)
		return nil, err
	}

	qs := newQuestDBSink(cfg, sender)
	qs.senderPool = senderPool

	return qs, nil
}

func newQuestDBSink(cfg *QuestDBConfig, sender qdb.LineSender) *QuestDBSink {
	qs := &QuestDBSink{
		tel: internal.NewTelemetry("egress", "questdb"),

		cfg: cfg,

		sender: sender,
	}

	qs.tel.NewCounter("inserted_rows", func() int64 { return qs.insertedRows.Load() })

	return qs
}

// Name returns the name of the sink.
func (qs *QuestDBSink) Name() string {
	return "questdb"
}

// Write inserts the records of the frame.
func (qs *QuestDBSink) Write(ctx context.Context, batch *FrameBatch) error {
	ctx, span := qs.tel.NewTrace(ctx, "deliver QuestDB rows")
	defer span.End()

	frameIdx := int64(batch.Frame.Index)

	tmpInsRows := 0
	for i := range batch.Frame.Records {
		rec := &batch.Frame.Records[i]

		query := qs.sender.Table(qs.cfg.Table).
			Symbol("id", rec.ID()).
			Symbol("state", rec.State.String()).
			Int64Column("frame", frameIdx).
			Float64Column("value", rec.Value).
			Float64Column("alpha", rec.Alpha).
			Int64Column("rank", int64(rec.Rank)).
			Float64Column("pos", rec.Pos)

		if err := query.At(ctx, batch.Time); err != nil {
			return err
		}

		tmpInsRows++
	}

	span.SetAttributes(attribute.Int("inserted_rows", tmpInsRows))

	// Update metrics
	qs.insertedRows.Add(int64(tmpInsRows))

	return nil
}

// Close flushes the pending rows and closes the sender.
func (qs *QuestDBSink) Close(ctx context.Context) error {
	defer qs.tel.Close()

	if err := qs.sender.Flush(ctx); err != nil {
		qs.tel.LogError("failed to flush sender", err)
	}

	if err := qs.sender.Close(ctx); err != nil {
		return err
	}

	if qs.senderPool != nil {
		return qs.senderPool.Close(ctx)
	}

	return nil
}
