package egress

import (
	"context"
	"encoding/json"
	"math"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/FerroO2000/barrace/internal"
	"github.com/FerroO2000/barrace/internal/config"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/attribute"
)

//////////////
//  CONFIG  //
//////////////

// Default values for the Kafka sink configuration.
const (
	DefaultKafkaConfigTopic        = "bar_frames"
	DefaultKafkaConfigMaxAttempts  = 10
	DefaultKafkaConfigBatchSize    = 100
	DefaultKafkaConfigBatchTimeout = time.Second
	DefaultKafkaConfigWriteTimeout = 10 * time.Second
)

// DefaultKafkaConfigBrokers is the default list of brokers.
var DefaultKafkaConfigBrokers = []string{"localhost:9092"}

// KafkaConfig structs contains the configuration for the Kafka sink.
type KafkaConfig struct {
	// A list of Kafka brokers to connect to.
	//
	// Default: localhost:9092
	Brokers []string

	// Topic is the topic the frames are written to.
	//
	// Default: bar_frames
	Topic string

	// Limit on how many attempts will be made to deliver a message.
	//
	// Default: 10.
	MaxAttempts int

	// Limit on how many messages will be buffered before being sent to a
	// partition.
	//
	// Default: 100.
	BatchSize int

	// Time limit on how often incomplete message batches will be flushed to
	// kafka.
	//
	// Default: 1s.
	BatchTimeout time.Duration

	// Timeout for write operation performed by the Writer.
	//
	// Default: 10s.
	WriteTimeout time.Duration

	// Number of acknowledges from partition replicas required before receiving
	// a response to a produce request.
	//
	// Default: RequireOne.
	RequiredAcks kafka.RequiredAcks

	// Compression set the compression codec to be used to compress messages.
	//
	// Default: Snappy.
	Compression kafka.Compression

	// AllowAutoTopicCreation notifies writer to create topic if missing.
	AllowAutoTopicCreation bool
}

// NewKafkaConfig returns the default configuration for the Kafka sink.
func NewKafkaConfig() *KafkaConfig {
	return &KafkaConfig{
		Brokers:                DefaultKafkaConfigBrokers,
		Topic:                  DefaultKafkaConfigTopic,
		MaxAttempts:            DefaultKafkaConfigMaxAttempts,
		BatchSize:              DefaultKafkaConfigBatchSize,
		BatchTimeout:           DefaultKafkaConfigBatchTimeout,
		WriteTimeout:           DefaultKafkaConfigWriteTimeout,
		RequiredAcks:           kafka.RequireOne,
		Compression:            kafka.Snappy,
		AllowAutoTopicCreation: true,
	}
}

// Validate checks the configuration.
func (c *KafkaConfig) Validate(ac *config.AnomalyCollector) {
	config.CheckLen(ac, "Brokers", &c.Brokers, DefaultKafkaConfigBrokers)
	config.CheckNotEmpty(ac, "Topic", &c.Topic, DefaultKafkaConfigTopic)
	config.CheckPositive(ac, "MaxAttempts", &c.MaxAttempts, DefaultKafkaConfigMaxAttempts)
	config.CheckPositive(ac, "BatchSize", &c.BatchSize, DefaultKafkaConfigBatchSize)
	config.CheckPositive(ac, "BatchTimeout", &c.BatchTimeout, DefaultKafkaConfigBatchTimeout)
	config.CheckPositive(ac, "WriteTimeout", &c.WriteTimeout, DefaultKafkaConfigWriteTimeout)
}

///////////////
//  MESSAGE  //
///////////////

// KafkaFrameRecord is the JSON representation of a frame record.
type KafkaFrameRecord struct {
	ID    string   `json:"id"`
	Name  string   `json:"name,omitempty"`
	Type  string   `json:"type,omitempty"`
	State string   `json:"state"`
	Value *float64 `json:"value"`
	Alpha float64  `json:"alpha"`
	Rank  int      `json:"rank"`
	Pos   float64  `json:"pos"`
}

// KafkaFrameMessage is the JSON payload of a frame.
type KafkaFrameMessage struct {
	Frame   int                `json:"frame"`
	Time    time.Time          `json:"time"`
	Records []KafkaFrameRecord `json:"records"`
}

func newKafkaFrameMessage(batch *FrameBatch) *KafkaFrameMessage {
	msg := &KafkaFrameMessage{
		Frame:   batch.Frame.Index,
		Time:    batch.Time,
		Records: make([]KafkaFrameRecord, 0, batch.Frame.Len()),
	}

	for i := range batch.Frame.Records {
		rec := &batch.Frame.Records[i]

		kfr := KafkaFrameRecord{
			ID:    rec.ID(),
			State: rec.State.String(),
			Alpha: rec.Alpha,
			Rank:  rec.Rank,
			Pos:   rec.Pos,
		}

		if rec.Sample != nil {
			kfr.Name = rec.Sample.Name
			kfr.Type = rec.Sample.Type
		}

		// JSON has no NaN
		if !math.IsNaN(rec.Value) && !math.IsInf(rec.Value, 0) {
			value := rec.Value
			kfr.Value = &value
		}

		msg.Records = append(msg.Records, kfr)
	}

	return msg
}

//////////////////////
//  HEADER CARRIER  //
//////////////////////

// kafkaHeaderCarrier adapts the Kafka headers to a text map carrier,
// so the trace context can be injected into the messages.
type kafkaHeaderCarrier struct {
	headers []kafka.Header
}

func newKafkaHeaderCarrier(headers []kafka.Header) *kafkaHeaderCarrier {
	return &kafkaHeaderCarrier{
		headers: headers,
	}
}

func (c *kafkaHeaderCarrier) Get(key string) string {
	for _, h := range c.headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c *kafkaHeaderCarrier) Set(key, value string) {
	for i := range c.headers {
		if c.headers[i].Key == key {
			c.headers[i].Value = []byte(value)
			return
		}
	}

	c.headers = append(c.headers, kafka.Header{Key: key, Value: []byte(value)})
}

func (c *kafkaHeaderCarrier) Keys() []string {
	keys := make([]string, 0, len(c.headers))
	for _, h := range c.headers {
		keys = append(keys, h.Key)
	}
	return keys
}

func (c *kafkaHeaderCarrier) Headers() []kafka.Header {
	return c.headers
}

////////////
//  SINK  //
////////////

type kafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

var _ Sink = (*KafkaSink)(nil)

// KafkaSink writes one JSON message per frame, keyed by the frame index.
type KafkaSink struct {
	tel *internal.Telemetry

	cfg *KafkaConfig

	writer kafkaWriter

	// Metrics
	writtenMessages atomic.Int64
}

// NewKafkaSink returns a new Kafka sink.
func NewKafkaSink(cfg *KafkaConfig) *KafkaSink {
	config.NewValidator(internal.NewTelemetry("egress", "kafka")).Validate(cfg)

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		MaxAttempts:            cfg.MaxAttempts,
		BatchSize:              cfg.BatchSize,
		BatchTimeout:           cfg.BatchTimeout,
		WriteTimeout:           cfg.WriteTimeout,
		RequiredAcks:           cfg.RequiredAcks,
		Compression:            cfg.Compression,
		AllowAutoTopicCreation: cfg.AllowAutoTopicCreation,
	}

	return newKafkaSink(cfg, writer)
}

func newKafkaSink(cfg *KafkaConfig, writer kafkaWriter) *KafkaSink {
	ks := &KafkaSink{
		tel: internal.NewTelemetry("egress", "kafka"),

		cfg: cfg,

		writer: writer,
	}

	ks.tel.NewCounter("written_messages", func() int64 { return ks.writtenMessages.Load() })

	return ks
}

// Name returns the name of the sink.
func (ks *KafkaSink) Name() string {
	return "kafka"
}

// Write writes the frame as a single message.
func (ks *KafkaSink) Write(ctx context.Context, batch *FrameBatch) error {
	ctx, span := ks.tel.NewTrace(ctx, "deliver kafka message")
	defer span.End()

	value, err := json.Marshal(newKafkaFrameMessage(batch))
	if err != nil {
		return err
	}

	// Create the header that carries the trace
	headerCarrier := newKafkaHeaderCarrier(nil)
	ks.tel.InjectTrace(ctx, headerCarrier)

	kafkaMsg := kafka.Message{
		Key:   []byte(strconv.Itoa(batch.Frame.Index)),
		Value: value,

		Headers: headerCarrier.Headers(),
	}

	if err := ks.writer.WriteMessages(ctx, kafkaMsg); err != nil {
		return err
	}

	ks.writtenMessages.Add(1)

	span.SetAttributes(attribute.Int("message_size", len(value)))

	return nil
}

// Close closes the writer.
func (ks *KafkaSink) Close(_ context.Context) error {
	defer ks.tel.Close()

	return ks.writer.Close()
}
