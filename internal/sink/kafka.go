package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Agrid-Dev/housesim/internal/simulation"
)

// Record kinds carried in the "kind" header.
const (
	KindMinute  = "minute"
	KindFilter  = "filter"
	KindSummary = "summary"
)

const defaultBatchSize = 60

type KafkaConfig struct {
	Enabled   bool     `koanf:"enabled"`
	Brokers   []string `koanf:"brokers"`
	Topic     string   `koanf:"topic"`
	BatchSize int      `koanf:"batch_size"`
}

func (c KafkaConfig) Validate() error {
	if len(c.Brokers) == 0 {
		return ErrNoBrokers
	}
	if c.Topic == "" {
		return ErrNoTopic
	}
	return nil
}

// NewKafkaWriter returns a synchronous producer for cfg.Topic.
func NewKafkaWriter(cfg KafkaConfig) (*kafka.Writer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}, nil
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Kafka streams the records of one house as JSON keyed by house id. Minute
// records are batched; filter records and summaries flush the batch.
type Kafka struct {
	ctx   context.Context
	w     messageWriter
	log   *slog.Logger
	house string
	runID string
	batch []kafka.Message
	size  int
}

var _ simulation.Sink = (*Kafka)(nil)

// NewKafka binds a writer to one house run. ctx bounds every write.
func NewKafka(ctx context.Context, w messageWriter, house, runID string, batchSize int, log *slog.Logger) *Kafka {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if log == nil {
		log = slog.Default()
	}
	return &Kafka{
		ctx:   ctx,
		w:     w,
		log:   log.With(slog.String("component", "kafka-sink"), slog.String("house", house)),
		house: house,
		runID: runID,
		size:  batchSize,
	}
}

func (k *Kafka) message(kind string, v any) (kafka.Message, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode %s: %w", kind, err)
	}
	return kafka.Message{
		Key:   []byte(k.house),
		Value: b,
		Time:  time.Now(),
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(kind)},
			{Key: "run_id", Value: []byte(k.runID)},
		},
	}, nil
}

func (k *Kafka) Minute(r *simulation.MinuteRecord) error {
	m, err := k.message(KindMinute, r)
	if err != nil {
		return err
	}
	k.batch = append(k.batch, m)
	if len(k.batch) >= k.size {
		return k.Flush()
	}
	return nil
}

func (k *Kafka) Filter(r simulation.FilterRecord) error {
	m, err := k.message(KindFilter, r)
	if err != nil {
		return err
	}
	k.batch = append(k.batch, m)
	return k.Flush()
}

func (k *Kafka) Summary(s simulation.AnnualSummary) error {
	m, err := k.message(KindSummary, s)
	if err != nil {
		return err
	}
	k.batch = append(k.batch, m)
	if err := k.Flush(); err != nil {
		return err
	}
	k.log.Info("summary published", "year", s.Year, "total_kwh", s.TotalKWh)
	return nil
}

// Flush writes any batched messages.
func (k *Kafka) Flush() error {
	if len(k.batch) == 0 {
		return nil
	}
	if err := k.w.WriteMessages(k.ctx, k.batch...); err != nil {
		k.log.Error("kafka write failed", "messages", len(k.batch), "err", err)
		return fmt.Errorf("kafka write: %w", err)
	}
	k.batch = k.batch[:0]
	return nil
}

// Close flushes the batch. The writer is owned by the caller.
func (k *Kafka) Close() error { return k.Flush() }
