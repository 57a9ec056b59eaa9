package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/Agrid-Dev/housesim/internal/device"
	"github.com/Agrid-Dev/housesim/internal/simulation"
	"github.com/Agrid-Dev/housesim/internal/sink"
	"github.com/Agrid-Dev/housesim/internal/status"
)

var ErrBatchFailed = errors.New("batch: houses failed")

// Batch simulates the configured houses one after another. A house that
// fails to load or run is logged and skipped.
type Batch struct {
	cfg     Config
	tracker *status.Tracker
	log     *slog.Logger
	kafka   *kafka.Writer
}

func NewBatch(cfg Config, tracker *status.Tracker, log *slog.Logger) (*Batch, error) {
	b := &Batch{cfg: cfg, tracker: tracker, log: log}
	if cfg.Controllers.Kafka.Enabled {
		w, err := sink.NewKafkaWriter(cfg.Controllers.Kafka)
		if err != nil {
			return nil, err
		}
		b.kafka = w
	}
	return b, nil
}

func (b *Batch) Run(ctx context.Context) error {
	if b.kafka != nil {
		defer func() {
			if err := b.kafka.Close(); err != nil {
				b.log.Warn("kafka writer close", "err", err)
			}
		}()
	}

	failed := 0
	for _, spec := range b.cfg.Batch {
		err := b.runHouse(ctx, spec)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			failed++
			b.log.Error("house failed", "house", spec.ID, "building", spec.Building, "err", err)
		}
	}
	b.log.Info("batch finished", "houses", len(b.cfg.Batch), "failed", failed)
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d", ErrBatchFailed, failed, len(b.cfg.Batch))
	}
	return nil
}

func (b *Batch) runHouse(ctx context.Context, spec device.Spec) (err error) {
	params := b.cfg.Params()
	b.tracker.Begin(spec.ID, "", params.WarmupYears+1)
	defer func() { b.tracker.Finish(err) }()

	d, err := device.New(spec, b.cfg.Paths)
	if err != nil {
		return err
	}
	b.tracker.Begin(d.ID, d.RunID, params.WarmupYears+1)
	log := b.log.With("run_id", d.RunID)

	tsv, err := sink.OpenTSV(b.cfg.Paths.Output, d.ID, b.cfg.Output.Files())
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, tsv.Close())
	}()
	sinks := simulation.MultiSink{b.tracker, tsv}

	if b.kafka != nil {
		k := sink.NewKafka(ctx, b.kafka, d.ID, d.RunID, b.cfg.Controllers.Kafka.BatchSize, log)
		defer func() {
			err = errors.Join(err, k.Close())
		}()
		sinks = append(sinks, k)
	}

	log.Info("house start", "house", d.ID)
	return d.Run(ctx, params, simulation.Options{
		Logger: log,
		Sink:   sinks,
		Gate:   b.tracker,
	})
}
