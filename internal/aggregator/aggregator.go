package aggregator

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Makar-FP/plus-smart-home-tech/internal/codec"
	"github.com/Makar-FP/plus-smart-home-tech/internal/kafkabus"
	"github.com/Makar-FP/plus-smart-home-tech/internal/metrics"
)

const shutdownTimeout = 10 * time.Second

// Config tunes the consumer loop.
type Config struct {
	// PollTimeout bounds one blocking poll.
	PollTimeout time.Duration
	// MaxPollRecords caps the records taken from one poll.
	MaxPollRecords int
	// CommitEvery issues a staged async commit after this many records.
	CommitEvery int
}

// Aggregator drives the consume -> merge -> republish loop for sensor events
// and owns the offset bookkeeping of its consumer group.
type Aggregator struct {
	cfg     Config
	log     *slog.Logger
	store   *SnapshotStore
	reader  *kafka.Reader
	writer  *kafka.Writer
	tracker *kafkabus.OffsetTracker
	metrics *metrics.Metrics
}

// New wires an aggregator around an existing reader, async writer and store.
func New(cfg Config, store *SnapshotStore, reader *kafka.Reader, writer *kafka.Writer, m *metrics.Metrics, log *slog.Logger) *Aggregator {
	return &Aggregator{
		cfg:     cfg,
		log:     log.With(slog.String("component", "aggregator")),
		store:   store,
		reader:  reader,
		writer:  writer,
		tracker: kafkabus.NewOffsetTracker(cfg.CommitEvery),
		metrics: m,
	}
}

// Run consumes sensor events until ctx is cancelled or the consumer fails.
// Either way the shutdown sequence runs to completion: flush the producer so
// no committed offset outruns an unconfirmed publish, then one final
// synchronous commit, then close the consumer. The returned error is nil for
// a planned stop.
func (a *Aggregator) Run(ctx context.Context) error {
	defer a.shutdown()
	a.log.Info("aggregator started")

	for {
		msgs, pollErr := kafkabus.Poll(ctx, a.reader, a.cfg.PollTimeout, a.cfg.MaxPollRecords)

		// The in-flight batch is always finished, even on the way out.
		for _, msg := range msgs {
			a.processRecord(ctx, msg)
			if a.tracker.Record(msg) {
				a.commitAsync("staged")
			}
		}
		if len(msgs) > 0 {
			a.commitAsync("batch")
		}

		if pollErr != nil {
			if errors.Is(pollErr, context.Canceled) {
				a.log.Info("aggregator stopping", slog.String("reason", "shutdown"))
				return nil
			}
			a.log.Error("sensor consumer failed", slog.Any("err", pollErr))
			return pollErr
		}
	}
}

func (a *Aggregator) processRecord(ctx context.Context, msg kafka.Message) {
	a.metrics.RecordsConsumed.WithLabelValues("aggregator").Inc()

	event, err := codec.DecodeSensorEvent(msg.Value)
	if err != nil {
		// Poison record: the offset still advances past it.
		a.metrics.DecodeFailures.WithLabelValues("aggregator").Inc()
		a.log.Error("skipping undecodable sensor record",
			slog.Int("partition", msg.Partition), slog.Int64("offset", msg.Offset), slog.Any("err", err))
		return
	}

	snapshot, updated := a.store.Merge(event)
	if !updated {
		a.log.Debug("snapshot unchanged",
			slog.String("hubId", event.HubID), slog.String("sensorId", event.ID))
		return
	}

	data, err := codec.EncodeSnapshot(snapshot)
	if err != nil {
		a.log.Error("encode snapshot", slog.String("hubId", snapshot.HubID), slog.Any("err", err))
		return
	}
	// Fire and forget: the writer is async, delivery failures surface on its
	// completion callback.
	if err := a.writer.WriteMessages(ctx, kafka.Message{Key: []byte(snapshot.HubID), Value: data}); err != nil {
		a.metrics.PublishFailures.Inc()
		a.log.Error("enqueue snapshot publish", slog.String("hubId", snapshot.HubID), slog.Any("err", err))
		return
	}
	a.metrics.SnapshotsPublished.Inc()
	a.log.Info("snapshot published",
		slog.String("hubId", snapshot.HubID), slog.Int("sensors", len(snapshot.SensorStates)))
}

// commitAsync checkpoints the pending offsets without blocking the loop.
// Errors are logged and otherwise ignored; merge idempotence makes redelivery
// after a missed commit harmless.
func (a *Aggregator) commitAsync(mode string) {
	pending := a.tracker.Pending()
	if len(pending) == 0 {
		return
	}
	a.metrics.OffsetCommits.WithLabelValues("aggregator", mode).Inc()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.reader.CommitMessages(ctx, pending...); err != nil {
			a.metrics.CommitFailures.WithLabelValues("aggregator").Inc()
			a.log.Warn("async offset commit failed", slog.String("mode", mode), slog.Any("err", err))
		}
	}()
}

func (a *Aggregator) shutdown() {
	// Flush first: an offset must never be committed while the publish it
	// covers is still unconfirmed.
	if err := a.writer.Close(); err != nil {
		a.log.Error("flush snapshot producer", slog.Any("err", err))
	}

	if pending := a.tracker.Pending(); len(pending) > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.metrics.OffsetCommits.WithLabelValues("aggregator", "final").Inc()
		if err := a.reader.CommitMessages(ctx, pending...); err != nil {
			a.metrics.CommitFailures.WithLabelValues("aggregator").Inc()
			a.log.Warn("final offset commit failed", slog.Any("err", err))
		}
	}

	if err := a.reader.Close(); err != nil {
		a.log.Error("close sensor consumer", slog.Any("err", err))
	}
	a.log.Info("aggregator stopped", slog.Int("processed", a.tracker.Processed()))
}
