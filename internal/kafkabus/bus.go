// Package kafkabus wires the services to Kafka: reader/writer construction,
// topic provisioning, bounded poll batching, and manual offset bookkeeping.
package kafkabus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// Bus builds readers and writers against one broker set.
type Bus struct {
	brokers []string
	log     *slog.Logger
}

// New returns a Bus for the given brokers.
func New(brokers []string, log *slog.Logger) *Bus {
	return &Bus{brokers: brokers, log: log.With(slog.String("component", "kafka-bus"))}
}

// Reader returns a group consumer for one topic. Offsets are committed
// manually via CommitMessages, never automatically.
func (b *Bus) Reader(topic, group string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:     b.brokers,
		GroupID:     group,
		Topic:       topic,
		StartOffset: kafka.FirstOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
		MaxWait:     500 * time.Millisecond,
	})
}

// Writer returns an async fire-and-forget producer for one topic. Messages
// are keyed by the caller and hashed to partitions; delivery outcomes arrive
// on the completion callback. Close flushes everything still in flight.
func (b *Bus) Writer(topic string, completion func(msgs []kafka.Message, err error)) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(b.brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		Async:        true,
		Completion:   completion,
	}
}

// EnsureTopics creates the given topics if they do not exist yet. Kafka
// reports already-existing topics as an error, so failures are logged and
// swallowed like the rest of the provisioning path.
func (b *Bus) EnsureTopics(ctx context.Context, configs ...kafka.TopicConfig) error {
	if len(b.brokers) == 0 {
		return errors.New("no brokers configured")
	}
	conn, err := kafka.DialContext(ctx, "tcp", b.brokers[0])
	if err != nil {
		return fmt.Errorf("dial broker %s: %w", b.brokers[0], err)
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("get controller: %w", err)
	}
	c, err := kafka.DialContext(ctx, "tcp", fmt.Sprintf("%s:%d", controller.Host, controller.Port))
	if err != nil {
		return fmt.Errorf("dial controller: %w", err)
	}
	defer c.Close()

	if err := c.CreateTopics(configs...); err != nil {
		b.log.Warn("CreateTopics returned non-nil", slog.Any("err", err))
	}
	return nil
}

// ClientID returns a unique consumer identity for logging.
func ClientID(service string) string {
	return service + "-" + uuid.NewString()
}

// Poll collects up to max records within one poll interval, mirroring a
// blocking poll with a fixed timeout. It returns whatever was fetched before
// the interval elapsed. A non-nil error means the parent context was
// cancelled or the fetch failed; any records already collected must still be
// processed by the caller before it reacts to the error.
func Poll(ctx context.Context, r *kafka.Reader, timeout time.Duration, max int) ([]kafka.Message, error) {
	pollCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var msgs []kafka.Message
	for len(msgs) < max {
		msg, err := r.FetchMessage(pollCtx)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				return msgs, nil
			}
			if ctx.Err() != nil {
				return msgs, ctx.Err()
			}
			return msgs, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}
