// Package registrar applies hub structural events (devices and scenarios
// coming and going) to the registry.
package registrar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Makar-FP/plus-smart-home-tech/internal/codec"
	"github.com/Makar-FP/plus-smart-home-tech/internal/kafkabus"
	"github.com/Makar-FP/plus-smart-home-tech/internal/metrics"
	"github.com/Makar-FP/plus-smart-home-tech/internal/model"
	"github.com/Makar-FP/plus-smart-home-tech/internal/registry"
)

const shutdownTimeout = 10 * time.Second

// Config tunes the consumer loop.
type Config struct {
	PollTimeout    time.Duration
	MaxPollRecords int
}

// Registrar consumes hub events and keeps the sensor and scenario registries
// current. Structural events are rare, so offsets are committed synchronously
// after every batch instead of the aggregator's staged cadence.
type Registrar struct {
	cfg       Config
	log       *slog.Logger
	reader    *kafka.Reader
	sensors   registry.SensorRepository
	scenarios registry.ScenarioRepository
	tracker   *kafkabus.OffsetTracker
	metrics   *metrics.Metrics
}

// New wires a registrar around an existing reader and the repositories.
func New(cfg Config, reader *kafka.Reader, sensors registry.SensorRepository, scenarios registry.ScenarioRepository, m *metrics.Metrics, log *slog.Logger) *Registrar {
	return &Registrar{
		cfg:       cfg,
		log:       log.With(slog.String("component", "registrar")),
		reader:    reader,
		sensors:   sensors,
		scenarios: scenarios,
		tracker:   kafkabus.NewOffsetTracker(0),
		metrics:   m,
	}
}

// Run consumes hub events until ctx is cancelled or the consumer fails. The
// final commit and consumer close run on every exit path.
func (r *Registrar) Run(ctx context.Context) error {
	defer r.shutdown()
	r.log.Info("registrar started")

	for {
		msgs, pollErr := kafkabus.Poll(ctx, r.reader, r.cfg.PollTimeout, r.cfg.MaxPollRecords)

		for _, msg := range msgs {
			r.processRecord(ctx, msg)
			r.tracker.Record(msg)
		}
		if len(msgs) > 0 {
			r.commitSync(ctx, "batch")
		}

		if pollErr != nil {
			if errors.Is(pollErr, context.Canceled) {
				r.log.Info("registrar stopping", slog.String("reason", "shutdown"))
				return nil
			}
			r.log.Error("hub consumer failed", slog.Any("err", pollErr))
			return pollErr
		}
	}
}

func (r *Registrar) processRecord(ctx context.Context, msg kafka.Message) {
	r.metrics.RecordsConsumed.WithLabelValues("registrar").Inc()

	event, err := codec.DecodeHubEvent(msg.Value)
	if err != nil {
		r.metrics.DecodeFailures.WithLabelValues("registrar").Inc()
		r.log.Error("skipping undecodable hub record",
			slog.Int("partition", msg.Partition), slog.Int64("offset", msg.Offset), slog.Any("err", err))
		return
	}

	// Registry errors abort this record only; the loop moves on.
	if err := r.Apply(ctx, event); err != nil {
		r.log.Error("apply hub event failed",
			slog.String("hubId", event.HubID), slog.Int64("offset", msg.Offset), slog.Any("err", err))
	}
}

// Apply routes one hub event to its handler. Unknown payload variants are a
// handled no-op.
func (r *Registrar) Apply(ctx context.Context, event model.HubEvent) error {
	switch payload := event.Payload.(type) {
	case model.DeviceAdded:
		return r.deviceAdded(ctx, event.HubID, payload)
	case model.DeviceRemoved:
		return r.deviceRemoved(ctx, event.HubID, payload)
	case model.ScenarioAdded:
		return r.scenarioAdded(ctx, event.HubID, payload)
	case model.ScenarioRemoved:
		return r.scenarioRemoved(ctx, event.HubID, payload)
	case model.UnknownHubPayload:
		r.log.Warn("unknown hub event payload", slog.String("type", payload.Type), slog.String("hubId", event.HubID))
		return nil
	default:
		r.log.Warn("unhandled hub event payload", slog.String("type", fmt.Sprintf("%T", payload)))
		return nil
	}
}

func (r *Registrar) deviceAdded(ctx context.Context, hubID string, event model.DeviceAdded) error {
	known, err := r.sensors.SensorExists(ctx, hubID, []string{event.ID})
	if err != nil {
		return fmt.Errorf("check sensor %s: %w", event.ID, err)
	}
	if known {
		r.log.Debug("sensor already registered", slog.String("sensorId", event.ID), slog.String("hubId", hubID))
		return nil
	}
	if err := r.sensors.UpsertSensor(ctx, model.Sensor{ID: event.ID, HubID: hubID, DeviceType: event.DeviceType}); err != nil {
		return fmt.Errorf("save sensor %s: %w", event.ID, err)
	}
	r.log.Info("sensor registered", slog.String("sensorId", event.ID), slog.String("hubId", hubID))
	return nil
}

func (r *Registrar) deviceRemoved(ctx context.Context, hubID string, event model.DeviceRemoved) error {
	if err := r.sensors.DeleteSensor(ctx, hubID, event.ID); err != nil {
		return fmt.Errorf("delete sensor %s: %w", event.ID, err)
	}
	r.log.Info("sensor removed", slog.String("sensorId", event.ID), slog.String("hubId", hubID))
	return nil
}

func (r *Registrar) scenarioAdded(ctx context.Context, hubID string, event model.ScenarioAdded) error {
	conditions := make(map[string]model.Condition, len(event.Conditions))
	for _, wc := range event.Conditions {
		value, err := wc.IntValue()
		if err != nil {
			return fmt.Errorf("scenario %q: %w", event.Name, err)
		}
		condition := model.Condition{Type: wc.Type, Operation: wc.Operation, Value: value}
		if err := condition.Validate(); err != nil {
			return fmt.Errorf("scenario %q: %w", event.Name, err)
		}
		conditions[wc.SensorID] = condition
	}

	actions := make(map[string]model.Action, len(event.Actions))
	for _, wa := range event.Actions {
		action := model.Action{Type: wa.Type}
		if wa.Type == model.ActionSetValue {
			action.Value = wa.Value
		}
		actions[wa.SensorID] = action
	}

	// Saving replaces any previous (hubId, name) definition wholesale.
	scenario := model.Scenario{HubID: hubID, Name: event.Name, Conditions: conditions, Actions: actions}
	if err := r.scenarios.SaveScenario(ctx, scenario); err != nil {
		return fmt.Errorf("save scenario %q: %w", event.Name, err)
	}
	r.log.Info("scenario saved", slog.String("name", event.Name), slog.String("hubId", hubID),
		slog.Int("conditions", len(conditions)), slog.Int("actions", len(actions)))
	return nil
}

func (r *Registrar) scenarioRemoved(ctx context.Context, hubID string, event model.ScenarioRemoved) error {
	if err := r.scenarios.DeleteScenario(ctx, hubID, event.Name); err != nil {
		return fmt.Errorf("delete scenario %q: %w", event.Name, err)
	}
	r.log.Info("scenario removed", slog.String("name", event.Name), slog.String("hubId", hubID))
	return nil
}

func (r *Registrar) commitSync(ctx context.Context, mode string) {
	pending := r.tracker.Pending()
	if len(pending) == 0 {
		return
	}
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
	}
	r.metrics.OffsetCommits.WithLabelValues("registrar", mode).Inc()
	if err := r.reader.CommitMessages(ctx, pending...); err != nil {
		r.metrics.CommitFailures.WithLabelValues("registrar").Inc()
		r.log.Warn("offset commit failed", slog.String("mode", mode), slog.Any("err", err))
	}
}

func (r *Registrar) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if pending := r.tracker.Pending(); len(pending) > 0 {
		r.metrics.OffsetCommits.WithLabelValues("registrar", "final").Inc()
		if err := r.reader.CommitMessages(ctx, pending...); err != nil {
			r.metrics.CommitFailures.WithLabelValues("registrar").Inc()
			r.log.Warn("final offset commit failed", slog.Any("err", err))
		}
	}
	if err := r.reader.Close(); err != nil {
		r.log.Error("close hub consumer", slog.Any("err", err))
	}
	r.log.Info("registrar stopped", slog.Int("processed", r.tracker.Processed()))
}
