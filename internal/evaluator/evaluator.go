// Package evaluator consumes republished snapshots, evaluates every scenario
// of the snapshot's hub, and dispatches device actions for the scenarios
// whose conditions all hold.
package evaluator

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

// Evaluator runs the snapshot consumer loop. It only reads registry state and
// snapshot contents; it never mutates either.
type Evaluator struct {
	cfg        Config
	log        *slog.Logger
	reader     *kafka.Reader
	sensors    registry.SensorRepository
	scenarios  registry.ScenarioRepository
	dispatcher ActionDispatcher
	tracker    *kafkabus.OffsetTracker
	metrics    *metrics.Metrics
	now        func() time.Time
}

// New wires an evaluator around an existing reader, the repositories and a
// dispatcher.
func New(cfg Config, reader *kafka.Reader, sensors registry.SensorRepository, scenarios registry.ScenarioRepository, dispatcher ActionDispatcher, m *metrics.Metrics, log *slog.Logger) *Evaluator {
	return &Evaluator{
		cfg:        cfg,
		log:        log.With(slog.String("component", "evaluator")),
		reader:     reader,
		sensors:    sensors,
		scenarios:  scenarios,
		dispatcher: dispatcher,
		tracker:    kafkabus.NewOffsetTracker(0),
		metrics:    m,
		now:        time.Now,
	}
}

// Run consumes snapshots until ctx is cancelled or the consumer fails,
// committing offsets synchronously after each batch.
func (e *Evaluator) Run(ctx context.Context) error {
	defer e.shutdown()
	e.log.Info("evaluator started")

	for {
		msgs, pollErr := kafkabus.Poll(ctx, e.reader, e.cfg.PollTimeout, e.cfg.MaxPollRecords)

		for _, msg := range msgs {
			e.processRecord(ctx, msg)
			e.tracker.Record(msg)
		}
		if len(msgs) > 0 {
			e.commitSync(ctx)
		}

		if pollErr != nil {
			if errors.Is(pollErr, context.Canceled) {
				e.log.Info("evaluator stopping", slog.String("reason", "shutdown"))
				return nil
			}
			e.log.Error("snapshot consumer failed", slog.Any("err", pollErr))
			return pollErr
		}
	}
}

func (e *Evaluator) processRecord(ctx context.Context, msg kafka.Message) {
	e.metrics.RecordsConsumed.WithLabelValues("evaluator").Inc()

	snapshot, err := codec.DecodeSnapshot(msg.Value)
	if err != nil {
		e.metrics.DecodeFailures.WithLabelValues("evaluator").Inc()
		e.log.Error("skipping undecodable snapshot record",
			slog.Int("partition", msg.Partition), slog.Int64("offset", msg.Offset), slog.Any("err", err))
		return
	}

	if err := e.HandleSnapshot(ctx, snapshot); err != nil {
		e.log.Error("handle snapshot failed", slog.String("hubId", snapshot.HubID), slog.Any("err", err))
	}
}

// HandleSnapshot evaluates every scenario of the snapshot's hub and
// dispatches the actions of each firing scenario.
func (e *Evaluator) HandleSnapshot(ctx context.Context, snapshot model.Snapshot) error {
	if len(snapshot.SensorStates) == 0 {
		e.log.Debug("snapshot has no sensor state", slog.String("hubId", snapshot.HubID))
		return nil
	}

	scenarios, err := e.scenarios.ScenariosByHub(ctx, snapshot.HubID)
	if err != nil {
		return fmt.Errorf("load scenarios for hub %s: %w", snapshot.HubID, err)
	}
	if len(scenarios) == 0 {
		e.log.Debug("no scenarios for hub", slog.String("hubId", snapshot.HubID))
		return nil
	}

	for _, scenario := range scenarios {
		fires, err := e.scenarioFires(ctx, snapshot, scenario)
		if err != nil {
			return err
		}
		if !fires {
			continue
		}
		e.metrics.ScenariosFired.Inc()
		e.log.Info("scenario fired",
			slog.String("hubId", snapshot.HubID), slog.String("scenario", scenario.Name))
		e.dispatchActions(ctx, scenario)
	}
	return nil
}

// scenarioFires reports whether every condition of the scenario is satisfied
// by the snapshot. A scenario with no conditions never fires. The scenario is
// skipped outright when a conditioned sensor is not registered to the hub
// (stale or cross-hub data) or when the snapshot lacks state for it (a later
// snapshot with full coverage will evaluate it).
func (e *Evaluator) scenarioFires(ctx context.Context, snapshot model.Snapshot, scenario model.Scenario) (bool, error) {
	if len(scenario.Conditions) == 0 {
		return false, nil
	}

	sensorIDs := make([]string, 0, len(scenario.Conditions))
	for id := range scenario.Conditions {
		sensorIDs = append(sensorIDs, id)
	}
	owned, err := e.sensors.SensorExists(ctx, snapshot.HubID, sensorIDs)
	if err != nil {
		return false, fmt.Errorf("check sensors of scenario %q: %w", scenario.Name, err)
	}
	if !owned {
		e.log.Debug("scenario references sensors outside the hub",
			slog.String("hubId", snapshot.HubID), slog.String("scenario", scenario.Name))
		return false, nil
	}

	for id, condition := range scenario.Conditions {
		state, ok := snapshot.SensorStates[id]
		if !ok {
			e.log.Debug("snapshot lacks state for conditioned sensor",
				slog.String("hubId", snapshot.HubID), slog.String("scenario", scenario.Name), slog.String("sensorId", id))
			return false, nil
		}
		if !conditionSatisfied(condition, state) {
			return false, nil
		}
	}
	return true, nil
}

// dispatchActions sends every action of a firing scenario. Each dispatch is
// independent: one failure is logged and the rest still go out.
func (e *Evaluator) dispatchActions(ctx context.Context, scenario model.Scenario) {
	now := e.now().UTC()
	for sensorID, action := range scenario.Actions {
		req := newActionRequest(scenario.HubID, scenario.Name, sensorID, action, now)
		if err := e.dispatcher.Dispatch(ctx, req); err != nil {
			e.metrics.DispatchFailures.Inc()
			e.log.Error("dispatch device action failed",
				slog.String("hubId", scenario.HubID), slog.String("scenario", scenario.Name),
				slog.String("sensorId", sensorID), slog.Any("err", err))
			continue
		}
		e.metrics.ActionsDispatched.Inc()
		e.log.Info("device action dispatched",
			slog.String("hubId", scenario.HubID), slog.String("scenario", scenario.Name),
			slog.String("sensorId", sensorID), slog.String("type", string(action.Type)))
	}
}

func (e *Evaluator) commitSync(ctx context.Context) {
	pending := e.tracker.Pending()
	if len(pending) == 0 {
		return
	}
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
	}
	e.metrics.OffsetCommits.WithLabelValues("evaluator", "batch").Inc()
	if err := e.reader.CommitMessages(ctx, pending...); err != nil {
		e.metrics.CommitFailures.WithLabelValues("evaluator").Inc()
		e.log.Warn("offset commit failed", slog.Any("err", err))
	}
}

func (e *Evaluator) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if pending := e.tracker.Pending(); len(pending) > 0 {
		e.metrics.OffsetCommits.WithLabelValues("evaluator", "final").Inc()
		if err := e.reader.CommitMessages(ctx, pending...); err != nil {
			e.metrics.CommitFailures.WithLabelValues("evaluator").Inc()
			e.log.Warn("final offset commit failed", slog.Any("err", err))
		}
	}
	if err := e.reader.Close(); err != nil {
		e.log.Error("close snapshot consumer", slog.Any("err", err))
	}
	e.log.Info("evaluator stopped", slog.Int("processed", e.tracker.Processed()))
}
