package evaluator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Makar-FP/plus-smart-home-tech/internal/metrics"
	"github.com/Makar-FP/plus-smart-home-tech/internal/model"
	"github.com/Makar-FP/plus-smart-home-tech/internal/registry"
)

type fakeDispatcher struct {
	requests []ActionRequest
	fail     map[string]error // sensorId -> error
}

func (d *fakeDispatcher) Dispatch(_ context.Context, req ActionRequest) error {
	if err := d.fail[req.SensorID]; err != nil {
		return err
	}
	d.requests = append(d.requests, req)
	return nil
}

func newTestEvaluator(t *testing.T) (*Evaluator, *registry.Memory, *fakeDispatcher) {
	t.Helper()
	store := registry.NewMemory()
	dispatcher := &fakeDispatcher{fail: map[string]error{}}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	eval := New(Config{PollTimeout: 100 * time.Millisecond, MaxPollRecords: 10}, nil, store, store, dispatcher, metrics.New(), log)
	eval.now = func() time.Time { return time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC) }
	return eval, store, dispatcher
}

func registerSensors(t *testing.T, store *registry.Memory, hubID string, ids ...string) {
	t.Helper()
	for _, id := range ids {
		require.NoError(t, store.UpsertSensor(context.Background(), model.Sensor{ID: id, HubID: hubID}))
	}
}

func snapshotWith(hubID string, states map[string]model.SensorPayload) model.Snapshot {
	sensorStates := make(map[string]model.SensorState, len(states))
	ts := time.Unix(100, 0)
	for id, payload := range states {
		sensorStates[id] = model.SensorState{Timestamp: ts, Payload: payload}
	}
	return model.Snapshot{HubID: hubID, Timestamp: ts, SensorStates: sensorStates}
}

func TestHandleSnapshotFiresWhenAllConditionsHold(t *testing.T) {
	eval, store, dispatcher := newTestEvaluator(t)
	ctx := context.Background()
	registerSensors(t, store, "h1", "s1", "s2", "s3")

	value := 75
	require.NoError(t, store.SaveScenario(ctx, model.Scenario{
		HubID: "h1",
		Name:  "dark and occupied",
		Conditions: map[string]model.Condition{
			"s1": {Type: model.ConditionLuminosity, Operation: model.OperationLowerThan, Value: 50},
			"s2": {Type: model.ConditionMotion, Operation: model.OperationEquals, Value: 1},
		},
		Actions: map[string]model.Action{
			"s3": {Type: model.ActionSetValue, Value: &value},
		},
	}))

	snapshot := snapshotWith("h1", map[string]model.SensorPayload{
		"s1": model.LightPayload{Luminosity: 20},
		"s2": model.MotionPayload{Motion: true},
	})
	require.NoError(t, eval.HandleSnapshot(ctx, snapshot))

	require.Len(t, dispatcher.requests, 1)
	req := dispatcher.requests[0]
	assert.Equal(t, "h1", req.HubID)
	assert.Equal(t, "dark and occupied", req.ScenarioName)
	assert.Equal(t, "s3", req.SensorID)
	assert.Equal(t, model.ActionSetValue, req.Type)
	require.NotNil(t, req.Value)
	assert.Equal(t, 75, *req.Value)
	assert.NotEmpty(t, req.CommandID)
	assert.Equal(t, eval.now(), req.Timestamp)
}

func TestHandleSnapshotAndSemantics(t *testing.T) {
	eval, store, dispatcher := newTestEvaluator(t)
	ctx := context.Background()
	registerSensors(t, store, "h1", "s1", "s2")

	require.NoError(t, store.SaveScenario(ctx, model.Scenario{
		HubID: "h1",
		Name:  "both",
		Conditions: map[string]model.Condition{
			"s1": {Type: model.ConditionSwitch, Operation: model.OperationEquals, Value: 1},
			"s2": {Type: model.ConditionSwitch, Operation: model.OperationEquals, Value: 1},
		},
		Actions: map[string]model.Action{
			"s1": {Type: model.ActionActivate},
		},
	}))

	// One satisfied, one not: never fires.
	require.NoError(t, eval.HandleSnapshot(ctx, snapshotWith("h1", map[string]model.SensorPayload{
		"s1": model.SwitchPayload{State: true},
		"s2": model.SwitchPayload{State: false},
	})))
	assert.Empty(t, dispatcher.requests)

	// Both satisfied: fires exactly once with exactly |actions| dispatches.
	require.NoError(t, eval.HandleSnapshot(ctx, snapshotWith("h1", map[string]model.SensorPayload{
		"s1": model.SwitchPayload{State: true},
		"s2": model.SwitchPayload{State: true},
	})))
	assert.Len(t, dispatcher.requests, 1)
}

func TestHandleSnapshotSkipsEmptySensorState(t *testing.T) {
	eval, store, dispatcher := newTestEvaluator(t)
	ctx := context.Background()
	registerSensors(t, store, "h1", "s1")
	require.NoError(t, store.SaveScenario(ctx, model.Scenario{
		HubID:      "h1",
		Name:       "any",
		Conditions: map[string]model.Condition{"s1": {Type: model.ConditionSwitch, Operation: model.OperationEquals, Value: 1}},
		Actions:    map[string]model.Action{"s1": {Type: model.ActionActivate}},
	}))

	require.NoError(t, eval.HandleSnapshot(ctx, model.Snapshot{HubID: "h1", SensorStates: map[string]model.SensorState{}}))
	assert.Empty(t, dispatcher.requests)
}

func TestHandleSnapshotEmptyConditionsNeverFires(t *testing.T) {
	eval, store, dispatcher := newTestEvaluator(t)
	ctx := context.Background()
	registerSensors(t, store, "h1", "s1")
	require.NoError(t, store.SaveScenario(ctx, model.Scenario{
		HubID:   "h1",
		Name:    "unconditioned",
		Actions: map[string]model.Action{"s1": {Type: model.ActionActivate}},
	}))

	require.NoError(t, eval.HandleSnapshot(ctx, snapshotWith("h1", map[string]model.SensorPayload{
		"s1": model.SwitchPayload{State: true},
	})))
	assert.Empty(t, dispatcher.requests)
}

func TestHandleSnapshotSkipsMissingCoverage(t *testing.T) {
	eval, store, dispatcher := newTestEvaluator(t)
	ctx := context.Background()
	registerSensors(t, store, "h1", "s1", "s2")
	require.NoError(t, store.SaveScenario(ctx, model.Scenario{
		HubID: "h1",
		Name:  "needs both",
		Conditions: map[string]model.Condition{
			"s1": {Type: model.ConditionSwitch, Operation: model.OperationEquals, Value: 1},
			"s2": {Type: model.ConditionSwitch, Operation: model.OperationEquals, Value: 1},
		},
		Actions: map[string]model.Action{"s1": {Type: model.ActionActivate}},
	}))

	// s2 has no state yet: the whole scenario is skipped for this snapshot.
	require.NoError(t, eval.HandleSnapshot(ctx, snapshotWith("h1", map[string]model.SensorPayload{
		"s1": model.SwitchPayload{State: true},
	})))
	assert.Empty(t, dispatcher.requests)
}

func TestHandleSnapshotSkipsForeignSensors(t *testing.T) {
	eval, store, dispatcher := newTestEvaluator(t)
	ctx := context.Background()
	// s1 belongs to another hub: stale scenario data must not fire.
	registerSensors(t, store, "h2", "s1")
	require.NoError(t, store.SaveScenario(ctx, model.Scenario{
		HubID:      "h1",
		Name:       "stale",
		Conditions: map[string]model.Condition{"s1": {Type: model.ConditionSwitch, Operation: model.OperationEquals, Value: 1}},
		Actions:    map[string]model.Action{"s1": {Type: model.ActionActivate}},
	}))

	require.NoError(t, eval.HandleSnapshot(ctx, snapshotWith("h1", map[string]model.SensorPayload{
		"s1": model.SwitchPayload{State: true},
	})))
	assert.Empty(t, dispatcher.requests)
}

func TestHandleSnapshotDispatchFailureIsIsolated(t *testing.T) {
	eval, store, dispatcher := newTestEvaluator(t)
	ctx := context.Background()
	registerSensors(t, store, "h1", "s1", "s2", "s3")
	require.NoError(t, store.SaveScenario(ctx, model.Scenario{
		HubID:      "h1",
		Name:       "multi",
		Conditions: map[string]model.Condition{"s1": {Type: model.ConditionSwitch, Operation: model.OperationEquals, Value: 1}},
		Actions: map[string]model.Action{
			"s2": {Type: model.ActionActivate},
			"s3": {Type: model.ActionDeactivate},
		},
	}))
	dispatcher.fail["s2"] = errors.New("hub router unreachable")

	require.NoError(t, eval.HandleSnapshot(ctx, snapshotWith("h1", map[string]model.SensorPayload{
		"s1": model.SwitchPayload{State: true},
	})))

	// The failing action is logged and dropped; the other still goes out.
	require.Len(t, dispatcher.requests, 1)
	assert.Equal(t, "s3", dispatcher.requests[0].SensorID)
}

func TestHandleSnapshotNoScenarios(t *testing.T) {
	eval, _, dispatcher := newTestEvaluator(t)

	require.NoError(t, eval.HandleSnapshot(context.Background(), snapshotWith("h1", map[string]model.SensorPayload{
		"s1": model.SwitchPayload{State: true},
	})))
	assert.Empty(t, dispatcher.requests)
}

func TestHandleSnapshotExampleFlow(t *testing.T) {
	// Scenario {S1: SWITCH EQUALS 0} -> ACTIVATE fires only once the switch
	// reports false.
	eval, store, dispatcher := newTestEvaluator(t)
	ctx := context.Background()
	registerSensors(t, store, "H1", "S1")
	require.NoError(t, store.SaveScenario(ctx, model.Scenario{
		HubID:      "H1",
		Name:       "lights on when switch off",
		Conditions: map[string]model.Condition{"S1": {Type: model.ConditionSwitch, Operation: model.OperationEquals, Value: 0}},
		Actions:    map[string]model.Action{"S1": {Type: model.ActionActivate}},
	}))

	require.NoError(t, eval.HandleSnapshot(ctx, snapshotWith("H1", map[string]model.SensorPayload{
		"S1": model.SwitchPayload{State: true},
	})))
	assert.Empty(t, dispatcher.requests)

	require.NoError(t, eval.HandleSnapshot(ctx, snapshotWith("H1", map[string]model.SensorPayload{
		"S1": model.SwitchPayload{State: false},
	})))
	require.Len(t, dispatcher.requests, 1)
	assert.Equal(t, model.ActionActivate, dispatcher.requests[0].Type)
}
