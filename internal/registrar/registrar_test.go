package registrar

import (
	"context"
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

func newTestRegistrar() (*Registrar, *registry.Memory) {
	store := registry.NewMemory()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(Config{PollTimeout: 100 * time.Millisecond, MaxPollRecords: 10}, nil, store, store, metrics.New(), log), store
}

func hubEvent(hubID string, payload model.HubPayload) model.HubEvent {
	return model.HubEvent{HubID: hubID, Timestamp: time.Now(), Payload: payload}
}

func TestDeviceAddedRegistersSensor(t *testing.T) {
	r, store := newTestRegistrar()
	ctx := context.Background()

	err := r.Apply(ctx, hubEvent("h1", model.DeviceAdded{ID: "s1", DeviceType: "CLIMATE_SENSOR"}))
	require.NoError(t, err)

	ok, err := store.SensorExists(ctx, "h1", []string{"s1"})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDeviceAddedIsIdempotent(t *testing.T) {
	r, store := newTestRegistrar()
	ctx := context.Background()

	require.NoError(t, r.Apply(ctx, hubEvent("h1", model.DeviceAdded{ID: "s1"})))
	require.NoError(t, r.Apply(ctx, hubEvent("h1", model.DeviceAdded{ID: "s1"})))

	sensors, err := store.SensorsByHub(ctx, "h1")
	require.NoError(t, err)
	assert.Len(t, sensors, 1)
}

func TestDeviceRemovedIsIdempotent(t *testing.T) {
	r, store := newTestRegistrar()
	ctx := context.Background()

	require.NoError(t, r.Apply(ctx, hubEvent("h1", model.DeviceAdded{ID: "s1"})))
	require.NoError(t, r.Apply(ctx, hubEvent("h1", model.DeviceRemoved{ID: "s1"})))
	// Removing an absent sensor is a no-op, not an error.
	require.NoError(t, r.Apply(ctx, hubEvent("h1", model.DeviceRemoved{ID: "s1"})))

	ok, err := store.SensorExists(ctx, "h1", []string{"s1"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestScenarioAddedStoresNormalizedConditions(t *testing.T) {
	r, store := newTestRegistrar()
	ctx := context.Background()

	err := r.Apply(ctx, hubEvent("h1", model.ScenarioAdded{
		Name: "evening",
		Conditions: []model.ScenarioCondition{
			{SensorID: "s1", Type: model.ConditionSwitch, Operation: model.OperationEquals, Value: []byte(`true`)},
			{SensorID: "s2", Type: model.ConditionLuminosity, Operation: model.OperationLowerThan, Value: []byte(`50`)},
		},
		Actions: []model.ScenarioAction{
			{SensorID: "s3", Type: model.ActionActivate},
		},
	}))
	require.NoError(t, err)

	scenario, ok, err := store.FindScenario(ctx, "h1", "evening")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, scenario.Conditions["s1"].Value, "boolean condition folds to 1")
	assert.Equal(t, 50, scenario.Conditions["s2"].Value)
	require.Contains(t, scenario.Actions, "s3")
	assert.Nil(t, scenario.Actions["s3"].Value)
}

func TestScenarioAddedReplacesWholesale(t *testing.T) {
	r, store := newTestRegistrar()
	ctx := context.Background()

	require.NoError(t, r.Apply(ctx, hubEvent("h1", model.ScenarioAdded{
		Name: "evening",
		Conditions: []model.ScenarioCondition{
			{SensorID: "s1", Type: model.ConditionSwitch, Operation: model.OperationEquals, Value: []byte(`true`)},
			{SensorID: "s2", Type: model.ConditionHumidity, Operation: model.OperationGreaterThan, Value: []byte(`60`)},
		},
		Actions: []model.ScenarioAction{
			{SensorID: "s1", Type: model.ActionDeactivate},
		},
	})))

	// Re-adding under the same name discards every previous entry.
	require.NoError(t, r.Apply(ctx, hubEvent("h1", model.ScenarioAdded{
		Name: "evening",
		Conditions: []model.ScenarioCondition{
			{SensorID: "s9", Type: model.ConditionTemperature, Operation: model.OperationGreaterThan, Value: []byte(`25`)},
		},
		Actions: []model.ScenarioAction{
			{SensorID: "s9", Type: model.ActionInverse},
		},
	})))

	scenario, ok, err := store.FindScenario(ctx, "h1", "evening")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, scenario.Conditions, 1)
	assert.NotContains(t, scenario.Conditions, "s1")
	assert.NotContains(t, scenario.Conditions, "s2")
	assert.Len(t, scenario.Actions, 1)
	assert.Contains(t, scenario.Actions, "s9")
}

func TestScenarioAddedSetValueKeepsValue(t *testing.T) {
	r, store := newTestRegistrar()
	ctx := context.Background()
	value := 21

	require.NoError(t, r.Apply(ctx, hubEvent("h1", model.ScenarioAdded{
		Name: "warm",
		Conditions: []model.ScenarioCondition{
			{SensorID: "s1", Type: model.ConditionTemperature, Operation: model.OperationLowerThan, Value: []byte(`18`)},
		},
		Actions: []model.ScenarioAction{
			{SensorID: "s2", Type: model.ActionSetValue, Value: &value},
		},
	})))

	scenario, _, err := store.FindScenario(ctx, "h1", "warm")
	require.NoError(t, err)
	require.NotNil(t, scenario.Actions["s2"].Value)
	assert.Equal(t, 21, *scenario.Actions["s2"].Value)
}

func TestScenarioAddedRejectsUnknownConditionType(t *testing.T) {
	r, store := newTestRegistrar()
	ctx := context.Background()

	err := r.Apply(ctx, hubEvent("h1", model.ScenarioAdded{
		Name: "broken",
		Conditions: []model.ScenarioCondition{
			{SensorID: "s1", Type: "PRESSURE", Operation: model.OperationEquals, Value: []byte(`1`)},
		},
	}))
	require.Error(t, err)

	_, ok, err := store.FindScenario(ctx, "h1", "broken")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestScenarioRemovedIsIdempotent(t *testing.T) {
	r, store := newTestRegistrar()
	ctx := context.Background()

	require.NoError(t, r.Apply(ctx, hubEvent("h1", model.ScenarioAdded{Name: "evening"})))
	require.NoError(t, r.Apply(ctx, hubEvent("h1", model.ScenarioRemoved{Name: "evening"})))
	require.NoError(t, r.Apply(ctx, hubEvent("h1", model.ScenarioRemoved{Name: "evening"})))

	_, ok, err := store.FindScenario(ctx, "h1", "evening")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUnknownPayloadIsHandledNoOp(t *testing.T) {
	r, _ := newTestRegistrar()

	err := r.Apply(context.Background(), hubEvent("h1", model.UnknownHubPayload{Type: "HUB_REBOOTED"}))
	assert.NoError(t, err)
}
