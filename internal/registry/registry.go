// Package registry defines the sensor and scenario repositories consumed by
// the analyzer. The backing relational store lives outside this repository;
// the interfaces here are the contract, and Memory is the in-process
// reference implementation used by the services and the tests.
package registry

import (
	"context"

	"github.com/Makar-FP/plus-smart-home-tech/internal/model"
)

// SensorRepository is the keyed store of sensors per hub.
type SensorRepository interface {
	// UpsertSensor stores a sensor. Re-adding an existing id is a no-op.
	UpsertSensor(ctx context.Context, sensor model.Sensor) error
	// DeleteSensor removes a sensor if present.
	DeleteSensor(ctx context.Context, hubID, sensorID string) error
	// SensorExists reports whether every given id is a sensor of the hub.
	SensorExists(ctx context.Context, hubID string, sensorIDs []string) (bool, error)
	// SensorsByHub lists the sensors of one hub.
	SensorsByHub(ctx context.Context, hubID string) ([]model.Sensor, error)
}

// ScenarioRepository is the keyed store of scenarios per (hub, name).
type ScenarioRepository interface {
	// SaveScenario stores a scenario, replacing any previous definition
	// under the same (hubId, name) wholesale.
	SaveScenario(ctx context.Context, scenario model.Scenario) error
	// DeleteScenario removes a scenario if present.
	DeleteScenario(ctx context.Context, hubID, name string) error
	// FindScenario looks up one scenario by hub and name.
	FindScenario(ctx context.Context, hubID, name string) (model.Scenario, bool, error)
	// ScenariosByHub lists the scenarios of one hub.
	ScenariosByHub(ctx context.Context, hubID string) ([]model.Scenario, error)
}
