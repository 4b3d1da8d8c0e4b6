package registry

import (
	"context"
	"sort"
	"sync"

	"github.com/Makar-FP/plus-smart-home-tech/internal/model"
)

type scenarioKey struct {
	hubID string
	name  string
}

// Memory implements both repositories with mutex-guarded maps.
type Memory struct {
	mu        sync.RWMutex
	sensors   map[string]model.Sensor
	scenarios map[scenarioKey]model.Scenario
}

// NewMemory returns an empty in-process registry.
func NewMemory() *Memory {
	return &Memory{
		sensors:   make(map[string]model.Sensor),
		scenarios: make(map[scenarioKey]model.Scenario),
	}
}

// UpsertSensor stores the sensor; an already-known id keeps its first record.
func (m *Memory) UpsertSensor(_ context.Context, sensor model.Sensor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sensors[sensor.ID]; ok {
		return nil
	}
	m.sensors[sensor.ID] = sensor
	return nil
}

// DeleteSensor removes the sensor if it belongs to the hub.
func (m *Memory) DeleteSensor(_ context.Context, hubID, sensorID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sensors[sensorID]; ok && s.HubID == hubID {
		delete(m.sensors, sensorID)
	}
	return nil
}

// SensorExists reports whether every id is a sensor of the hub.
func (m *Memory) SensorExists(_ context.Context, hubID string, sensorIDs []string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, id := range sensorIDs {
		s, ok := m.sensors[id]
		if !ok || s.HubID != hubID {
			return false, nil
		}
	}
	return true, nil
}

// SensorsByHub lists the sensors of one hub, ordered by id.
func (m *Memory) SensorsByHub(_ context.Context, hubID string) ([]model.Sensor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.Sensor
	for _, s := range m.sensors {
		if s.HubID == hubID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// SaveScenario replaces any previous definition under (hubId, name).
func (m *Memory) SaveScenario(_ context.Context, scenario model.Scenario) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scenarios[scenarioKey{scenario.HubID, scenario.Name}] = cloneScenario(scenario)
	return nil
}

// DeleteScenario removes the scenario if present.
func (m *Memory) DeleteScenario(_ context.Context, hubID, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.scenarios, scenarioKey{hubID, name})
	return nil
}

// FindScenario looks up one scenario by hub and name.
func (m *Memory) FindScenario(_ context.Context, hubID, name string) (model.Scenario, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sc, ok := m.scenarios[scenarioKey{hubID, name}]
	if !ok {
		return model.Scenario{}, false, nil
	}
	return cloneScenario(sc), true, nil
}

// ScenariosByHub lists the scenarios of one hub, ordered by name.
func (m *Memory) ScenariosByHub(_ context.Context, hubID string) ([]model.Scenario, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.Scenario
	for key, sc := range m.scenarios {
		if key.hubID == hubID {
			out = append(out, cloneScenario(sc))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func cloneScenario(sc model.Scenario) model.Scenario {
	conditions := make(map[string]model.Condition, len(sc.Conditions))
	for id, c := range sc.Conditions {
		conditions[id] = c
	}
	actions := make(map[string]model.Action, len(sc.Actions))
	for id, a := range sc.Actions {
		actions[id] = a
	}
	sc.Conditions = conditions
	sc.Actions = actions
	return sc
}
