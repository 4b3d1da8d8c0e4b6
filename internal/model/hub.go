package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// HubPayload is the closed set of hub structural events.
type HubPayload interface {
	hubPayload()
}

// DeviceAdded announces a new sensor registered on a hub.
type DeviceAdded struct {
	ID         string `json:"id"`
	DeviceType string `json:"deviceType"`
}

// DeviceRemoved announces a sensor leaving a hub.
type DeviceRemoved struct {
	ID string `json:"id"`
}

// ScenarioAdded carries the full definition of a scenario. Re-adding a
// scenario with an existing name replaces the previous definition wholesale.
type ScenarioAdded struct {
	Name       string              `json:"name"`
	Conditions []ScenarioCondition `json:"conditions"`
	Actions    []ScenarioAction    `json:"actions"`
}

// ScenarioRemoved announces a scenario deletion by name.
type ScenarioRemoved struct {
	Name string `json:"name"`
}

// UnknownHubPayload stands in for a structurally valid hub event whose type is
// not recognized. Consumers treat it as a handled no-op.
type UnknownHubPayload struct {
	Type string
}

func (DeviceAdded) hubPayload()       {}
func (DeviceRemoved) hubPayload()     {}
func (ScenarioAdded) hubPayload()     {}
func (ScenarioRemoved) hubPayload()   {}
func (UnknownHubPayload) hubPayload() {}

// HubEvent is a single structural event for one hub.
type HubEvent struct {
	HubID     string
	Timestamp time.Time
	Payload   HubPayload
}

// ScenarioCondition is the wire form of one condition inside a ScenarioAdded
// event. Value stays raw because producers send booleans for switch/motion
// conditions and integers for the numeric ones.
type ScenarioCondition struct {
	SensorID  string             `json:"sensorId"`
	Type      ConditionType      `json:"type"`
	Operation ConditionOperation `json:"operation"`
	Value     json.RawMessage    `json:"value"`
}

// IntValue normalizes the raw condition value to an int: booleans map to 1
// for true and 0 for false, integers pass through, a missing value is 0.
func (c ScenarioCondition) IntValue() (int, error) {
	if len(c.Value) == 0 || string(c.Value) == "null" {
		return 0, nil
	}
	var b bool
	if err := json.Unmarshal(c.Value, &b); err == nil {
		if b {
			return 1, nil
		}
		return 0, nil
	}
	var n int
	if err := json.Unmarshal(c.Value, &n); err != nil {
		return 0, fmt.Errorf("condition value for sensor %s is neither bool nor int: %w", c.SensorID, err)
	}
	return n, nil
}

// ScenarioAction is the wire form of one action inside a ScenarioAdded event.
type ScenarioAction struct {
	SensorID string     `json:"sensorId"`
	Type     ActionType `json:"type"`
	Value    *int       `json:"value,omitempty"`
}
