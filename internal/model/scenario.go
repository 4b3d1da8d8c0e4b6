package model

import "fmt"

// ConditionType selects which reading of a sensor a condition inspects.
type ConditionType string

const (
	ConditionSwitch      ConditionType = "SWITCH"
	ConditionMotion      ConditionType = "MOTION"
	ConditionLuminosity  ConditionType = "LUMINOSITY"
	ConditionTemperature ConditionType = "TEMPERATURE"
	ConditionCO2Level    ConditionType = "CO2_LEVEL"
	ConditionHumidity    ConditionType = "HUMIDITY"
)

// ConditionOperation compares the sensor reading against the condition value.
type ConditionOperation string

const (
	OperationEquals      ConditionOperation = "EQUALS"
	OperationGreaterThan ConditionOperation = "GREATER_THAN"
	OperationLowerThan   ConditionOperation = "LOWER_THAN"
)

// ActionType is the device command sent when a scenario fires.
type ActionType string

const (
	ActionActivate   ActionType = "ACTIVATE"
	ActionDeactivate ActionType = "DEACTIVATE"
	ActionInverse    ActionType = "INVERSE"
	ActionSetValue   ActionType = "SET_VALUE"
)

// Sensor is a registry entry tying a sensor id to its hub.
type Sensor struct {
	ID         string `json:"id"`
	HubID      string `json:"hubId"`
	DeviceType string `json:"deviceType,omitempty"`
}

// Condition is a stored, normalized scenario condition. Boolean source values
// are already folded to 1/0 so Value is homogeneously an int.
type Condition struct {
	Type      ConditionType      `json:"type"`
	Operation ConditionOperation `json:"operation"`
	Value     int                `json:"value"`
}

// Validate rejects conditions outside the enumerated type/operation sets.
func (c Condition) Validate() error {
	switch c.Type {
	case ConditionSwitch, ConditionMotion, ConditionLuminosity,
		ConditionTemperature, ConditionCO2Level, ConditionHumidity:
	default:
		return fmt.Errorf("unsupported condition type: %s", c.Type)
	}
	switch c.Operation {
	case OperationEquals, OperationGreaterThan, OperationLowerThan:
	default:
		return fmt.Errorf("unsupported condition operation: %s", c.Operation)
	}
	return nil
}

// Action is a stored scenario action. Value is only set for SET_VALUE.
type Action struct {
	Type  ActionType `json:"type"`
	Value *int       `json:"value,omitempty"`
}

// Scenario is a named per-hub rule: when every condition holds against a
// snapshot, every action is dispatched. Keyed by (HubID, Name).
type Scenario struct {
	HubID      string               `json:"hubId"`
	Name       string               `json:"name"`
	Conditions map[string]Condition `json:"conditions"`
	Actions    map[string]Action    `json:"actions"`
}
