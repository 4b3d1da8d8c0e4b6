// Package codec translates domain events to and from the JSON envelopes used
// on the Kafka topics. Every envelope carries a type discriminator so the
// polymorphic payloads decode into the closed payload sets of the model
// package. A malformed record yields an error wrapping ErrDecode and must be
// skipped by the consumer, never crash the loop.
package codec

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Makar-FP/plus-smart-home-tech/internal/model"
)

// ErrDecode marks any failure to decode a bus record.
var ErrDecode = errors.New("decode event")

// Sensor payload discriminators.
const (
	TypeSwitch      = "SWITCH"
	TypeMotion      = "MOTION"
	TypeLight       = "LIGHT"
	TypeTemperature = "TEMPERATURE"
	TypeClimate     = "CLIMATE"
)

// Hub payload discriminators.
const (
	TypeDeviceAdded     = "DEVICE_ADDED"
	TypeDeviceRemoved   = "DEVICE_REMOVED"
	TypeScenarioAdded   = "SCENARIO_ADDED"
	TypeScenarioRemoved = "SCENARIO_REMOVED"
)

type sensorEventEnvelope struct {
	ID        string          `json:"id"`
	HubID     string          `json:"hubId"`
	Timestamp time.Time       `json:"timestamp"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
}

// DecodeSensorEvent decodes one sensor-topic record.
func DecodeSensorEvent(data []byte) (model.SensorEvent, error) {
	var env sensorEventEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return model.SensorEvent{}, fmt.Errorf("%w: sensor event envelope: %v", ErrDecode, err)
	}
	if env.ID == "" || env.HubID == "" {
		return model.SensorEvent{}, fmt.Errorf("%w: sensor event missing id or hubId", ErrDecode)
	}
	payload, err := decodeSensorPayload(env.Type, env.Payload)
	if err != nil {
		return model.SensorEvent{}, err
	}
	return model.SensorEvent{
		ID:        env.ID,
		HubID:     env.HubID,
		Timestamp: env.Timestamp,
		Payload:   payload,
	}, nil
}

// EncodeSensorEvent encodes a sensor event for the sensor topic.
func EncodeSensorEvent(ev model.SensorEvent) ([]byte, error) {
	kind, payload, err := encodeSensorPayload(ev.Payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(sensorEventEnvelope{
		ID:        ev.ID,
		HubID:     ev.HubID,
		Timestamp: ev.Timestamp,
		Type:      kind,
		Payload:   payload,
	})
}

func decodeSensorPayload(kind string, raw json.RawMessage) (model.SensorPayload, error) {
	var (
		payload model.SensorPayload
		err     error
	)
	switch kind {
	case TypeSwitch:
		var p model.SwitchPayload
		err = json.Unmarshal(raw, &p)
		payload = p
	case TypeMotion:
		var p model.MotionPayload
		err = json.Unmarshal(raw, &p)
		payload = p
	case TypeLight:
		var p model.LightPayload
		err = json.Unmarshal(raw, &p)
		payload = p
	case TypeTemperature:
		var p model.TemperaturePayload
		err = json.Unmarshal(raw, &p)
		payload = p
	case TypeClimate:
		var p model.ClimatePayload
		err = json.Unmarshal(raw, &p)
		payload = p
	default:
		return nil, fmt.Errorf("%w: unknown sensor payload type %q", ErrDecode, kind)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s payload: %v", ErrDecode, kind, err)
	}
	return payload, nil
}

func encodeSensorPayload(payload model.SensorPayload) (string, json.RawMessage, error) {
	var kind string
	switch payload.(type) {
	case model.SwitchPayload:
		kind = TypeSwitch
	case model.MotionPayload:
		kind = TypeMotion
	case model.LightPayload:
		kind = TypeLight
	case model.TemperaturePayload:
		kind = TypeTemperature
	case model.ClimatePayload:
		kind = TypeClimate
	default:
		return "", nil, fmt.Errorf("unsupported sensor payload %T", payload)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", nil, fmt.Errorf("marshal %s payload: %w", kind, err)
	}
	return kind, raw, nil
}
