package codec

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Makar-FP/plus-smart-home-tech/internal/model"
)

type hubEventEnvelope struct {
	HubID     string          `json:"hubId"`
	Timestamp time.Time       `json:"timestamp"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
}

// DecodeHubEvent decodes one hub-topic record. A well-formed envelope with an
// unrecognized type decodes successfully into an UnknownHubPayload so the
// consumer can treat it as a handled no-op instead of a poison record.
func DecodeHubEvent(data []byte) (model.HubEvent, error) {
	var env hubEventEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return model.HubEvent{}, fmt.Errorf("%w: hub event envelope: %v", ErrDecode, err)
	}
	if env.HubID == "" {
		return model.HubEvent{}, fmt.Errorf("%w: hub event missing hubId", ErrDecode)
	}

	var (
		payload model.HubPayload
		err     error
	)
	switch env.Type {
	case TypeDeviceAdded:
		var p model.DeviceAdded
		err = json.Unmarshal(env.Payload, &p)
		payload = p
	case TypeDeviceRemoved:
		var p model.DeviceRemoved
		err = json.Unmarshal(env.Payload, &p)
		payload = p
	case TypeScenarioAdded:
		var p model.ScenarioAdded
		err = json.Unmarshal(env.Payload, &p)
		payload = p
	case TypeScenarioRemoved:
		var p model.ScenarioRemoved
		err = json.Unmarshal(env.Payload, &p)
		payload = p
	default:
		payload = model.UnknownHubPayload{Type: env.Type}
	}
	if err != nil {
		return model.HubEvent{}, fmt.Errorf("%w: %s payload: %v", ErrDecode, env.Type, err)
	}
	return model.HubEvent{HubID: env.HubID, Timestamp: env.Timestamp, Payload: payload}, nil
}

// EncodeHubEvent encodes a hub event for the hub topic.
func EncodeHubEvent(ev model.HubEvent) ([]byte, error) {
	var kind string
	switch ev.Payload.(type) {
	case model.DeviceAdded:
		kind = TypeDeviceAdded
	case model.DeviceRemoved:
		kind = TypeDeviceRemoved
	case model.ScenarioAdded:
		kind = TypeScenarioAdded
	case model.ScenarioRemoved:
		kind = TypeScenarioRemoved
	default:
		return nil, fmt.Errorf("unsupported hub payload %T", ev.Payload)
	}
	raw, err := json.Marshal(ev.Payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", kind, err)
	}
	return json.Marshal(hubEventEnvelope{
		HubID:     ev.HubID,
		Timestamp: ev.Timestamp,
		Type:      kind,
		Payload:   raw,
	})
}
