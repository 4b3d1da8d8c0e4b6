package codec

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Makar-FP/plus-smart-home-tech/internal/model"
)

type sensorStateEnvelope struct {
	Timestamp time.Time       `json:"timestamp"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
}

type snapshotEnvelope struct {
	HubID        string                         `json:"hubId"`
	Timestamp    time.Time                      `json:"timestamp"`
	SensorsState map[string]sensorStateEnvelope `json:"sensorsState"`
}

// EncodeSnapshot encodes a snapshot for the snapshot topic.
func EncodeSnapshot(s model.Snapshot) ([]byte, error) {
	states := make(map[string]sensorStateEnvelope, len(s.SensorStates))
	for id, st := range s.SensorStates {
		kind, raw, err := encodeSensorPayload(st.Payload)
		if err != nil {
			return nil, fmt.Errorf("sensor %s: %w", id, err)
		}
		states[id] = sensorStateEnvelope{Timestamp: st.Timestamp, Type: kind, Payload: raw}
	}
	return json.Marshal(snapshotEnvelope{
		HubID:        s.HubID,
		Timestamp:    s.Timestamp,
		SensorsState: states,
	})
}

// DecodeSnapshot decodes one snapshot-topic record.
func DecodeSnapshot(data []byte) (model.Snapshot, error) {
	var env snapshotEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return model.Snapshot{}, fmt.Errorf("%w: snapshot envelope: %v", ErrDecode, err)
	}
	if env.HubID == "" {
		return model.Snapshot{}, fmt.Errorf("%w: snapshot missing hubId", ErrDecode)
	}
	states := make(map[string]model.SensorState, len(env.SensorsState))
	for id, st := range env.SensorsState {
		payload, err := decodeSensorPayload(st.Type, st.Payload)
		if err != nil {
			return model.Snapshot{}, fmt.Errorf("sensor %s: %w", id, err)
		}
		states[id] = model.SensorState{Timestamp: st.Timestamp, Payload: payload}
	}
	return model.Snapshot{HubID: env.HubID, Timestamp: env.Timestamp, SensorStates: states}, nil
}
