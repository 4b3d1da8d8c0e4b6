// Package model holds the domain types shared by the telemetry services:
// sensor and hub events as they travel over Kafka, the per-hub snapshot
// projection, and the registry entities used by the analyzer.
package model

import "time"

// SensorPayload is the closed set of typed sensor readings. Concrete payloads
// are plain comparable structs so two readings can be checked for structural
// equality with ==.
type SensorPayload interface {
	sensorPayload()
}

// SwitchPayload reports the on/off state of a switch.
type SwitchPayload struct {
	State bool `json:"state"`
}

// MotionPayload reports motion detection together with radio link quality and
// battery voltage.
type MotionPayload struct {
	Motion      bool `json:"motion"`
	LinkQuality int  `json:"linkQuality"`
	Voltage     int  `json:"voltage"`
}

// LightPayload reports ambient luminosity.
type LightPayload struct {
	LinkQuality int `json:"linkQuality"`
	Luminosity  int `json:"luminosity"`
}

// TemperaturePayload reports temperature in both scales.
type TemperaturePayload struct {
	TemperatureC int `json:"temperatureC"`
	TemperatureF int `json:"temperatureF"`
}

// ClimatePayload reports the combined climate sensor readings.
type ClimatePayload struct {
	TemperatureC int `json:"temperatureC"`
	Humidity     int `json:"humidity"`
	CO2Level     int `json:"co2Level"`
}

func (SwitchPayload) sensorPayload()      {}
func (MotionPayload) sensorPayload()      {}
func (LightPayload) sensorPayload()       {}
func (TemperaturePayload) sensorPayload() {}
func (ClimatePayload) sensorPayload()     {}

// SensorEvent is a single reading from one sensor of one hub. Events are
// immutable once decoded.
type SensorEvent struct {
	ID        string
	HubID     string
	Timestamp time.Time
	Payload   SensorPayload
}

// SensorState is the latest known payload for one sensor.
type SensorState struct {
	Timestamp time.Time
	Payload   SensorPayload
}

// Snapshot is the materialized view of all sensors of one hub. Its timestamp
// always equals the newest sensor state timestamp it contains.
type Snapshot struct {
	HubID        string
	Timestamp    time.Time
	SensorStates map[string]SensorState
}

// Clone returns a copy with its own sensor state map so the copy can be
// encoded or inspected without racing the store.
func (s Snapshot) Clone() Snapshot {
	states := make(map[string]SensorState, len(s.SensorStates))
	for id, st := range s.SensorStates {
		states[id] = st
	}
	return Snapshot{HubID: s.HubID, Timestamp: s.Timestamp, SensorStates: states}
}
