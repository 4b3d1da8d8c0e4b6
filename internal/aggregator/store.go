// Package aggregator maintains the per-hub sensor snapshots: a consumer loop
// folds sensor events into the snapshot store and republishes every accepted
// update to the snapshot topic.
package aggregator

import (
	"sync"

	"github.com/Makar-FP/plus-smart-home-tech/internal/model"
)

// SnapshotStore owns the hubId -> Snapshot projection. Merge is the only
// mutation path; everything else reads copies. The map is guarded so point
// access stays safe if the loop is ever scaled to one goroutine per
// partition.
type SnapshotStore struct {
	mu        sync.RWMutex
	snapshots map[string]model.Snapshot
}

// NewSnapshotStore returns an empty store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{snapshots: make(map[string]model.Snapshot)}
}

// Merge folds one sensor event into the hub's snapshot. It returns the
// updated snapshot and true when the event was accepted and must be
// republished. An event is rejected when it is not strictly newer than the
// stored state for its sensor or when its payload is structurally unchanged;
// replays of an already-applied event are therefore absorbed as no-ops.
func (s *SnapshotStore) Merge(event model.SensorEvent) (model.Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot, ok := s.snapshots[event.HubID]
	if !ok {
		snapshot = model.Snapshot{
			HubID:        event.HubID,
			Timestamp:    event.Timestamp,
			SensorStates: map[string]model.SensorState{event.ID: {Timestamp: event.Timestamp, Payload: event.Payload}},
		}
		s.snapshots[event.HubID] = snapshot
		return snapshot.Clone(), true
	}

	if old, ok := snapshot.SensorStates[event.ID]; ok {
		newer := event.Timestamp.After(old.Timestamp)
		unchanged := old.Payload == event.Payload
		if !newer || unchanged {
			return model.Snapshot{}, false
		}
	}

	snapshot.SensorStates[event.ID] = model.SensorState{Timestamp: event.Timestamp, Payload: event.Payload}
	snapshot.Timestamp = event.Timestamp
	s.snapshots[event.HubID] = snapshot
	return snapshot.Clone(), true
}

// Snapshot returns a copy of one hub's snapshot.
func (s *SnapshotStore) Snapshot(hubID string) (model.Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot, ok := s.snapshots[hubID]
	if !ok {
		return model.Snapshot{}, false
	}
	return snapshot.Clone(), true
}

// Snapshots returns copies of every hub snapshot.
func (s *SnapshotStore) Snapshots() []model.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Snapshot, 0, len(s.snapshots))
	for _, snapshot := range s.snapshots {
		out = append(out, snapshot.Clone())
	}
	return out
}
