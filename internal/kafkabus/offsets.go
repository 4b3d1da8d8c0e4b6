package kafkabus

import "github.com/segmentio/kafka-go"

// OffsetTracker accumulates the highest processed record per partition and
// decides when a staged commit is due. Offsets are recorded for every fetched
// record whether or not its event was accepted downstream; committing a
// message through kafka-go advances the group offset to that record plus one.
//
// The tracker is not safe for concurrent use; each consumer loop owns one.
type OffsetTracker struct {
	every     int
	processed int
	pending   map[int]kafka.Message
}

// NewOffsetTracker returns a tracker that requests a staged commit every
// `every` processed records. An every of zero or less disables the staged
// trigger; the drain commit on shutdown still sees all pending offsets.
func NewOffsetTracker(every int) *OffsetTracker {
	return &OffsetTracker{every: every, pending: make(map[int]kafka.Message)}
}

// Record notes msg as processed and reports whether a staged commit is due.
func (t *OffsetTracker) Record(msg kafka.Message) bool {
	if cur, ok := t.pending[msg.Partition]; !ok || msg.Offset > cur.Offset {
		t.pending[msg.Partition] = msg
	}
	due := t.every > 0 && t.processed%t.every == 0
	t.processed++
	return due
}

// Pending returns the newest processed message per partition, the set a
// commit must cover.
func (t *OffsetTracker) Pending() []kafka.Message {
	msgs := make([]kafka.Message, 0, len(t.pending))
	for _, msg := range t.pending {
		msgs = append(msgs, msg)
	}
	return msgs
}

// Processed returns the number of records seen so far.
func (t *OffsetTracker) Processed() int {
	return t.processed
}
