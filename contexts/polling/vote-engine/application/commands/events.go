package commands

import (
	"encoding/json"
	"time"

	"pollstream/contexts/polling/vote-engine/ports"
)

func newPollingEnvelope(
	eventID string,
	eventType string,
	pollID string,
	occurredAt time.Time,
	data map[string]any,
) (ports.EventEnvelope, error) {
	// Command-side events are partitioned by poll so poll-scoped consumers see
	// a stable per-poll ordering.
	payload, err := json.Marshal(data)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	return ports.EventEnvelope{
		EventID:       eventID,
		EventType:     eventType,
		OccurredAt:    occurredAt.UTC(),
		SourceService: "vote-engine",
		SchemaVersion: 1,
		PartitionKey:  pollID,
		Data:          payload,
	}, nil
}
