package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	application "pollstream/contexts/polling/vote-engine/application"
	"pollstream/contexts/polling/vote-engine/ports"
)

// BallotEventConsumer tails committed ballot events off the bus and writes an
// audit entry per event. It is independent of the live-viewer hub: losing it
// degrades auditing only, never the fan-out to viewers.
type BallotEventConsumer struct {
	Subscriber    ports.EventSubscriber
	ConsumerGroup string
	Logger        *slog.Logger
}

func (c BallotEventConsumer) Start(ctx context.Context) error {
	for _, topic := range []string{"ballot.recorded", "ballot.retracted"} {
		if err := c.Subscriber.Subscribe(ctx, topic, c.group(), c.Handle); err != nil {
			return err
		}
	}
	return nil
}

// Handle audits one ballot event. A malformed payload is an error so the bus
// reports it; the relay keeps per-poll ordering, so a skipped event is
// visible in the audit trail as a version gap.
func (c BallotEventConsumer) Handle(_ context.Context, event ports.EventEnvelope) error {
	logger := application.ResolveLogger(c.Logger)

	var payload struct {
		PollID          string   `json:"poll_id"`
		UserID          string   `json:"user_id"`
		SelectedOptions []string `json:"selected_options"`
		TotalVotes      int      `json:"total_votes"`
		PollVersion     int64    `json:"poll_version"`
	}
	if err := json.Unmarshal(event.Data, &payload); err != nil {
		return fmt.Errorf("decode ballot event %s: %w", event.EventID, err)
	}
	if strings.TrimSpace(payload.PollID) == "" || strings.TrimSpace(payload.UserID) == "" {
		return fmt.Errorf("ballot event %s lacks poll or user identity", event.EventID)
	}

	logger.Info("ballot event audited",
		"event", "polling_ballot_event_audited",
		"module", "polling/vote-engine",
		"layer", "worker",
		"event_id", event.EventID,
		"event_type", event.EventType,
		"poll_id", payload.PollID,
		"user_id", payload.UserID,
		"selection_count", len(payload.SelectedOptions),
		"total_votes", payload.TotalVotes,
		"poll_version", payload.PollVersion,
	)
	return nil
}

func (c BallotEventConsumer) group() string {
	if strings.TrimSpace(c.ConsumerGroup) == "" {
		return "vote-engine-ballot-audit-cg"
	}
	return c.ConsumerGroup
}
