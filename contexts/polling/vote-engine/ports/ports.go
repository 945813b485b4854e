package ports

import (
	"context"
	"encoding/json"
	"time"

	"pollstream/contexts/polling/vote-engine/domain/entities"
)

// PollRepository is the durable poll document store. CompareAndUpdatePoll is
// the only write path for counters and status: the write commits only if the
// stored version still equals expectedVersion, and a committed write
// increments the version by one. A version mismatch returns ErrConflict.
type PollRepository interface {
	CreatePoll(ctx context.Context, poll entities.Poll) error
	GetPoll(ctx context.Context, pollID string) (entities.Poll, error)
	CompareAndUpdatePoll(ctx context.Context, expectedVersion int64, poll entities.Poll) (entities.Poll, error)
	ListExpiredActive(ctx context.Context, now time.Time, limit int) ([]entities.Poll, error)
}

// BallotLedger owns the one-ballot-per-(poll,user) invariant. RecordBallot is
// an atomic insert-with-uniqueness-constraint: a concurrent duplicate insert
// fails with ErrAlreadyVoted at the ledger boundary, never via check-then-insert.
type BallotLedger interface {
	RecordBallot(ctx context.Context, ballot entities.Ballot) error
	FindBallot(ctx context.Context, pollID string, userID string) (entities.Ballot, bool, error)
	RemoveBallot(ctx context.Context, pollID string, userID string) error
}

// TallyUpdate is the snapshot fanned out to live viewers of a poll after a
// committed ballot mutation.
type TallyUpdate struct {
	PollID  string                  `json:"poll_id"`
	Poll    entities.Poll           `json:"poll"`
	Results []entities.OptionResult `json:"results"`
}

// Broadcaster pushes a tally update to every current subscriber of the poll.
// Delivery is best effort and must never fail the vote that produced it.
type Broadcaster interface {
	Publish(pollID string, update TallyUpdate)
}

type EventEnvelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	OccurredAt    time.Time       `json:"occurred_at"`
	SourceService string          `json:"source_service"`
	SchemaVersion int             `json:"schema_version"`
	PartitionKey  string          `json:"partition_key"`
	Data          json.RawMessage `json:"data"`
}

type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

type OutboxWriter interface {
	AppendOutbox(ctx context.Context, envelope EventEnvelope) error
}

type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

// EventSubscriber registers a consumer-group handler for a topic. The handler
// runs until ctx is done; its errors are the bus's to report, not the
// publisher's.
type EventSubscriber interface {
	Subscribe(
		ctx context.Context,
		topic string,
		consumerGroup string,
		handler func(context.Context, EventEnvelope) error,
	) error
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}
