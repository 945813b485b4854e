package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"pollstream/contexts/polling/vote-engine/domain/entities"
	domainerrors "pollstream/contexts/polling/vote-engine/domain/errors"
	"pollstream/contexts/polling/vote-engine/ports"

	"github.com/google/uuid"
)

type outboxRecord struct {
	message   ports.OutboxMessage
	published bool
}

// Store is the in-memory adapter behind PollRepository, BallotLedger and the
// outbox ports. Polls are deep-copied on every read and write so no caller
// ever aliases the stored document; the version check and the write happen
// under one lock, which is what makes CompareAndUpdatePoll atomic here.
type Store struct {
	mu sync.RWMutex

	polls   map[string]entities.Poll
	ballots map[string]entities.Ballot
	outbox  map[string]outboxRecord
}

func NewStore(seed []entities.Poll) *Store {
	polls := make(map[string]entities.Poll, len(seed))
	for _, poll := range seed {
		polls[poll.PollID] = poll.Clone()
	}
	return &Store{
		polls:   polls,
		ballots: make(map[string]entities.Ballot),
		outbox:  make(map[string]outboxRecord),
	}
}

// SeedPoll installs or replaces a poll document, for test and demo wiring.
func (s *Store) SeedPoll(poll entities.Poll) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.polls[strings.TrimSpace(poll.PollID)] = poll.Clone()
}

func (s *Store) CreatePoll(_ context.Context, poll entities.Poll) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	pollID := strings.TrimSpace(poll.PollID)
	if _, exists := s.polls[pollID]; exists {
		return domainerrors.ErrConflict
	}
	s.polls[pollID] = poll.Clone()
	return nil
}

func (s *Store) GetPoll(_ context.Context, pollID string) (entities.Poll, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	poll, ok := s.polls[strings.TrimSpace(pollID)]
	if !ok {
		return entities.Poll{}, domainerrors.ErrPollNotFound
	}
	return poll.Clone(), nil
}

func (s *Store) CompareAndUpdatePoll(
	_ context.Context,
	expectedVersion int64,
	poll entities.Poll,
) (entities.Poll, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pollID := strings.TrimSpace(poll.PollID)
	current, ok := s.polls[pollID]
	if !ok {
		return entities.Poll{}, domainerrors.ErrPollNotFound
	}
	if current.Version != expectedVersion {
		return entities.Poll{}, domainerrors.ErrConflict
	}
	committed := poll.Clone()
	committed.Version = expectedVersion + 1
	s.polls[pollID] = committed
	return committed.Clone(), nil
}

func (s *Store) ListExpiredActive(_ context.Context, now time.Time, limit int) ([]entities.Poll, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		limit = 100
	}
	items := make([]entities.Poll, 0)
	for _, poll := range s.polls {
		if poll.Status != entities.PollStatusActive {
			continue
		}
		if !now.After(poll.ExpiresAt) {
			continue
		}
		items = append(items, poll.Clone())
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].ExpiresAt.Before(items[j].ExpiresAt)
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) RecordBallot(_ context.Context, ballot entities.Ballot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := ballotKey(ballot.PollID, ballot.UserID)
	if _, exists := s.ballots[key]; exists {
		return domainerrors.ErrAlreadyVoted
	}
	ballot.SelectedOptionIDs = append([]string(nil), ballot.SelectedOptionIDs...)
	s.ballots[key] = ballot
	return nil
}

func (s *Store) FindBallot(_ context.Context, pollID string, userID string) (entities.Ballot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ballot, ok := s.ballots[ballotKey(pollID, userID)]
	if !ok {
		return entities.Ballot{}, false, nil
	}
	ballot.SelectedOptionIDs = append([]string(nil), ballot.SelectedOptionIDs...)
	return ballot, true, nil
}

func (s *Store) RemoveBallot(_ context.Context, pollID string, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := ballotKey(pollID, userID)
	if _, exists := s.ballots[key]; !exists {
		return domainerrors.ErrBallotNotFound
	}
	delete(s.ballots, key)
	return nil
}

func (s *Store) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	outboxID := strings.TrimSpace(envelope.EventID)
	if outboxID == "" {
		outboxID = uuid.NewString()
	}
	if existing, ok := s.outbox[outboxID]; ok {
		if !bytes.Equal(existing.message.Payload, payload) {
			return domainerrors.ErrConflict
		}
		return nil
	}
	createdAt := envelope.OccurredAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	s.outbox[outboxID] = outboxRecord{
		message: ports.OutboxMessage{
			OutboxID:     outboxID,
			EventType:    strings.TrimSpace(envelope.EventType),
			PartitionKey: strings.TrimSpace(envelope.PartitionKey),
			Payload:      payload,
			CreatedAt:    createdAt,
		},
	}
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	items := make([]ports.OutboxMessage, 0, len(s.outbox))
	for _, row := range s.outbox {
		if row.published {
			continue
		}
		items = append(items, row.message)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.outbox[strings.TrimSpace(outboxID)]
	if !ok {
		return nil
	}
	row.published = true
	s.outbox[strings.TrimSpace(outboxID)] = row
	return nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func ballotKey(pollID string, userID string) string {
	return strings.TrimSpace(pollID) + "/" + strings.TrimSpace(userID)
}
