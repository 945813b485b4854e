package commands

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	application "pollstream/contexts/polling/vote-engine/application"
	"pollstream/contexts/polling/vote-engine/domain/entities"
	domainerrors "pollstream/contexts/polling/vote-engine/domain/errors"
	"pollstream/contexts/polling/vote-engine/ports"
)

const (
	minQuestionLength = 10
	maxQuestionLength = 500
	maxDescription    = 1000
	minOptionCount    = 2
	maxOptionCount    = 10
)

// CreatePollCommand provisions a new poll document.
type CreatePollCommand struct {
	Question    string
	Description string
	OptionTexts []string
	PollType    entities.PollType
	CreatedBy   string
	ExpiresAt   time.Time
}

// PollUseCase owns poll provisioning and the expiry transition. It does not
// touch vote counters; those belong to BallotUseCase's commit path.
type PollUseCase struct {
	Polls  ports.PollRepository
	Clock  ports.Clock
	IDGen  ports.IDGenerator
	Logger *slog.Logger
}

func (uc PollUseCase) CreatePoll(ctx context.Context, cmd CreatePollCommand) (entities.Poll, error) {
	logger := application.ResolveLogger(uc.Logger)
	question := strings.TrimSpace(cmd.Question)
	description := strings.TrimSpace(cmd.Description)

	if len(question) < minQuestionLength || len(question) > maxQuestionLength {
		return entities.Poll{}, domainerrors.ErrInvalidPollInput
	}
	if len(description) > maxDescription {
		return entities.Poll{}, domainerrors.ErrInvalidPollInput
	}
	pollType := cmd.PollType
	if pollType == "" {
		pollType = entities.PollTypeSingle
	}
	if pollType != entities.PollTypeSingle && pollType != entities.PollTypeMultiple {
		return entities.Poll{}, domainerrors.ErrInvalidPollInput
	}
	if cmd.ExpiresAt.IsZero() {
		return entities.Poll{}, domainerrors.ErrInvalidPollInput
	}

	texts := make([]string, 0, len(cmd.OptionTexts))
	for _, text := range cmd.OptionTexts {
		text = strings.TrimSpace(text)
		if text == "" {
			return entities.Poll{}, domainerrors.ErrInvalidPollInput
		}
		texts = append(texts, text)
	}
	if len(texts) < minOptionCount || len(texts) > maxOptionCount {
		return entities.Poll{}, domainerrors.ErrInvalidPollInput
	}

	now := uc.now()
	pollID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.Poll{}, err
	}
	options := make([]entities.Option, 0, len(texts))
	for _, text := range texts {
		optionID, err := uc.IDGen.NewID(ctx)
		if err != nil {
			return entities.Poll{}, err
		}
		options = append(options, entities.Option{
			OptionID: optionID,
			Text:     text,
		})
	}

	status := entities.PollStatusActive
	if now.After(cmd.ExpiresAt) {
		status = entities.PollStatusClosed
	}
	poll := entities.Poll{
		PollID:      pollID,
		Question:    question,
		Description: description,
		PollType:    pollType,
		Status:      status,
		Options:     options,
		CreatedBy:   strings.TrimSpace(cmd.CreatedBy),
		ExpiresAt:   cmd.ExpiresAt.UTC(),
		CreatedAt:   now,
		UpdatedAt:   now,
		Version:     1,
	}
	if err := uc.Polls.CreatePoll(ctx, poll); err != nil {
		return entities.Poll{}, err
	}

	logger.Info("poll created",
		"event", "polling_poll_created",
		"module", "polling/vote-engine",
		"layer", "application",
		"poll_id", poll.PollID,
		"poll_type", string(poll.PollType),
		"option_count", len(poll.Options),
		"expires_at", poll.ExpiresAt.Format(time.RFC3339),
	)
	return poll, nil
}

// TransitionIfExpired closes a poll whose expiry has passed while its stored
// status is still active. Safe to call repeatedly and from concurrent
// observers; losing the compare-and-swap to another closer is not an error.
func (uc PollUseCase) TransitionIfExpired(ctx context.Context, pollID string) (entities.Poll, error) {
	logger := application.ResolveLogger(uc.Logger)
	pollID = strings.TrimSpace(pollID)
	if pollID == "" {
		return entities.Poll{}, domainerrors.ErrInvalidPollInput
	}

	for attempt := 0; attempt < 3; attempt++ {
		poll, err := uc.Polls.GetPoll(ctx, pollID)
		if err != nil {
			return entities.Poll{}, err
		}
		now := uc.now()
		if poll.Status != entities.PollStatusActive || !now.After(poll.ExpiresAt) {
			return poll, nil
		}
		poll.Status = entities.PollStatusClosed
		poll.UpdatedAt = now
		updated, err := uc.Polls.CompareAndUpdatePoll(ctx, poll.Version, poll)
		if errors.Is(err, domainerrors.ErrConflict) {
			continue
		}
		if err != nil {
			return entities.Poll{}, err
		}
		logger.Info("poll transitioned to closed",
			"event", "polling_poll_expired_closed",
			"module", "polling/vote-engine",
			"layer", "application",
			"poll_id", updated.PollID,
			"poll_version", updated.Version,
		)
		return updated, nil
	}
	return uc.Polls.GetPoll(ctx, pollID)
}

func (uc PollUseCase) now() time.Time {
	now := time.Now().UTC()
	if uc.Clock != nil {
		now = uc.Clock.Now().UTC()
	}
	return now
}
