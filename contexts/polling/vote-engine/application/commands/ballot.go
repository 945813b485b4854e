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

// SubmitBallotCommand is the write-model input for a vote submission.
type SubmitBallotCommand struct {
	PollID            string
	UserID            string
	SelectedOptionIDs []string
	Origin            string
	UserAgent         string
}

// SubmitBallotResult carries the post-commit poll snapshot, its tally, and
// the caller's own selection.
type SubmitBallotResult struct {
	Poll     entities.Poll
	Results  []entities.OptionResult
	UserVote []string
}

// RetractBallotCommand requests removal of an existing ballot.
type RetractBallotCommand struct {
	PollID string
	UserID string
}

type RetractBallotResult struct {
	Poll    entities.Poll
	Results []entities.OptionResult
}

// BallotUseCase orchestrates vote submission and retraction: validation, the
// ledger uniqueness gate, the compare-and-swap counter mutation, and the
// post-commit fan-out. Counter writes go through CompareAndUpdatePoll only,
// retried up to CommitAttempts before surfacing ErrConflict.
type BallotUseCase struct {
	Polls          ports.PollRepository
	Ledger         ports.BallotLedger
	Broadcast      ports.Broadcaster
	Outbox         ports.OutboxWriter
	Clock          ports.Clock
	IDGen          ports.IDGenerator
	CommitAttempts int
	Logger         *slog.Logger
}

// SubmitBallot records one ballot for (poll, user). Validation failures are
// reported before any side effect; the ledger insert is the uniqueness gate,
// and a ledger insert whose counter commit cannot complete is rolled back so
// no partial state survives.
func (uc BallotUseCase) SubmitBallot(ctx context.Context, cmd SubmitBallotCommand) (SubmitBallotResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	pollID := strings.TrimSpace(cmd.PollID)
	userID := strings.TrimSpace(cmd.UserID)
	logger.Info("ballot submit started",
		"event", "polling_ballot_submit_started",
		"module", "polling/vote-engine",
		"layer", "application",
		"poll_id", pollID,
		"user_id", userID,
		"selection_count", len(cmd.SelectedOptionIDs),
	)

	selected := normalizeSelection(cmd.SelectedOptionIDs)
	if pollID == "" || userID == "" {
		return SubmitBallotResult{}, domainerrors.ErrInvalidPollInput
	}
	if len(selected) == 0 {
		logger.Warn("ballot submit rejected empty selection",
			"event", "polling_ballot_submit_empty_selection",
			"module", "polling/vote-engine",
			"layer", "application",
			"poll_id", pollID,
			"user_id", userID,
		)
		return SubmitBallotResult{}, domainerrors.ErrInvalidSelection
	}

	poll, err := uc.Polls.GetPoll(ctx, pollID)
	if err != nil {
		return SubmitBallotResult{}, err
	}

	now := uc.now()
	if poll.Status == entities.PollStatusActive && now.After(poll.ExpiresAt) {
		// Lazy transition: an expired poll is closed as a side effect of the
		// first submission that observes it, independent of this vote's outcome.
		uc.closeExpired(ctx, poll, now)
		return SubmitBallotResult{}, domainerrors.ErrPollClosed
	}
	if poll.StatusAt(now) != entities.PollStatusActive {
		return SubmitBallotResult{}, domainerrors.ErrPollClosed
	}

	if _, found, err := uc.Ledger.FindBallot(ctx, pollID, userID); err != nil {
		return SubmitBallotResult{}, err
	} else if found {
		return SubmitBallotResult{}, domainerrors.ErrAlreadyVoted
	}

	if poll.PollType == entities.PollTypeSingle && len(selected) > 1 {
		return SubmitBallotResult{}, domainerrors.ErrTooManySelections
	}
	for _, optionID := range selected {
		if !poll.HasOption(optionID) {
			return SubmitBallotResult{}, domainerrors.ErrInvalidOption
		}
	}

	ballot := entities.Ballot{
		PollID:            pollID,
		UserID:            userID,
		SelectedOptionIDs: selected,
		Origin:            strings.TrimSpace(cmd.Origin),
		UserAgent:         strings.TrimSpace(cmd.UserAgent),
		CreatedAt:         now,
	}
	if err := uc.Ledger.RecordBallot(ctx, ballot); err != nil {
		if errors.Is(err, domainerrors.ErrAlreadyVoted) {
			logger.Warn("ballot submit lost uniqueness race",
				"event", "polling_ballot_submit_duplicate",
				"module", "polling/vote-engine",
				"layer", "application",
				"poll_id", pollID,
				"user_id", userID,
			)
		}
		return SubmitBallotResult{}, err
	}

	updated, err := uc.commitSubmit(ctx, pollID, userID, selected, now)
	if err != nil {
		// The ledger insert and the counter mutation share one atomic boundary:
		// if the counters cannot commit, the insert must not survive.
		if removeErr := uc.Ledger.RemoveBallot(ctx, pollID, userID); removeErr != nil {
			logger.Error("ballot rollback failed after commit failure",
				"event", "polling_ballot_rollback_failed",
				"module", "polling/vote-engine",
				"layer", "application",
				"poll_id", pollID,
				"user_id", userID,
				"error", removeErr.Error(),
			)
		}
		return SubmitBallotResult{}, err
	}

	results := updated.Results()
	uc.appendBallotEvent(ctx, "ballot.recorded", ballot, updated, now)
	uc.publish(updated, results)

	logger.Info("ballot recorded",
		"event", "polling_ballot_recorded",
		"module", "polling/vote-engine",
		"layer", "application",
		"poll_id", pollID,
		"user_id", userID,
		"total_votes", updated.TotalVotes,
		"poll_version", updated.Version,
	)
	return SubmitBallotResult{
		Poll:     updated,
		Results:  results,
		UserVote: selected,
	}, nil
}

// RetractBallot is the exact inverse of SubmitBallot: it deletes the ledger
// record, reverses every counter the ballot touched, and fans the new tally
// out. The ledger delete is the gate against double retraction.
func (uc BallotUseCase) RetractBallot(ctx context.Context, cmd RetractBallotCommand) (RetractBallotResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	pollID := strings.TrimSpace(cmd.PollID)
	userID := strings.TrimSpace(cmd.UserID)
	logger.Info("ballot retract started",
		"event", "polling_ballot_retract_started",
		"module", "polling/vote-engine",
		"layer", "application",
		"poll_id", pollID,
		"user_id", userID,
	)
	if pollID == "" || userID == "" {
		return RetractBallotResult{}, domainerrors.ErrInvalidPollInput
	}

	ballot, found, err := uc.Ledger.FindBallot(ctx, pollID, userID)
	if err != nil {
		return RetractBallotResult{}, err
	}
	if !found {
		return RetractBallotResult{}, domainerrors.ErrBallotNotFound
	}
	if _, err := uc.Polls.GetPoll(ctx, pollID); err != nil {
		return RetractBallotResult{}, err
	}

	if err := uc.Ledger.RemoveBallot(ctx, pollID, userID); err != nil {
		return RetractBallotResult{}, err
	}

	now := uc.now()
	updated, err := uc.commitRetract(ctx, pollID, userID, ballot.SelectedOptionIDs, now)
	if err != nil {
		if restoreErr := uc.Ledger.RecordBallot(ctx, ballot); restoreErr != nil {
			logger.Error("ballot restore failed after retract commit failure",
				"event", "polling_ballot_restore_failed",
				"module", "polling/vote-engine",
				"layer", "application",
				"poll_id", pollID,
				"user_id", userID,
				"error", restoreErr.Error(),
			)
		}
		return RetractBallotResult{}, err
	}

	results := updated.Results()
	uc.appendBallotEvent(ctx, "ballot.retracted", ballot, updated, now)
	uc.publish(updated, results)

	logger.Info("ballot retracted",
		"event", "polling_ballot_retracted",
		"module", "polling/vote-engine",
		"layer", "application",
		"poll_id", pollID,
		"user_id", userID,
		"total_votes", updated.TotalVotes,
		"poll_version", updated.Version,
	)
	return RetractBallotResult{Poll: updated, Results: results}, nil
}

// commitSubmit applies the ballot's increments through the compare-and-swap
// write path, recomputing against freshly read state on every conflict. One
// ballot increments TotalVotes once regardless of how many options it selects;
// each selected option's counter and voter set move by exactly one entry.
func (uc BallotUseCase) commitSubmit(
	ctx context.Context,
	pollID string,
	userID string,
	selected []string,
	now time.Time,
) (entities.Poll, error) {
	attempts := uc.commitAttempts()
	for attempt := 0; attempt < attempts; attempt++ {
		poll, err := uc.Polls.GetPoll(ctx, pollID)
		if err != nil {
			return entities.Poll{}, err
		}
		for i := range poll.Options {
			if containsOption(selected, poll.Options[i].OptionID) {
				poll.Options[i].Votes++
				poll.Options[i].Voters = append(poll.Options[i].Voters, userID)
			}
		}
		poll.TotalVotes++
		poll.UpdatedAt = now

		updated, err := uc.Polls.CompareAndUpdatePoll(ctx, poll.Version, poll)
		if errors.Is(err, domainerrors.ErrConflict) {
			continue
		}
		if err != nil {
			return entities.Poll{}, err
		}
		return updated, nil
	}
	return entities.Poll{}, domainerrors.ErrConflict
}

func (uc BallotUseCase) commitRetract(
	ctx context.Context,
	pollID string,
	userID string,
	selected []string,
	now time.Time,
) (entities.Poll, error) {
	attempts := uc.commitAttempts()
	for attempt := 0; attempt < attempts; attempt++ {
		poll, err := uc.Polls.GetPoll(ctx, pollID)
		if err != nil {
			return entities.Poll{}, err
		}
		for i := range poll.Options {
			if !containsOption(selected, poll.Options[i].OptionID) {
				continue
			}
			if poll.Options[i].Votes > 0 {
				poll.Options[i].Votes--
			}
			poll.Options[i].Voters = removeVoter(poll.Options[i].Voters, userID)
		}
		if poll.TotalVotes > 0 {
			poll.TotalVotes--
		}
		poll.UpdatedAt = now

		updated, err := uc.Polls.CompareAndUpdatePoll(ctx, poll.Version, poll)
		if errors.Is(err, domainerrors.ErrConflict) {
			continue
		}
		if err != nil {
			return entities.Poll{}, err
		}
		return updated, nil
	}
	return entities.Poll{}, domainerrors.ErrConflict
}

// closeExpired commits the active-to-closed transition for an expired poll.
// Losing the race to another writer is fine; the poll ends up closed either way.
func (uc BallotUseCase) closeExpired(ctx context.Context, poll entities.Poll, now time.Time) {
	logger := application.ResolveLogger(uc.Logger)
	poll.Status = entities.PollStatusClosed
	poll.UpdatedAt = now
	if _, err := uc.Polls.CompareAndUpdatePoll(ctx, poll.Version, poll); err != nil &&
		!errors.Is(err, domainerrors.ErrConflict) {
		logger.Warn("lazy poll close failed",
			"event", "polling_lazy_close_failed",
			"module", "polling/vote-engine",
			"layer", "application",
			"poll_id", poll.PollID,
			"error", err.Error(),
		)
		return
	}
	logger.Info("expired poll closed lazily",
		"event", "polling_lazy_close_applied",
		"module", "polling/vote-engine",
		"layer", "application",
		"poll_id", poll.PollID,
	)
}

// publish is fire-and-forget: the voter's own response already carries the
// snapshot, and fan-out to other viewers must never fail the vote.
func (uc BallotUseCase) publish(poll entities.Poll, results []entities.OptionResult) {
	if uc.Broadcast == nil {
		return
	}
	uc.Broadcast.Publish(poll.PollID, ports.TallyUpdate{
		PollID:  poll.PollID,
		Poll:    poll,
		Results: results,
	})
}

func (uc BallotUseCase) appendBallotEvent(
	ctx context.Context,
	eventType string,
	ballot entities.Ballot,
	poll entities.Poll,
	occurredAt time.Time,
) {
	// Outbox is optional for pure read/test wiring, and a failed append must
	// not undo a committed ballot; the relay path is best effort by contract.
	if uc.Outbox == nil {
		return
	}
	logger := application.ResolveLogger(uc.Logger)
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		logger.Warn("ballot event id generation failed",
			"event", "polling_ballot_event_id_failed",
			"module", "polling/vote-engine",
			"layer", "application",
			"poll_id", ballot.PollID,
			"error", err.Error(),
		)
		return
	}
	envelope, err := newPollingEnvelope(eventID, eventType, poll.PollID, occurredAt, map[string]any{
		"poll_id":          poll.PollID,
		"user_id":          ballot.UserID,
		"selected_options": ballot.SelectedOptionIDs,
		"total_votes":      poll.TotalVotes,
		"poll_version":     poll.Version,
		"occurred_at":      occurredAt.Format(time.RFC3339),
	})
	if err == nil {
		err = uc.Outbox.AppendOutbox(ctx, envelope)
	}
	if err != nil {
		logger.Warn("ballot event append failed",
			"event", "polling_ballot_event_append_failed",
			"module", "polling/vote-engine",
			"layer", "application",
			"poll_id", ballot.PollID,
			"event_type", eventType,
			"error", err.Error(),
		)
	}
}

func (uc BallotUseCase) commitAttempts() int {
	if uc.CommitAttempts <= 0 {
		return 10
	}
	return uc.CommitAttempts
}

func (uc BallotUseCase) now() time.Time {
	now := time.Now().UTC()
	if uc.Clock != nil {
		now = uc.Clock.Now().UTC()
	}
	return now
}

func normalizeSelection(optionIDs []string) []string {
	selected := make([]string, 0, len(optionIDs))
	seen := make(map[string]struct{}, len(optionIDs))
	for _, optionID := range optionIDs {
		optionID = strings.TrimSpace(optionID)
		if optionID == "" {
			continue
		}
		if _, ok := seen[optionID]; ok {
			continue
		}
		seen[optionID] = struct{}{}
		selected = append(selected, optionID)
	}
	return selected
}

func containsOption(optionIDs []string, optionID string) bool {
	for _, id := range optionIDs {
		if id == optionID {
			return true
		}
	}
	return false
}

func removeVoter(voters []string, userID string) []string {
	kept := voters[:0]
	for _, voter := range voters {
		if voter != userID {
			kept = append(kept, voter)
		}
	}
	return kept
}
