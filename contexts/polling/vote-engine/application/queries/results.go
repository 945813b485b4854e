package queries

import (
	"context"
	"strings"
	"time"

	"pollstream/contexts/polling/vote-engine/domain/entities"
	domainerrors "pollstream/contexts/polling/vote-engine/domain/errors"
	"pollstream/contexts/polling/vote-engine/ports"
)

// ResultsUseCase serves read-only views of a poll's tally and a user's ballot
// status. Reads never mutate poll state; the expiry transition stays on the
// write path and the worker sweep.
type ResultsUseCase struct {
	Polls  ports.PollRepository
	Ledger ports.BallotLedger
	Clock  ports.Clock
}

// PollResults is the read model for a poll's current tally. Status is the
// derived status at read time, which may be ahead of the stored one for a
// just-expired poll.
type PollResults struct {
	Poll    entities.Poll
	Status  entities.PollStatus
	Results []entities.OptionResult
}

// BallotStatus reports whether a user has voted on a poll and what they chose.
type BallotStatus struct {
	HasVoted          bool
	SelectedOptionIDs []string
}

// Results returns the tally for a poll; it succeeds for polls with zero votes,
// reporting every percentage as 0.
func (uc ResultsUseCase) Results(ctx context.Context, pollID string) (PollResults, error) {
	pollID = strings.TrimSpace(pollID)
	if pollID == "" {
		return PollResults{}, domainerrors.ErrInvalidPollInput
	}
	poll, err := uc.Polls.GetPoll(ctx, pollID)
	if err != nil {
		return PollResults{}, err
	}
	return PollResults{
		Poll:    poll,
		Status:  poll.StatusAt(uc.now()),
		Results: poll.Results(),
	}, nil
}

// VoteStatus reports the caller's ballot for a poll. A user who has not voted
// gets HasVoted false and a nil selection, not an error.
func (uc ResultsUseCase) VoteStatus(ctx context.Context, pollID string, userID string) (BallotStatus, error) {
	pollID = strings.TrimSpace(pollID)
	userID = strings.TrimSpace(userID)
	if pollID == "" || userID == "" {
		return BallotStatus{}, domainerrors.ErrInvalidPollInput
	}
	ballot, found, err := uc.Ledger.FindBallot(ctx, pollID, userID)
	if err != nil {
		return BallotStatus{}, err
	}
	if !found {
		return BallotStatus{}, nil
	}
	return BallotStatus{
		HasVoted:          true,
		SelectedOptionIDs: ballot.SelectedOptionIDs,
	}, nil
}

func (uc ResultsUseCase) now() time.Time {
	now := time.Now().UTC()
	if uc.Clock != nil {
		now = uc.Clock.Now().UTC()
	}
	return now
}
