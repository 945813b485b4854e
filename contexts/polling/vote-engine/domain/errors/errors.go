package errors

import "errors"

var (
	ErrInvalidPollInput   = errors.New("invalid poll input")
	ErrInvalidSelection   = errors.New("selection must contain at least one option")
	ErrPollNotFound       = errors.New("poll not found")
	ErrBallotNotFound     = errors.New("ballot not found")
	ErrPollClosed         = errors.New("poll is not open for voting")
	ErrAlreadyVoted       = errors.New("user has already voted on this poll")
	ErrTooManySelections  = errors.New("single-choice polls allow only one option")
	ErrInvalidOption      = errors.New("option does not belong to this poll")
	ErrConflict           = errors.New("poll mutation conflict")
	ErrStorageUnavailable = errors.New("storage unavailable")
)
