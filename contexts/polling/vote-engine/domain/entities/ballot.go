package entities

import "time"

// Ballot is one user's complete submission for one poll. The (PollID, UserID)
// pair is the ledger's primary key; a ballot is created exactly once and
// deleted on retraction, never mutated in place.
type Ballot struct {
	PollID            string
	UserID            string
	SelectedOptionIDs []string
	Origin            string
	UserAgent         string
	CreatedAt         time.Time
}
