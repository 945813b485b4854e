package entities

import (
	"math"
	"strings"
	"time"
)

type PollType string

const (
	PollTypeSingle   PollType = "single"
	PollTypeMultiple PollType = "multiple"
)

type PollStatus string

const (
	PollStatusActive   PollStatus = "active"
	PollStatusClosed   PollStatus = "closed"
	PollStatusUpcoming PollStatus = "upcoming"
)

// Option belongs to exactly one poll; options have no lifecycle of their own.
// Votes must always equal len(Voters).
type Option struct {
	OptionID string
	Text     string
	Votes    int
	Voters   []string
}

func (o Option) HasVoter(userID string) bool {
	userID = strings.TrimSpace(userID)
	for _, voter := range o.Voters {
		if voter == userID {
			return true
		}
	}
	return false
}

// Poll is the shared mutable document of the voting core. Version is the
// optimistic-concurrency marker: every committed mutation increments it, and
// writers must present the version they read.
type Poll struct {
	PollID      string
	Question    string
	Description string
	PollType    PollType
	Status      PollStatus
	Options     []Option
	TotalVotes  int
	CreatedBy   string
	ExpiresAt   time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Version     int64
}

// StatusAt derives the effective status at the given instant. A poll past its
// expiry reads as closed even before the stored status catches up.
func (p Poll) StatusAt(now time.Time) PollStatus {
	if p.Status == PollStatusClosed {
		return PollStatusClosed
	}
	if now.After(p.ExpiresAt) {
		return PollStatusClosed
	}
	if now.Before(p.CreatedAt) {
		return PollStatusUpcoming
	}
	return PollStatusActive
}

func (p Poll) HasOption(optionID string) bool {
	optionID = strings.TrimSpace(optionID)
	for _, option := range p.Options {
		if option.OptionID == optionID {
			return true
		}
	}
	return false
}

// OptionResult is one row of a poll tally.
type OptionResult struct {
	OptionID   string
	Text       string
	Votes      int
	Percentage float64
}

// Results computes the current tally. Percentages are rounded to two decimal
// places independently per option, so they need not sum to exactly 100; with
// zero total votes every percentage is 0.
func (p Poll) Results() []OptionResult {
	results := make([]OptionResult, 0, len(p.Options))
	for _, option := range p.Options {
		percentage := 0.0
		if p.TotalVotes > 0 {
			percentage = math.Round(float64(option.Votes)/float64(p.TotalVotes)*100*100) / 100
		}
		results = append(results, OptionResult{
			OptionID:   option.OptionID,
			Text:       option.Text,
			Votes:      option.Votes,
			Percentage: percentage,
		})
	}
	return results
}

// Clone returns a deep copy so stored polls are never aliased by callers.
func (p Poll) Clone() Poll {
	copied := p
	copied.Options = make([]Option, len(p.Options))
	for i, option := range p.Options {
		copied.Options[i] = option
		copied.Options[i].Voters = append([]string(nil), option.Voters...)
	}
	return copied
}
