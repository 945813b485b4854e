package entities

import (
	"testing"
	"time"
)

func TestStatusAt(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	poll := Poll{
		Status:    PollStatusActive,
		CreatedAt: now.Add(-time.Hour),
		ExpiresAt: now.Add(time.Hour),
	}

	if got := poll.StatusAt(now); got != PollStatusActive {
		t.Fatalf("within window: expected active, got %s", got)
	}
	if got := poll.StatusAt(now.Add(2 * time.Hour)); got != PollStatusClosed {
		t.Fatalf("past expiry: expected closed, got %s", got)
	}
	if got := poll.StatusAt(now.Add(-2 * time.Hour)); got != PollStatusUpcoming {
		t.Fatalf("before creation: expected upcoming, got %s", got)
	}

	poll.Status = PollStatusClosed
	if got := poll.StatusAt(now); got != PollStatusClosed {
		t.Fatalf("stored closed wins: expected closed, got %s", got)
	}
}

func TestResultsRounding(t *testing.T) {
	poll := Poll{
		Options: []Option{
			{OptionID: "a", Votes: 1},
			{OptionID: "b", Votes: 1},
			{OptionID: "c", Votes: 1},
		},
		TotalVotes: 3,
	}
	for _, row := range poll.Results() {
		if row.Percentage != 33.33 {
			t.Fatalf("option %s: expected 33.33, got %v", row.OptionID, row.Percentage)
		}
	}

	poll.TotalVotes = 0
	poll.Options = []Option{{OptionID: "a"}, {OptionID: "b"}}
	for _, row := range poll.Results() {
		if row.Percentage != 0.0 {
			t.Fatalf("zero total: expected 0, got %v", row.Percentage)
		}
	}
}

func TestCloneDetachesVoterSets(t *testing.T) {
	poll := Poll{
		Options: []Option{{OptionID: "a", Voters: []string{"u1"}}},
	}
	clone := poll.Clone()
	clone.Options[0].Voters[0] = "mutated"
	clone.Options[0].Votes = 7

	if poll.Options[0].Voters[0] != "u1" || poll.Options[0].Votes != 0 {
		t.Fatalf("clone must not alias the original: %+v", poll.Options[0])
	}
}
