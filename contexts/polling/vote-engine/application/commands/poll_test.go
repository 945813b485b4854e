package commands

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"pollstream/contexts/polling/vote-engine/adapters/memory"
	"pollstream/contexts/polling/vote-engine/domain/entities"
	domainerrors "pollstream/contexts/polling/vote-engine/domain/errors"
)

func newPollUseCase(store *memory.Store) PollUseCase {
	return PollUseCase{
		Polls: store,
		Clock: fixedClock{now: testNow()},
		IDGen: store,
	}
}

func TestCreatePoll(t *testing.T) {
	store := memory.NewStore(nil)
	uc := newPollUseCase(store)

	poll, err := uc.CreatePoll(context.Background(), CreatePollCommand{
		Question:    "Which feature should we build next quarter?",
		Description: "Ranked by the community.",
		OptionTexts: []string{" Dark mode ", "Offline sync"},
		CreatedBy:   "creator-1",
		ExpiresAt:   testNow().Add(48 * time.Hour),
	})
	if err != nil {
		t.Fatalf("create poll: %v", err)
	}

	if poll.PollID == "" {
		t.Fatalf("expected generated poll id")
	}
	if poll.PollType != entities.PollTypeSingle {
		t.Fatalf("expected default single type, got %s", poll.PollType)
	}
	if poll.Status != entities.PollStatusActive {
		t.Fatalf("expected active status, got %s", poll.Status)
	}
	if poll.Version != 1 {
		t.Fatalf("expected initial version 1, got %d", poll.Version)
	}
	if len(poll.Options) != 2 {
		t.Fatalf("expected 2 options, got %d", len(poll.Options))
	}
	if poll.Options[0].Text != "Dark mode" {
		t.Fatalf("option text must be trimmed, got %q", poll.Options[0].Text)
	}
	if poll.Options[0].OptionID == poll.Options[1].OptionID {
		t.Fatalf("options must get distinct ids")
	}

	stored, err := store.GetPoll(context.Background(), poll.PollID)
	if err != nil {
		t.Fatalf("get stored poll: %v", err)
	}
	if stored.Question != poll.Question {
		t.Fatalf("stored poll mismatch: %q vs %q", stored.Question, poll.Question)
	}
}

func TestCreatePollValidation(t *testing.T) {
	store := memory.NewStore(nil)
	uc := newPollUseCase(store)
	ctx := context.Background()
	expires := testNow().Add(time.Hour)

	cases := []struct {
		name string
		cmd  CreatePollCommand
	}{
		{"short question", CreatePollCommand{
			Question: "Too short", OptionTexts: []string{"a", "b"}, ExpiresAt: expires,
		}},
		{"long question", CreatePollCommand{
			Question: strings.Repeat("q", 501), OptionTexts: []string{"a", "b"}, ExpiresAt: expires,
		}},
		{"long description", CreatePollCommand{
			Question:    "Which release should we ship first?",
			Description: strings.Repeat("d", 1001),
			OptionTexts: []string{"a", "b"}, ExpiresAt: expires,
		}},
		{"one option", CreatePollCommand{
			Question: "Which release should we ship first?", OptionTexts: []string{"a"}, ExpiresAt: expires,
		}},
		{"eleven options", CreatePollCommand{
			Question:    "Which release should we ship first?",
			OptionTexts: []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k"},
			ExpiresAt:   expires,
		}},
		{"blank option", CreatePollCommand{
			Question: "Which release should we ship first?", OptionTexts: []string{"a", "  "}, ExpiresAt: expires,
		}},
		{"unknown type", CreatePollCommand{
			Question: "Which release should we ship first?", OptionTexts: []string{"a", "b"},
			PollType: entities.PollType("ranked"), ExpiresAt: expires,
		}},
		{"missing expiry", CreatePollCommand{
			Question: "Which release should we ship first?", OptionTexts: []string{"a", "b"},
		}},
	}
	for _, tc := range cases {
		if _, err := uc.CreatePoll(ctx, tc.cmd); !errors.Is(err, domainerrors.ErrInvalidPollInput) {
			t.Fatalf("%s: expected ErrInvalidPollInput, got %v", tc.name, err)
		}
	}
}

func TestCreatePollAlreadyExpired(t *testing.T) {
	store := memory.NewStore(nil)
	uc := newPollUseCase(store)

	poll, err := uc.CreatePoll(context.Background(), CreatePollCommand{
		Question:    "Which release should we ship first?",
		OptionTexts: []string{"a", "b"},
		ExpiresAt:   testNow().Add(-time.Minute),
	})
	if err != nil {
		t.Fatalf("create poll: %v", err)
	}
	if poll.Status != entities.PollStatusClosed {
		t.Fatalf("past expiry must create a closed poll, got %s", poll.Status)
	}
}

func TestTransitionIfExpired(t *testing.T) {
	poll := entities.Poll{
		PollID:    "poll-1",
		Question:  "Which release should we ship first?",
		PollType:  entities.PollTypeSingle,
		Status:    entities.PollStatusActive,
		Options:   []entities.Option{{OptionID: "opt-a", Text: "Alpha"}, {OptionID: "opt-b", Text: "Beta"}},
		ExpiresAt: testNow().Add(-time.Minute),
		CreatedAt: testNow().Add(-time.Hour),
		Version:   1,
	}
	store := memory.NewStore([]entities.Poll{poll})
	uc := newPollUseCase(store)

	updated, err := uc.TransitionIfExpired(context.Background(), "poll-1")
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if updated.Status != entities.PollStatusClosed {
		t.Fatalf("expected closed, got %s", updated.Status)
	}
	if updated.Version != 2 {
		t.Fatalf("expected version bump to 2, got %d", updated.Version)
	}

	again, err := uc.TransitionIfExpired(context.Background(), "poll-1")
	if err != nil {
		t.Fatalf("repeat transition: %v", err)
	}
	if again.Version != 2 {
		t.Fatalf("repeat transition must be a no-op, got version %d", again.Version)
	}
}

func TestTransitionIfExpiredLeavesLivePollAlone(t *testing.T) {
	store := memory.NewStore([]entities.Poll{seedActivePoll(entities.PollTypeSingle)})
	uc := newPollUseCase(store)

	updated, err := uc.TransitionIfExpired(context.Background(), "poll-1")
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if updated.Status != entities.PollStatusActive || updated.Version != 1 {
		t.Fatalf("live poll must be untouched, got status=%s version=%d", updated.Status, updated.Version)
	}
}
