package realtime

import (
	"testing"

	"pollstream/contexts/polling/vote-engine/ports"
)

func TestHubDeliversToCurrentSubscribersOnly(t *testing.T) {
	hub := NewHub(4, nil)

	subA := hub.Subscribe("poll-1")
	subB := hub.Subscribe("poll-1")
	other := hub.Subscribe("poll-2")

	hub.Publish("poll-1", ports.TallyUpdate{PollID: "poll-1"})

	for _, sub := range []*Subscription{subA, subB} {
		select {
		case update := <-sub.Updates():
			if update.PollID != "poll-1" {
				t.Fatalf("unexpected update: %+v", update)
			}
		default:
			t.Fatalf("expected buffered update for subscriber")
		}
	}
	select {
	case update := <-other.Updates():
		t.Fatalf("poll-2 subscriber must not see poll-1 updates, got %+v", update)
	default:
	}
}

func TestHubExactlyOnceDelivery(t *testing.T) {
	hub := NewHub(8, nil)
	sub := hub.Subscribe("poll-1")

	hub.Publish("poll-1", ports.TallyUpdate{PollID: "poll-1"})
	hub.Publish("poll-1", ports.TallyUpdate{PollID: "poll-1"})

	received := 0
	for {
		select {
		case <-sub.Updates():
			received++
			continue
		default:
		}
		break
	}
	if received != 2 {
		t.Fatalf("expected one delivery per publish, got %d", received)
	}
}

func TestHubUnsubscribeStopsDelivery(t *testing.T) {
	hub := NewHub(4, nil)
	sub := hub.Subscribe("poll-1")
	hub.Unsubscribe(sub)

	if _, open := <-sub.Updates(); open {
		t.Fatalf("expected closed channel after unsubscribe")
	}
	if hub.SubscriberCount("poll-1") != 0 {
		t.Fatalf("expected empty membership, got %d", hub.SubscriberCount("poll-1"))
	}

	// Publishing to a poll with no subscribers is a no-op.
	hub.Publish("poll-1", ports.TallyUpdate{PollID: "poll-1"})

	// Double unsubscribe must not panic.
	hub.Unsubscribe(sub)
}

func TestHubDropsSlowSubscriber(t *testing.T) {
	hub := NewHub(1, nil)
	slow := hub.Subscribe("poll-1")
	fast := hub.Subscribe("poll-1")

	hub.Publish("poll-1", ports.TallyUpdate{PollID: "poll-1"})
	<-fast.Updates()
	hub.Publish("poll-1", ports.TallyUpdate{PollID: "poll-1"})

	if hub.SubscriberCount("poll-1") != 1 {
		t.Fatalf("expected slow subscriber dropped, membership %d", hub.SubscriberCount("poll-1"))
	}

	// The dropped subscriber keeps its buffered update and then sees a close.
	if update, open := <-slow.Updates(); !open || update.PollID != "poll-1" {
		t.Fatalf("expected buffered update before close, open=%v", open)
	}
	if _, open := <-slow.Updates(); open {
		t.Fatalf("expected closed channel for dropped subscriber")
	}

	select {
	case update := <-fast.Updates():
		if update.PollID != "poll-1" {
			t.Fatalf("unexpected update: %+v", update)
		}
	default:
		t.Fatalf("fast subscriber must keep receiving")
	}
}
