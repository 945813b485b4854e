package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"pollstream/contexts/polling/vote-engine/ports"
)

func TestKafkaPublishSubscribeRoundTrip(t *testing.T) {
	bus, err := NewKafka(nil, nil)
	if err != nil {
		t.Fatalf("NewKafka: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan ports.EventEnvelope, 4)
	err = bus.Subscribe(ctx, "ballot.recorded", "audit-cg", func(_ context.Context, event ports.EventEnvelope) error {
		received <- event
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	want := ports.EventEnvelope{
		EventID:      "evt-1",
		EventType:    "ballot.recorded",
		PartitionKey: "poll-1",
	}
	if err := bus.Publish(ctx, "ballot.recorded", want); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case got := <-received:
		if got.EventID != want.EventID || got.EventType != want.EventType {
			t.Fatalf("received %+v, want %+v", got, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("handler never received the published event")
	}
}

func TestKafkaTopicIsolation(t *testing.T) {
	bus, err := NewKafka(nil, nil)
	if err != nil {
		t.Fatalf("NewKafka: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan ports.EventEnvelope, 4)
	err = bus.Subscribe(ctx, "ballot.recorded", "audit-cg", func(_ context.Context, event ports.EventEnvelope) error {
		received <- event
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	if err := bus.Publish(ctx, "ballot.retracted", ports.EventEnvelope{EventID: "evt-other"}); err != nil {
		t.Fatalf("Publish other topic: %v", err)
	}
	if err := bus.Publish(ctx, "ballot.recorded", ports.EventEnvelope{EventID: "evt-mine"}); err != nil {
		t.Fatalf("Publish subscribed topic: %v", err)
	}

	select {
	case got := <-received:
		if got.EventID != "evt-mine" {
			t.Fatalf("received event %q from an unsubscribed topic", got.EventID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("handler never received the published event")
	}
}

func TestKafkaSubscriberRemovedOnContextCancel(t *testing.T) {
	bus, err := NewKafka(nil, nil)
	if err != nil {
		t.Fatalf("NewKafka: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	err = bus.Subscribe(ctx, "ballot.recorded", "audit-cg", func(context.Context, ports.EventEnvelope) error {
		return errors.New("should not run after cancel")
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	cancel()

	deadline := time.Now().Add(2 * time.Second)
	for {
		bus.mu.RLock()
		remaining := len(bus.subscribers["ballot.recorded"])
		bus.mu.RUnlock()
		if remaining == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("subscriber still registered after context cancel: %d remaining", remaining)
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := bus.Publish(context.Background(), "ballot.recorded", ports.EventEnvelope{EventID: "evt-late"}); err != nil {
		t.Fatalf("Publish after cancel: %v", err)
	}
}
