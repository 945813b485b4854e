package realtime

import (
	"log/slog"
	"sync"

	"pollstream/contexts/polling/vote-engine/ports"

	"github.com/google/uuid"
)

const defaultBufferSize = 16

// Subscription is one viewer's membership in one poll's update stream. A
// connection watching several polls holds one Subscription per poll; its
// lifetime is bounded by the connection's.
type Subscription struct {
	id     string
	pollID string
	ch     chan ports.TallyUpdate
}

// Updates is the stream of tally snapshots for the subscribed poll. The
// channel is closed on Unsubscribe or when the hub drops the subscriber.
func (s *Subscription) Updates() <-chan ports.TallyUpdate {
	return s.ch
}

func (s *Subscription) PollID() string {
	return s.pollID
}

// Hub fans committed tally updates out to every current subscriber of a poll.
// Membership is keyed by poll id; polls never share state beyond the map
// lock, so publishing to one poll does not serialize with another's viewers.
//
// Sends happen under the read lock and channel closes under the write lock,
// which is what makes dropping a subscriber safe against a concurrent publish.
type Hub struct {
	mu      sync.RWMutex
	members map[string]map[*Subscription]struct{}
	buffer  int
	logger  *slog.Logger
}

func NewHub(buffer int, logger *slog.Logger) *Hub {
	if buffer <= 0 {
		buffer = defaultBufferSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		members: make(map[string]map[*Subscription]struct{}),
		buffer:  buffer,
		logger:  logger,
	}
}

// Subscribe joins the poll's update stream. The returned subscription
// receives every update published for the poll from this moment until it
// unsubscribes or is dropped.
func (h *Hub) Subscribe(pollID string) *Subscription {
	sub := &Subscription{
		id:     uuid.NewString(),
		pollID: pollID,
		ch:     make(chan ports.TallyUpdate, h.buffer),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	group, ok := h.members[pollID]
	if !ok {
		group = make(map[*Subscription]struct{})
		h.members[pollID] = group
	}
	group[sub] = struct{}{}

	h.logger.Debug("subscriber joined poll",
		"event", "realtime_subscribe",
		"module", "internal/platform/realtime",
		"layer", "platform",
		"poll_id", pollID,
		"subscriber_id", sub.id,
	)
	return sub
}

// Unsubscribe removes the membership and closes the update channel. No
// delivery is attempted after Unsubscribe returns.
func (h *Hub) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(sub)
}

// Publish delivers the update to every current subscriber of the poll.
// Delivery is non-blocking: a subscriber whose buffer is full is dropped and
// logged rather than stalling the publisher or failing the vote.
func (h *Hub) Publish(pollID string, update ports.TallyUpdate) {
	var stale []*Subscription

	h.mu.RLock()
	for sub := range h.members[pollID] {
		select {
		case sub.ch <- update:
		default:
			stale = append(stale, sub)
		}
	}
	delivered := len(h.members[pollID]) - len(stale)
	h.mu.RUnlock()

	if len(stale) > 0 {
		h.mu.Lock()
		for _, sub := range stale {
			h.removeLocked(sub)
			h.logger.Warn("dropping slow poll subscriber",
				"event", "realtime_subscriber_dropped",
				"module", "internal/platform/realtime",
				"layer", "platform",
				"poll_id", pollID,
				"subscriber_id", sub.id,
			)
		}
		h.mu.Unlock()
	}

	h.logger.Debug("tally update published",
		"event", "realtime_publish",
		"module", "internal/platform/realtime",
		"layer", "platform",
		"poll_id", pollID,
		"delivered", delivered,
	)
}

// SubscriberCount reports the current membership of a poll's stream.
func (h *Hub) SubscriberCount(pollID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.members[pollID])
}

func (h *Hub) removeLocked(sub *Subscription) {
	group, ok := h.members[sub.pollID]
	if !ok {
		return
	}
	if _, member := group[sub]; !member {
		return
	}
	delete(group, sub)
	if len(group) == 0 {
		delete(h.members, sub.pollID)
	}
	close(sub.ch)
}
