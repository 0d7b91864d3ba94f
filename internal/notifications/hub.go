package notifications

import (
	"context"
	"sync"
)

const defaultSubscriberBuffer = 64

// Hub fans envelopes out to in-process subscribers. Publishing never blocks:
// a subscriber whose buffer is full misses the envelope and its drop counter
// increases.
type Hub struct {
	mu     sync.RWMutex
	subs   map[*subscriber]struct{}
	closed bool
}

type subscriber struct {
	ch        chan Envelope
	sessionID string
	dropped   uint64
}

// NewHub constructs an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[*subscriber]struct{})}
}

// Subscription is a live feed of envelopes.
type Subscription struct {
	C      <-chan Envelope
	hub    *Hub
	sub    *subscriber
	cancel sync.Once
}

// Subscribe registers a subscriber. A non-empty sessionID limits delivery to
// that session. Call Close when done.
func (h *Hub) Subscribe(sessionID string, buffer int) *Subscription {
	if buffer <= 0 {
		buffer = defaultSubscriberBuffer
	}
	sub := &subscriber{ch: make(chan Envelope, buffer), sessionID: sessionID}
	h.mu.Lock()
	if h.closed {
		close(sub.ch)
	} else {
		h.subs[sub] = struct{}{}
	}
	h.mu.Unlock()
	return &Subscription{C: sub.ch, hub: h, sub: sub}
}

// Close detaches the subscription and closes its channel.
func (s *Subscription) Close() {
	s.cancel.Do(func() {
		s.hub.mu.Lock()
		defer s.hub.mu.Unlock()
		if _, ok := s.hub.subs[s.sub]; ok {
			delete(s.hub.subs, s.sub)
			close(s.sub.ch)
		}
	})
}

// Dropped reports how many envelopes this subscription missed.
func (s *Subscription) Dropped() uint64 {
	s.hub.mu.RLock()
	defer s.hub.mu.RUnlock()
	return s.sub.dropped
}

// Publish implements Sink.
func (h *Hub) Publish(_ context.Context, env Envelope) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	for sub := range h.subs {
		if sub.sessionID != "" && sub.sessionID != env.SessionID {
			continue
		}
		select {
		case sub.ch <- env:
		default:
			sub.dropped++
		}
	}
	return nil
}

// Subscribers returns the number of attached subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close detaches every subscriber. Later publishes are ignored.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for sub := range h.subs {
		close(sub.ch)
		delete(h.subs, sub)
	}
}
