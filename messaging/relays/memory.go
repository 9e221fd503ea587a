package relays

import (
	"context"

	"github.com/nbd-wtf/go-nostr"
	"github.com/sasha-s/go-deadlock"
)

const memoryRelay = "memory"

// Memory is an in-process Store holding every published event in arrival
// order. It backs offline mode and tests.
type Memory struct {
	events []nostr.Event
	subs   map[int]chan nostr.Event
	next   int
	mu     *deadlock.Mutex
}

func NewMemory() *Memory {
	return &Memory{
		subs: make(map[int]chan nostr.Event),
		mu:   &deadlock.Mutex{},
	}
}

func (m *Memory) Subscribe(ctx context.Context, filters nostr.Filters) (<-chan Message, error) {
	m.mu.Lock()
	stored := m.query(filters)
	live := make(chan nostr.Event, 1024)
	id := m.next
	m.next++
	m.subs[id] = live
	m.mu.Unlock()

	out := make(chan Message)
	go func() {
		defer func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
			close(out)
		}()
		for i := range stored {
			if !send(ctx, out, Message{Relay: memoryRelay, Event: &stored[i]}) {
				return
			}
		}
		if !send(ctx, out, Message{EOSE: true}) {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-live:
				if !filters.Match(&ev) {
					continue
				}
				if !send(ctx, out, Message{Relay: memoryRelay, Event: &ev}) {
					return
				}
			}
		}
	}()
	return out, nil
}

// Publish stores event before returning, so it is visible to any query made
// after the call.
func (m *Memory) Publish(_ context.Context, event nostr.Event) <-chan PublishResult {
	m.mu.Lock()
	m.events = append(m.events, event)
	for _, live := range m.subs {
		select {
		case live <- event:
		default:
		}
	}
	m.mu.Unlock()
	results := make(chan PublishResult, 1)
	results <- PublishResult{Relay: memoryRelay}
	close(results)
	return results
}

// Query returns the stored events matching filter.
func (m *Memory) Query(filter nostr.Filter) []nostr.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.query(nostr.Filters{filter})
}

func (m *Memory) query(filters nostr.Filters) (matched []nostr.Event) {
	for _, f := range filters {
		var found []nostr.Event
		for i := range m.events {
			if f.Matches(&m.events[i]) {
				found = append(found, m.events[i])
			}
		}
		if f.Limit > 0 && len(found) > f.Limit {
			found = found[len(found)-f.Limit:]
		}
		matched = append(matched, found...)
	}
	return
}
