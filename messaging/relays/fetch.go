package relays

import (
	"context"
	"fmt"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"nip05bot/engine/library"
)

// FirstMatch waits up to timeout for the first correctly signed event
// matching filter on any relay. It returns (nil, nil) when every relay has
// reached the end of its stored events without a match, and ErrQueryTimeout
// when the time ran out first. Per-relay failures are logged and skipped;
// if no relay answered at all the error wraps ErrTransport.
func FirstMatch(ctx context.Context, store Store, filter nostr.Filter, timeout time.Duration) (*nostr.Event, error) {
	var found *nostr.Event
	err := query(ctx, store, filter, timeout, func(ev *nostr.Event) bool {
		found = ev
		return false
	})
	return found, err
}

// Collect gathers every correctly signed event matching filter until every
// relay has reached the end of its stored events or timeout expires. Events
// are de-duplicated by ID. A timeout is reported alongside whatever was
// collected so far.
func Collect(ctx context.Context, store Store, filter nostr.Filter, timeout time.Duration) ([]nostr.Event, error) {
	seen := make(map[string]struct{})
	var events []nostr.Event
	err := query(ctx, store, filter, timeout, func(ev *nostr.Event) bool {
		if _, ok := seen[ev.ID]; !ok {
			seen[ev.ID] = struct{}{}
			events = append(events, *ev)
		}
		return true
	})
	return events, err
}

// query feeds matching events to handle until it returns false, EOSE, or timeout.
func query(ctx context.Context, store Store, filter nostr.Filter, timeout time.Duration, handle func(*nostr.Event) bool) error {
	parent := ctx
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	msgs, err := store.Subscribe(ctx, nostr.Filters{filter})
	if err != nil {
		return err
	}
	expired := func() error {
		if parent.Err() != nil {
			return parent.Err()
		}
		return fmt.Errorf("%w after %s", ErrQueryTimeout, timeout)
	}
	for {
		select {
		case <-ctx.Done():
			return expired()
		case m, ok := <-msgs:
			switch {
			case !ok && ctx.Err() != nil:
				return expired()
			case m.EOSE && m.Err != nil:
				return m.Err
			case !ok, m.EOSE:
				return nil
			case m.Err != nil:
				library.LogCLI(m.Err.Error(), 2)
			case m.Event == nil || !filter.Matches(m.Event):
			case !Verify(m.Event):
				library.LogCLI(fmt.Sprintf("event_id=%s from %s has an invalid id or signature", m.Event.ID, m.Relay), 2)
			default:
				if !handle(m.Event) {
					return nil
				}
			}
		}
	}
}

// Verify reports whether ev's id is the hash of its content and its
// signature is valid for that id.
func Verify(ev *nostr.Event) bool {
	if ev.ID != ev.GetID() {
		return false
	}
	ok, err := ev.CheckSignature()
	return err == nil && ok
}
