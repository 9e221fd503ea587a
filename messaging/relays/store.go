package relays

import (
	"context"
	"errors"

	"github.com/nbd-wtf/go-nostr"
)

var (
	// ErrQueryTimeout is returned when a bounded query ran out of time without a match.
	ErrQueryTimeout = errors.New("query timed out")
	// ErrTransport wraps any failure to reach a single relay.
	ErrTransport = errors.New("relay transport failure")
)

// Message is one item of a subscription stream: an event from one relay, the
// end of stored events across every relay, or a per-relay error.
type Message struct {
	Relay string
	Event *nostr.Event
	EOSE  bool
	Err   error
}

// PublishResult is a single relay's answer to a publish.
type PublishResult struct {
	Relay string
	Err   error
}

// Store is the multi-relay event network as seen by the rest of the engine.
type Store interface {
	// Subscribe streams matching events until ctx is cancelled. EOSE is sent
	// once, after every relay has sent its end of stored events or failed. When
	// no relay got as far as its end of stored events, the EOSE message also
	// carries an ErrTransport.
	// The channel is closed when the subscription ends.
	Subscribe(ctx context.Context, filters nostr.Filters) (<-chan Message, error)
	// Publish sends event to every relay. The returned channel yields one
	// result per relay and is closed afterwards; callers may ignore it.
	Publish(ctx context.Context, event nostr.Event) <-chan PublishResult
}
