package relays

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scripted replays msgs and then idles until the query is cancelled.
type scripted struct {
	msgs []Message
}

func (s scripted) Subscribe(ctx context.Context, _ nostr.Filters) (<-chan Message, error) {
	out := make(chan Message)
	go func() {
		defer close(out)
		for _, m := range s.msgs {
			if !send(ctx, out, m) {
				return
			}
		}
		<-ctx.Done()
	}()
	return out, nil
}

func (scripted) Publish(context.Context, nostr.Event) <-chan PublishResult {
	return nil
}

func TestFirstMatch(t *testing.T) {
	filter := nostr.Filter{Kinds: []int{30360}}
	match := signed(t, 30360, nil)
	other := signed(t, 1, nil)
	forged := signed(t, 30360, nil)
	forged.Sig = other.Sig
	relabelled := signed(t, 30360, nil)
	relabelled.ID = strings.Repeat("0", 64)

	t.Run("returns first matching event", func(t *testing.T) {
		store := scripted{msgs: []Message{
			{Relay: "a", Err: errors.New("boom")},
			{Relay: "a", Event: &other},
			{Relay: "b", Event: &forged},
			{Relay: "b", Event: &relabelled},
			{Relay: "b", Event: &match},
		}}
		ev, err := FirstMatch(context.Background(), store, filter, time.Second)
		require.NoError(t, err)
		require.NotNil(t, ev)
		assert.Equal(t, match.ID, ev.ID)
	})

	t.Run("end of stored events means nothing found", func(t *testing.T) {
		store := scripted{msgs: []Message{{Relay: "a", Event: &other}, {EOSE: true}}}
		ev, err := FirstMatch(context.Background(), store, filter, time.Second)
		assert.NoError(t, err)
		assert.Nil(t, ev)
	})

	t.Run("no relay answering is a transport failure", func(t *testing.T) {
		store := scripted{msgs: []Message{
			{Relay: "a", Err: errors.New("refused")},
			{EOSE: true, Err: ErrTransport},
		}}
		ev, err := FirstMatch(context.Background(), store, filter, time.Second)
		assert.ErrorIs(t, err, ErrTransport)
		assert.Nil(t, ev)
	})

	t.Run("silence runs into the timeout", func(t *testing.T) {
		ev, err := FirstMatch(context.Background(), scripted{}, filter, 20*time.Millisecond)
		assert.ErrorIs(t, err, ErrQueryTimeout)
		assert.Nil(t, ev)
	})

	t.Run("cancelled parent is not a timeout", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := FirstMatch(ctx, scripted{}, filter, time.Second)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestCollectDeduplicatesAcrossRelays(t *testing.T) {
	a := signed(t, 30360, nil)
	b := signed(t, 30360, nil)
	store := scripted{msgs: []Message{
		{Relay: "x", Event: &a},
		{Relay: "y", Event: &a},
		{Relay: "y", Event: &b},
		{EOSE: true},
	}}
	events, err := Collect(context.Background(), store, nostr.Filter{Kinds: []int{30360}}, time.Second)
	require.NoError(t, err)
	assert.Len(t, events, 2)
}
