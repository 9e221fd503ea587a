package eventcatcher

import (
	"context"
	"fmt"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"github.com/sasha-s/go-deadlock"
	"nip05bot/engine/library"
	"nip05bot/engine/metrics"
	"nip05bot/messaging/relays"
	"nip05bot/state/claims"
)

const resubscribeDelay = 5 * time.Second

// Catcher keeps one long-lived claim request subscription open over the relay
// pool and hands each distinct, correctly signed event to the engine.
type Catcher struct {
	store       relays.Store
	rules       claims.Rules
	sinceWindow time.Duration
	ttl         time.Duration
	metrics     *metrics.Metrics

	seen   map[library.Sha256]time.Time
	seenMu *deadlock.Mutex
	now    func() time.Time
}

func New(store relays.Store, rules claims.Rules, sinceWindow, dedupeTTL time.Duration, m *metrics.Metrics) *Catcher {
	return &Catcher{
		store:       store,
		rules:       rules,
		sinceWindow: sinceWindow,
		ttl:         dedupeTTL,
		metrics:     m,
		seen:        make(map[library.Sha256]time.Time),
		seenMu:      &deadlock.Mutex{},
		now:         time.Now,
	}
}

// Filter selects claim requests for this domain created after now minus the
// since window, so a restart does not replay old history.
func (c *Catcher) Filter() nostr.Filter {
	since := nostr.Timestamp(c.now().Add(-c.sinceWindow).Unix())
	return nostr.Filter{
		Kinds: []int{claims.KindClaimRequest},
		Since: &since,
		Tags: nostr.TagMap{
			"L": []string{c.rules.GroupingLabel},
			"l": []string{c.rules.Domain, c.rules.GroupingLabel},
		},
	}
}

// SubscribeToClaims delivers events on eChan until ctx is cancelled. The
// subscription is reopened whenever the stream ends or the host wakes up.
func (c *Catcher) SubscribeToClaims(ctx context.Context, eChan chan<- nostr.Event) {
	var sleepChan = make(chan bool, 1)
	sleeper(sleepChan)
	for {
		subCtx, cancel := context.WithCancel(ctx)
		filter := c.Filter()
		library.LogCLI(fmt.Sprintf("Subscribing to claim requests for %s since %d", c.rules.Domain, *filter.Since), 4)
		msgs, err := c.store.Subscribe(subCtx, nostr.Filters{filter})
		if err != nil {
			library.LogCLI(err.Error(), 1)
		} else {
			c.consume(subCtx, msgs, eChan, sleepChan)
		}
		cancel()
		if ctx.Err() != nil {
			return
		}
		library.LogCLI("Restarting Eventcatcher", 4)
		select {
		case <-ctx.Done():
			return
		case <-time.After(resubscribeDelay):
		}
	}
}

func (c *Catcher) consume(ctx context.Context, msgs <-chan relays.Message, eChan chan<- nostr.Event, sleepChan <-chan bool) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-sleepChan:
			library.LogCLI("system sleep detected, resubscribing", 2)
			return
		case m, ok := <-msgs:
			if !ok {
				library.LogCLI("Terminating subscription: every relay has gone away", 3)
				return
			}
			switch {
			case m.Err != nil:
				library.LogCLI(m.Err.Error(), 2)
			case m.EOSE:
				library.LogCLI("Caught up with stored claim requests", 3)
			case m.Event != nil:
				if ev, ok := c.accept(m.Event); ok {
					select {
					case eChan <- ev:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}
}

// accept drops events whose id or signature does not verify, then repeats of
// an already delivered event. Forged copies never reach the seen-set.
func (c *Catcher) accept(ev *nostr.Event) (nostr.Event, bool) {
	if !relays.Verify(ev) {
		library.LogCLI(fmt.Sprintf("event_id=%s has an invalid id or signature", ev.ID), 2)
		c.metrics.IncRejection(claims.Reason(claims.ErrStructural))
		return nostr.Event{}, false
	}
	if !c.firstSighting(ev.ID) {
		c.metrics.IncDuplicatesDropped()
		return nostr.Event{}, false
	}
	c.metrics.IncClaimsReceived()
	return *ev, true
}

func (c *Catcher) firstSighting(id library.Sha256) bool {
	c.seenMu.Lock()
	defer c.seenMu.Unlock()
	now := c.now()
	for seenID, at := range c.seen {
		if now.Sub(at) > c.ttl {
			delete(c.seen, seenID)
		}
	}
	if _, exists := c.seen[id]; exists {
		return false
	}
	c.seen[id] = now
	return true
}
