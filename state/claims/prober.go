package claims

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"nip05bot/engine/library"
	"nip05bot/engine/metrics"
	"nip05bot/messaging/relays"
)

// Prober looks for confirmations already on the relays that would conflict
// with a new claim. A query that times out counts as "no conflict observed";
// two claims racing inside one timeout window can therefore both pass.
type Prober struct {
	store   relays.Store
	rules   Rules
	timeout time.Duration
	metrics *metrics.Metrics
}

func NewProber(store relays.Store, rules Rules, timeout time.Duration, m *metrics.Metrics) *Prober {
	return &Prober{store: store, rules: rules, timeout: timeout, metrics: m}
}

// Probe asks whether identifier, then key, already hold a confirmation under
// domain. An identifier conflict is enough to skip the key query.
func (p *Prober) Probe(ctx context.Context, identifier library.Identifier, key library.Account, domain string) (r ProbeResult) {
	byIdentifier := p.filter(domain)
	byIdentifier.Tags["d"] = []string{identifier}
	ev, err := p.first(ctx, byIdentifier)
	if ev != nil {
		library.LogCLI(fmt.Sprintf("Found username=%s claimed via %s", identifier, ev.ID), 3)
		r.IdentifierClaimed = true
		r.addConflict(ev.ID)
		p.metrics.IncConflict("identifier")
		return
	}
	r.degrade(err)

	byKey := p.filter(domain)
	byKey.Tags["p"] = []string{key}
	if p.rules.KeyPolicy != KeyPolicyExclusive {
		byKey.Tags["d"] = []string{identifier}
	}
	r.KeyChecked = true
	if ev, err = p.first(ctx, byKey); ev != nil {
		library.LogCLI(fmt.Sprintf("Found pubkey=%s already claimed nip05 via %s", key, ev.ID), 3)
		r.KeyClaimed = true
		r.addConflict(ev.ID)
		p.metrics.IncConflict("key")
	}
	r.degrade(err)
	return
}

func (p *Prober) filter(domain string) nostr.Filter {
	f := nostr.Filter{
		Kinds: []int{KindConfirmation},
		Tags: nostr.TagMap{
			"L": []string{p.rules.GroupingLabel},
			"l": []string{domain},
		},
	}
	if len(p.rules.Issuers) > 0 {
		f.Authors = p.rules.Issuers
	}
	return f
}

// first runs one bounded query. Any error means nothing was observed and is
// treated as no conflict.
func (p *Prober) first(ctx context.Context, f nostr.Filter) (*nostr.Event, error) {
	ev, err := relays.FirstMatch(ctx, p.store, f, p.timeout)
	switch {
	case err == nil:
		return ev, nil
	case errors.Is(err, relays.ErrQueryTimeout):
		library.LogCLI(fmt.Errorf("%w: %v, treating as no conflict", ErrNetworkTimeout, err), 2)
		p.metrics.IncProbeTimeouts()
	case errors.Is(err, relays.ErrTransport):
		library.LogCLI(fmt.Sprintf("probe reached no relay, treating as no conflict: %s", err), 1)
		p.metrics.IncProbeUnreachable()
	default:
		library.LogCLI(fmt.Sprintf("probe query failed, treating as no conflict: %s", err), 1)
	}
	return nil, err
}

func (r *ProbeResult) degrade(err error) {
	switch {
	case errors.Is(err, relays.ErrQueryTimeout):
		r.TimedOut = true
	case errors.Is(err, relays.ErrTransport):
		r.Unreachable = true
	}
}
