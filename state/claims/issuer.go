package claims

import (
	"context"
	"fmt"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"nip05bot/engine/library"
	"nip05bot/messaging/relays"
)

// Issuer turns accepted, unclaimed requests into signed confirmations and
// hands them to the relays without waiting for acknowledgement.
type Issuer struct {
	store  relays.Store
	wallet library.Wallet
	rules  Rules
	now    func() time.Time
}

func NewIssuer(store relays.Store, wallet library.Wallet, rules Rules) *Issuer {
	return &Issuer{store: store, wallet: wallet, rules: rules, now: time.Now}
}

// Issuance is a published confirmation. Results yields each relay's ack and
// is closed once all have answered.
type Issuance struct {
	Confirmation Confirmation
	Event        nostr.Event
	Results      <-chan relays.PublishResult
}

// Decide returns the confirmation for an accepted claim, or the reason none may be issued.
func (i *Issuer) Decide(v ValidationResult, probe ProbeResult) (Confirmation, error) {
	if !v.Accepted() {
		return Confirmation{}, v.Rejection
	}
	claim := v.Claim
	if probe.IdentifierClaimed {
		return Confirmation{}, fmt.Errorf("%w: username=%s is already claimed", ErrConflict, claim.Identifier)
	}
	if probe.KeyClaimed && i.rules.KeyPolicy == KeyPolicyExclusive {
		return Confirmation{}, fmt.Errorf("%w: pubkey=%s already holds a nip05 under %s", ErrConflict, claim.RequesterKey, claim.DomainLabel)
	}
	return Confirmation{
		Identifier:    claim.Identifier,
		RequesterKey:  claim.RequesterKey,
		DomainLabel:   claim.DomainLabel,
		ScopeLabel:    claim.ScopeLabel,
		SourceEventID: claim.SourceEventID,
		IssuedAt:      i.now(),
		RelayHints:    claim.RelayHints,
	}, nil
}

// Event renders c as a kind 30360 event signed by the service wallet.
func (i *Issuer) Event(c Confirmation) (nostr.Event, error) {
	e := nostr.Event{
		CreatedAt: nostr.Timestamp(c.IssuedAt.Unix()),
		Kind:      KindConfirmation,
		Tags: nostr.Tags{
			nostr.Tag{"L", c.ScopeLabel},
			nostr.Tag{"p", c.RequesterKey},
			nostr.Tag{"l", c.DomainLabel},
			nostr.Tag{"d", c.Identifier},
			nostr.Tag{"e", c.SourceEventID},
		},
	}
	if len(c.RelayHints) > 0 {
		e.Tags = append(e.Tags, append(nostr.Tag{"r"}, c.RelayHints...))
	}
	if err := i.wallet.Sign(&e); err != nil {
		return nostr.Event{}, fmt.Errorf("%w: %v", ErrIssuance, err)
	}
	return e, nil
}

// Issue decides, signs and publishes. Publishing the same claim twice is safe:
// both events carry the same identifier, key, domain and back-reference.
func (i *Issuer) Issue(ctx context.Context, v ValidationResult, probe ProbeResult) (*Issuance, error) {
	c, err := i.Decide(v, probe)
	if err != nil {
		return nil, err
	}
	e, err := i.Event(c)
	if err != nil {
		return nil, err
	}
	library.LogCLI(fmt.Sprintf("event_id=%s issuing confirmation %s for %s@%s", c.SourceEventID, e.ID, c.Identifier, c.DomainLabel), 4)
	return &Issuance{
		Confirmation: c,
		Event:        e,
		Results:      i.store.Publish(ctx, e),
	}, nil
}
