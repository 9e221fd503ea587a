package eventconductor

import (
	"context"
	"fmt"

	"github.com/nbd-wtf/go-nostr"
	"github.com/sasha-s/go-deadlock"
	"nip05bot/engine/library"
	"nip05bot/engine/metrics"
	"nip05bot/messaging/eventcatcher"
	"nip05bot/state/claims"
)

type State string

const (
	Listening  State = "LISTENING"
	Validating State = "VALIDATING"
	Probing    State = "PROBING"
	Issuing    State = "ISSUING"
)

// Conductor drives claim requests from the subscription through validation,
// probing and issuance. Requests are handled concurrently: the prober is the
// only guard against two claims for the same identifier.
type Conductor struct {
	catcher *eventcatcher.Catcher
	rules   claims.Rules
	prober  *claims.Prober
	issuer  *claims.Issuer
	metrics *metrics.Metrics
	wait    *deadlock.WaitGroup
}

func New(catcher *eventcatcher.Catcher, rules claims.Rules, prober *claims.Prober, issuer *claims.Issuer, m *metrics.Metrics) *Conductor {
	return &Conductor{
		catcher: catcher,
		rules:   rules,
		prober:  prober,
		issuer:  issuer,
		metrics: m,
		wait:    &deadlock.WaitGroup{},
	}
}

// Run listens until ctx is cancelled, then waits for in-flight requests.
func (c *Conductor) Run(ctx context.Context) {
	eventChan := make(chan nostr.Event)
	go c.catcher.SubscribeToClaims(ctx, eventChan)
	library.LogCLI(fmt.Sprintf("state=%s domain=%s", Listening, c.rules.Domain), 4)
L:
	for {
		select {
		case event := <-eventChan:
			c.wait.Add(1)
			go func(event nostr.Event) {
				defer c.wait.Done()
				_, _ = c.Handle(ctx, event)
			}(event)
		case <-ctx.Done():
			break L
		}
	}
	c.wait.Wait()
	library.LogCLI("Conductor has shut down", 4)
}

// Handle takes one claim request to a decision. A nil error means a
// confirmation was signed and handed to the relays; any rejection is final
// for this request.
func (c *Conductor) Handle(ctx context.Context, event nostr.Event) (*claims.Issuance, error) {
	transition(event.ID, Validating)
	v := claims.Validate(event, c.rules)
	if !v.Accepted() {
		// Validate has already logged the failed rule.
		return c.count(event.ID, v.Rejection)
	}

	transition(event.ID, Probing)
	probe := c.prober.Probe(ctx, v.Claim.Identifier, v.Claim.RequesterKey, v.Claim.DomainLabel)
	if probe.KeyClaimed && !probe.IdentifierClaimed {
		library.LogCLI(fmt.Sprintf("event_id=%s pubkey=%s already holds a confirmation (key policy %s)", event.ID, v.Claim.RequesterKey, c.rules.KeyPolicy), 4)
	}

	transition(event.ID, Issuing)
	issuance, err := c.issuer.Issue(ctx, v, probe)
	if err != nil {
		return c.reject(event.ID, err)
	}
	c.metrics.IncConfirmationsIssued()
	go c.observe(issuance)
	transition(event.ID, Listening)
	return issuance, nil
}

func (c *Conductor) reject(id library.Sha256, err error) (*claims.Issuance, error) {
	library.LogCLI(fmt.Sprintf("event_id=%s rejected: %s", id, err), 2)
	return c.count(id, err)
}

func (c *Conductor) count(id library.Sha256, err error) (*claims.Issuance, error) {
	c.metrics.IncRejection(claims.Reason(err))
	transition(id, Listening)
	return nil, err
}

// observe logs each relay's answer to a published confirmation.
func (c *Conductor) observe(issuance *claims.Issuance) {
	var acked int
	for result := range issuance.Results {
		if result.Err != nil {
			library.LogCLI(fmt.Sprintf("confirmation %s: %s", issuance.Event.ID, result.Err), 2)
			c.metrics.IncPublishAck("failed")
			continue
		}
		acked++
		c.metrics.IncPublishAck("ok")
	}
	if acked == 0 {
		library.LogCLI(fmt.Sprintf("confirmation %s for event_id=%s was not accepted by any relay", issuance.Event.ID, issuance.Confirmation.SourceEventID), 1)
		return
	}
	library.LogCLI(fmt.Sprintf("confirmation %s published to %d relays", issuance.Event.ID, acked), 4)
}

func transition(id library.Sha256, s State) {
	library.LogCLI(fmt.Sprintf("event_id=%s state=%s", id, s), 3)
}
