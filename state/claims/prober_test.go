package claims

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nip05bot/engine/library"
	"nip05bot/engine/metrics"
	"nip05bot/messaging/relays"
	"nip05bot/state/claims/claimstest"
)

// silentStore never answers, so every query runs into its timeout.
type silentStore struct{}

func (silentStore) Subscribe(ctx context.Context, _ nostr.Filters) (<-chan relays.Message, error) {
	out := make(chan relays.Message)
	go func() {
		<-ctx.Done()
		close(out)
	}()
	return out, nil
}

func (silentStore) Publish(context.Context, nostr.Event) <-chan relays.PublishResult {
	results := make(chan relays.PublishResult)
	close(results)
	return results
}

// unreachableStore reports every relay as failed before its end of stored events.
type unreachableStore struct{ silentStore }

func (unreachableStore) Subscribe(ctx context.Context, _ nostr.Filters) (<-chan relays.Message, error) {
	out := make(chan relays.Message, 2)
	out <- relays.Message{Relay: "wss://down.example", Err: fmt.Errorf("%w: refused", relays.ErrTransport)}
	out <- relays.Message{EOSE: true, Err: fmt.Errorf("%w: none of 1 relays answered", relays.ErrTransport)}
	close(out)
	return out, nil
}

// confirm publishes a confirmation for requester's claim on name, signed by service.
func confirm(t *testing.T, store relays.Store, service library.Wallet, rules Rules, requester library.Wallet, name string) nostr.Event {
	t.Helper()
	issuance, err := NewIssuer(store, service, rules).Issue(context.Background(), Validate(claimstest.Claim(requester, name), rules), ProbeResult{})
	require.NoError(t, err)
	return issuance.Event
}

func TestProbeFindsNothingInEmptyDomain(t *testing.T) {
	p := NewProber(relays.NewMemory(), testRules(), time.Second, nil)
	r := p.Probe(context.Background(), "alice", claimstest.NewWallet().Account, claimstest.Domain)
	assert.False(t, r.IdentifierClaimed)
	assert.False(t, r.KeyClaimed)
	assert.True(t, r.KeyChecked)
	assert.False(t, r.TimedOut)
	assert.Empty(t, r.ConflictSourceIDs)
}

func TestProbeMarksUnreachableRelays(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	p := NewProber(unreachableStore{}, testRules(), time.Second, m)
	r := p.Probe(context.Background(), "alice", claimstest.NewWallet().Account, claimstest.Domain)
	assert.False(t, r.IdentifierClaimed)
	assert.False(t, r.KeyClaimed)
	assert.True(t, r.Unreachable)
	assert.False(t, r.TimedOut)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ProbeUnreachable))
}

func TestProbeIdentifierConflictSkipsKeyQuery(t *testing.T) {
	store := relays.NewMemory()
	service := claimstest.NewWallet()
	existing := confirm(t, store, service, testRules(), claimstest.NewWallet(), "alice")

	p := NewProber(store, testRules(), time.Second, nil)
	r := p.Probe(context.Background(), "alice", claimstest.NewWallet().Account, claimstest.Domain)
	assert.True(t, r.IdentifierClaimed)
	assert.False(t, r.KeyChecked)
	assert.Contains(t, r.ConflictSourceIDs, existing.ID)
}

func TestProbeIgnoresOtherDomainsAndNames(t *testing.T) {
	store := relays.NewMemory()
	service := claimstest.NewWallet()
	confirm(t, store, service, testRules(), claimstest.NewWallet(), "bob")

	p := NewProber(store, testRules(), time.Second, nil)
	assert.False(t, p.Probe(context.Background(), "alice", claimstest.NewWallet().Account, claimstest.Domain).IdentifierClaimed)
	assert.False(t, p.Probe(context.Background(), "bob", claimstest.NewWallet().Account, "other.org").IdentifierClaimed)
}

func TestProbeKeyConflictUnderPolicies(t *testing.T) {
	store := relays.NewMemory()
	service := claimstest.NewWallet()
	requester := claimstest.NewWallet()
	confirm(t, store, service, testRules(), requester, "alice")

	shared := NewProber(store, testRules(), time.Second, nil)
	r := shared.Probe(context.Background(), "alice2", requester.Account, claimstest.Domain)
	assert.False(t, r.IdentifierClaimed)
	assert.False(t, r.KeyClaimed, "shared policy only looks at the key for the same identifier")

	rules := testRules()
	rules.KeyPolicy = KeyPolicyExclusive
	exclusive := NewProber(store, rules, time.Second, nil)
	r = exclusive.Probe(context.Background(), "alice2", requester.Account, claimstest.Domain)
	assert.False(t, r.IdentifierClaimed)
	assert.True(t, r.KeyClaimed)
	assert.Len(t, r.ConflictSourceIDs, 1)
}

func TestProbeOnlyTrustsConfiguredIssuers(t *testing.T) {
	store := relays.NewMemory()
	impostor := claimstest.NewWallet()
	confirm(t, store, impostor, testRules(), claimstest.NewWallet(), "alice")

	rules := testRules()
	rules.Issuers = []library.Account{claimstest.NewWallet().Account}
	p := NewProber(store, rules, time.Second, nil)
	assert.False(t, p.Probe(context.Background(), "alice", claimstest.NewWallet().Account, claimstest.Domain).IdentifierClaimed)
}

func TestProbeTimeoutMeansNoConflictObserved(t *testing.T) {
	p := NewProber(silentStore{}, testRules(), 20*time.Millisecond, nil)
	start := time.Now()
	r := p.Probe(context.Background(), "alice", claimstest.NewWallet().Account, claimstest.Domain)
	assert.False(t, r.IdentifierClaimed)
	assert.False(t, r.KeyClaimed)
	assert.True(t, r.TimedOut)
	assert.Less(t, time.Since(start), 2*time.Second)
}
