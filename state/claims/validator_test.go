package claims

import (
	"strings"
	"testing"

	"github.com/nbd-wtf/go-nostr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nip05bot/state/claims/claimstest"
)

func testRules() Rules {
	return Rules{
		Domain:        claimstest.Domain,
		GroupingLabel: claimstest.GroupingLabel,
		KeyPolicy:     KeyPolicyShared,
	}
}

func TestValidateAcceptsWellFormedClaims(t *testing.T) {
	w := claimstest.NewWallet()
	for _, name := range []string{"alice", "bob_2", "c.d-e", "0", "a.b.c_d-e0123456789"} {
		t.Run(name, func(t *testing.T) {
			v := Validate(claimstest.Claim(w, name), testRules())
			require.True(t, v.Accepted(), "rejection: %v", v.Rejection)
			assert.Equal(t, name, v.Claim.Identifier)
			assert.Equal(t, w.Account, v.Claim.RequesterKey)
			assert.Equal(t, claimstest.Domain, v.Claim.DomainLabel)
			assert.Equal(t, claimstest.GroupingLabel, v.Claim.ScopeLabel)
			assert.NotEmpty(t, v.Claim.SourceEventID)
		})
	}
}

func TestValidateRejections(t *testing.T) {
	w := claimstest.NewWallet()
	base := func() nostr.Tags { return claimstest.ClaimTags(w.Account, "alice") }
	without := func(key string) nostr.Tags {
		var tags nostr.Tags
		for _, tag := range base() {
			if tag[0] != key {
				tags = append(tags, tag)
			}
		}
		return tags
	}
	replace := func(key string, tag nostr.Tag) nostr.Tags {
		return append(without(key), tag)
	}

	tests := []struct {
		name string
		kind int
		tags nostr.Tags
		want error
	}{
		{"wrong kind", 1, base(), ErrStructural},
		{"missing p", 3036, without("p"), ErrStructural},
		{"missing d", 3036, without("d"), ErrStructural},
		{"missing l", 3036, without("l"), ErrStructural},
		{"missing L", 3036, without("L"), ErrStructural},
		{"duplicate d", 3036, append(base(), nostr.Tag{"d", "bob"}), ErrStructural},
		{"duplicate p", 3036, append(base(), nostr.Tag{"p", w.Account}), ErrStructural},
		{"duplicate l", 3036, append(base(), nostr.Tag{"l", claimstest.Domain}), ErrStructural},
		{"duplicate L", 3036, append(base(), nostr.Tag{"L", claimstest.GroupingLabel}), ErrStructural},
		{"p without value", 3036, replace("p", nostr.Tag{"p"}), ErrStructural},
		{"short pubkey", 3036, replace("p", nostr.Tag{"p", w.Account[:63]}), ErrStructural},
		{"uppercase pubkey", 3036, replace("p", nostr.Tag{"p", "F" + w.Account[1:]}), ErrStructural},
		{"pubkey off the curve", 3036, replace("p", nostr.Tag{"p", "ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff"}), ErrStructural},
		{"empty username", 3036, replace("d", nostr.Tag{"d", ""}), ErrStructural},
		{"other domain", 3036, replace("l", nostr.Tag{"l", "evil.com", claimstest.GroupingLabel}), ErrPolicy},
		{"domain differs in case", 3036, replace("l", nostr.Tag{"l", "Example.com", claimstest.GroupingLabel}), ErrPolicy},
		{"other grouping label", 3036, replace("L", nostr.Tag{"L", "other.label"}), ErrPolicy},
		{"uppercase username", 3036, replace("d", nostr.Tag{"d", "Alice"}), ErrStructural},
		{"username with space", 3036, replace("d", nostr.Tag{"d", "al ice"}), ErrStructural},
		{"username with at sign", 3036, replace("d", nostr.Tag{"d", "alice@example.com"}), ErrStructural},
		{"unicode username", 3036, replace("d", nostr.Tag{"d", "алиса"}), ErrStructural},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Validate(claimstest.Signed(w, tt.kind, tt.tags), testRules())
			assert.False(t, v.Accepted())
			assert.ErrorIs(t, v.Rejection, tt.want)
		})
	}
}

func TestValidateRejectsMismatchedID(t *testing.T) {
	w := claimstest.NewWallet()
	zeroed := claimstest.Claim(w, "ghost")
	zeroed.ID = strings.Repeat("0", 64)
	v := Validate(zeroed, testRules())
	assert.ErrorIs(t, v.Rejection, ErrStructural)

	// same id and signature, different content
	genuine := claimstest.Claim(w, "alice")
	copied := claimstest.Claim(w, "mallory")
	copied.ID, copied.Sig = genuine.ID, genuine.Sig
	v = Validate(copied, testRules())
	assert.ErrorIs(t, v.Rejection, ErrStructural)
	assert.Empty(t, v.Claim.SourceEventID)
}

func TestValidateShortCircuitsInOrder(t *testing.T) {
	w := claimstest.NewWallet()
	// bad domain and bad username: the domain rule comes first
	tags := nostr.Tags{
		nostr.Tag{"L", claimstest.GroupingLabel},
		nostr.Tag{"l", "evil.com", claimstest.GroupingLabel},
		nostr.Tag{"p", w.Account},
		nostr.Tag{"d", "ALICE"},
	}
	v := Validate(claimstest.Signed(w, KindClaimRequest, tags), testRules())
	assert.ErrorIs(t, v.Rejection, ErrPolicy)
}

func TestValidateForwardsRelayHints(t *testing.T) {
	w := claimstest.NewWallet()
	tags := append(claimstest.ClaimTags(w.Account, "alice"), nostr.Tag{"r", "wss://a.example", "wss://b.example"})
	v := Validate(claimstest.Signed(w, KindClaimRequest, tags), testRules())
	require.True(t, v.Accepted())
	assert.Equal(t, []string{"wss://a.example", "wss://b.example"}, v.Claim.RelayHints)
}

func TestValidateAcceptsClaimsForOtherKeys(t *testing.T) {
	signer := claimstest.NewWallet()
	subject := claimstest.NewWallet()
	v := Validate(claimstest.Signed(signer, KindClaimRequest, claimstest.ClaimTags(subject.Account, "bob")), testRules())
	require.True(t, v.Accepted())
	assert.Equal(t, subject.Account, v.Claim.RequesterKey)
}

func TestIsValidPublicKey(t *testing.T) {
	w := claimstest.NewWallet()
	assert.True(t, IsValidPublicKey(w.Account))
	assert.False(t, IsValidPublicKey(""))
	assert.False(t, IsValidPublicKey("npub1xyz"))
	assert.False(t, IsValidPublicKey(w.Account+"00"))
}

func TestReason(t *testing.T) {
	assert.Equal(t, "", Reason(nil))
	assert.Equal(t, "structural", Reason(Validate(nostr.Event{Kind: 1}, testRules()).Rejection))
	assert.Equal(t, "conflict", Reason(ErrConflict))
	assert.Equal(t, "policy", Reason(ErrPolicy))
	assert.Equal(t, "issuance", Reason(ErrIssuance))
	assert.Equal(t, "other", Reason(assert.AnError))
}
