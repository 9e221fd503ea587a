package claims

import (
	"encoding/hex"
	"fmt"
	"regexp"

	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/nbd-wtf/go-nostr"
	"nip05bot/engine/library"
)

var (
	identifierPattern = regexp.MustCompile(`^[a-z0-9_.-]*$`)
	pubkeyPattern     = regexp.MustCompile(`^[0-9a-f]{64}$`)
)

// requiredTags must each appear exactly once on a claim request.
var requiredTags = []string{"L", "l", "p", "d"}

// Validate checks a claim request event against rules. It does no I/O.
// The first failed rule rejects the event and is logged.
func Validate(event nostr.Event, rules Rules) ValidationResult {
	claim, err := parseClaim(event, rules)
	if err != nil {
		library.LogCLI(fmt.Sprintf("event_id=%s %s", event.ID, err), 2)
		return ValidationResult{Rejection: err}
	}
	return ValidationResult{Claim: claim}
}

func parseClaim(event nostr.Event, rules Rules) (ClaimRequest, error) {
	if event.ID != event.GetID() {
		return ClaimRequest{}, fmt.Errorf("%w: id does not match the event content", ErrStructural)
	}
	if event.Kind != KindClaimRequest {
		return ClaimRequest{}, fmt.Errorf("%w: kind %d is not a claim request", ErrStructural, event.Kind)
	}
	values := make(map[string]nostr.Tag, len(requiredTags))
	for _, key := range requiredTags {
		switch n := library.CountTags(event, key); {
		case n == 0:
			return ClaimRequest{}, fmt.Errorf("%w: missing tag=%s", ErrStructural, key)
		case n > 1:
			return ClaimRequest{}, fmt.Errorf("%w: has duplicate %q tags", ErrStructural, key)
		}
		tag, _ := library.GetFirstTagFull(event, key)
		if len(tag) < 2 {
			return ClaimRequest{}, fmt.Errorf("%w: tag %s requires length of two", ErrStructural, key)
		}
		values[key] = tag
	}

	pubkey := values["p"][1]
	if !IsValidPublicKey(pubkey) {
		return ClaimRequest{}, fmt.Errorf("%w: \"p\" tag is not a valid public key", ErrStructural)
	}
	username := values["d"][1]
	if len(username) == 0 {
		return ClaimRequest{}, fmt.Errorf("%w: \"d\" tag is empty", ErrStructural)
	}
	if domain := values["l"][1]; domain != rules.Domain {
		return ClaimRequest{}, fmt.Errorf("%w: \"l\" tag has invalid domain name=%s, domain name should be %s", ErrPolicy, domain, rules.Domain)
	}
	if label := values["L"][1]; label != rules.GroupingLabel {
		return ClaimRequest{}, fmt.Errorf("%w: \"L\" tag has label=%s, should be %s", ErrPolicy, label, rules.GroupingLabel)
	}
	if !identifierPattern.MatchString(username) {
		return ClaimRequest{}, fmt.Errorf("%w: invalid username=%s, it must match %s", ErrStructural, username, identifierPattern)
	}

	claim := ClaimRequest{
		RequesterKey:  pubkey,
		Identifier:    username,
		RequestedAt:   event.CreatedAt.Time(),
		SourceEventID: event.ID,
		ScopeLabel:    values["L"][1],
		DomainLabel:   values["l"][1],
	}
	if hints, ok := library.GetFirstTagFull(event, "r"); ok && len(hints) > 1 {
		claim.RelayHints = append([]string(nil), hints[1:]...)
	}
	return claim, nil
}

// IsValidPublicKey reports whether s is a lowercase hex BIP-340 x-only public key.
func IsValidPublicKey(s string) bool {
	if !pubkeyPattern.MatchString(s) {
		return false
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return false
	}
	_, err = schnorr.ParsePubKey(b)
	return err == nil
}
