package claims

import (
	"time"

	"nip05bot/engine/library"
)

const (
	KindClaimRequest = 3036
	KindConfirmation = 30360

	DefaultGroupingLabel = "nip05.domain"
)

// KeyPolicy decides whether a key already bound to an identifier may claim another.
type KeyPolicy string

const (
	// KeyPolicyShared lets one key back several identifiers. Key conflicts are only counted.
	KeyPolicyShared KeyPolicy = "shared"
	// KeyPolicyExclusive rejects a claim when its key already holds any confirmation in the domain.
	KeyPolicyExclusive KeyPolicy = "exclusive"
)

// Rules scope every check and query to this service's namespace.
type Rules struct {
	Domain        string
	GroupingLabel string
	// Issuers restricts which signers' confirmations count. Empty means anyone.
	Issuers   []library.Account
	KeyPolicy KeyPolicy
}

// ClaimRequest is a validated kind 3036 event. Only Validate produces one.
type ClaimRequest struct {
	RequesterKey  library.Account
	Identifier    library.Identifier
	RequestedAt   time.Time
	SourceEventID library.Sha256
	ScopeLabel    string
	DomainLabel   string
	RelayHints    []string
}

// Confirmation binds Identifier to RequesterKey under DomainLabel. It is
// rendered as a signed kind 30360 event.
type Confirmation struct {
	Identifier    library.Identifier
	RequesterKey  library.Account
	DomainLabel   string
	ScopeLabel    string
	SourceEventID library.Sha256
	IssuedAt      time.Time
	RelayHints    []string
}

type ValidationResult struct {
	Claim     ClaimRequest
	Rejection error
}

func (v ValidationResult) Accepted() bool {
	return v.Rejection == nil
}

type ProbeResult struct {
	IdentifierClaimed bool
	KeyClaimed        bool
	// KeyChecked is false when the key query was skipped after an identifier conflict.
	KeyChecked bool
	TimedOut   bool
	// Unreachable is set when a query got no answer from any relay.
	Unreachable       bool
	ConflictSourceIDs map[library.Sha256]struct{}
}

func (p *ProbeResult) addConflict(id library.Sha256) {
	if p.ConflictSourceIDs == nil {
		p.ConflictSourceIDs = make(map[library.Sha256]struct{})
	}
	p.ConflictSourceIDs[id] = struct{}{}
}
