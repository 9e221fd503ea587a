package claims

import (
	"errors"
)

var (
	// ErrStructural covers missing, duplicate or malformed tags and bad signatures.
	ErrStructural = errors.New("structural rejection")
	// ErrPolicy covers requests outside this service's domain or grouping label.
	ErrPolicy = errors.New("policy rejection")
	// ErrConflict means the identifier (or, under an exclusive key policy, the key) is already confirmed.
	ErrConflict = errors.New("conflict rejection")
	// ErrNetworkTimeout marks a probe that ran out of time; it never rejects a claim.
	ErrNetworkTimeout = errors.New("probe timed out")
	// ErrIssuance covers failures building or signing a confirmation.
	ErrIssuance = errors.New("issuance failed")
)

// Reason maps an error to the short label used in logs and metrics.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrStructural):
		return "structural"
	case errors.Is(err, ErrPolicy):
		return "policy"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrIssuance):
		return "issuance"
	}
	return "other"
}
