package library

import (
	"fmt"

	"github.com/nbd-wtf/go-nostr"
)

// Sign stamps e with the wallet account, computes its ID and signs it.
func (w Wallet) Sign(e *nostr.Event) error {
	e.PubKey = w.Account
	e.ID = e.GetID()
	if err := e.Sign(w.PrivateKey); err != nil {
		return fmt.Errorf("could not sign event kind %d: %w", e.Kind, err)
	}
	return nil
}
