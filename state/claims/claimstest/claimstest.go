// Package claimstest builds signed claim requests and confirmations for tests.
package claimstest

import (
	"time"

	"github.com/nbd-wtf/go-nostr"
	"nip05bot/engine/library"
)

const (
	Domain        = "example.com"
	GroupingLabel = "nip05.domain"
)

// NewWallet returns a wallet holding a freshly generated key.
func NewWallet() library.Wallet {
	sk := nostr.GeneratePrivateKey()
	pk, err := nostr.GetPublicKey(sk)
	if err != nil {
		panic(err)
	}
	return library.Wallet{PrivateKey: sk, Account: pk}
}

// ClaimTags returns the tags of a well formed claim request for name.
func ClaimTags(pubkey, name string) nostr.Tags {
	return nostr.Tags{
		nostr.Tag{"L", GroupingLabel},
		nostr.Tag{"l", Domain, GroupingLabel},
		nostr.Tag{"p", pubkey},
		nostr.Tag{"d", name},
	}
}

// Signed signs a kind/tags event with w, created now.
func Signed(w library.Wallet, kind int, tags nostr.Tags) nostr.Event {
	e := nostr.Event{
		CreatedAt: nostr.Timestamp(time.Now().Unix()),
		Kind:      kind,
		Tags:      tags,
	}
	if err := w.Sign(&e); err != nil {
		panic(err)
	}
	return e
}

// Claim is a signed, valid claim request from w for name.
func Claim(w library.Wallet, name string) nostr.Event {
	return Signed(w, 3036, ClaimTags(w.Account, name))
}
