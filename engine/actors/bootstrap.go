package actors

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"golang.org/x/exp/slices"
	"nip05bot/engine/library"
	"nip05bot/state/claims"
)

// BootstrapEvents builds the events the service publishes about itself on
// startup: its profile advertising username@domain, its NIP-65 relay list and
// a claim request for username that the engine then confirms like any other.
func BootstrapEvents(c Config, w library.Wallet) ([]nostr.Event, error) {
	now := nostr.Timestamp(time.Now().Unix())

	profile := make(map[string]any)
	if c.ProfileJSON != "" {
		if err := json.Unmarshal([]byte(c.ProfileJSON), &profile); err != nil {
			return nil, fmt.Errorf("profileJSON is not a JSON object: %w", err)
		}
	}
	profile["nip05"] = fmt.Sprintf("%s@%s", c.Username, c.DomainName)
	content, err := json.Marshal(profile)
	if err != nil {
		return nil, err
	}

	var relayList nostr.Tags
	for _, url := range c.Relays {
		relayList = append(relayList, nostr.Tag{"r", url})
	}

	events := []nostr.Event{
		{CreatedAt: now, Kind: 0, Content: string(content)},
		{CreatedAt: now, Kind: 10002, Tags: relayList},
		{
			CreatedAt: now,
			Kind:      claims.KindClaimRequest,
			Tags: nostr.Tags{
				append(nostr.Tag{"r"}, c.Relays...),
				nostr.Tag{"L", c.GroupingLabel},
				nostr.Tag{"l", c.DomainName, c.GroupingLabel},
				nostr.Tag{"p", w.Account},
				nostr.Tag{"d", c.Username},
			},
		},
	}
	for i := range events {
		if err := w.Sign(&events[i]); err != nil {
			return nil, err
		}
	}
	return events, nil
}

// BootstrapRelays is where bootstrap events go: the claim relays plus any
// extra profile relays.
func BootstrapRelays(c Config) []string {
	urls := slices.Clone(c.Relays)
	for _, url := range c.ProfileRelays {
		if !slices.Contains(urls, url) {
			urls = append(urls, url)
		}
	}
	return urls
}
