package main

import (
	"context"
	"fmt"

	"nip05bot/engine/actors"
	"nip05bot/engine/library"
	"nip05bot/messaging/relays"
)

// bootstrap publishes the service profile, relay list and self-claim.
func bootstrap(ctx context.Context, cfg actors.Config, wallet library.Wallet, store relays.Store) {
	events, err := actors.BootstrapEvents(cfg, wallet)
	if err != nil {
		library.LogCLI(err.Error(), 1)
		return
	}
	target := store
	if !cfg.Offline {
		pool := relays.NewPool(actors.BootstrapRelays(cfg))
		defer pool.Close()
		target = pool
	}
	for _, e := range events {
		for result := range target.Publish(ctx, e) {
			if result.Err != nil {
				library.LogCLI(result.Err.Error(), 2)
				continue
			}
			library.LogCLI(fmt.Sprintf("published kind %d event %s to %s", e.Kind, e.ID, result.Relay), 4)
		}
	}
}
