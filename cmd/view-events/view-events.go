package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"github.com/spf13/viper"
	"nip05bot/engine/actors"
	"nip05bot/engine/library"
	"nip05bot/messaging/relays"
	"nip05bot/state/claims"
)

// view-events prints every confirmation this service has issued for its
// domain, oldest first, flagging identifiers confirmed more than once.
func main() {
	conf := viper.New()
	actors.InitConfig(conf)
	cfg, err := actors.LoadConfig(conf)
	if err != nil {
		library.LogCLI(err.Error(), 0)
		os.Exit(1)
	}
	wallet, err := actors.LoadWallet(cfg)
	if err != nil {
		library.LogCLI(err.Error(), 0)
		os.Exit(1)
	}
	pool := relays.NewPool(cfg.Relays)
	defer pool.Close()

	events, err := relays.Collect(context.Background(), pool, nostr.Filter{
		Kinds:   []int{claims.KindConfirmation},
		Authors: []string{wallet.Account},
		Tags: nostr.TagMap{
			"L": []string{cfg.GroupingLabel},
			"l": []string{cfg.DomainName},
		},
	}, 20*time.Second)
	if err != nil {
		library.LogCLI(err.Error(), 2)
	}
	sort.Slice(events, func(i, j int) bool { return events[i].CreatedAt < events[j].CreatedAt })

	handled := make(map[string]int)
	for _, event := range events {
		name, _ := library.GetFirstTag(event, "d")
		pubkey, _ := library.GetFirstTag(event, "p")
		handled[name]++
		marker := ""
		if handled[name] > 1 {
			marker = " (shadowed, first write wins)"
		}
		fmt.Printf("%s %s@%s -> %s [%s]%s\n", event.CreatedAt.Time().Format(time.RFC3339), name, cfg.DomainName, pubkey, event.ID, marker)
	}
	fmt.Printf("\n%d confirmations, %d identifiers\n", len(events), len(handled))
}
