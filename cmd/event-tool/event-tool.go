package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"github.com/spf13/viper"
	"nip05bot/engine/actors"
	"nip05bot/engine/library"
	"nip05bot/messaging/relays"
	"nip05bot/state/claims"
)

const waitForConfirmation = 10 * time.Second

// event-tool publishes a claim request for a name from a throwaway key (or the
// nsec given as second argument) and waits for the engine to confirm it.
func main() {
	if len(os.Args) < 2 {
		fmt.Println("usage: event-tool <name> [nsec]")
		os.Exit(2)
	}
	conf := viper.New()
	actors.InitConfig(conf)
	cfg, err := actors.LoadConfig(conf)
	if err != nil {
		library.LogCLI(err.Error(), 0)
		os.Exit(1)
	}
	secret := nostr.GeneratePrivateKey()
	if len(os.Args) > 2 {
		secret = os.Args[2]
	}
	wallet, err := actors.LoadWallet(actors.Config{Nsec: secret})
	if err != nil {
		library.LogCLI(err.Error(), 0)
		os.Exit(1)
	}

	pool := relays.NewPool(cfg.Relays)
	defer pool.Close()
	ctx := context.Background()

	e := createEvent(cfg, wallet, os.Args[1])
	fmt.Println(e.ID)
	for result := range pool.Publish(ctx, e) {
		if result.Err != nil {
			library.LogCLI(result.Err.Error(), 2)
		}
	}

	filter := nostr.Filter{
		Kinds: []int{claims.KindConfirmation},
		Tags: nostr.TagMap{
			"L": []string{cfg.GroupingLabel},
			"l": []string{cfg.DomainName},
			"d": []string{os.Args[1]},
			"p": []string{wallet.Account},
		},
	}
	deadline := time.Now().Add(waitForConfirmation)
	for time.Now().Before(deadline) {
		if ev, _ := relays.FirstMatch(ctx, pool, filter, time.Second); ev != nil {
			fmt.Printf("confirmed by %s in event %s\n", ev.PubKey, ev.ID)
			return
		}
		time.Sleep(time.Second)
	}
	fmt.Println("no confirmation seen")
	os.Exit(1)
}

func createEvent(cfg actors.Config, wallet library.Wallet, name string) nostr.Event {
	e := nostr.Event{
		CreatedAt: nostr.Timestamp(time.Now().Unix()),
		Kind:      claims.KindClaimRequest,
		Tags: nostr.Tags{
			nostr.Tag{"L", cfg.GroupingLabel},
			nostr.Tag{"l", cfg.DomainName, cfg.GroupingLabel},
			nostr.Tag{"p", wallet.Account},
			nostr.Tag{"d", name},
		},
		Content: "Hello, world!",
	}
	if err := wallet.Sign(&e); err != nil {
		library.LogCLI(err.Error(), 0)
		os.Exit(1)
	}
	return e
}
