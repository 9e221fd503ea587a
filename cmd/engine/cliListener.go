package main

import (
	"fmt"
	"strings"

	"github.com/eiannone/keyboard"
	"github.com/nbd-wtf/go-nostr/nip19"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/viper"
	"nip05bot/engine/library"
)

// cliListener is a cheap and nasty way to inspect a running engine. It listens for keypresses and executes commands.
func cliListener(quit func(), conf *viper.Viper, wallet library.Wallet, reg *prometheus.Registry) {
	fmt.Println("VIEW CURRENT STATE:\ns: claim counters\nw: service identity\nc: engine config\nq: to quit")
	for {
		r, k, err := keyboard.GetSingleKey()
		if err != nil {
			library.LogCLI(err.Error(), 1)
			return
		}
		str := string(r)
		switch str {
		default:
			if k == keyboard.KeyEnter {
				fmt.Println("\n-----------------------------------")
				break
			}
			if r == 0 {
				break
			}
			fmt.Println("Key " + str + " is not bound to any command. See cliListener.go for more details.")
		case "s":
			families, err := reg.Gather()
			if err != nil {
				library.LogCLI(err.Error(), 2)
				break
			}
			for _, family := range families {
				if !strings.HasPrefix(family.GetName(), "nip05_") {
					continue
				}
				for _, metric := range family.GetMetric() {
					var labels string
					for _, l := range metric.GetLabel() {
						labels += fmt.Sprintf(" %s=%s", l.GetName(), l.GetValue())
					}
					fmt.Printf("%s%s: %v\n", family.GetName(), labels, metric.GetCounter().GetValue())
				}
			}
		case "w":
			npub, _ := nip19.EncodePublicKey(wallet.Account)
			fmt.Printf("Service pubkey: %s\nService npub: %s\n", wallet.Account, npub)
		case "c":
			fmt.Println("CURRENT CONFIG")
			for k, v := range conf.AllSettings() {
				if k == "nsec" {
					v = "<redacted>"
				}
				fmt.Printf("\nKey: %s; Value: %v\n", k, v)
			}
		case "q":
			quit()
			return
		}
	}
}
