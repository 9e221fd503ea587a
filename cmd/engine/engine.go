package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
	"nip05bot/engine/actors"
	"nip05bot/engine/library"
	"nip05bot/engine/metrics"
	"nip05bot/messaging/eventcatcher"
	"nip05bot/messaging/eventconductor"
	"nip05bot/messaging/nostrjson"
	"nip05bot/messaging/relays"
	"nip05bot/state/claims"
)

func main() {
	if err := run(); err != nil {
		library.LogCLI(err.Error(), 0)
		os.Exit(1)
	}
}

func run() error {
	// Settings come from <rootDir>/config.yaml and NIP05_* environment variables.
	conf := viper.New()
	actors.InitConfig(conf)
	cfg, err := actors.LoadConfig(conf)
	if err != nil {
		return err
	}
	library.SetLogLevel(cfg.LogLevel)

	wallet, err := actors.LoadWallet(cfg)
	if err != nil {
		return err
	}
	library.LogCLI(fmt.Sprintf("Server pubkey = %s", wallet.Account), 4)
	library.LogCLI(fmt.Sprintf("relays_urls   = %v", cfg.Relays), 4)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	var store relays.Store
	if cfg.Offline {
		library.LogCLI("offline mode: using the in-memory event store", 2)
		store = relays.NewMemory()
	} else {
		pool := relays.NewPool(cfg.Relays)
		defer pool.Close()
		store = pool
	}
	publishTo := store
	if cfg.DoNotPublish {
		library.LogCLI("doNotPublish is set: confirmations stay in memory", 2)
		publishTo = relays.NewMemory()
	}

	rules := cfg.Rules(wallet.Account)
	conductor := eventconductor.New(
		eventcatcher.New(store, rules, cfg.SinceWindow, cfg.DedupeTTL, m),
		rules,
		claims.NewProber(store, rules, cfg.ProbeTimeout, m),
		claims.NewIssuer(publishTo, wallet, rules),
		m,
	)
	server := nostrjson.NewServer(fmt.Sprintf(":%d", cfg.Port),
		nostrjson.NewRouter(nostrjson.NewResolver(store, rules, cfg.LookupTimeout, m), reg, m))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		conductor.Run(ctx)
		return nil
	})
	g.Go(func() error {
		library.LogCLI("Serving nostr.json on "+server.Addr, 4)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		return server.Shutdown(context.Background())
	})
	if cfg.Bootstrap {
		g.Go(func() error {
			bootstrap(ctx, cfg, wallet, store)
			return nil
		})
	}
	if cfg.Interactive {
		go cliListener(cancel, conf, wallet, reg)
	}
	return g.Wait()
}
