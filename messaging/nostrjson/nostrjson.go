package nostrjson

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/nbd-wtf/go-nostr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"nip05bot/engine/library"
	"nip05bot/engine/metrics"
	"nip05bot/messaging/relays"
	"nip05bot/state/claims"
)

// Response is the NIP-05 nostr.json document.
type Response struct {
	Names  map[string]string   `json:"names"`
	Relays map[string][]string `json:"relays"`
}

func empty() Response {
	return Response{Names: map[string]string{}, Relays: map[string][]string{}}
}

// Resolver answers name lookups from confirmations on the relays. Every
// lookup is a fresh bounded query; nothing is cached.
type Resolver struct {
	store   relays.Store
	rules   claims.Rules
	timeout time.Duration
	metrics *metrics.Metrics
}

func NewResolver(store relays.Store, rules claims.Rules, timeout time.Duration, m *metrics.Metrics) *Resolver {
	return &Resolver{store: store, rules: rules, timeout: timeout, metrics: m}
}

// Resolve returns the binding for name. When several confirmations exist the
// oldest one wins.
func (r *Resolver) Resolve(ctx context.Context, name string) (Response, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return empty(), nil
	}
	filter := nostr.Filter{
		Kinds: []int{claims.KindConfirmation},
		Tags: nostr.TagMap{
			"L": []string{r.rules.GroupingLabel},
			"l": []string{r.rules.Domain},
			"d": []string{name},
		},
	}
	if len(r.rules.Issuers) > 0 {
		filter.Authors = r.rules.Issuers
	}
	events, err := relays.Collect(ctx, r.store, filter, r.timeout)
	if err != nil && !errors.Is(err, relays.ErrQueryTimeout) {
		return empty(), err
	}
	var winner *nostr.Event
	for i := range events {
		pubkey, ok := library.GetFirstTag(events[i], "p")
		if !ok || !claims.IsValidPublicKey(pubkey) {
			continue
		}
		if winner == nil || events[i].CreatedAt < winner.CreatedAt {
			winner = &events[i]
		}
	}
	if winner == nil {
		return empty(), nil
	}
	pubkey, _ := library.GetFirstTag(*winner, "p")
	resp := empty()
	resp.Names[name] = pubkey
	if hints, ok := library.GetFirstTagFull(*winner, "r"); ok && len(hints) > 1 {
		resp.Relays[pubkey] = append([]string(nil), hints[1:]...)
	}
	return resp, nil
}

type handler struct {
	resolver *Resolver
	metrics  *metrics.Metrics
}

// NewRouter serves nostr.json under both /.well-known/ and the root, plus
// Prometheus metrics from gatherer when it is not nil.
func NewRouter(resolver *Resolver, gatherer prometheus.Gatherer, m *metrics.Metrics) http.Handler {
	h := &handler{resolver: resolver, metrics: m}
	r := chi.NewRouter()
	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprintln(w, "NIP-05 issuer for "+resolver.rules.Domain)
	})
	r.Get("/nostr.json", h.lookup)
	r.Get("/.well-known/nostr.json", h.lookup)
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

func (h *handler) lookup(w http.ResponseWriter, r *http.Request) {
	resp, err := h.resolver.Resolve(r.Context(), r.URL.Query().Get("name"))
	switch {
	case err != nil:
		library.LogCLI(fmt.Sprintf("lookup name=%q failed: %s", r.URL.Query().Get("name"), err), 2)
		h.metrics.IncLookup("error")
	case len(resp.Names) > 0:
		h.metrics.IncLookup("hit")
	default:
		h.metrics.IncLookup("miss")
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		library.LogCLI(err.Error(), 2)
	}
}
