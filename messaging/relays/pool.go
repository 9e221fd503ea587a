package relays

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"github.com/sasha-s/go-deadlock"
	"golang.org/x/sync/errgroup"
	"nip05bot/engine/library"
)

const connectTimeout = 10 * time.Second

// Pool multiplexes subscriptions and publications over a fixed set of relays.
// Connections are dialled on first use and dropped when they fail.
type Pool struct {
	urls  []string
	conns map[string]*nostr.Relay
	mu    *deadlock.Mutex
}

func NewPool(urls []string) *Pool {
	return &Pool{
		urls:  urls,
		conns: make(map[string]*nostr.Relay),
		mu:    &deadlock.Mutex{},
	}
}

func (p *Pool) URLs() []string {
	return p.urls
}

func (p *Pool) Subscribe(ctx context.Context, filters nostr.Filters) (<-chan Message, error) {
	if len(p.urls) == 0 {
		return nil, fmt.Errorf("%w: no relays configured", ErrTransport)
	}
	out := make(chan Message)
	pending := &atomic.Int32{}
	pending.Store(int32(len(p.urls)))
	answered := &atomic.Bool{}
	finished := func(reached bool) {
		if reached {
			answered.Store(true)
		}
		if pending.Add(-1) == 0 {
			eose := Message{EOSE: true}
			if !answered.Load() {
				eose.Err = fmt.Errorf("%w: none of %d relays answered", ErrTransport, len(p.urls))
			}
			send(ctx, out, eose)
		}
	}
	wait := &deadlock.WaitGroup{}
	for _, url := range p.urls {
		wait.Add(1)
		go func(url string) {
			defer wait.Done()
			p.subscribeOne(ctx, url, filters, out, finished)
		}(url)
	}
	go func() {
		wait.Wait()
		close(out)
	}()
	return out, nil
}

func (p *Pool) subscribeOne(ctx context.Context, url string, filters nostr.Filters, out chan<- Message, finished func(reached bool)) {
	var done bool
	markDone := func(reached bool) {
		if !done {
			done = true
			finished(reached)
		}
	}
	defer markDone(false)
	relay, err := p.relay(ctx, url)
	if err != nil {
		send(ctx, out, Message{Relay: url, Err: err})
		return
	}
	sub, err := relay.Subscribe(ctx, filters)
	if err != nil {
		p.forget(url)
		send(ctx, out, Message{Relay: url, Err: fmt.Errorf("%w: subscribe to %s: %v", ErrTransport, url, err)})
		return
	}
	defer sub.Unsub()
	eose := sub.EndOfStoredEvents
	for {
		select {
		case <-ctx.Done():
			return
		case <-eose:
			eose = nil
			markDone(true)
		case ev, ok := <-sub.Events:
			if !ok || ev == nil {
				p.forget(url)
				send(ctx, out, Message{Relay: url, Err: fmt.Errorf("%w: %s closed the subscription", ErrTransport, url)})
				return
			}
			if !send(ctx, out, Message{Relay: url, Event: ev}) {
				return
			}
		}
	}
}

func (p *Pool) Publish(ctx context.Context, event nostr.Event) <-chan PublishResult {
	results := make(chan PublishResult, len(p.urls))
	g := &errgroup.Group{}
	for _, url := range p.urls {
		url := url
		g.Go(func() error {
			sane := library.ValidateSaneExecutionTime()
			defer sane()
			results <- PublishResult{Relay: url, Err: p.publishOne(ctx, url, event)}
			return nil
		})
	}
	go func() {
		_ = g.Wait()
		close(results)
	}()
	return results
}

func (p *Pool) publishOne(ctx context.Context, url string, event nostr.Event) error {
	relay, err := p.relay(ctx, url)
	if err != nil {
		return err
	}
	if _, err := relay.Publish(ctx, event); err != nil {
		p.forget(url)
		return fmt.Errorf("%w: could not publish to relay %s: %v", ErrTransport, url, err)
	}
	return nil
}

// Close disconnects from every relay. The pool can be reused afterwards.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for url, relay := range p.conns {
		if err := relay.Close(); err != nil {
			library.LogCLI(fmt.Sprintf("closing %s: %s", url, err), 3)
		}
		delete(p.conns, url)
	}
}

func (p *Pool) relay(ctx context.Context, url string) (*nostr.Relay, error) {
	p.mu.Lock()
	relay, ok := p.conns[url]
	p.mu.Unlock()
	if ok {
		return relay, nil
	}
	relay, err := connect(ctx, url)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if existing, ok := p.conns[url]; ok {
		go relay.Close()
		return existing, nil
	}
	p.conns[url] = relay
	library.LogCLI("Connected to "+url, 4)
	return relay, nil
}

func (p *Pool) forget(url string) {
	p.mu.Lock()
	relay, ok := p.conns[url]
	delete(p.conns, url)
	p.mu.Unlock()
	if ok {
		go relay.Close()
	}
}

// connect dials with a background context so the connection outlives ctx;
// ctx only bounds how long we wait for the dial.
func connect(ctx context.Context, url string) (*nostr.Relay, error) {
	type dialed struct {
		relay *nostr.Relay
		err   error
	}
	ch := make(chan dialed, 1)
	go func() {
		relay, err := nostr.RelayConnect(context.Background(), url)
		ch <- dialed{relay, err}
	}()
	select {
	case d := <-ch:
		if d.err != nil {
			return nil, fmt.Errorf("%w: could not connect to relay %s: %v", ErrTransport, url, d.err)
		}
		return d.relay, nil
	case <-time.After(connectTimeout):
	case <-ctx.Done():
	}
	go func() {
		if d := <-ch; d.err == nil {
			d.relay.Close()
		}
	}()
	return nil, fmt.Errorf("%w: gave up connecting to relay %s", ErrTransport, url)
}

func send(ctx context.Context, out chan<- Message, m Message) bool {
	select {
	case out <- m:
		return true
	case <-ctx.Done():
		return false
	}
}
