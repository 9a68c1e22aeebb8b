package tracking

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mtnwallet/tracker/internal/core/domain"
	"github.com/mtnwallet/tracker/internal/infra/chain"
	"github.com/mtnwallet/tracker/internal/tracking/metrics"
)

// connectivityReason matches the wording consumers display on RPC failure.
const connectivityReason = "Call to Ethereum node failed"

// Refresher triggers a market status refresh.
type Refresher interface {
	Refresh(ctx context.Context) (domain.MarketStatus, error)
}

// HeaderHook is invoked for every header delivered to a live subscription.
type HeaderHook func(ctx context.Context, header domain.BlockHeader)

type registration struct {
	owner string
	sub   chain.HeadSubscription
	done  chan struct{}
}

// Registry tracks one head subscription per owning session. Start is
// idempotent and Stop is a no-op for unknown owners; the owner map is the
// only shared mutable structure and all mutations are serialized.
type Registry struct {
	heads  chain.HeadSubscriber
	poller Refresher
	bus    *Bus
	hooks  []HeaderHook

	mu   sync.Mutex
	subs map[string]*registration

	wg  sync.WaitGroup
	log *slog.Logger
}

// NewRegistry creates a subscription registry. Hooks run for every header
// before the refresh is triggered.
func NewRegistry(heads chain.HeadSubscriber, poller Refresher, bus *Bus, hooks ...HeaderHook) *Registry {
	return &Registry{
		heads:  heads,
		poller: poller,
		bus:    bus,
		hooks:  hooks,
		subs:   make(map[string]*registration),
		log:    slog.Default().With("component", "registry"),
	}
}

// Start opens a head subscription for owner and fires an immediate refresh.
// A second Start for the same owner is a no-op.
func (r *Registry) Start(ctx context.Context, owner string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.subs[owner]; ok {
		r.log.Debug("Subscription already active", "owner", owner)
		return nil
	}

	sub, err := r.heads.SubscribeHeads(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe for %s: %w", owner, err)
	}

	reg := &registration{owner: owner, sub: sub, done: make(chan struct{})}
	r.subs[owner] = reg
	metrics.ActiveSubscriptions.Set(float64(len(r.subs)))
	r.log.Info("Subscription started", "owner", owner)

	r.wg.Add(1)
	go r.run(ctx, reg)
	return nil
}

// Stop tears down the owner's subscription. No-op when none exists. An
// in-flight refresh is not cancelled; its result is dropped on completion.
func (r *Registry) Stop(owner string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopLocked(owner)
}

// StopAll tears down every subscription and waits for worker goroutines.
func (r *Registry) StopAll() {
	r.mu.Lock()
	for owner := range r.subs {
		r.stopLocked(owner)
	}
	r.mu.Unlock()
	r.wg.Wait()
}

// Count returns the number of registered subscriptions. A subscription whose
// node feed has errored stays registered (and counted) until its owner calls
// Stop; errors never tear registrations down on their own.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}

func (r *Registry) stopLocked(owner string) {
	reg, ok := r.subs[owner]
	if !ok {
		return
	}
	reg.sub.Unsubscribe()
	close(reg.done)
	delete(r.subs, owner)
	metrics.ActiveSubscriptions.Set(float64(len(r.subs)))
	r.log.Info("Subscription stopped", "owner", owner)
}

func (r *Registry) registered(owner string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.subs[owner]
	return ok
}

func (r *Registry) run(ctx context.Context, reg *registration) {
	defer r.wg.Done()

	// Trigger one status fetch right away instead of waiting for a header.
	r.triggerRefresh(ctx, reg.owner)

	for {
		select {
		case header, ok := <-reg.sub.Headers():
			if !ok {
				// Channel closed after a subscription failure; the error
				// arrives on Err before or right after this.
				r.reportSubError(reg)
				return
			}
			r.log.Debug("New block header", "number", header.Number)
			metrics.ChainHeight.Set(float64(header.Number))
			for _, hook := range r.hooks {
				hook(ctx, header)
			}
			r.triggerRefresh(ctx, reg.owner)
		case err := <-reg.sub.Err():
			r.log.Error("Subscription error", "owner", reg.owner, "error", err)
			r.bus.Publish(domain.Event{
				Type:  domain.EventConnectivityStateChanged,
				Owner: reg.owner,
				Connectivity: &domain.ConnectivityState{
					OK:     false,
					Reason: "Block subscription failed",
					Plugin: "metronome",
					Detail: err.Error(),
				},
			})
			// The registration stays, and keeps counting toward Count,
			// until the owner decides whether to restart or stop.
			return
		case <-reg.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (r *Registry) reportSubError(reg *registration) {
	select {
	case err := <-reg.sub.Err():
		r.bus.Publish(domain.Event{
			Type:  domain.EventConnectivityStateChanged,
			Owner: reg.owner,
			Connectivity: &domain.ConnectivityState{
				OK:     false,
				Reason: "Block subscription failed",
				Plugin: "metronome",
				Detail: err.Error(),
			},
		})
	default:
	}
}

// triggerRefresh runs one poller refresh. Results arriving after the owner
// was stopped are silently dropped.
func (r *Registry) triggerRefresh(ctx context.Context, owner string) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		status, err := r.poller.Refresh(ctx)
		if !r.registered(owner) {
			return
		}
		if err != nil {
			r.log.Warn("Could not get metronome status", "owner", owner, "error", err)
			r.bus.Publish(domain.Event{
				Type:  domain.EventConnectivityStateChanged,
				Owner: owner,
				Connectivity: &domain.ConnectivityState{
					OK:     false,
					Reason: connectivityReason,
					Plugin: "metronome",
					Detail: err.Error(),
				},
			})
			return
		}

		r.bus.Publish(domain.Event{
			Type:     domain.EventAuctionStatusUpdated,
			Owner:    owner,
			Snapshot: &status.Auction,
		})
		r.bus.Publish(domain.Event{
			Type:     domain.EventConverterStatusUpdated,
			Owner:    owner,
			Snapshot: &status.Converter,
		})
	}()
}
