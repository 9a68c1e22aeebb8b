package tracking

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/mtnwallet/tracker/internal/core/domain"
	"github.com/mtnwallet/tracker/internal/infra/chain"
)

type fakeHeadSub struct {
	headers  chan domain.BlockHeader
	errs     chan error
	once     sync.Once
	unsubbed chan struct{}
}

func newFakeHeadSub() *fakeHeadSub {
	return &fakeHeadSub{
		headers:  make(chan domain.BlockHeader, 4),
		errs:     make(chan error, 1),
		unsubbed: make(chan struct{}),
	}
}

func (s *fakeHeadSub) Headers() <-chan domain.BlockHeader { return s.headers }
func (s *fakeHeadSub) Err() <-chan error                  { return s.errs }
func (s *fakeHeadSub) Unsubscribe() {
	s.once.Do(func() { close(s.unsubbed) })
}

type fakeHeads struct {
	mu   sync.Mutex
	subs []*fakeHeadSub
	err  error
}

func (f *fakeHeads) SubscribeHeads(ctx context.Context) (chain.HeadSubscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	sub := newFakeHeadSub()
	f.subs = append(f.subs, sub)
	return sub, nil
}

func (f *fakeHeads) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

type fakeRefresher struct {
	mu    sync.Mutex
	calls int
	err   error
	gate  chan struct{} // when set, Refresh blocks until the gate closes
}

func (f *fakeRefresher) Refresh(ctx context.Context) (domain.MarketStatus, error) {
	f.mu.Lock()
	f.calls++
	gate := f.gate
	err := f.err
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return domain.MarketStatus{}, err
	}
	return domain.MarketStatus{
		Auction: domain.MarketSnapshot{CurrentPrice: big.NewInt(42)},
	}, nil
}

func (f *fakeRefresher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func waitEvent(t *testing.T, ch <-chan domain.Event) domain.Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no event arrived")
		return domain.Event{}
	}
}

func TestRegistry_StartIsIdempotent(t *testing.T) {
	heads := &fakeHeads{}
	bus := NewBus()
	defer bus.Close()
	reg := NewRegistry(heads, &fakeRefresher{}, bus)
	defer reg.StopAll()

	ctx := context.Background()
	if err := reg.Start(ctx, "session-1"); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := reg.Start(ctx, "session-1"); err != nil {
		t.Fatalf("second Start() error = %v", err)
	}

	if heads.count() != 1 {
		t.Errorf("expected 1 node subscription, got %d", heads.count())
	}
	if reg.Count() != 1 {
		t.Errorf("Count() = %d, want 1", reg.Count())
	}
}

func TestRegistry_StartFiresImmediateRefresh(t *testing.T) {
	heads := &fakeHeads{}
	bus := NewBus()
	defer bus.Close()
	_, events := bus.Subscribe(8)

	reg := NewRegistry(heads, &fakeRefresher{}, bus)
	defer reg.StopAll()

	if err := reg.Start(context.Background(), "session-1"); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	ev := waitEvent(t, events)
	if ev.Type != domain.EventAuctionStatusUpdated {
		t.Errorf("first event = %s, want %s", ev.Type, domain.EventAuctionStatusUpdated)
	}
	if ev.Owner != "session-1" {
		t.Errorf("owner = %s, want session-1", ev.Owner)
	}
	if ev.Snapshot == nil || ev.Snapshot.CurrentPrice.Cmp(big.NewInt(42)) != 0 {
		t.Errorf("snapshot = %+v, want price 42", ev.Snapshot)
	}

	ev = waitEvent(t, events)
	if ev.Type != domain.EventConverterStatusUpdated {
		t.Errorf("second event = %s, want %s", ev.Type, domain.EventConverterStatusUpdated)
	}
}

func TestRegistry_StartSubscribeFailure(t *testing.T) {
	heads := &fakeHeads{err: errors.New("dial tcp: connection refused")}
	bus := NewBus()
	defer bus.Close()
	reg := NewRegistry(heads, &fakeRefresher{}, bus)

	if err := reg.Start(context.Background(), "session-1"); err == nil {
		t.Fatal("expected error when the node subscription fails")
	}
	if reg.Count() != 0 {
		t.Errorf("Count() = %d, want 0", reg.Count())
	}
}

func TestRegistry_RefreshFailurePublishesConnectivity(t *testing.T) {
	heads := &fakeHeads{}
	bus := NewBus()
	defer bus.Close()
	_, events := bus.Subscribe(8)

	reg := NewRegistry(heads, &fakeRefresher{err: errors.New("eth_call: timeout")}, bus)
	defer reg.StopAll()

	if err := reg.Start(context.Background(), "session-1"); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	ev := waitEvent(t, events)
	if ev.Type != domain.EventConnectivityStateChanged {
		t.Fatalf("event = %s, want %s", ev.Type, domain.EventConnectivityStateChanged)
	}
	if ev.Connectivity == nil {
		t.Fatal("connectivity payload missing")
	}
	if ev.Connectivity.OK {
		t.Error("connectivity must report not ok")
	}
	if ev.Connectivity.Reason != "Call to Ethereum node failed" {
		t.Errorf("reason = %q", ev.Connectivity.Reason)
	}
	if ev.Connectivity.Plugin != "metronome" {
		t.Errorf("plugin = %q, want metronome", ev.Connectivity.Plugin)
	}
	if ev.Connectivity.Detail == "" {
		t.Error("detail must carry the underlying error")
	}
}

func TestRegistry_HeaderTriggersHooksAndRefresh(t *testing.T) {
	heads := &fakeHeads{}
	refresher := &fakeRefresher{}
	bus := NewBus()
	defer bus.Close()

	hooked := make(chan domain.BlockHeader, 1)
	reg := NewRegistry(heads, refresher, bus, func(ctx context.Context, h domain.BlockHeader) {
		hooked <- h
	})
	defer reg.StopAll()

	if err := reg.Start(context.Background(), "session-1"); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	heads.subs[0].headers <- domain.BlockHeader{Number: 77, Hash: "0xabc"}

	select {
	case h := <-hooked:
		if h.Number != 77 {
			t.Errorf("hook header number = %d, want 77", h.Number)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("header hook never ran")
	}
}

func TestRegistry_StopDropsInFlightRefresh(t *testing.T) {
	heads := &fakeHeads{}
	gate := make(chan struct{})
	refresher := &fakeRefresher{gate: gate}
	bus := NewBus()
	defer bus.Close()
	_, events := bus.Subscribe(8)

	reg := NewRegistry(heads, refresher, bus)

	if err := reg.Start(context.Background(), "session-1"); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	// Tear down while the initial refresh is still blocked, then release it.
	for refresher.callCount() == 0 {
		time.Sleep(time.Millisecond)
	}
	reg.Stop("session-1")
	close(gate)
	reg.StopAll()

	select {
	case ev := <-events:
		t.Fatalf("unexpected event after stop: %s", ev.Type)
	case <-time.After(100 * time.Millisecond):
	}

	select {
	case <-heads.subs[0].unsubbed:
	default:
		t.Error("node subscription was not closed")
	}
}

func TestRegistry_StopUnknownOwnerIsNoop(t *testing.T) {
	reg := NewRegistry(&fakeHeads{}, &fakeRefresher{}, NewBus())
	reg.Stop("never-started")
	if reg.Count() != 0 {
		t.Errorf("Count() = %d, want 0", reg.Count())
	}
}

func TestRegistry_SubscriptionErrorPublishesConnectivity(t *testing.T) {
	heads := &fakeHeads{}
	bus := NewBus()
	defer bus.Close()
	_, events := bus.Subscribe(8)

	reg := NewRegistry(heads, &fakeRefresher{}, bus)
	defer reg.StopAll()

	if err := reg.Start(context.Background(), "session-1"); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	// Drain the initial refresh events first.
	waitEvent(t, events)
	waitEvent(t, events)

	heads.subs[0].errs <- errors.New("websocket: close 1006")

	ev := waitEvent(t, events)
	if ev.Type != domain.EventConnectivityStateChanged {
		t.Fatalf("event = %s, want %s", ev.Type, domain.EventConnectivityStateChanged)
	}
	if ev.Connectivity.Reason != "Block subscription failed" {
		t.Errorf("reason = %q", ev.Connectivity.Reason)
	}

	// The errored registration stays until its owner decides; only Stop
	// removes it.
	if reg.Count() != 1 {
		t.Errorf("Count() = %d after subscription error, want 1", reg.Count())
	}
	reg.Stop("session-1")
	if reg.Count() != 0 {
		t.Errorf("Count() = %d after Stop, want 0", reg.Count())
	}
}
