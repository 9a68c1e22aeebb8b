package evm

import (
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/mtnwallet/tracker/internal/core/domain"
)

// headSub adapts an ethereum.Subscription to chain.HeadSubscription.
type headSub struct {
	sub     ethereum.Subscription
	headers chan domain.BlockHeader
	errs    chan error
	quit    chan struct{}
	once    sync.Once
}

func newHeadSub(sub ethereum.Subscription, raw <-chan *types.Header) *headSub {
	s := &headSub{
		sub:     sub,
		headers: make(chan domain.BlockHeader, 16),
		errs:    make(chan error, 1),
		quit:    make(chan struct{}),
	}
	go s.forward(raw)
	return s
}

func (s *headSub) forward(raw <-chan *types.Header) {
	defer close(s.headers)

	for {
		select {
		case h, ok := <-raw:
			if !ok {
				return
			}
			header := domain.BlockHeader{
				Number: h.Number.Uint64(),
				Hash:   h.Hash().Hex(),
			}
			select {
			case s.headers <- header:
			case <-s.quit:
				return
			}
		case err := <-s.sub.Err():
			if err != nil {
				select {
				case s.errs <- err:
				case <-s.quit:
				}
			}
			return
		case <-s.quit:
			return
		}
	}
}

func (s *headSub) Headers() <-chan domain.BlockHeader { return s.headers }

func (s *headSub) Err() <-chan error { return s.errs }

func (s *headSub) Unsubscribe() {
	s.once.Do(func() {
		s.sub.Unsubscribe()
		close(s.quit)
	})
}
