package tracking

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mtnwallet/tracker/internal/core/domain"
	"github.com/mtnwallet/tracker/internal/infra/chain"
	"github.com/mtnwallet/tracker/internal/tracking/metrics"
)

// Metronome auctions: a 7-day initial auction, then one auction per day.
const (
	initialAuctionDays = 7
	auctionInterval    = 24 * time.Hour
)

// SnapshotStore persists the last good market status so restarts can show
// last-known data instead of a blank view.
type SnapshotStore interface {
	SaveStatus(ctx context.Context, status domain.MarketStatus) error
}

// Poller produces market snapshots from on-chain state. All constituent reads
// run concurrently; if any read fails the whole refresh fails and no partial
// snapshot is produced. The poller never retries on its own.
type Poller struct {
	reader chain.MetronomeReader
	store  SnapshotStore // optional
	log    *slog.Logger
	now    func() time.Time
}

// NewPoller creates a status poller. store may be nil.
func NewPoller(reader chain.MetronomeReader, store SnapshotStore) *Poller {
	return &Poller{
		reader: reader,
		store:  store,
		log:    slog.Default().With("component", "poller"),
		now:    time.Now,
	}
}

// Refresh fetches the auction and converter state in one concurrent batch.
// Overlapping invocations are independent; results are idempotent snapshots.
func (p *Poller) Refresh(ctx context.Context) (domain.MarketStatus, error) {
	start := time.Now()

	var (
		genesis   int64
		nextStart int64
		price     *big.Int
		mintable  *big.Int
		convPrice *big.Int
		convAvail *big.Int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		genesis, err = p.reader.AuctionGenesisTime(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		price, err = p.reader.AuctionCurrentPrice(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		mintable, err = p.reader.AuctionMintable(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		nextStart, err = p.reader.AuctionNextStart(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		convPrice, err = p.reader.ConverterCurrentPrice(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		convAvail, err = p.reader.ConverterAvailableMtn(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		metrics.StatusRefreshesTotal.WithLabelValues("error").Inc()
		return domain.MarketStatus{}, fmt.Errorf("metronome status refresh: %w", err)
	}

	metrics.StatusRefreshesTotal.WithLabelValues("ok").Inc()
	metrics.StatusRefreshLatency.Observe(time.Since(start).Seconds())

	status := domain.MarketStatus{
		Auction: domain.MarketSnapshot{
			CurrentPrice:   price,
			TokenRemaining: mintable,
			NextStartTime:  nextStart,
			CurrentAuction: currentAuctionIndex(genesis, p.now()),
		},
		Converter: domain.MarketSnapshot{
			CurrentPrice:   convPrice,
			TokenRemaining: convAvail,
		},
	}

	p.log.Debug("Metronome status",
		"auction_price", price, "mintable", mintable,
		"converter_price", convPrice, "available", convAvail)

	if p.store != nil {
		if err := p.store.SaveStatus(ctx, status); err != nil {
			p.log.Warn("Failed to persist market status", "error", err)
		}
	}

	return status, nil
}

// currentAuctionIndex returns 0 during the initial auction and the daily
// auction ordinal afterwards.
func currentAuctionIndex(genesis int64, now time.Time) int64 {
	if genesis <= 0 || now.Unix() < genesis {
		return 0
	}
	days := (now.Unix() - genesis) / int64(auctionInterval/time.Second)
	if days < initialAuctionDays {
		return 0
	}
	return days - initialAuctionDays + 1
}
