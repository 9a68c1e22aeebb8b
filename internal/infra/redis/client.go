package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mtnwallet/tracker/internal/core/domain"
)

// Client wraps Redis operations: fiat rate caching and persistence of the
// last good market status across restarts.
type Client struct {
	rdb *redis.Client
}

// Config holds Redis connection configuration.
type Config struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
}

// NewClient creates a new Redis client.
func NewClient(cfg Config) (*Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Health checks the connection.
func (c *Client) Health(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Key helpers
func rateKey(symbol string) string {
	return fmt.Sprintf("rate:%s", symbol)
}

func statusKey(market string) string {
	return fmt.Sprintf("metronome:status:%s", market)
}

// GetRate returns a cached fiat rate. found is false on a cache miss.
func (c *Client) GetRate(ctx context.Context, symbol string) (rate float64, found bool, err error) {
	val, err := c.rdb.Get(ctx, rateKey(symbol)).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get rate failed: %w", err)
	}

	rate, err = strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, false, fmt.Errorf("invalid cached rate %q: %w", val, err)
	}
	return rate, true, nil
}

// SetRate caches a fiat rate with a TTL.
func (c *Client) SetRate(ctx context.Context, symbol string, rate float64, ttl time.Duration) error {
	val := strconv.FormatFloat(rate, 'f', -1, 64)
	if err := c.rdb.Set(ctx, rateKey(symbol), val, ttl).Err(); err != nil {
		return fmt.Errorf("set rate failed: %w", err)
	}
	return nil
}

// snapshotRecord is the stored form of a MarketSnapshot; big integers are
// kept as decimal strings.
type snapshotRecord struct {
	CurrentPrice   string `json:"current_price"`
	TokenRemaining string `json:"token_remaining,omitempty"`
	NextStartTime  int64  `json:"next_start_time"`
	CurrentAuction int64  `json:"current_auction"`
}

func toRecord(s domain.MarketSnapshot) snapshotRecord {
	rec := snapshotRecord{
		NextStartTime:  s.NextStartTime,
		CurrentAuction: s.CurrentAuction,
	}
	if s.CurrentPrice != nil {
		rec.CurrentPrice = s.CurrentPrice.String()
	}
	if s.TokenRemaining != nil {
		rec.TokenRemaining = s.TokenRemaining.String()
	}
	return rec
}

func (rec snapshotRecord) toDomain() domain.MarketSnapshot {
	s := domain.MarketSnapshot{
		NextStartTime:  rec.NextStartTime,
		CurrentAuction: rec.CurrentAuction,
	}
	if rec.CurrentPrice != "" {
		s.CurrentPrice, _ = new(big.Int).SetString(rec.CurrentPrice, 10)
	}
	if rec.TokenRemaining != "" {
		s.TokenRemaining, _ = new(big.Int).SetString(rec.TokenRemaining, 10)
	}
	return s
}

// SaveStatus stores the last good market status.
func (c *Client) SaveStatus(ctx context.Context, status domain.MarketStatus) error {
	pairs := map[string]domain.MarketSnapshot{
		"auction":   status.Auction,
		"converter": status.Converter,
	}
	for market, snapshot := range pairs {
		data, err := json.Marshal(toRecord(snapshot))
		if err != nil {
			return fmt.Errorf("encode %s snapshot: %w", market, err)
		}
		if err := c.rdb.Set(ctx, statusKey(market), data, 0).Err(); err != nil {
			return fmt.Errorf("set %s snapshot failed: %w", market, err)
		}
	}
	return nil
}

// LoadStatus returns the last stored market status. found is false when
// either side has never been stored.
func (c *Client) LoadStatus(ctx context.Context) (status domain.MarketStatus, found bool, err error) {
	for _, market := range []string{"auction", "converter"} {
		val, err := c.rdb.Get(ctx, statusKey(market)).Result()
		if err == redis.Nil {
			return domain.MarketStatus{}, false, nil
		}
		if err != nil {
			return domain.MarketStatus{}, false, fmt.Errorf("get %s snapshot failed: %w", market, err)
		}

		var rec snapshotRecord
		if err := json.Unmarshal([]byte(val), &rec); err != nil {
			return domain.MarketStatus{}, false, fmt.Errorf("decode %s snapshot: %w", market, err)
		}
		if market == "auction" {
			status.Auction = rec.toDomain()
		} else {
			status.Converter = rec.toDomain()
		}
	}
	return status, true, nil
}
