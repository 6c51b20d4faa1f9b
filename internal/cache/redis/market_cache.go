package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/chainbets/chainbet/internal/domain"
)

// defaultMarketTTL bounds staleness for cached markets. Verified markets are
// immutable except for total_staked, which bet placement invalidates.
const defaultMarketTTL = 10 * time.Minute

// MarketCache implements domain.MarketCache using JSON values keyed by
// market identity.
type MarketCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewMarketCache creates a MarketCache backed by the given Client.
func NewMarketCache(c *Client) *MarketCache {
	return &MarketCache{
		rdb: c.Underlying(),
		ttl: defaultMarketTTL,
	}
}

func marketKey(identity string) string {
	return "market:" + identity
}

// Get returns the cached market for an identity, or domain.ErrNotFound on a
// cache miss.
func (mc *MarketCache) Get(ctx context.Context, identity string) (domain.Market, error) {
	data, err := mc.rdb.Get(ctx, marketKey(identity)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Market{}, domain.ErrNotFound
		}
		return domain.Market{}, fmt.Errorf("redis: get market %s: %w", identity, err)
	}

	var m domain.Market
	if err := json.Unmarshal(data, &m); err != nil {
		return domain.Market{}, fmt.Errorf("redis: decode market %s: %w", identity, err)
	}
	return m, nil
}

// Set stores a market under its current identity.
func (mc *MarketCache) Set(ctx context.Context, m domain.Market) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("redis: encode market %s: %w", m.Identity, err)
	}
	if err := mc.rdb.Set(ctx, marketKey(m.Identity), data, mc.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set market %s: %w", m.Identity, err)
	}
	return nil
}

// Invalidate removes a market from the cache.
func (mc *MarketCache) Invalidate(ctx context.Context, identity string) error {
	if err := mc.rdb.Del(ctx, marketKey(identity)).Err(); err != nil {
		return fmt.Errorf("redis: invalidate market %s: %w", identity, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.MarketCache = (*MarketCache)(nil)
