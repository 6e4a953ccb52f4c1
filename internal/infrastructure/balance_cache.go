package infrastructure

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/shakilmiahcse/social-org-finance/internal/domain/balance"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const DefaultBalanceTTL = 5 * time.Minute

// setIfGeneration writes the balance only while the generation key still
// holds the value the caller read. A missing generation counts as 0.
var setIfGeneration = redis.NewScript(`
local current = redis.call("GET", KEYS[2])
if current == false then
	current = "0"
end
if current ~= ARGV[1] then
	return 0
end
redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
return 1
`)

// RedisBalanceCache stores fund balances as decimal strings next to a
// per-fund generation counter. Balances expire after TTL; generations do not
// expire, so a counter can never move back to a value a slow reader holds.
type RedisBalanceCache struct {
	Client *redis.Client
	TTL    time.Duration
}

var _ balance.Cache = (*RedisBalanceCache)(nil)

func NewRedisBalanceCache(client *redis.Client, ttl time.Duration) *RedisBalanceCache {
	if ttl <= 0 {
		ttl = DefaultBalanceTTL
	}
	return &RedisBalanceCache{Client: client, TTL: ttl}
}

func balanceKey(organizationID, fundID ulid.ULID) string {
	return fmt.Sprintf("ledger:balance:%s:%s", organizationID, fundID)
}

func generationKey(organizationID, fundID ulid.ULID) string {
	return balanceKey(organizationID, fundID) + ":gen"
}

func (c *RedisBalanceCache) Get(ctx context.Context, organizationID, fundID ulid.ULID) (balance.CacheEntry, error) {
	values, err := c.Client.MGet(ctx, balanceKey(organizationID, fundID), generationKey(organizationID, fundID)).Result()
	if err != nil {
		return balance.CacheEntry{}, err
	}

	var entry balance.CacheEntry
	if raw, ok := values[1].(string); ok {
		entry.Generation, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return balance.CacheEntry{}, fmt.Errorf("decode balance generation %q: %w", raw, err)
		}
	}
	raw, ok := values[0].(string)
	if !ok {
		return entry, nil
	}
	entry.Balance, err = decimal.NewFromString(raw)
	if err != nil {
		return balance.CacheEntry{}, fmt.Errorf("decode cached balance %q: %w", raw, err)
	}
	entry.Hit = true
	return entry, nil
}

func (c *RedisBalanceCache) Set(ctx context.Context, organizationID, fundID ulid.ULID, generation int64, value decimal.Decimal) (bool, error) {
	keys := []string{balanceKey(organizationID, fundID), generationKey(organizationID, fundID)}
	stored, err := setIfGeneration.Run(ctx, c.Client, keys,
		strconv.FormatInt(generation, 10),
		value.String(),
		c.TTL.Milliseconds(),
	).Int()
	if err != nil {
		return false, err
	}
	return stored == 1, nil
}

// Invalidate bumps the generation and drops the balance in one MULTI block.
func (c *RedisBalanceCache) Invalidate(ctx context.Context, organizationID, fundID ulid.ULID) error {
	_, err := c.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, generationKey(organizationID, fundID))
		pipe.Del(ctx, balanceKey(organizationID, fundID))
		return nil
	})
	return err
}
