package rates

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/pledgehub/backend/internal/domain/currency"
	"github.com/pledgehub/backend/internal/domain/shared/valueobject"
)

const cacheKey = "rates:current"

// Fetcher retrieves a fresh rate table from an external source
type Fetcher interface {
	Fetch(ctx context.Context) (*currency.RateTable, error)
}

// cachedTable is the serialized form stored in Redis
type cachedTable struct {
	Source string            `json:"source"`
	AsOf   time.Time         `json:"as_of"`
	Rates  map[string]string `json:"rates"`
}

// CachedProvider serves rate tables with a two-level cache: an in-process
// copy for the common path and Redis so instances share fetches. When the
// feed cannot be reached and no cache is available it falls back to the
// static table so conversions keep working, flagged by the table source.
type CachedProvider struct {
	fetcher Fetcher
	redis   *redis.Client
	ttl     time.Duration
	logger  *zap.Logger

	mu        sync.RWMutex
	table     *currency.RateTable
	fetchedAt time.Time
}

// NewCachedProvider creates a provider backed by the given fetcher. The
// Redis client is optional; pass nil to cache in-process only.
func NewCachedProvider(fetcher Fetcher, redisClient *redis.Client, ttl time.Duration, logger *zap.Logger) *CachedProvider {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &CachedProvider{
		fetcher: fetcher,
		redis:   redisClient,
		ttl:     ttl,
		logger:  logger.Named("rates"),
	}
}

// Current returns the current rate table, serving from cache when fresh.
func (p *CachedProvider) Current(ctx context.Context) (*currency.RateTable, error) {
	p.mu.RLock()
	if p.table != nil && time.Since(p.fetchedAt) < p.ttl {
		table := p.table
		p.mu.RUnlock()
		return table, nil
	}
	p.mu.RUnlock()

	if table := p.fromRedis(ctx); table != nil {
		p.store(table)
		return table, nil
	}

	table, err := p.fetcher.Fetch(ctx)
	if err != nil {
		p.logger.Warn("Rate feed unavailable, falling back", zap.Error(err))

		// Serve the last known table past its TTL rather than nothing
		p.mu.RLock()
		stale := p.table
		p.mu.RUnlock()
		if stale != nil {
			return stale, nil
		}
		return StaticTable(), nil
	}

	p.store(table)
	p.toRedis(ctx, table)
	return table, nil
}

// Invalidate drops the cached table so the next call re-fetches
func (p *CachedProvider) Invalidate(ctx context.Context) {
	p.mu.Lock()
	p.table = nil
	p.fetchedAt = time.Time{}
	p.mu.Unlock()

	if p.redis != nil {
		if err := p.redis.Del(ctx, cacheKey).Err(); err != nil {
			p.logger.Warn("Failed to invalidate Redis rate cache", zap.Error(err))
		}
	}
}

func (p *CachedProvider) store(table *currency.RateTable) {
	p.mu.Lock()
	p.table = table
	p.fetchedAt = time.Now()
	p.mu.Unlock()
}

func (p *CachedProvider) fromRedis(ctx context.Context) *currency.RateTable {
	if p.redis == nil {
		return nil
	}

	raw, err := p.redis.Get(ctx, cacheKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			p.logger.Warn("Failed to read Redis rate cache", zap.Error(err))
		}
		return nil
	}

	var cached cachedTable
	if err := json.Unmarshal(raw, &cached); err != nil {
		p.logger.Warn("Corrupt Redis rate cache entry", zap.Error(err))
		return nil
	}

	rates := make(map[valueobject.Currency]decimal.Decimal, len(cached.Rates))
	for code, value := range cached.Rates {
		rate, err := decimal.NewFromString(value)
		if err != nil {
			continue
		}
		rates[valueobject.Currency(code)] = rate
	}
	if len(rates) == 0 {
		return nil
	}

	return currency.NewRateTable(rates, cached.AsOf, cached.Source)
}

func (p *CachedProvider) toRedis(ctx context.Context, table *currency.RateTable) {
	if p.redis == nil {
		return
	}

	cached := cachedTable{
		Source: table.Source(),
		AsOf:   table.AsOf(),
		Rates:  make(map[string]string),
	}
	for cur, rate := range table.Rates() {
		cached.Rates[cur.String()] = rate.String()
	}

	raw, err := json.Marshal(cached)
	if err != nil {
		return
	}
	if err := p.redis.Set(ctx, cacheKey, raw, p.ttl).Err(); err != nil {
		p.logger.Warn("Failed to write Redis rate cache", zap.Error(err))
	}
}
