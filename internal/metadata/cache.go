// internal/metadata/cache.go
package metadata

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/rovshanmuradov/solana-buyfeed/internal/blockchain"
	"github.com/rovshanmuradov/solana-buyfeed/internal/domain"
	"github.com/rovshanmuradov/solana-buyfeed/internal/observability"
	"go.uber.org/zap"
)

// entry хранит результат запроса; metadata == nil означает "не найден"
type entry struct {
	metadata *domain.TokenMetadata
}

// TokenMetadataCache кэширует метаданные токенов на время жизни процесса.
//
// Both successful and failed lookups are cached, so each mint costs at most
// one external call. Concurrent misses for the same mint may both reach the
// source; the last store wins.
type TokenMetadataCache struct {
	source     blockchain.TokenMetadataSource
	cache      sync.Map
	entries    atomic.Int64
	maxEntries int
	logger     *zap.Logger
}

// NewTokenMetadataCache creates a cache in front of source. maxEntries <= 0
// leaves the cache unbounded.
func NewTokenMetadataCache(source blockchain.TokenMetadataSource, maxEntries int, logger *zap.Logger) *TokenMetadataCache {
	return &TokenMetadataCache{
		source:     source,
		maxEntries: maxEntries,
		logger:     logger.Named("token_metadata"),
	}
}

// Lookup возвращает метаданные токена или nil, если их нет.
//
// The native SOL mint is never looked up.
func (c *TokenMetadataCache) Lookup(ctx context.Context, mint string) *domain.TokenMetadata {
	if mint == domain.NativeMint {
		observability.RecordMetadataLookup("native", c.Len())
		return nil
	}

	// 1. Проверяем кэш
	if value, ok := c.cache.Load(mint); ok {
		observability.RecordMetadataLookup("hit", c.Len())
		return value.(entry).metadata
	}

	// 2. Запрашиваем внешний источник
	md, err := c.source.Fetch(ctx, mint)
	if err != nil {
		md = nil
		if errors.Is(err, blockchain.ErrTokenNotFound) {
			c.logger.Debug("token metadata not found", zap.String("mint", mint))
		} else {
			c.logger.Warn("failed to fetch token metadata",
				zap.String("mint", mint),
				zap.Error(err))
		}
		// A cancelled round must not poison the cache for the next one.
		if ctx.Err() != nil {
			return nil
		}
	}

	// 3. Сохраняем результат, включая отрицательный
	c.store(mint, md)
	observability.RecordMetadataLookup("miss", c.Len())

	return md
}

func (c *TokenMetadataCache) store(mint string, md *domain.TokenMetadata) {
	if _, loaded := c.cache.Load(mint); !loaded && c.maxEntries > 0 && c.Len() >= c.maxEntries {
		c.logger.Debug("token metadata cache full, not storing",
			zap.String("mint", mint),
			zap.Int("max_entries", c.maxEntries))
		return
	}
	if _, loaded := c.cache.Swap(mint, entry{metadata: md}); !loaded {
		c.entries.Add(1)
	}
}

// Len returns the number of cached mints, including negative entries.
func (c *TokenMetadataCache) Len() int {
	return int(c.entries.Load())
}
