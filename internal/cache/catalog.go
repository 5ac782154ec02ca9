// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// catalog.go provides a Valkey-backed cache for catalog read responses.
// Park and trail listings change only when a sync runs, so entries live
// until their TTL expires or the syncer clears the whole prefix.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"trailhub/internal/metrics"
)

const (
	// catalogKeyPrefix is the Valkey key prefix for cached catalog responses.
	catalogKeyPrefix = "catalog:"

	// DefaultCatalogTTL is how long a catalog response stays cached.
	DefaultCatalogTTL = 10 * time.Minute
)

// CatalogCache stores JSON-encoded catalog responses in Valkey. A nil
// *CatalogCache is valid and never hits.
type CatalogCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCatalogCache creates a catalog cache backed by the given Valkey client.
func NewCatalogCache(client *redis.Client, ttl time.Duration) *CatalogCache {
	if ttl == 0 {
		ttl = DefaultCatalogTTL
	}
	return &CatalogCache{client: client, ttl: ttl}
}

// Get decodes the cached value for key into dst and reports whether it hit.
func (c *CatalogCache) Get(ctx context.Context, key string, dst any) bool {
	if c == nil {
		return false
	}
	val, err := c.client.Get(ctx, catalogKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.CatalogCacheMisses.Inc()
		return false
	}
	if err != nil {
		slog.Warn("catalog cache get error", "key", key, "error", err)
		metrics.CatalogCacheMisses.Inc()
		return false
	}
	if err := json.Unmarshal(val, dst); err != nil {
		slog.Warn("catalog cache decode error", "key", key, "error", err)
		metrics.CatalogCacheMisses.Inc()
		return false
	}
	metrics.CatalogCacheHits.Inc()
	return true
}

// Set stores v under key with the configured TTL.
func (c *CatalogCache) Set(ctx context.Context, key string, v any) {
	if c == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		slog.Warn("catalog cache encode error", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, catalogKeyPrefix+key, data, c.ttl).Err(); err != nil {
		slog.Warn("catalog cache set error", "key", key, "error", err)
	}
}

// InvalidateAll removes every cached catalog response by scanning for the
// prefix.
func (c *CatalogCache) InvalidateAll(ctx context.Context) {
	if c == nil {
		return
	}
	var cursor uint64
	var deleted int
	for {
		keys, nextCursor, err := c.client.Scan(ctx, cursor, catalogKeyPrefix+"*", 100).Result()
		if err != nil {
			slog.Warn("catalog cache scan error", "error", err)
			return
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				slog.Warn("catalog cache bulk delete error", "error", err)
			}
			deleted += len(keys)
		}
		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}
	if deleted > 0 {
		slog.Info("catalog cache cleared", "deleted", deleted)
	}
}

// Key builds a cache key from a resource name and its query parameters.
// Parameters are sorted, so callers only need to pass values already
// normalized the way the query uses them. Values are kept verbatim.
func Key(resource string, params url.Values) string {
	if len(params) == 0 {
		return resource
	}
	return resource + "?" + params.Encode()
}
