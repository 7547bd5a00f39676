package metadata

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/joseph-ayodele/legal-ocr/internal/entity"
)

// kv is the subset of redis.Cmdable the cache needs.
type kv interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// CachedExtractor memoizes page metadata in Redis, keyed by the SHA-256 of the
// page text. Degraded records are not stored. Cache failures never fail an
// extraction.
type CachedExtractor struct {
	next   PageExtractor
	client kv
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

// CacheOption configures a CachedExtractor.
type CacheOption func(*CachedExtractor)

// WithCachePrefix sets the Redis key prefix. Default "legal-ocr:meta:".
func WithCachePrefix(prefix string) CacheOption {
	return func(c *CachedExtractor) { c.prefix = prefix }
}

// WithCacheTTL sets the entry TTL; 0 means no expiry.
func WithCacheTTL(ttl time.Duration) CacheOption {
	return func(c *CachedExtractor) { c.ttl = ttl }
}

func WithCacheLogger(logger *slog.Logger) CacheOption {
	return func(c *CachedExtractor) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func NewCachedExtractor(next PageExtractor, client kv, opts ...CacheOption) *CachedExtractor {
	c := &CachedExtractor{
		next:   next,
		client: client,
		prefix: "legal-ocr:meta:",
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *CachedExtractor) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return c.prefix + hex.EncodeToString(sum[:])
}

func (c *CachedExtractor) Extract(ctx context.Context, text string) (entity.Metadata, error) {
	key := c.key(text)
	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var md entity.Metadata
		if uerr := json.Unmarshal(data, &md); uerr == nil {
			c.logger.Debug("metadata.cache.hit", "key", key)
			return md.Normalized(), nil
		} else {
			c.logger.Warn("metadata.cache.decode_failed", "key", key, "error", uerr)
		}
	case errors.Is(err, redis.Nil):
	default:
		if ctx.Err() != nil {
			return entity.Metadata{}, ctx.Err()
		}
		c.logger.Warn("metadata.cache.get_failed", "key", key, "error", err)
	}

	md, err := c.next.Extract(ctx, text)
	if err != nil {
		return md, err
	}
	if md.Degraded {
		c.logger.Debug("metadata.cache.skip_degraded", "key", key)
		return md, nil
	}
	if b, merr := json.Marshal(md.Normalized()); merr == nil {
		if serr := c.client.Set(ctx, key, b, c.ttl).Err(); serr != nil {
			c.logger.Warn("metadata.cache.set_failed", "key", key, "error", serr)
		}
	}
	return md, nil
}
