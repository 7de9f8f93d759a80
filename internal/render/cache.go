package render

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	u "cardgen/internal/utils"
)

// Cached serves repeated renders of identical markup from Redis. Rendering
// is a pure function of the markup, so the cache never needs invalidation
// beyond its TTL.
type Cached struct {
	Next  Renderer
	Redis *redis.Client
	TTL   time.Duration
}

func (c *Cached) Name() string { return c.Next.Name() }

func (c *Cached) Render(ctx context.Context, svg []byte) ([]byte, error) {
	if c.Redis == nil {
		return c.Next.Render(ctx, svg)
	}

	key := cacheKey(c.Next.Name(), svg)
	if cached, err := c.get(ctx, key); err == nil && cached != nil {
		u.Debug("Render cache hit", "key", key)
		return cached, nil
	}

	pdf, err := c.Next.Render(ctx, svg)
	if err != nil {
		return nil, err
	}
	c.set(ctx, key, pdf)
	return pdf, nil
}

// cacheKey creates a SHA256-based cache key from the engine and markup.
func cacheKey(engine string, svg []byte) string {
	h := sha256.New()
	h.Write([]byte(engine))
	h.Write([]byte{0})
	h.Write(svg)
	return "cardcache:" + hex.EncodeToString(h.Sum(nil))
}

func (c *Cached) get(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	cached, err := c.Redis.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		u.Warn("Redis read failed", "error", err)
		return nil, err
	}
	return cached, nil
}

func (c *Cached) set(ctx context.Context, key string, data []byte) {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	ttl := c.TTL
	if ttl <= 0 {
		ttl = time.Minute
	}
	if err := c.Redis.Set(ctx, key, data, ttl).Err(); err != nil {
		u.Warn("Redis write failed", "error", err)
	}
}
