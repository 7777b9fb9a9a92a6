// Package cache keeps successful prescription parses in Redis so that the same
// text or image is sent to Gemini once per TTL.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"mediminds/internal/gemini"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const keyPrefix = "mediminds:rx:"

// NewRedisClient connects using a redis:// URL and checks the connection.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// PrescriptionCache decorates a gemini.Parser. Redis failures are logged and
// the request falls through to the parser.
type PrescriptionCache struct {
	next   gemini.Parser
	redis  *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewPrescriptionCache(next gemini.Parser, client *redis.Client, ttl time.Duration, logger *zap.Logger) *PrescriptionCache {
	return &PrescriptionCache{next: next, redis: client, ttl: ttl, logger: logger}
}

func Key(kind string, input []byte) string {
	sum := sha256.Sum256(input)
	return keyPrefix + kind + ":" + hex.EncodeToString(sum[:])
}

func (c *PrescriptionCache) ParseText(ctx context.Context, text string) (gemini.ParseResult, error) {
	return c.cached(ctx, Key("text", []byte(text)), func() (gemini.ParseResult, error) {
		return c.next.ParseText(ctx, text)
	})
}

func (c *PrescriptionCache) ParseImage(ctx context.Context, data []byte, mimeType string) (gemini.ParseResult, error) {
	return c.cached(ctx, Key("image", data), func() (gemini.ParseResult, error) {
		return c.next.ParseImage(ctx, data, mimeType)
	})
}

// configurer is implemented by parsers that can report a missing credential.
type configurer interface {
	Configured() bool
}

// cached serves key from Redis when possible. An unconfigured parser is
// called directly so a missing API key still surfaces as an error.
func (c *PrescriptionCache) cached(ctx context.Context, key string, parse func() (gemini.ParseResult, error)) (gemini.ParseResult, error) {
	if cfg, ok := c.next.(configurer); ok && !cfg.Configured() {
		return parse()
	}

	val, err := c.redis.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var res gemini.ParseResult
		if jerr := json.Unmarshal(val, &res); jerr == nil {
			c.logger.Debug("prescription cache hit", zap.String("key", key))
			return res, nil
		}
		c.logger.Warn("discarding corrupt prescription cache entry", zap.String("key", key))
	case err != redis.Nil:
		c.logger.Warn("prescription cache read failed", zap.String("key", key), zap.Error(err))
	}

	res, err := parse()
	if err != nil {
		return res, err
	}

	payload, err := json.Marshal(res)
	if err != nil {
		return res, nil
	}
	if err := c.redis.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.logger.Warn("prescription cache write failed", zap.String("key", key), zap.Error(err))
	}
	return res, nil
}
