// Package cache stores evaluation results in Redis as JSON.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/toko-promo/internal/common"
	"github.com/noah-isme/toko-promo/internal/resilience"
)

const keyPrefix = "promo:eval:"

// Cache wraps Redis helpers for JSON payloads. A nil client or a non-positive
// TTL disables the cache: reads miss and writes are dropped.
type Cache struct {
	client  redis.UniversalClient
	ttl     time.Duration
	breaker *resilience.Breaker
}

// New constructs a cache helper.
func New(client redis.UniversalClient, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// WithBreaker routes Redis calls through b. While b is open every call
// fails fast with resilience.ErrOpenCircuit.
func (c *Cache) WithBreaker(b *resilience.Breaker) *Cache {
	c.breaker = b
	return c
}

// Enabled reports whether reads and writes reach Redis.
func (c *Cache) Enabled() bool {
	return c != nil && c.client != nil && c.ttl > 0
}

// GetJSON unmarshals a cached JSON payload into dst. It reports whether the key existed.
func (c *Cache) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	if !c.Enabled() || key == "" {
		return false, nil
	}
	var (
		data  []byte
		found bool
	)
	err := c.breaker.Do(ctx, func(ctx context.Context) error {
		raw, err := c.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}
		data, found = raw, true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("cache get: %w", err)
	}
	if !found {
		return false, nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("cache decode %s: %w", key, err)
	}
	return true, nil
}

// SetJSON serialises v as JSON and stores it with the configured TTL.
func (c *Cache) SetJSON(ctx context.Context, key string, v any) error {
	if !c.Enabled() || key == "" {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	err = c.breaker.Do(ctx, func(ctx context.Context) error {
		return c.client.Set(ctx, key, data, c.ttl).Err()
	})
	if err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// EvaluationKey derives the key for evaluating input under the ruleset
// identified by digest. Changing the ruleset changes every key.
func EvaluationKey(digest string, input any) (string, error) {
	sum, err := common.HashJSON(input)
	if err != nil {
		return "", err
	}
	if len(digest) > 16 {
		digest = digest[:16]
	}
	return keyPrefix + digest + ":" + sum, nil
}
