package users

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// VacantSeatsCacheKey holds the warmed vacant-seat analysis. The snapshot
// job writes it; the unfiltered analysis endpoint reads through it.
const VacantSeatsCacheKey = "analysis:vacantSeats"

// AnalysisCache wraps Redis caching for analysis queries. A nil cache or
// client falls back to the loader on every call.
type AnalysisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewAnalysisCache instantiates the cache helper.
func NewAnalysisCache(client *redis.Client, ttl time.Duration) *AnalysisCache {
	return &AnalysisCache{client: client, ttl: ttl}
}

// FetchJSON loads a cached value or populates it using the loader.
func (c *AnalysisCache) FetchJSON(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) error {
	if loader == nil {
		return errors.New("cache: loader required")
	}
	if c == nil || c.client == nil {
		value, err := loader(ctx)
		if err != nil {
			return err
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return err
		}
		return json.Unmarshal(raw, dest)
	}

	raw, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		if unmarshalErr := json.Unmarshal(raw, dest); unmarshalErr == nil {
			return nil
		}
		// Corrupt entry: fall through and rebuild.
	} else if !errors.Is(err, redis.Nil) {
		return err
	}

	value, err := loader(ctx)
	if err != nil {
		return err
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}
