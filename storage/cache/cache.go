package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kylycht/fxrates/model"
	"github.com/kylycht/fxrates/storage"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const (
	keyPrefix   = "rates:"
	pingTimeout = time.Second
)

// RCache stores rate buckets as one redis hash per base
// currency with a TTL starting at bucket write time. It is
// strictly an optimization: every lookup degrades to a miss
// and every probe to false when redis is unreachable.
type RCache struct {
	client *redis.Client
	ttl    time.Duration // bucket time to live
}

func New(client *redis.Client, ttl time.Duration) storage.Cache {
	return &RCache{client: client, ttl: ttl}
}

func bucketKey(base string) string {
	return keyPrefix + strings.ToUpper(base)
}

// StoreRates implements storage.Cache.
func (r *RCache) StoreRates(ctx context.Context, base string, rates map[string]decimal.Decimal) error {
	if len(rates) == 0 {
		return nil
	}

	fields := make(map[string]interface{}, len(rates))
	for target, rate := range rates {
		fields[strings.ToUpper(target)] = rate.String()
	}

	key := bucketKey(base)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, fields)
		pipe.Expire(ctx, key, r.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("unable to store rates for %s: %w", base, err)
	}

	return nil
}

// StoreRate implements storage.Cache.
// The TTL is only started for a fresh bucket so a point
// write-back cannot extend the life of an existing one.
func (r *RCache) StoreRate(ctx context.Context, base, target string, rate decimal.Decimal) error {
	key := bucketKey(base)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, strings.ToUpper(target), rate.String())
		pipe.ExpireNX(ctx, key, r.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("unable to store rate %s/%s: %w", base, target, err)
	}

	return nil
}

// StoreBestRates implements storage.Cache.
func (r *RCache) StoreBestRates(ctx context.Context, table model.RateTable) error {
	for base, rates := range table {
		if err := r.StoreRates(ctx, base, rates); err != nil {
			return err
		}
	}

	return nil
}

// GetRate implements storage.Cache.
func (r *RCache) GetRate(ctx context.Context, base, target string) (decimal.Decimal, bool) {
	value, err := r.client.HGet(ctx, bucketKey(base), strings.ToUpper(target)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Str("base", base).Str("target", target).Msg("cache lookup failed")
		}
		return decimal.Decimal{}, false
	}

	rate, err := decimal.NewFromString(value)
	if err != nil {
		log.Warn().Err(err).Str("base", base).Str("target", target).Msg("discarding unparseable cached rate")
		return decimal.Decimal{}, false
	}

	return rate, true
}

// GetAllRates implements storage.Cache.
func (r *RCache) GetAllRates(ctx context.Context, base string) map[string]decimal.Decimal {
	rates := make(map[string]decimal.Decimal)

	values, err := r.client.HGetAll(ctx, bucketKey(base)).Result()
	if err != nil {
		log.Warn().Err(err).Str("base", base).Msg("cache bulk lookup failed")
		return rates
	}

	for target, value := range values {
		rate, err := decimal.NewFromString(value)
		if err != nil {
			log.Warn().Err(err).Str("base", base).Str("target", target).Msg("discarding unparseable cached rate")
			continue
		}
		rates[target] = rate
	}

	return rates
}

// EvictAll implements storage.Cache.
func (r *RCache) EvictAll(ctx context.Context) {
	iter := r.client.Scan(ctx, 0, keyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			log.Warn().Err(err).Str("key", iter.Val()).Msg("unable to evict cache bucket")
		}
	}

	if err := iter.Err(); err != nil {
		log.Warn().Err(err).Msg("cache eviction scan failed")
	}
}

// EvictRates implements storage.Cache.
func (r *RCache) EvictRates(ctx context.Context, base string) {
	if err := r.client.Del(ctx, bucketKey(base)).Err(); err != nil {
		log.Warn().Err(err).Str("base", base).Msg("unable to evict cache bucket")
	}
}

// Available implements storage.Cache.
func (r *RCache) Available(ctx context.Context) bool {
	ctx, cancelFn := context.WithTimeout(ctx, pingTimeout)
	defer cancelFn()

	return r.client.Ping(ctx).Err() == nil
}
