package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/kylycht/fxrates/storage"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Retrieval answers rate lookups cache-first with a
// transparent fallback to the durable store. The store is
// the single source of truth; the cache is only ever
// populated from it, never the other way around.
type Retrieval struct {
	cache storage.Cache
	store storage.Storage
}

func NewRetrieval(cache storage.Cache, store storage.Storage) *Retrieval {
	return &Retrieval{cache: cache, store: store}
}

// GetRate returns the latest known rate for the pair.
// On a cache hit the store is not touched. On a miss the
// store's latest observation is returned and written back
// into the cache when the cache is reachable. An unknown
// pair yields found=false, not an error.
func (r *Retrieval) GetRate(ctx context.Context, base, target string) (decimal.Decimal, bool, error) {
	base = strings.ToUpper(base)
	target = strings.ToUpper(target)

	if rate, ok := r.cache.GetRate(ctx, base, target); ok {
		return rate, true, nil
	}

	obs, found, err := r.store.LatestRate(ctx, base, target)
	if err != nil {
		return decimal.Decimal{}, false, fmt.Errorf("unable to query latest rate for %s/%s: %w", base, target, err)
	}
	if !found {
		return decimal.Decimal{}, false, nil
	}

	if r.cache.Available(ctx) {
		if err := r.cache.StoreRate(ctx, base, target, obs.Rate); err != nil {
			log.Warn().Err(err).Str("base", base).Str("target", target).Msg("unable to write rate back to cache")
		}
	}

	return obs.Rate, true, nil
}

// GetAllRates returns every known rate for base, cache-first
// with store fallback and bulk write-back. An empty map means
// no rates are known for the base.
func (r *Retrieval) GetAllRates(ctx context.Context, base string) (map[string]decimal.Decimal, error) {
	base = strings.ToUpper(base)

	if rates := r.cache.GetAllRates(ctx, base); len(rates) > 0 {
		return rates, nil
	}

	latest, err := r.store.AllLatestRates(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to query latest rates: %w", err)
	}

	rates := make(map[string]decimal.Decimal)
	for _, obs := range latest {
		if strings.EqualFold(obs.Base, base) {
			rates[strings.ToUpper(obs.Target)] = obs.Rate
		}
	}

	if len(rates) > 0 && r.cache.Available(ctx) {
		if err := r.cache.StoreRates(ctx, base, rates); err != nil {
			log.Warn().Err(err).Str("base", base).Msg("unable to write rates back to cache")
		}
	}

	return rates, nil
}

// IsRateAvailable reports whether any rate is known for the pair
func (r *Retrieval) IsRateAvailable(ctx context.Context, base, target string) bool {
	_, found, err := r.GetRate(ctx, base, target)
	if err != nil {
		log.Error().Err(err).Str("base", base).Str("target", target).Msg("rate availability check failed")
		return false
	}

	return found
}
