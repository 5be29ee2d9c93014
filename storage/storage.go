package storage

import (
	"context"
	"time"

	"github.com/kylycht/fxrates/model"
	"github.com/shopspring/decimal"
)

// Storage interface describes methods of the
// durable rate time series and currency reference data
type Storage interface {
	// SaveObservation appends one rate observation
	SaveObservation(ctx context.Context, obs model.RateObservation) error

	// LatestRate returns the most recent observation
	// for given pair, found=false when none exists
	LatestRate(ctx context.Context, base, target string) (model.RateObservation, bool, error)

	// RatesByPeriod returns all observations for given pair
	// between from and to, ordered by observation time ascending
	RatesByPeriod(ctx context.Context, base, target string, from, to time.Time) ([]model.RateObservation, error)

	// AllLatestRates returns the most recent observation
	// per distinct currency pair
	AllLatestRates(ctx context.Context) ([]model.RateObservation, error)

	// TrackedCurrencies loads all currencies
	// the system aggregates rates for
	TrackedCurrencies(ctx context.Context) ([]model.Currency, error)
}

// Cache interface describes the non-persistent
// rate cache keyed by base currency.
// The cache is an optimization: lookups degrade to a miss
// and mutations to a logged error when it is unreachable,
// callers must never fail because of it.
type Cache interface {
	// StoreRates overwrites the bucket for base, resetting its TTL
	StoreRates(ctx context.Context, base string, rates map[string]decimal.Decimal) error

	// StoreRate writes a single pair into the bucket for base
	// without discarding the rest of the bucket
	StoreRate(ctx context.Context, base, target string, rate decimal.Decimal) error

	// StoreBestRates stores one bucket per base of the table
	StoreBestRates(ctx context.Context, table model.RateTable) error

	// GetRate retrieves the cached rate for given pair,
	// found=false on miss, expiry or cache failure
	GetRate(ctx context.Context, base, target string) (decimal.Decimal, bool)

	// GetAllRates retrieves the whole bucket for base,
	// empty map on miss or cache failure
	GetAllRates(ctx context.Context, base string) map[string]decimal.Decimal

	// EvictAll drops every cached bucket
	EvictAll(ctx context.Context)

	// EvictRates drops the bucket for base
	EvictRates(ctx context.Context, base string)

	// Available reports whether the cache is reachable,
	// used to decide whether a write-back is worthwhile
	Available(ctx context.Context) bool
}
