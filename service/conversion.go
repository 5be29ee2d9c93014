package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kylycht/fxrates/model"
	"github.com/kylycht/fxrates/storage"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// AggregatedSource tags observations produced by a refresh
// cycle as reduced best values rather than raw provider data
const AggregatedSource = "aggregate"

type rateAggregator interface {
	RatesForPair(ctx context.Context, base, target string) map[string]decimal.Decimal
	AggregateBestRates(ctx context.Context) (model.RateTable, error)
	Best(rates map[string]decimal.Decimal) (decimal.Decimal, bool)
}

// Conversion is the public facing orchestration: it converts
// amounts through the cached/persisted rate path and drives
// the refresh cycle that keeps that path current.
type Conversion struct {
	aggregator rateAggregator
	retrieval  *Retrieval
	cache      storage.Cache
	store      storage.Storage
	now        func() time.Time
}

func NewConversion(aggregator rateAggregator, retrieval *Retrieval, cache storage.Cache, store storage.Storage) *Conversion {
	return &Conversion{
		aggregator: aggregator,
		retrieval:  retrieval,
		cache:      cache,
		store:      store,
		now:        time.Now,
	}
}

// Convert converts amount from one currency to another using
// the latest known rate, rounded to 2 decimal places. An
// identity conversion returns the amount unchanged without a
// lookup. found=false means no rate is known for the pair.
func (c *Conversion) Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, bool, error) {
	if strings.EqualFold(from, to) {
		return amount, true, nil
	}

	rate, found, err := c.retrieval.GetRate(ctx, from, to)
	if err != nil {
		return decimal.Decimal{}, false, err
	}
	if !found {
		return decimal.Decimal{}, false, nil
	}

	return amount.Mul(rate).Round(2), true, nil
}

// RefreshRates runs one full refresh cycle: aggregate best
// rates across all sources, persist one observation per pair,
// then evict and repopulate the cache in a single bulk write
// so stale values are never served afterwards. Returns the
// number of observations written; an empty aggregation writes
// nothing and is not an error. If aggregation itself fails no
// persistence or cache mutation happens at all.
func (c *Conversion) RefreshRates(ctx context.Context) (int, error) {
	table, err := c.aggregator.AggregateBestRates(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", model.ErrRefreshFailed, err)
	}

	if len(table) == 0 {
		log.Warn().Msg("aggregation yielded no rates, nothing to refresh")
		return 0, nil
	}

	observedAt := c.now()
	count := 0

	for base, rates := range table {
		for target, rate := range rates {
			obs := model.RateObservation{
				Base:       base,
				Target:     target,
				Rate:       rate,
				ObservedAt: observedAt,
				Source:     AggregatedSource,
			}

			if err := c.store.SaveObservation(ctx, obs); err != nil {
				return count, fmt.Errorf("unable to persist observation %s/%s: %w", base, target, err)
			}
			count++
		}
	}

	c.cache.EvictAll(ctx)
	if err := c.cache.StoreBestRates(ctx, table); err != nil {
		log.Error().Err(err).Msg("unable to repopulate cache after refresh")
	}

	log.Info().Int("observations", count).Msg("rates refreshed")
	return count, nil
}

// BestRate queries all sources on demand and returns the best
// current rate for the pair, bypassing cache and store
func (c *Conversion) BestRate(ctx context.Context, base, target string) (decimal.Decimal, bool) {
	return c.aggregator.Best(c.aggregator.RatesForPair(ctx, base, target))
}

// HistoricalRates returns the persisted observations for the
// pair within [from, to], oldest first, empty when none exist
func (c *Conversion) HistoricalRates(ctx context.Context, base, target string, from, to time.Time) ([]model.RateObservation, error) {
	return c.store.RatesByPeriod(ctx, strings.ToUpper(base), strings.ToUpper(target), from, to)
}
