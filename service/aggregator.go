package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/kylycht/fxrates/model"
	"github.com/kylycht/fxrates/source"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/semaphore"
)

// BaseLister supplies the base currencies the system tracks
type BaseLister interface {
	TrackedCurrencies(ctx context.Context) ([]model.Currency, error)
}

// Aggregator fans a rate fetch out to every configured
// source and reduces the answers into a single best rate
// per currency pair. A failing source never aborts the
// overall fetch and is never retried; its result is
// simply missing from the reduction.
type Aggregator struct {
	sources []source.RateSource // configured upstream providers, fixed at startup
	bases   BaseLister          // supplies tracked base currencies
	sem     *semaphore.Weighted // bounds concurrent source calls
	timeout time.Duration       // per-source call timeout

	// better decides whether candidate replaces current during
	// reduction. Defaults to maximum: the rate most favorable
	// to the customer receiving the target currency.
	better func(candidate, current decimal.Decimal) bool
}

func NewAggregator(sources []source.RateSource, bases BaseLister, workers int64, timeout time.Duration) *Aggregator {
	if workers <= 0 {
		workers = int64(len(sources))
	}
	if workers <= 0 {
		workers = 1
	}

	return &Aggregator{
		sources: sources,
		bases:   bases,
		sem:     semaphore.NewWeighted(workers),
		timeout: timeout,
		better:  decimal.Decimal.GreaterThan,
	}
}

// RatesForPair queries every available source for base and
// returns the rate each one reports for target, keyed by
// source name. Sources without the target contribute nothing;
// no contributing source yields an empty map, not an error.
func (a *Aggregator) RatesForPair(ctx context.Context, base, target string) map[string]decimal.Decimal {
	target = strings.ToUpper(target)
	rates := make(map[string]decimal.Decimal)

	for name, perSource := range a.fetchAll(ctx, strings.ToUpper(base)) {
		if rate, ok := perSource[target]; ok {
			rates[name] = rate
		}
	}

	return rates
}

// AggregateBestRates fetches rates for every tracked base
// currency and reduces per-source values to the best rate
// per pair. Bases with no contributing source are omitted.
func (a *Aggregator) AggregateBestRates(ctx context.Context) (model.RateTable, error) {
	currencies, err := a.bases.TrackedCurrencies(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to load tracked currencies: %w", err)
	}

	table := make(model.RateTable)

	for _, currency := range currencies {
		base := strings.ToUpper(currency.Code)

		best := a.reduce(a.fetchAll(ctx, base))
		if len(best) == 0 {
			log.Warn().Str("base", base).Msg("no source contributed rates for base")
			continue
		}

		table[base] = best
	}

	return table, nil
}

// Best reduces per-source rates for a single pair with the
// aggregator's comparator, found=false for an empty input
func (a *Aggregator) Best(rates map[string]decimal.Decimal) (decimal.Decimal, bool) {
	var (
		best  decimal.Decimal
		found bool
	)

	for _, rate := range rates {
		if !found || a.better(rate, best) {
			best = rate
			found = true
		}
	}

	return best, found
}

type sourceResult struct {
	name  string
	rates map[string]decimal.Decimal
}

// fetchAll issues one bounded concurrent call per available
// source and merges the per-source maps after all complete.
// Each goroutine owns its result until it is handed to the
// merge loop, so no shared state is mutated concurrently.
func (a *Aggregator) fetchAll(ctx context.Context, base string) map[string]map[string]decimal.Decimal {
	var (
		wg       = sync.WaitGroup{}
		resultsC = make(chan sourceResult)
	)

	for _, src := range a.sources {
		if !src.Available() {
			log.Debug().Str("source", src.Name()).Msg("skipping unavailable source")
			continue
		}

		if err := a.sem.Acquire(ctx, 1); err != nil {
			log.Error().Err(err).Msg("unable to acquire semaphore")
			break
		}

		wg.Add(1)
		go func(src source.RateSource) {
			defer wg.Done()
			defer a.sem.Release(1)

			fetchCtx, cancelFn := context.WithTimeout(ctx, a.timeout)
			defer cancelFn()

			rates, err := src.FetchLatestRates(fetchCtx, base)
			if err != nil {
				log.Error().Err(err).Str("source", src.Name()).Str("base", base).Msg("unable to fetch rates")
				return
			}

			usable := make(map[string]decimal.Decimal, len(rates))
			for target, rate := range rates {
				if !rate.IsPositive() {
					log.Warn().Str("source", src.Name()).Str("target", target).Msg("discarding non-positive rate")
					continue
				}
				usable[strings.ToUpper(target)] = rate
			}

			if len(usable) == 0 {
				log.Debug().Str("source", src.Name()).Str("base", base).Msg("source returned no usable rates")
				return
			}

			resultsC <- sourceResult{name: src.Name(), rates: usable}
		}(src)
	}

	go func() {
		wg.Wait()
		close(resultsC)
	}()

	merged := make(map[string]map[string]decimal.Decimal)
	for result := range resultsC {
		merged[result.name] = result.rates
	}

	return merged
}

func (a *Aggregator) reduce(perSource map[string]map[string]decimal.Decimal) map[string]decimal.Decimal {
	best := make(map[string]decimal.Decimal)

	for _, rates := range perSource {
		for target, rate := range rates {
			current, ok := best[target]
			if !ok || a.better(rate, current) {
				best[target] = rate
			}
		}
	}

	return best
}
