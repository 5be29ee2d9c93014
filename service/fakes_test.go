package service

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kylycht/fxrates/model"
	"github.com/shopspring/decimal"
)

func dec(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

type fakeSource struct {
	name        string
	rates       map[string]decimal.Decimal
	err         error
	unavailable bool
	calls       atomic.Int32
}

func (f *fakeSource) Name() string    { return f.name }
func (f *fakeSource) Available() bool { return !f.unavailable }

func (f *fakeSource) FetchLatestRates(_ context.Context, _ string) (map[string]decimal.Decimal, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.rates, nil
}

type fakeStore struct {
	mu           sync.Mutex
	observations []model.RateObservation
	currencies   []model.Currency
	saved        []model.RateObservation
	saveErr      error
	err          error

	latestCalls    int
	allLatestCalls int
	periodCalls    int
	lastFrom       time.Time
	lastTo         time.Time
}

func (f *fakeStore) SaveObservation(_ context.Context, obs model.RateObservation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, obs)
	return nil
}

func (f *fakeStore) LatestRate(_ context.Context, base, target string) (model.RateObservation, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.latestCalls++
	if f.err != nil {
		return model.RateObservation{}, false, f.err
	}

	var (
		latest model.RateObservation
		found  bool
	)
	for _, obs := range f.observations {
		if !strings.EqualFold(obs.Base, base) || !strings.EqualFold(obs.Target, target) {
			continue
		}
		if !found || obs.ObservedAt.After(latest.ObservedAt) {
			latest = obs
			found = true
		}
	}
	return latest, found, nil
}

func (f *fakeStore) RatesByPeriod(_ context.Context, base, target string, from, to time.Time) ([]model.RateObservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.periodCalls++
	f.lastFrom, f.lastTo = from, to
	if f.err != nil {
		return nil, f.err
	}

	var matched []model.RateObservation
	for _, obs := range f.observations {
		if strings.EqualFold(obs.Base, base) && strings.EqualFold(obs.Target, target) {
			matched = append(matched, obs)
		}
	}
	return matched, nil
}

func (f *fakeStore) AllLatestRates(_ context.Context) ([]model.RateObservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.allLatestCalls++
	if f.err != nil {
		return nil, f.err
	}
	return f.observations, nil
}

func (f *fakeStore) TrackedCurrencies(_ context.Context) ([]model.Currency, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.currencies, nil
}

type fakeCache struct {
	data        map[string]map[string]decimal.Decimal
	unavailable bool
	storeErr    error

	getCalls        int
	getAllCalls     int
	storeRateCalls  int
	storeRatesCalls int
	evictAllCalls   int
	bestStored      model.RateTable
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string]map[string]decimal.Decimal)}
}

func (f *fakeCache) StoreRates(_ context.Context, base string, rates map[string]decimal.Decimal) error {
	f.storeRatesCalls++
	if f.storeErr != nil {
		return f.storeErr
	}
	bucket := make(map[string]decimal.Decimal, len(rates))
	for target, rate := range rates {
		bucket[strings.ToUpper(target)] = rate
	}
	f.data[strings.ToUpper(base)] = bucket
	return nil
}

func (f *fakeCache) StoreRate(_ context.Context, base, target string, rate decimal.Decimal) error {
	f.storeRateCalls++
	if f.storeErr != nil {
		return f.storeErr
	}
	base = strings.ToUpper(base)
	if f.data[base] == nil {
		f.data[base] = make(map[string]decimal.Decimal)
	}
	f.data[base][strings.ToUpper(target)] = rate
	return nil
}

func (f *fakeCache) StoreBestRates(ctx context.Context, table model.RateTable) error {
	f.bestStored = table
	for base, rates := range table {
		if err := f.StoreRates(ctx, base, rates); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeCache) GetRate(_ context.Context, base, target string) (decimal.Decimal, bool) {
	f.getCalls++
	rate, ok := f.data[strings.ToUpper(base)][strings.ToUpper(target)]
	return rate, ok
}

func (f *fakeCache) GetAllRates(_ context.Context, base string) map[string]decimal.Decimal {
	f.getAllCalls++
	rates := make(map[string]decimal.Decimal)
	for target, rate := range f.data[strings.ToUpper(base)] {
		rates[target] = rate
	}
	return rates
}

func (f *fakeCache) EvictAll(_ context.Context) {
	f.evictAllCalls++
	f.data = make(map[string]map[string]decimal.Decimal)
}

func (f *fakeCache) EvictRates(_ context.Context, base string) {
	delete(f.data, strings.ToUpper(base))
}

func (f *fakeCache) Available(_ context.Context) bool { return !f.unavailable }

type fakeAggregator struct {
	table     model.RateTable
	err       error
	pairRates map[string]decimal.Decimal
	calls     int
}

func (f *fakeAggregator) RatesForPair(_ context.Context, _, _ string) map[string]decimal.Decimal {
	return f.pairRates
}

func (f *fakeAggregator) AggregateBestRates(_ context.Context) (model.RateTable, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.table, nil
}

func (f *fakeAggregator) Best(rates map[string]decimal.Decimal) (decimal.Decimal, bool) {
	var (
		best  decimal.Decimal
		found bool
	)
	for _, rate := range rates {
		if !found || rate.GreaterThan(best) {
			best = rate
			found = true
		}
	}
	return best, found
}
