package source

import (
	"context"

	"github.com/shopspring/decimal"
)

// RateSource interface describes a single
// upstream exchange rate provider
type RateSource interface {
	// Name returns the stable identifier of the provider,
	// used as the provenance key during aggregation
	Name() string

	// Available reports whether the provider is worth calling.
	// Must be fast and side effect free; an unavailable
	// provider is skipped without a network call.
	Available() bool

	// FetchLatestRates returns the latest rates for base.
	// May return an empty or nil map. Every call enforces
	// its own timeout; errors are handled by the caller.
	FetchLatestRates(ctx context.Context, base string) (map[string]decimal.Decimal, error)
}
