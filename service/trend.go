package service

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/kylycht/fxrates/model"
	"github.com/kylycht/fxrates/storage"
	"github.com/shopspring/decimal"
)

// minTrendHours is the smallest hour window a trend can be
// computed over; shorter windows rarely hold two refreshes
const minTrendHours = 12

var (
	periodPattern = regexp.MustCompile(`^(\d+)([HDMY])$`)
	hundred       = decimal.NewFromInt(100)
)

// Trend computes the signed percentage change of a currency
// pair over a human specified period, reading only the
// durable time series: the cache holds no history.
type Trend struct {
	store storage.Storage
	now   func() time.Time
}

func NewTrend(store storage.Storage) *Trend {
	return &Trend{store: store, now: time.Now}
}

// CalculateTrend returns the percentage change between the
// oldest and newest observation inside the period window,
// rounded to 2 decimal places. Zero denotes no net change.
// Fails with ErrInvalidPeriod/ErrPeriodBelowMinimum before
// touching the store and with ErrInsufficientHistory when
// fewer than two observations fall inside the window.
func (t *Trend) CalculateTrend(ctx context.Context, base, target, period string) (decimal.Decimal, error) {
	now := t.now()

	start, err := periodStart(now, period)
	if err != nil {
		return decimal.Decimal{}, err
	}

	observations, err := t.store.RatesByPeriod(ctx, strings.ToUpper(base), strings.ToUpper(target), start, now)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("unable to query rates for %s/%s: %w", base, target, err)
	}

	if len(observations) < 2 {
		return decimal.Decimal{}, model.ErrInsufficientHistory
	}

	// the store may hand results back in any order
	oldest, newest := observations[0], observations[0]
	for _, obs := range observations[1:] {
		if obs.ObservedAt.Before(oldest.ObservedAt) {
			oldest = obs
		}
		if obs.ObservedAt.After(newest.ObservedAt) {
			newest = obs
		}
	}

	return newest.Rate.Sub(oldest.Rate).Div(oldest.Rate).Mul(hundred).Round(2), nil
}

// IsValidPeriod reports whether period matches the grammar
// without querying the store
func (t *Trend) IsValidPeriod(period string) bool {
	_, err := periodStart(t.now(), period)
	return err == nil
}

// periodStart parses <positive integer><H|D|M|Y>, case
// insensitive with surrounding whitespace allowed, and
// returns the start of the trend window. Month and year
// units subtract calendar units, not fixed durations.
func periodStart(now time.Time, period string) (time.Time, error) {
	period = strings.ToUpper(strings.TrimSpace(period))
	if period == "" {
		return time.Time{}, model.ErrInvalidPeriod
	}

	match := periodPattern.FindStringSubmatch(period)
	if match == nil {
		return time.Time{}, model.ErrInvalidPeriod
	}

	n, err := strconv.Atoi(match[1])
	if err != nil || n <= 0 {
		return time.Time{}, model.ErrInvalidPeriod
	}

	switch match[2] {
	case "H":
		if n < minTrendHours {
			return time.Time{}, model.ErrPeriodBelowMinimum
		}
		return now.Add(-time.Duration(n) * time.Hour), nil
	case "D":
		return now.AddDate(0, 0, -n), nil
	case "M":
		return now.AddDate(0, -n, 0), nil
	case "Y":
		return now.AddDate(-n, 0, 0), nil
	}

	return time.Time{}, model.ErrInvalidPeriod
}
