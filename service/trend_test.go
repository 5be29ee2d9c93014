package service

import (
	"context"
	"testing"
	"time"

	"github.com/kylycht/fxrates/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedNow() time.Time {
	return time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC)
}

func newTestTrend(store *fakeStore) *Trend {
	t := NewTrend(store)
	t.now = fixedNow
	return t
}

func TestIsValidPeriod(t *testing.T) {
	tr := newTestTrend(&fakeStore{})

	valid := []string{"12H", "24H", "7D", "30D", "3M", "1Y", "12h", "7d", " 30D ", "\t1y\n"}
	for _, period := range valid {
		assert.True(t, tr.IsValidPeriod(period), "period %q should be valid", period)
	}

	invalid := []string{"", "   ", "6H", "11h", "invalid", "10", "H12", "10DM", "7 D", "-7D", "1W", "D", "7.5D"}
	for _, period := range invalid {
		assert.False(t, tr.IsValidPeriod(period), "period %q should be invalid", period)
	}
}

func TestCalculateTrendPeriodValidation(t *testing.T) {
	store := &fakeStore{}
	tr := newTestTrend(store)

	_, err := tr.CalculateTrend(context.Background(), "USD", "EUR", "")
	assert.ErrorIs(t, err, model.ErrInvalidPeriod)

	_, err = tr.CalculateTrend(context.Background(), "USD", "EUR", "10DM")
	assert.ErrorIs(t, err, model.ErrInvalidPeriod)

	_, err = tr.CalculateTrend(context.Background(), "USD", "EUR", "0D")
	assert.ErrorIs(t, err, model.ErrInvalidPeriod)

	_, err = tr.CalculateTrend(context.Background(), "USD", "EUR", "6H")
	assert.ErrorIs(t, err, model.ErrPeriodBelowMinimum)

	assert.Zero(t, store.periodCalls, "validation failures must not query the store")
}

func TestCalculateTrendWindowBounds(t *testing.T) {
	store := &fakeStore{observations: []model.RateObservation{
		{Base: "USD", Target: "EUR", Rate: dec("1.10"), ObservedAt: fixedNow().AddDate(0, -2, 0)},
		{Base: "USD", Target: "EUR", Rate: dec("1.20"), ObservedAt: fixedNow().Add(-time.Hour)},
	}}
	tr := newTestTrend(store)

	_, err := tr.CalculateTrend(context.Background(), "USD", "EUR", "3M")
	require.NoError(t, err)

	// month arithmetic is calendar subtraction, not 30-day blocks
	assert.Equal(t, fixedNow().AddDate(0, -3, 0), store.lastFrom)
	assert.Equal(t, fixedNow(), store.lastTo)

	_, err = tr.CalculateTrend(context.Background(), "USD", "EUR", "24H")
	require.NoError(t, err)
	assert.Equal(t, fixedNow().Add(-24*time.Hour), store.lastFrom)
}

func TestCalculateTrendSigns(t *testing.T) {
	base := fixedNow().AddDate(0, 0, -5)

	tests := []struct {
		name     string
		oldest   string
		newest   string
		expected string
	}{
		{name: "appreciation", oldest: "1.10", newest: "1.20", expected: "9.09"},
		{name: "depreciation", oldest: "1.20", newest: "1.10", expected: "-8.33"},
		{name: "no net change", oldest: "1.15", newest: "1.15", expected: "0"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			// newest first: order of the store result must not matter
			store := &fakeStore{observations: []model.RateObservation{
				{Base: "USD", Target: "EUR", Rate: dec(tc.newest), ObservedAt: base.AddDate(0, 0, 3)},
				{Base: "USD", Target: "EUR", Rate: dec("99"), ObservedAt: base.AddDate(0, 0, 1)},
				{Base: "USD", Target: "EUR", Rate: dec(tc.oldest), ObservedAt: base},
			}}
			tr := newTestTrend(store)

			trend, err := tr.CalculateTrend(context.Background(), "USD", "EUR", "7D")
			require.NoError(t, err)
			assert.True(t, trend.Equal(dec(tc.expected)), "expected %s, got %s", tc.expected, trend)

			if tc.oldest == tc.newest {
				assert.False(t, trend.IsNegative(), "no net change reports as non-negative")
			}
		})
	}
}

func TestCalculateTrendInsufficientHistory(t *testing.T) {
	// zero observations
	tr := newTestTrend(&fakeStore{})
	_, err := tr.CalculateTrend(context.Background(), "USD", "EUR", "7D")
	assert.ErrorIs(t, err, model.ErrInsufficientHistory)

	// a single point cannot establish a trend
	tr = newTestTrend(&fakeStore{observations: []model.RateObservation{
		{Base: "USD", Target: "EUR", Rate: dec("1.10"), ObservedAt: fixedNow().Add(-time.Hour)},
	}})
	_, err = tr.CalculateTrend(context.Background(), "USD", "EUR", "7D")
	assert.ErrorIs(t, err, model.ErrInsufficientHistory)
}
