package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// RateObservation is a single durable rate sample
// for a currency pair, produced by a refresh cycle
type RateObservation struct {
	Base       string          `json:"base"`       // base currency code
	Target     string          `json:"target"`     // target currency code
	Rate       decimal.Decimal `json:"rate"`       // observed exchange rate, always > 0
	ObservedAt time.Time       `json:"observedAt"` // when the rate was recorded
	Source     string          `json:"source"`     // provenance tag of the rate
}

// RateTable maps base currency -> target currency -> rate
type RateTable map[string]map[string]decimal.Decimal
