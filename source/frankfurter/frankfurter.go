package frankfurter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kylycht/fxrates/source"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

const (
	baseURL string = "https://api.frankfurter.app" // ECB reference rates, keyless
	name    string = "frankfurter"
)

type response struct {
	Amount decimal.Decimal            `json:"amount"`
	Base   string                     `json:"base"`
	Date   string                     `json:"date"`
	Rates  map[string]decimal.Decimal `json:"rates"`
}

type client struct {
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	guard       *source.Guard
}

func New(timeout time.Duration) source.RateSource {
	return &client{
		httpClient:  &http.Client{Timeout: timeout},
		rateLimiter: rate.NewLimiter(rate.Every(time.Second), 5),
		guard:       source.NewGuard(),
	}
}

// Name implements source.RateSource.
func (f *client) Name() string { return name }

// Available implements source.RateSource.
func (f *client) Available() bool { return f.guard.Available() }

// FetchLatestRates implements source.RateSource.
// GET /latest?base=USD
func (f *client) FetchLatestRates(ctx context.Context, base string) (map[string]decimal.Decimal, error) {
	var rates map[string]decimal.Decimal

	err := f.guard.Run(func() error {
		if err := f.rateLimiter.Wait(ctx); err != nil {
			return err
		}

		url := fmt.Sprintf("%s/latest?base=%s", baseURL, base)

		req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}

		resp, err := f.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("failed to get rates from frankfurter: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("frankfurter API returned status: %d", resp.StatusCode)
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response body: %w", err)
		}

		r := response{}
		if err := json.Unmarshal(body, &r); err != nil {
			return fmt.Errorf("failed to parse frankfurter response: %w", err)
		}

		rates = r.Rates
		return nil
	})
	if err != nil {
		return nil, err
	}

	return rates, nil
}
