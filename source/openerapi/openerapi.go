package openerapi

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
	baseURL string = "https://open.er-api.com/v6/latest" // open access endpoint, keyless
	name    string = "open-er-api"
)

type response struct {
	Result   string                     `json:"result"`
	BaseCode string                     `json:"base_code"`
	Rates    map[string]decimal.Decimal `json:"rates"`
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
func (o *client) Name() string { return name }

// Available implements source.RateSource.
func (o *client) Available() bool { return o.guard.Available() }

// FetchLatestRates implements source.RateSource.
// GET /v6/latest/USD
func (o *client) FetchLatestRates(ctx context.Context, base string) (map[string]decimal.Decimal, error) {
	var rates map[string]decimal.Decimal

	err := o.guard.Run(func() error {
		if err := o.rateLimiter.Wait(ctx); err != nil {
			return err
		}

		url := fmt.Sprintf("%s/%s", baseURL, base)

		req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}

		resp, err := o.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("failed to get rates from open er-api: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("open er-api returned status: %d", resp.StatusCode)
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response body: %w", err)
		}

		r := response{}
		if err := json.Unmarshal(body, &r); err != nil {
			return fmt.Errorf("failed to parse open er-api response: %w", err)
		}

		if r.Result != "success" {
			return fmt.Errorf("open er-api returned result: %s", r.Result)
		}

		rates = r.Rates
		return nil
	})
	if err != nil {
		return nil, err
	}

	return rates, nil
}
