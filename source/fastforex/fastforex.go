package fastforex

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/kylycht/fxrates/source"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

const (
	baseURL string = "https://api.fastforex.io/" // base URL of Forex API
	name    string = "fastforex"
)

type response struct {
	Base    string                     `json:"base"`
	Results map[string]decimal.Decimal `json:"results"`
	Updated string                     `json:"updated"`
	Ms      int                        `json:"ms"`
}

type client struct {
	baseURL     *url.URL      // Base URL for API requests
	httpClient  *http.Client  // HTTP client used to communicate with the API.
	rateLimiter *rate.Limiter // Rate limiter for forex api
	guard       *source.Guard // circuit breaker around fetches
}

func New(apiKey string, timeout time.Duration) (source.RateSource, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}

	c := &client{
		rateLimiter: rate.NewLimiter(rate.Every(time.Second), 10),
		guard:       source.NewGuard(),
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: roundTripperFn(
				func(req *http.Request) (*http.Response, error) {

					params := req.URL.Query()
					params.Set("api_key", apiKey)
					req.URL.RawQuery = params.Encode()

					return http.DefaultTransport.RoundTrip(req)
				},
			),
		},
		baseURL: base,
	}

	return c, nil
}

// Name implements source.RateSource.
func (f *client) Name() string { return name }

// Available implements source.RateSource.
func (f *client) Available() bool { return f.guard.Available() }

// FetchLatestRates implements source.RateSource.
// GET /fetch-all?from=USD
func (f *client) FetchLatestRates(ctx context.Context, base string) (map[string]decimal.Decimal, error) {
	var rates map[string]decimal.Decimal

	err := f.guard.Run(func() error {
		u, err := f.baseURL.Parse("fetch-all")
		if err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
		if err != nil {
			return err
		}

		query := req.URL.Query()
		query.Add("from", base)
		req.URL.RawQuery = query.Encode()

		r := &response{}
		if err := f.do(ctx, req, r); err != nil {
			return err
		}

		rates = r.Results
		return nil
	})
	if err != nil {
		return nil, err
	}

	return rates, nil
}

func (f *client) do(ctx context.Context, req *http.Request, v interface{}) error {
	err := f.rateLimiter.Wait(ctx)
	if err != nil {
		return err
	}

	log.Debug().Str("url", req.URL.String()).Msg("fetching information from API")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return err
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unable to fetch rates due to code: %d", resp.StatusCode)
	}

	decErr := json.NewDecoder(resp.Body).Decode(v)
	if decErr == io.EOF {
		decErr = nil // ignore EOF errors caused by empty response body
	}

	return decErr
}

type roundTripperFn func(*http.Request) (*http.Response, error)

func (fn roundTripperFn) RoundTrip(r *http.Request) (*http.Response, error) {
	return fn(r)
}
