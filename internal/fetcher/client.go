package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"

	"pricewatch/internal/series"
)

const (
	sourceMetadata  = "metadata"
	sourcePrices    = "price"
	sourceAnomalies = "statistics"
)

// ClientOptions parameterise the backend API client.
type ClientOptions struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
	// BreakerFailures is the number of consecutive failures that opens the breaker.
	BreakerFailures uint32
	BreakerCooldown time.Duration
}

// Client talks to the price analytics API and implements all three sources.
type Client struct {
	http    *resty.Client
	breaker *gobreaker.CircuitBreaker
	logger  zerolog.Logger
}

// NewClient constructs an API client.
func NewClient(opts ClientOptions, logger zerolog.Logger) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "http://localhost:8000/api"
	}

	ua := strings.TrimSpace(opts.UserAgent)
	if ua == "" {
		ua = "pricewatch/1.0"
	}

	failures := opts.BreakerFailures
	if failures == 0 {
		failures = 5
	}
	cooldown := opts.BreakerCooldown
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}

	log := logger.With().Str("component", "api_client").Logger()

	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", ua)

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "price-api",
		Timeout: cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	})

	return &Client{http: httpClient, breaker: breaker, logger: log}
}

type itemsResponse struct {
	Items []string `json:"items"`
}

type pricesResponse struct {
	Region    string               `json:"region"`
	Commodity string               `json:"commodity"`
	Unit      string               `json:"unit"`
	Records   []series.PriceRecord `json:"records"`
}

type anomaliesResponse struct {
	Region    string                `json:"region"`
	Commodity string                `json:"commodity"`
	Window    int                   `json:"window"`
	Threshold float64               `json:"threshold"`
	Points    []series.AnomalyPoint `json:"points"`
}

type errorResponse struct {
	Detail  json.RawMessage `json:"detail"`
	Message string          `json:"message"`
}

// Commodities lists commodity names.
func (c *Client) Commodities(ctx context.Context) ([]string, error) {
	var out itemsResponse
	if err := c.get(ctx, sourceMetadata, "/commodities", nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// Regions lists region names.
func (c *Client) Regions(ctx context.Context) ([]string, error) {
	var out itemsResponse
	if err := c.get(ctx, sourceMetadata, "/regions", nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// FetchPrices retrieves the price history for commodity/region.
func (c *Client) FetchPrices(ctx context.Context, commodity, region string, window int) ([]series.PriceRecord, error) {
	params := map[string]string{
		"commodity": commodity,
		"region":    region,
	}
	if window > 0 {
		params["window"] = strconv.Itoa(window)
	}

	var out pricesResponse
	if err := c.get(ctx, sourcePrices, "/prices", params, &out); err != nil {
		return nil, err
	}
	return out.Records, nil
}

// FetchAnomalies retrieves anomaly points scored above zThreshold.
func (c *Client) FetchAnomalies(ctx context.Context, commodity, region string, window int, zThreshold decimal.Decimal) ([]series.AnomalyPoint, error) {
	params := map[string]string{
		"commodity": commodity,
		"region":    region,
		"window":    strconv.Itoa(window),
		"z":         zThreshold.String(),
	}

	var out anomaliesResponse
	if err := c.get(ctx, sourceAnomalies, "/anomalies", params, &out); err != nil {
		return nil, err
	}
	return out.Points, nil
}

func (c *Client) get(ctx context.Context, source, path string, params map[string]string, dest interface{}) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		req := c.http.R().SetContext(ctx).SetResult(dest)
		if len(params) > 0 {
			req.SetQueryParams(params)
		}

		resp, err := req.Get(path)
		if err != nil {
			return nil, err
		}
		if resp.IsError() {
			return nil, parseHTTPError(resp.StatusCode(), resp.Body())
		}
		return nil, nil
	})
	if err != nil {
		c.logger.Debug().Err(err).Str("source", source).Str("path", path).Msg("request failed")
		return &CollaboratorError{Source: source, Err: err}
	}
	return nil
}

func parseHTTPError(status int, payload []byte) error {
	var apiErr errorResponse
	if err := json.Unmarshal(payload, &apiErr); err == nil {
		if apiErr.Message != "" {
			return fmt.Errorf("api error (%d): %s", status, apiErr.Message)
		}
		if len(apiErr.Detail) > 0 {
			return fmt.Errorf("api error (%d): %s", status, strings.Trim(string(apiErr.Detail), `"`))
		}
	}
	if len(payload) > 0 {
		return fmt.Errorf("api error (%d): %s", status, strings.TrimSpace(string(payload)))
	}
	return fmt.Errorf("api error (%d)", status)
}

var (
	_ MetadataSource = (*Client)(nil)
	_ PriceSource    = (*Client)(nil)
	_ AnomalySource  = (*Client)(nil)
)
