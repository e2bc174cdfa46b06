package external

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

// DefaultSymbols maps registry symbols to CoinGecko IDs when no mapping is configured.
var DefaultSymbols = map[string]string{
	"BTC": "bitcoin",
	"ETH": "ethereum",
	"XLM": "stellar",
}

// CoinGeckoClient fetches prices from the CoinGecko API.
type CoinGeckoClient struct {
	baseURL    string
	httpClient *http.Client
	delay      time.Duration
	maxRetries int
	limiter    *rate.Limiter
}

// NewCoinGeckoClient creates a new CoinGecko API client. A nil limiter means no throttling.
func NewCoinGeckoClient(baseURL string, delay time.Duration, maxRetries int, limiter *rate.Limiter) *CoinGeckoClient {
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}
	return &CoinGeckoClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		delay:      delay,
		maxRetries: maxRetries,
		limiter:    limiter,
	}
}

// FetchPrices fetches prices in currency for the given CoinGecko IDs.
// Returns a map of coin ID -> price. IDs missing from the response are absent from the map.
func (c *CoinGeckoClient) FetchPrices(ctx context.Context, ids []string, currency string) (map[string]decimal.Decimal, error) {
	if len(ids) == 0 {
		return map[string]decimal.Decimal{}, nil
	}
	currency = strings.ToLower(currency)

	url := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=%s", c.baseURL, strings.Join(ids, ","), currency)

	body, err := c.fetchWithRetry(ctx, url)
	if err != nil {
		return nil, err
	}

	// Parse: {"bitcoin":{"usd":45000},"ethereum":{"usd":2500},...}
	var raw map[string]map[string]decimal.Decimal
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parsing CoinGecko response: %w", err)
	}

	result := make(map[string]decimal.Decimal, len(raw))
	for id, prices := range raw {
		p, ok := prices[currency]
		if !ok {
			continue
		}
		result[id] = p
	}
	return result, nil
}

func (c *CoinGeckoClient) fetchWithRetry(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	for attempt := range c.maxRetries + 1 {
		if attempt > 0 {
			baseDelay := c.delay
			if baseDelay == 0 {
				baseDelay = 10 * time.Second
			}
			delay := baseDelay * time.Duration(1<<uint(attempt-1))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting for CoinGecko rate limiter: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("creating CoinGecko request: %w", err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("CoinGecko request failed: %w", err)
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("reading CoinGecko response: %w", err)
		}

		if resp.StatusCode == http.StatusOK {
			return body, nil
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("CoinGecko rate limited (attempt %d/%d)", attempt+1, c.maxRetries+1)
			continue
		}

		return nil, fmt.Errorf("CoinGecko HTTP %d: %s", resp.StatusCode, string(body))
	}

	return nil, lastErr
}
