// File: pkg/broker/kraken/kclient.go
package kraken

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/Marianu08/trading-alg-rama01/utilities"
)

// Client is a thin Kraken REST client covering the read-only endpoints the
// reconciliation engine consumes.
type Client struct {
	BaseURL        string
	APIKey         string
	APISecret      string
	HTTPClient     *http.Client
	limiter        *rate.Limiter
	logger         *utilities.Logger
	nonceGenerator *utilities.KrakenNonceGenerator
	cfg            *utilities.KrakenConfig
}

func NewClient(appCfg *utilities.KrakenConfig, HTTPClient *http.Client, logger *utilities.Logger) *Client {
	if appCfg == nil {
		panic("Kraken Client requires non-nil KrakenConfig")
	}
	if logger == nil {
		logger = utilities.NewLogger(utilities.Info)
		logger.LogWarn("Kraken.NewClient: Logger fallback used.")
	}
	if HTTPClient == nil {
		HTTPClient = &http.Client{
			Timeout: time.Duration(appCfg.RequestTimeoutSec) * time.Second,
		}
	}
	burst := appCfg.RateBurst
	if burst == 0 {
		burst = 1
	}
	perSec := appCfg.RateLimitPerSec
	if perSec == 0 {
		perSec = 1
	}
	return &Client{
		BaseURL:        appCfg.BaseURL,
		APIKey:         appCfg.APIKey,
		APISecret:      appCfg.APISecret,
		HTTPClient:     HTTPClient,
		limiter:        rate.NewLimiter(rate.Limit(perSec), burst),
		logger:         logger,
		nonceGenerator: utilities.NewNonceCounter(),
		cfg:            appCfg,
	}
}

// GetBalancesAPI returns the raw account balance map (asset key -> amount
// string).
func (c *Client) GetBalancesAPI(ctx context.Context) (map[string]string, error) {
	var resp struct {
		Error  []string          `json:"error"`
		Result map[string]string `json:"result"`
	}
	if err := c.callPrivate(ctx, "/0/private/Balance", nil, &resp); err != nil {
		return nil, err
	}
	if len(resp.Error) > 0 {
		return nil, errors.New(strings.Join(resp.Error, ", "))
	}
	return resp.Result, nil
}

// GetOpenOrdersAPI returns the currently open orders keyed by transaction id.
func (c *Client) GetOpenOrdersAPI(ctx context.Context) (map[string]KrakenOrderInfo, error) {
	params := url.Values{"trades": {"false"}}
	var resp struct {
		Error  []string `json:"error"`
		Result struct {
			Open map[string]KrakenOrderInfo `json:"open"`
		} `json:"result"`
	}
	if err := c.callPrivate(ctx, "/0/private/OpenOrders", params, &resp); err != nil {
		return nil, err
	}
	if len(resp.Error) > 0 {
		return nil, errors.New(strings.Join(resp.Error, ", "))
	}
	return resp.Result.Open, nil
}

// GetTickersAPI fetches ticker info for a comma-separated pair list in one
// round trip. The result is keyed by Kraken's own pair spelling.
func (c *Client) GetTickersAPI(ctx context.Context, pairsCSV string) (map[string]TickerInfo, error) {
	var resp struct {
		Error  []string              `json:"error"`
		Result map[string]TickerInfo `json:"result"`
	}
	params := url.Values{"pair": {pairsCSV}}
	if err := c.callPublic(ctx, "/0/public/Ticker", params, &resp); err != nil {
		return nil, err
	}
	if len(resp.Error) > 0 {
		return nil, errors.New(strings.Join(resp.Error, ", "))
	}
	return resp.Result, nil
}

// GetEarnAllocationsAPI returns the non-zero earn/staking allocations.
func (c *Client) GetEarnAllocationsAPI(ctx context.Context) ([]EarnAllocation, error) {
	params := url.Values{"hide_zero_allocations": {"true"}}
	var resp struct {
		Error  []string `json:"error"`
		Result struct {
			Items []EarnAllocation `json:"items"`
		} `json:"result"`
	}
	if err := c.callPrivate(ctx, "/0/private/Earn/Allocations", params, &resp); err != nil {
		return nil, err
	}
	if len(resp.Error) > 0 {
		return nil, errors.New(strings.Join(resp.Error, ", "))
	}
	return resp.Result.Items, nil
}

// GetTradesHistoryAPI returns one page of the account's trade history at the
// given offset. Kraken serves the history newest-first.
func (c *Client) GetTradesHistoryAPI(ctx context.Context, offset int) (map[string]KrakenTradeInfo, error) {
	params := url.Values{
		"trades": {"false"},
		"ofs":    {strconv.Itoa(offset)},
	}
	var resp struct {
		Error  []string `json:"error"`
		Result struct {
			Trades map[string]KrakenTradeInfo `json:"trades"`
		} `json:"result"`
	}
	if err := c.callPrivate(ctx, "/0/private/TradesHistory", params, &resp); err != nil {
		return nil, err
	}
	if len(resp.Error) > 0 {
		return nil, errors.New(strings.Join(resp.Error, ", "))
	}
	return resp.Result.Trades, nil
}

// GetOHLCAPI fetches OHLC bars for a pair. Interval is in minutes; since is
// a unix timestamp (0 = as far back as Kraken serves).
func (c *Client) GetOHLCAPI(ctx context.Context, pair string, intervalMinutes int, since int64) ([][]interface{}, error) {
	params := url.Values{
		"pair":     {pair},
		"interval": {strconv.Itoa(intervalMinutes)},
	}
	if since > 0 {
		params.Set("since", strconv.FormatInt(since, 10))
	}
	var resp struct {
		Error  []string               `json:"error"`
		Result map[string]interface{} `json:"result"`
	}
	if err := c.callPublic(ctx, "/0/public/OHLC", params, &resp); err != nil {
		return nil, err
	}
	if len(resp.Error) > 0 {
		return nil, errors.New(strings.Join(resp.Error, ", "))
	}

	// The result holds the bar array under the pair key plus a "last" cursor.
	for key, val := range resp.Result {
		if key == "last" {
			continue
		}
		rawBars, ok := val.([]interface{})
		if !ok {
			return nil, fmt.Errorf("kraken: unexpected OHLC payload type for %s", key)
		}
		bars := make([][]interface{}, 0, len(rawBars))
		for _, rb := range rawBars {
			if bar, ok := rb.([]interface{}); ok {
				bars = append(bars, bar)
			}
		}
		return bars, nil
	}
	return nil, nil
}

func (c *Client) callPrivate(ctx context.Context, apiPath string, data url.Values, target interface{}) error {
	if c.APIKey == "" || c.APISecret == "" {
		return errors.New("kraken: API key or secret not configured")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("kraken: rate limiter wait for %s: %w", apiPath, err)
	}
	nonce := c.nonceGenerator.Nonce()
	nonceStr := strconv.FormatUint(nonce, 10)
	if data == nil {
		data = url.Values{}
	}
	data.Set("nonce", nonceStr)

	authHeaders, err := utilities.GenerateKrakenAuthHeaders(c.APIKey, c.APISecret, apiPath, nonceStr, data)
	if err != nil {
		return fmt.Errorf("kraken: generate auth headers for %s: %w", apiPath, err)
	}

	fullURL := c.BaseURL + apiPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fullURL, strings.NewReader(data.Encode()))
	if err != nil {
		return fmt.Errorf("kraken: create private request for %s: %w", apiPath, err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", "trading-alg-rama/1.0")
	for key, val := range authHeaders {
		req.Header.Set(key, val)
	}
	c.logger.LogDebug("Kraken callPrivate: URL=%s, Nonce=%s", fullURL, nonceStr)

	return utilities.DoJSONRequest(c.HTTPClient, req, c.maxRetries(), c.retryDelay(), target)
}

func (c *Client) callPublic(ctx context.Context, path string, params url.Values, target interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("kraken: rate limiter wait for %s: %w", path, err)
	}
	endpoint := c.BaseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	c.logger.LogDebug("Kraken callPublic: URL=%s", endpoint)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("kraken: create public request for %s: %w", endpoint, err)
	}
	req.Header.Set("User-Agent", "trading-alg-rama/1.0")

	return utilities.DoJSONRequest(c.HTTPClient, req, c.maxRetries(), c.retryDelay(), target)
}

func (c *Client) maxRetries() int {
	if c.cfg.MaxRetries > 0 {
		return c.cfg.MaxRetries
	}
	return 2
}

func (c *Client) retryDelay() time.Duration {
	if c.cfg.RetryDelaySec > 0 {
		return time.Duration(c.cfg.RetryDelaySec) * time.Second
	}
	return 2 * time.Second
}
