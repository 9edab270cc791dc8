// Package yahoo provides a client for the Yahoo Finance chart API with a
// direct/relay transport fallback for blocked networks.
package yahoo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"stockgrid/internal/common"
	"stockgrid/internal/models"
)

const (
	DefaultBaseURL     = "https://query1.finance.yahoo.com/v8/finance/chart"
	DefaultRelayPrefix = "https://r.jina.ai/"
	DefaultTimeout     = 15 * time.Second
	DefaultRateLimit   = 5 // requests per second

	// metadataRangeToken is the range probe used when only meta is needed.
	metadataRangeToken = "5d"
)

// defaultUserAgent mimics a desktop browser; the upstream serves HTML
// challenge pages to obvious non-browser agents.
const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// Client implements the ChartClient interface.
type Client struct {
	baseURL     string
	relayPrefix string
	userAgent   string
	timeout     time.Duration
	httpClient  *http.Client
	logger      *common.Logger
	limiter     *rate.Limiter

	// preferRelay sticks for the client's lifetime once a direct request is
	// blocked. Guarded by mu; ResetTransport clears it for tests.
	mu          sync.Mutex
	preferRelay bool
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the chart API base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithRelayPrefix sets the read-through relay prefix
func WithRelayPrefix(prefix string) ClientOption {
	return func(c *Client) {
		c.relayPrefix = prefix
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the request pacing limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout sets the per-attempt timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// NewClient creates a new chart API client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:     DefaultBaseURL,
		relayPrefix: DefaultRelayPrefix,
		userAgent:   defaultUserAgent,
		timeout:     DefaultTimeout,
		httpClient:  &http.Client{},
		limiter:     rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:      common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// ResetTransport clears the relay preference, for test isolation.
func (c *Client) ResetTransport() {
	c.mu.Lock()
	c.preferRelay = false
	c.mu.Unlock()
}

func (c *Client) relayPreferred() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.preferRelay
}

func (c *Client) setRelayPreferred() {
	c.mu.Lock()
	c.preferRelay = true
	c.mu.Unlock()
}

// chartQuery selects either a range token probe or an explicit Unix-second
// window.
type chartQuery struct {
	rangeToken string
	period1    int64
	period2    int64
}

func (c *Client) chartURL(ticker string, q chartQuery) string {
	params := url.Values{}
	params.Set("interval", "1d")
	params.Set("includePrePost", "false")
	params.Set("events", "div,splits")
	if q.rangeToken != "" {
		params.Set("range", q.rangeToken)
	} else {
		params.Set("period1", strconv.FormatInt(q.period1, 10))
		params.Set("period2", strconv.FormatInt(q.period2, 10))
	}
	return fmt.Sprintf("%s/%s?%s", c.baseURL, url.PathEscape(ticker), params.Encode())
}

func (c *Client) relayURL(directURL string) string {
	return c.relayPrefix + stripScheme(directURL)
}

// do executes one GET attempt under the fixed timeout. Direct attempts carry
// the browser User-Agent; relay attempts go out bare.
func (c *Client) do(ctx context.Context, reqURL string, direct bool) ([]byte, int, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, 0, &FetchError{Message: fmt.Sprintf("failed to create request: %v", err)}
	}
	if direct {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || reqCtx.Err() == context.DeadlineExceeded {
			return nil, 0, &FetchError{Message: fmt.Sprintf("request timed out after %s", c.timeout)}
		}
		return nil, 0, &FetchError{Message: fmt.Sprintf("upstream request failed: %v", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, &FetchError{Status: resp.StatusCode, Message: fmt.Sprintf("failed to read response: %v", err)}
	}
	return body, resp.StatusCode, nil
}

// isBlockedResponse identifies geo-blocks and rate limits that warrant the
// relay fallback: auth/throttle statuses or an HTML page where JSON belongs.
func isBlockedResponse(status int, body []byte) bool {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusTooManyRequests:
		return true
	}
	return looksLikeHTMLDocument(string(body))
}

// fetchChart runs the transport strategy for one logical chart request:
// direct first, flipping to the relay for the rest of the client's lifetime
// when the direct path is blocked.
func (c *Client) fetchChart(ctx context.Context, ticker string, q chartQuery) (*chartResultEntry, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	directURL := c.chartURL(ticker, q)

	if !c.relayPreferred() {
		body, status, err := c.do(ctx, directURL, true)
		if err != nil {
			return nil, tagSymbol(err, ticker)
		}
		if !isBlockedResponse(status, body) {
			return c.parseChart(ticker, body, status)
		}

		c.logger.Warn().
			Str("ticker", ticker).
			Int("status", status).
			Msg("Direct chart request blocked, switching to relay transport")
		c.setRelayPreferred()
	}

	body, status, err := c.do(ctx, c.relayURL(directURL), false)
	if err != nil {
		return nil, tagSymbol(err, ticker)
	}
	return c.parseChart(ticker, unwrapRelayBody(body), status)
}

// tagSymbol attaches the ticker to a FetchError built below the call site.
func tagSymbol(err error, ticker string) error {
	var fe *FetchError
	if errors.As(err, &fe) && fe.Symbol == "" {
		fe.Symbol = ticker
	}
	return err
}

// chartEnvelope mirrors the upstream chart response. Every field is optional;
// parsing validates field by field rather than trusting the shape.
type chartEnvelope struct {
	Chart struct {
		Result []chartResultEntry `json:"result"`
		Error  *chartAPIError     `json:"error"`
	} `json:"chart"`
}

type chartAPIError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type chartResultEntry struct {
	Meta struct {
		Symbol           string `json:"symbol"`
		Currency         string `json:"currency"`
		LongName         string `json:"longName"`
		ShortName        string `json:"shortName"`
		ExchangeName     string `json:"exchangeName"`
		FullExchangeName string `json:"fullExchangeName"`
	} `json:"meta"`
	Timestamp  []*int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Close []*float64 `json:"close"`
		} `json:"quote"`
		AdjClose []struct {
			AdjClose []*float64 `json:"adjclose"`
		} `json:"adjclose"`
	} `json:"indicators"`
}

// parseChart validates and unwraps one chart response body.
func (c *Client) parseChart(ticker string, body []byte, status int) (*chartResultEntry, error) {
	trimmed := bytes.TrimSpace(body)
	if looksLikeHTMLDocument(string(trimmed)) {
		return nil, &FetchError{
			Symbol:  ticker,
			Status:  status,
			Message: "upstream returned an HTML page instead of chart data",
		}
	}

	var envelope chartEnvelope
	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	if err := decoder.Decode(&envelope); err != nil {
		message := fmt.Sprintf("invalid chart payload: %v", err)
		if status != http.StatusOK {
			message = fmt.Sprintf("upstream status %d with unparseable body", status)
		}
		return nil, &FetchError{Symbol: ticker, Status: status, Message: message}
	}

	if apiErr := envelope.Chart.Error; apiErr != nil {
		message := apiErr.Description
		if message == "" {
			message = apiErr.Code
		}
		if message == "" {
			message = "upstream chart error"
		}
		return nil, &FetchError{
			Symbol:   ticker,
			Status:   status,
			Message:  message,
			NotFound: isNotFoundMessage(message),
		}
	}

	if len(envelope.Chart.Result) == 0 {
		return nil, &FetchError{
			Symbol:   ticker,
			Status:   status,
			Message:  fmt.Sprintf("no chart data returned for %s", ticker),
			NotFound: true,
		}
	}

	return &envelope.Chart.Result[0], nil
}

// GetDailyHistory retrieves daily price points for an inclusive calendar-day
// window. Points are deduplicated by trade-date key (last wins) and returned
// ascending.
func (c *Client) GetDailyHistory(ctx context.Context, ticker string, from, to time.Time) (*models.ChartResult, error) {
	entry, err := c.fetchChart(ctx, ticker, chartQuery{
		period1: common.StartOfDay(from).Unix(),
		period2: common.EndOfDay(to).Unix(),
	})
	if err != nil {
		return nil, err
	}
	return buildChartResult(entry), nil
}

func buildChartResult(entry *chartResultEntry) *models.ChartResult {
	currency := entry.Meta.Currency
	if currency == "" {
		currency = "N/A"
	}

	result := &models.ChartResult{
		Meta: models.ChartMeta{
			Symbol:           entry.Meta.Symbol,
			Currency:         currency,
			LongName:         entry.Meta.LongName,
			ShortName:        entry.Meta.ShortName,
			ExchangeName:     entry.Meta.ExchangeName,
			FullExchangeName: entry.Meta.FullExchangeName,
		},
	}

	var closes, adjCloses []*float64
	if len(entry.Indicators.Quote) > 0 {
		closes = entry.Indicators.Quote[0].Close
	}
	if len(entry.Indicators.AdjClose) > 0 {
		adjCloses = entry.Indicators.AdjClose[0].AdjClose
	}

	byDate := make(map[string]models.PricePoint, len(entry.Timestamp))
	for i, ts := range entry.Timestamp {
		if ts == nil || i >= len(closes) {
			continue
		}
		closeVal := closes[i]
		if !isFinite(closeVal) {
			continue
		}
		adjClose := *closeVal
		if i < len(adjCloses) && isFinite(adjCloses[i]) {
			adjClose = *adjCloses[i]
		}

		key := common.DateKey(time.Unix(*ts, 0))
		tradeDate, err := common.ParseDateKey(key)
		if err != nil {
			continue
		}
		byDate[key] = models.PricePoint{
			TradeDate: tradeDate,
			Close:     *closeVal,
			AdjClose:  adjClose,
			Currency:  currency,
		}
	}

	keys := make([]string, 0, len(byDate))
	for key := range byDate {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	result.Points = make([]models.PricePoint, 0, len(keys))
	for _, key := range keys {
		result.Points = append(result.Points, byDate[key])
	}
	return result
}

func isFinite(v *float64) bool {
	return v != nil && !math.IsNaN(*v) && !math.IsInf(*v, 0)
}

// GetQuoteMetadata probes display name, region, and currency via a short
// range request, without requiring price points.
func (c *Client) GetQuoteMetadata(ctx context.Context, ticker string) (*models.QuoteMetadata, error) {
	entry, err := c.fetchChart(ctx, ticker, chartQuery{rangeToken: metadataRangeToken})
	if err != nil {
		return nil, err
	}

	result := buildChartResult(entry)

	exchange := result.Meta.FullExchangeName
	if exchange == "" {
		exchange = result.Meta.ExchangeName
	}

	name := result.Meta.DisplayName()
	if name == "" {
		name = ticker
	}

	return &models.QuoteMetadata{
		Name:     name,
		Region:   models.InferRegionFromExchange(exchange, ticker),
		Currency: result.Meta.Currency,
	}, nil
}
