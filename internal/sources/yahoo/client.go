// Package yahoo reads daily bars, quotes and fundamentals from the public
// Yahoo Finance chart and quoteSummary endpoints.
package yahoo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"stock-analyst/internal/cache"
	apperrors "stock-analyst/internal/errors"
	"stock-analyst/internal/logging"
	"stock-analyst/internal/resilience"
	"stock-analyst/internal/sources"
	"stock-analyst/pkg/utils"
)

const (
	// DefaultBaseURL is the Yahoo Finance query host.
	DefaultBaseURL = "https://query1.finance.yahoo.com"

	// DefaultTimeout is the per-request HTTP timeout.
	DefaultTimeout = 15 * time.Second

	// DefaultRateLimit is requests per second.
	DefaultRateLimit = 2.0

	// DefaultRange is the chart history requested for bars.
	DefaultRange = "1y"
)

// APIError is a non-200 response.
type APIError struct {
	StatusCode int
	Endpoint   string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("yahoo API error %d on %s: %s", e.StatusCode, e.Endpoint, e.Message)
}

// Unwrap maps status codes onto the shared sentinels.
func (e *APIError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusNotFound:
		return apperrors.ErrSymbolNotFound
	case e.StatusCode == http.StatusTooManyRequests:
		return apperrors.ErrRateLimited
	case e.StatusCode >= 500:
		return apperrors.ErrConnectionFailed
	}
	return nil
}

// Client is a Yahoo Finance client. It is safe for concurrent use.
type Client struct {
	baseURL    string
	rng        string
	httpClient *http.Client
	limiter    *rate.Limiter
	retry      utils.RetryConfig
	breaker    *resilience.Breaker
	cache      cache.Cache
	policy     cache.Policy
	logger     zerolog.Logger
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL. An empty URL keeps the default.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets a logger.
func WithLogger(logger zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logging.WithSource(logger, sources.NameYahoo)
	}
}

// WithRateLimit sets requests per second. Zero or less disables limiting.
func WithRateLimit(perSecond float64) ClientOption {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		burst := int(perSecond)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithRange sets the chart range, e.g. "6mo", "1y", "2y".
func WithRange(rng string) ClientOption {
	return func(c *Client) {
		if rng != "" {
			c.rng = rng
		}
	}
}

// WithRetry replaces the retry policy.
func WithRetry(cfg utils.RetryConfig) ClientOption {
	return func(c *Client) {
		c.retry = cfg
	}
}

// WithBreaker replaces the circuit breaker thresholds.
func WithBreaker(cfg resilience.Config) ClientOption {
	return func(c *Client) {
		c.breaker = newBreaker(cfg)
	}
}

// WithCache caches raw responses under policy.
func WithCache(store cache.Cache, policy cache.Policy) ClientOption {
	return func(c *Client) {
		c.cache = store
		c.policy = policy
	}
}

// NewClient creates a new Yahoo Finance client.
func NewClient(opts ...ClientOption) *Client {
	retry := utils.DefaultRetryConfig()
	retry.RetryableErrors = []error{apperrors.ErrRateLimited, apperrors.ErrConnectionFailed}

	c := &Client{
		baseURL: DefaultBaseURL,
		rng:     DefaultRange,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), int(DefaultRateLimit)),
		retry:   retry,
		breaker: newBreaker(resilience.DefaultConfig()),
		logger:  zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func newBreaker(cfg resilience.Config) *resilience.Breaker {
	return resilience.New(sources.NameYahoo, cfg, func(err error) bool {
		return errors.Is(err, apperrors.ErrConnectionFailed) || errors.Is(err, apperrors.ErrRateLimited)
	})
}

func (c *Client) Name() string { return sources.NameYahoo }

// Breaker exposes the client's breaker for diagnostics.
func (c *Client) Breaker() *resilience.Breaker { return c.breaker }

// get returns the body of path, from the cache when fresh.
func (c *Client) get(ctx context.Context, symbol, key, path string, params url.Values) ([]byte, error) {
	start := time.Now()
	body, hit, err := cache.GetOrLoad(ctx, c.cache, c.policy, key, func(ctx context.Context) ([]byte, error) {
		return resilience.Do(ctx, c.breaker, func(ctx context.Context) ([]byte, error) {
			return utils.RetryWithResult(ctx, c.retry, func() ([]byte, error) {
				return c.do(ctx, path, params)
			})
		})
	})
	logging.LogFetch(c.logger, sources.NameYahoo, symbol, time.Since(start), hit, err)
	return body, err
}

func (c *Client) do(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %w", apperrors.ErrConnectionFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read body: %w", apperrors.ErrConnectionFailed, err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := string(body)
		if len(msg) > 200 {
			msg = msg[:200]
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Endpoint: path, Message: msg}
	}
	return body, nil
}
