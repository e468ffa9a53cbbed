package yahoo

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock-analyst/internal/cache"
	apperrors "stock-analyst/internal/errors"
	"stock-analyst/internal/resilience"
	"stock-analyst/pkg/utils"
)

const chartBody = `{"chart":{"result":[{
  "meta":{"currency":"HKD","symbol":"0700.HK","longName":"Tencent Holdings Limited",
          "regularMarketPrice":322.0,"regularMarketTime":1704326400,
          "fiftyTwoWeekHigh":400.0,"fiftyTwoWeekLow":260.0},
  "timestamp":[1704153600,1704240000,1704326400],
  "indicators":{"quote":[{
    "open":[300.0,null,315.0],
    "high":[305.0,null,325.0],
    "low":[298.0,null,312.0],
    "close":[302.0,null,320.0],
    "volume":[1000,null,1500]
  }]}
}],"error":null}}`

const summaryBody = `{"quoteSummary":{"result":[{
  "summaryDetail":{"trailingPE":{"raw":18.5,"fmt":"18.50"},"forwardPE":{"raw":14.0}},
  "defaultKeyStatistics":{"trailingEps":{"raw":17.4},"pegRatio":{}},
  "financialData":{"earningsGrowth":{"raw":0.12}},
  "assetProfile":{"sector":"Communication Services"}
}],"error":null}}`

func fastRetry() utils.RetryConfig {
	cfg := utils.DefaultRetryConfig()
	cfg.InitialDelay = time.Millisecond
	cfg.MaxDelay = time.Millisecond
	cfg.RetryableErrors = []error{apperrors.ErrRateLimited, apperrors.ErrConnectionFailed}
	return cfg
}

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...ClientOption) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	base := []ClientOption{WithBaseURL(srv.URL), WithRateLimit(0), WithRetry(fastRetry())}
	return NewClient(append(base, opts...)...)
}

func TestFetchBars(t *testing.T) {
	var gotPath, gotRange string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotRange = r.URL.Query().Get("range")
		_, _ = w.Write([]byte(chartBody))
	})

	points, err := c.FetchBars(context.Background(), "700.hk")
	require.NoError(t, err)
	assert.Equal(t, "/v8/finance/chart/0700.HK", gotPath)
	assert.Equal(t, DefaultRange, gotRange)

	require.Len(t, points, 3)
	assert.Equal(t, time.Unix(1704153600, 0).UTC(), points[0].Timestamp)
	assert.Equal(t, 302.0, points[0].Close)
	assert.True(t, math.IsNaN(points[1].Close), "null slots become NaN")
	assert.Equal(t, 0.0, points[1].Volume)
	assert.Equal(t, 1500.0, points[2].Volume)
}

func TestFetchBarsTranslatesShanghaiSuffix(t *testing.T) {
	var gotPath string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(chartBody))
	})
	_, err := c.FetchBars(context.Background(), "600519.SH")
	require.NoError(t, err)
	assert.Equal(t, "/v8/finance/chart/600519.SS", gotPath)
}

func TestFetchQuote(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(chartBody))
	})

	q, err := c.FetchQuote(context.Background(), "0700.HK")
	require.NoError(t, err)
	assert.Equal(t, "0700.HK", q.Symbol)
	assert.Equal(t, "Tencent Holdings Limited", q.Name)
	assert.Equal(t, "HKD", q.Currency)
	assert.Equal(t, 322.0, q.Price)
	assert.Equal(t, 302.0, q.PrevClose, "previous valid close")
	assert.InDelta(t, 20.0, q.Change, 1e-9)
	assert.InDelta(t, 20.0/302.0*100, q.ChangePercent, 1e-9)
	assert.Equal(t, 400.0, q.High52W)
	assert.Equal(t, 1500.0, q.Volume)
}

func TestFetchFundamentals(t *testing.T) {
	var modules string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		modules = r.URL.Query().Get("modules")
		_, _ = w.Write([]byte(summaryBody))
	})

	seed, err := c.FetchFundamentals(context.Background(), "0700.HK")
	require.NoError(t, err)
	assert.Contains(t, modules, "defaultKeyStatistics")

	require.NotNil(t, seed.PE)
	assert.Equal(t, 18.5, *seed.PE)
	require.NotNil(t, seed.EPS)
	assert.Equal(t, 17.4, *seed.EPS)
	assert.Nil(t, seed.PEG, "empty raw object stays unknown")
	require.NotNil(t, seed.GrowthRate)
	assert.Equal(t, 0.12, *seed.GrowthRate)
	assert.Equal(t, "Communication Services", seed.Sector)
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"not found", http.StatusNotFound, apperrors.ErrSymbolNotFound},
		{"rate limited", http.StatusTooManyRequests, apperrors.ErrRateLimited},
		{"server error", http.StatusBadGateway, apperrors.ErrConnectionFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, `{"chart":{"result":null,"error":{"code":"x"}}}`, tt.status)
			})
			_, err := c.FetchBars(context.Background(), "NOPE")
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.StatusCode)
		})
	}
}

func TestRetriesTransientFailures(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(chartBody))
	})

	points, err := c.FetchBars(context.Background(), "0700.HK")
	require.NoError(t, err)
	assert.Len(t, points, 3)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestNotFoundIsNotRetried(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	})
	_, err := c.FetchBars(context.Background(), "NOPE")
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, resilience.StateClosed, c.Breaker().State())
}

func TestBreakerOpensOnRepeatedOutage(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}, WithBreaker(resilience.Config{FailureThreshold: 1, SuccessThreshold: 1, Cooldown: time.Hour}))

	_, err := c.FetchBars(context.Background(), "AAPL")
	require.Error(t, err)
	before := atomic.LoadInt32(&calls)

	_, err = c.FetchBars(context.Background(), "MSFT")
	assert.True(t, errors.Is(err, resilience.ErrOpen), "got %v", err)
	assert.Equal(t, before, atomic.LoadInt32(&calls))
}

func TestChartResponsesAreCached(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(chartBody))
	}, WithCache(cache.NewMemory(), cache.DefaultPolicy()))

	ctx := context.Background()
	_, err := c.FetchBars(ctx, "0700.HK")
	require.NoError(t, err)
	_, err = c.FetchQuote(ctx, "0700.hk")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestChartErrorBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`))
	})
	_, err := c.FetchBars(context.Background(), "GONE")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrSymbolNotFound))
	assert.True(t, strings.Contains(err.Error(), "delisted"))
}
