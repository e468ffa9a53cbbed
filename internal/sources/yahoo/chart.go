package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"time"

	"stock-analyst/internal/cache"
	apperrors "stock-analyst/internal/errors"
	"stock-analyst/internal/models"
	"stock-analyst/internal/sources"
	"stock-analyst/pkg/utils"
)

type apiErrorBody struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *apiErrorBody `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta       chartMeta `json:"meta"`
	Timestamp  []int64   `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []*float64 `json:"open"`
			High   []*float64 `json:"high"`
			Low    []*float64 `json:"low"`
			Close  []*float64 `json:"close"`
			Volume []*float64 `json:"volume"`
		} `json:"quote"`
	} `json:"indicators"`
}

type chartMeta struct {
	Currency           string  `json:"currency"`
	Symbol             string  `json:"symbol"`
	LongName           string  `json:"longName"`
	ShortName          string  `json:"shortName"`
	RegularMarketPrice float64 `json:"regularMarketPrice"`
	RegularMarketTime  int64   `json:"regularMarketTime"`
	PreviousClose      float64 `json:"previousClose"`
	FiftyTwoWeekHigh   float64 `json:"fiftyTwoWeekHigh"`
	FiftyTwoWeekLow    float64 `json:"fiftyTwoWeekLow"`
}

// at returns v[i], or NaN when the slot is null or missing.
func at(v []*float64, i int) float64 {
	if i >= len(v) || v[i] == nil {
		return math.NaN()
	}
	return *v[i]
}

func (c *Client) chart(ctx context.Context, symbol string) (*chartResult, error) {
	ysym := utils.YahooSymbol(symbol)
	params := url.Values{}
	params.Set("interval", "1d")
	params.Set("range", c.rng)

	key := cache.Key(sources.NameYahoo, "chart", ysym, c.rng)
	body, err := c.get(ctx, symbol, key, "/v8/finance/chart/"+url.PathEscape(ysym), params)
	if err != nil {
		return nil, apperrors.NewDataError(sources.NameYahoo, symbol, "chart request failed", err)
	}

	var resp chartResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, apperrors.NewDataError(sources.NameYahoo, symbol, "failed to decode chart", err)
	}
	if e := resp.Chart.Error; e != nil {
		return nil, apperrors.NewDataError(sources.NameYahoo, symbol, e.Description,
			fmt.Errorf("%w: %s", apperrors.ErrSymbolNotFound, e.Code))
	}
	if len(resp.Chart.Result) == 0 {
		return nil, apperrors.NewDataError(sources.NameYahoo, symbol, "no chart data", apperrors.ErrDataNotFound)
	}
	return &resp.Chart.Result[0], nil
}

// FetchBars returns daily bars, oldest first. Null slots become NaN and are
// dropped during normalization.
func (c *Client) FetchBars(ctx context.Context, symbol string) ([]models.PricePoint, error) {
	res, err := c.chart(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return res.points(), nil
}

func (r *chartResult) points() []models.PricePoint {
	if len(r.Indicators.Quote) == 0 {
		return nil
	}
	q := r.Indicators.Quote[0]
	points := make([]models.PricePoint, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		vol := at(q.Volume, i)
		if math.IsNaN(vol) {
			vol = 0
		}
		points = append(points, models.PricePoint{
			Timestamp: time.Unix(ts, 0).UTC(),
			Open:      at(q.Open, i),
			High:      at(q.High, i),
			Low:       at(q.Low, i),
			Close:     at(q.Close, i),
			Volume:    vol,
		})
	}
	return points
}

// FetchQuote builds a quote from the chart metadata and the latest bar.
func (c *Client) FetchQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	res, err := c.chart(ctx, symbol)
	if err != nil {
		return nil, err
	}

	var closes []models.PricePoint
	for _, p := range res.points() {
		if !math.IsNaN(p.Close) {
			closes = append(closes, p)
		}
	}

	m := res.Meta
	sym := utils.NormalizeSymbol(symbol)
	q := &models.Quote{
		Symbol:    sym,
		Name:      m.LongName,
		Currency:  m.Currency,
		Price:     m.RegularMarketPrice,
		PrevClose: m.PreviousClose,
		High52W:   m.FiftyTwoWeekHigh,
		Low52W:    m.FiftyTwoWeekLow,
		Timestamp: time.Unix(m.RegularMarketTime, 0).UTC(),
	}
	if q.Name == "" {
		q.Name = m.ShortName
	}
	if q.Currency == "" {
		q.Currency = utils.ResolveExchange(sym).Currency
	}

	if n := len(closes); n > 0 {
		last := closes[n-1]
		if q.Price == 0 {
			q.Price = last.Close
		}
		q.Open, q.High, q.Low, q.Volume = last.Open, last.High, last.Low, last.Volume
		if q.PrevClose == 0 && n > 1 {
			q.PrevClose = closes[n-2].Close
		}
		if m.RegularMarketTime == 0 {
			q.Timestamp = last.Timestamp
		}
		if q.High52W == 0 || q.Low52W == 0 {
			hi, lo := math.Inf(-1), math.Inf(1)
			for _, p := range closes {
				hi = math.Max(hi, p.High)
				lo = math.Min(lo, p.Low)
			}
			q.High52W, q.Low52W = hi, lo
		}
	}
	if q.PrevClose != 0 {
		q.Change = q.Price - q.PrevClose
		q.ChangePercent = q.Change / q.PrevClose * 100
	}
	return q, nil
}
