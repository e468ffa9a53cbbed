package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"stock-analyst/internal/cache"
	apperrors "stock-analyst/internal/errors"
	"stock-analyst/internal/models"
	"stock-analyst/internal/sources"
	"stock-analyst/pkg/utils"
)

var summaryModules = []string{"summaryDetail", "defaultKeyStatistics", "financialData", "assetProfile"}

// rawValue is Yahoo's {"raw": 1.5, "fmt": "1.50"} wrapper. Missing values
// arrive as {}.
type rawValue struct {
	Raw *float64 `json:"raw"`
}

type summaryResponse struct {
	QuoteSummary struct {
		Result []struct {
			SummaryDetail struct {
				TrailingPE rawValue `json:"trailingPE"`
				ForwardPE  rawValue `json:"forwardPE"`
			} `json:"summaryDetail"`
			DefaultKeyStatistics struct {
				TrailingEps rawValue `json:"trailingEps"`
				PegRatio    rawValue `json:"pegRatio"`
			} `json:"defaultKeyStatistics"`
			FinancialData struct {
				EarningsGrowth rawValue `json:"earningsGrowth"`
				RevenueGrowth  rawValue `json:"revenueGrowth"`
			} `json:"financialData"`
			AssetProfile struct {
				Sector string `json:"sector"`
			} `json:"assetProfile"`
		} `json:"result"`
		Error *apiErrorBody `json:"error"`
	} `json:"quoteSummary"`
}

func first(values ...rawValue) *float64 {
	for _, v := range values {
		if v.Raw != nil {
			return models.Float(*v.Raw)
		}
	}
	return nil
}

// FetchFundamentals reads valuation fields from quoteSummary. Fields Yahoo
// does not publish for the symbol stay nil.
func (c *Client) FetchFundamentals(ctx context.Context, symbol string) (*models.FundamentalSeed, error) {
	ysym := utils.YahooSymbol(symbol)
	modules := strings.Join(summaryModules, ",")
	params := url.Values{}
	params.Set("modules", modules)

	key := cache.Key(sources.NameYahoo, "summary", ysym)
	body, err := c.get(ctx, symbol, key, "/v10/finance/quoteSummary/"+url.PathEscape(ysym), params)
	if err != nil {
		return nil, apperrors.NewDataError(sources.NameYahoo, symbol, "quoteSummary request failed", err)
	}

	var resp summaryResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, apperrors.NewDataError(sources.NameYahoo, symbol, "failed to decode quoteSummary", err)
	}
	if e := resp.QuoteSummary.Error; e != nil {
		return nil, apperrors.NewDataError(sources.NameYahoo, symbol, e.Description,
			fmt.Errorf("%w: %s", apperrors.ErrSymbolNotFound, e.Code))
	}
	if len(resp.QuoteSummary.Result) == 0 {
		return nil, apperrors.NewDataError(sources.NameYahoo, symbol, "no quoteSummary data", apperrors.ErrDataNotFound)
	}

	r := resp.QuoteSummary.Result[0]
	return &models.FundamentalSeed{
		PE:         first(r.SummaryDetail.TrailingPE, r.SummaryDetail.ForwardPE),
		EPS:        first(r.DefaultKeyStatistics.TrailingEps),
		PEG:        first(r.DefaultKeyStatistics.PegRatio),
		GrowthRate: first(r.FinancialData.EarningsGrowth, r.FinancialData.RevenueGrowth),
		Sector:     r.AssetProfile.Sector,
	}, nil
}
