package analyzer

import (
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"stock-analyst/internal/analysis"
	"stock-analyst/internal/analysis/indicators"
	"stock-analyst/internal/analysis/scoring"
	apperrors "stock-analyst/internal/errors"
	"stock-analyst/internal/models"
)

var start = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

// linearPoints builds n daily bars whose closes move evenly from `from` to `to`.
func linearPoints(n int, from, to float64) []models.PricePoint {
	points := make([]models.PricePoint, n)
	for i := range points {
		c := from
		if n > 1 {
			c = from + (to-from)*float64(i)/float64(n-1)
		}
		points[i] = models.PricePoint{
			Timestamp: start.AddDate(0, 0, i),
			Open:      c,
			High:      c,
			Low:       c,
			Close:     c,
			Volume:    1_000_000,
		}
	}
	return points
}

func TestAnalyzeTrendingSeries(t *testing.T) {
	r, err := Analyze(Input{Symbol: "aapl", Points: linearPoints(60, 100, 150)}, DefaultOptions())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if r.Symbol() != "AAPL" || r.LastPrice != 150 {
		t.Errorf("symbol/price = %s/%v", r.Symbol(), r.LastPrice)
	}
	if ma5, ok := r.Indicators.Get("MA5"); !ok || ma5 <= 140 || ma5 >= 150 {
		t.Errorf("MA5 = %v (%v)", ma5, ok)
	}
	if r.Scores.Technical.Value < 4 || r.Scores.Technical.Label != analysis.LabelBullish {
		t.Errorf("technical = %+v", r.Scores.Technical)
	}
	if r.Fundamental.Confidence != analysis.Estimated || r.Fundamental.PE.Provenance != analysis.Estimated {
		t.Errorf("fundamental = %+v", r.Fundamental)
	}
	if r.Fundamental.Sector != "Technology" {
		t.Errorf("sector = %s", r.Fundamental.Sector)
	}
	if r.Scores.Sentiment.Value != 3 || r.Scores.Sentiment.Label != analysis.LabelNeutral {
		t.Errorf("sentiment = %+v", r.Scores.Sentiment)
	}
	if r.Recommendation.ShortTerm != analysis.StanceBullish {
		t.Errorf("short term = %s", r.Recommendation.ShortTerm)
	}
	if r.VolumeTrend != indicators.VolumeNormal {
		t.Errorf("volume trend = %s", r.VolumeTrend)
	}
}

func TestAnalyzeShortSeries(t *testing.T) {
	r, err := Analyze(Input{Symbol: "MSFT", Points: linearPoints(10, 50, 55)}, DefaultOptions())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	for _, name := range []string{"MA20", "BB_UPPER", "BB_MIDDLE", "BB_LOWER", "POSITION_52W", "RSI14"} {
		if v := r.Indicators.Lookup(name); v.Available() || v.Reason == "" {
			t.Errorf("%s = %+v, want unavailable with a reason", name, v)
		}
	}
	if _, ok := r.Indicators.Get("MA5"); !ok {
		t.Error("MA5 should be available with 10 points")
	}

	met := 0
	for _, c := range r.Scores.Technical.Conditions {
		if c.Met {
			met++
		}
	}
	if r.Scores.Technical.Value != met {
		t.Errorf("technical score %d does not match %d met conditions", r.Scores.Technical.Value, met)
	}
	if len(r.Warnings) == 0 {
		t.Error("expected warnings for unavailable indicators")
	}
}

func TestAnalyzeRejectsSinglePoint(t *testing.T) {
	_, err := Analyze(Input{Symbol: "AAPL", Points: linearPoints(1, 100, 100)}, DefaultOptions())
	if !errors.Is(err, apperrors.ErrInsufficientData) {
		t.Fatalf("err = %v, want insufficient data", err)
	}
	var ide *apperrors.InsufficientDataError
	if !errors.As(err, &ide) || ide.Have != 1 || ide.Need != 2 {
		t.Errorf("err = %#v", err)
	}
}

func TestAnalyzeRejectsBadOptions(t *testing.T) {
	bad := DefaultOptions()
	bad.RiskFreeRate = 4
	if _, err := Analyze(Input{Symbol: "AAPL", Points: linearPoints(30, 1, 2)}, bad); !errors.Is(err, apperrors.ErrConfigInvalid) {
		t.Errorf("risk-free rate: err = %v", err)
	}

	bad = DefaultOptions()
	bad.Windows.MAShort = -1
	if _, err := New(bad, zerolog.Nop()); !errors.Is(err, apperrors.ErrConfigInvalid) {
		t.Errorf("windows: err = %v", err)
	}

	bad = Options{Windows: indicators.Windows{MAShort: 30}}
	if _, err := New(bad, zerolog.Nop()); !errors.Is(err, apperrors.ErrConfigInvalid) {
		t.Errorf("ma_short past default ma_long: err = %v", err)
	}
}

func TestAnalyzeNonFiniteSeedEncodes(t *testing.T) {
	in := Input{
		Symbol:       "AAPL",
		Points:       linearPoints(15, 100, 110),
		Fundamentals: &models.FundamentalSeed{PE: models.Float(math.NaN()), GrowthRate: models.Float(0.12)},
	}
	r, err := Analyze(in, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if r.Fundamental.PE.Provenance == analysis.Observed {
		t.Errorf("PE = %+v, NaN must not pass as observed", r.Fundamental.PE)
	}
	if _, err := json.Marshal(r); err != nil {
		t.Fatalf("marshal report: %v", err)
	}

	var trailing, ranged bool
	for _, w := range r.Warnings {
		trailing = trailing || strings.HasPrefix(w, "trailing return covers")
		ranged = ranged || strings.HasPrefix(w, "30-day high/low covers")
	}
	if !trailing || !ranged {
		t.Errorf("missing short-history warnings in %v", r.Warnings)
	}
	for _, c := range r.Scores.Fundamental.Conditions {
		if (c.Name == scoring.CondTrailingReturnPositive || c.Name == scoring.CondNear30DHigh) && !c.Reduced {
			t.Errorf("%s not marked reduced", c.Name)
		}
	}
}

func TestDefaultRiskFreeRateIsZero(t *testing.T) {
	if got := DefaultOptions().RiskFreeRate; got != 0 {
		t.Errorf("DefaultOptions().RiskFreeRate = %v, want 0", got)
	}
}

func TestAnalyzeZeroOptionsUsesDefaults(t *testing.T) {
	in := Input{Symbol: "AAPL", Points: linearPoints(60, 100, 130)}
	got, err := Analyze(in, Options{})
	if err != nil {
		t.Fatalf("Analyze with zero options: %v", err)
	}
	want, err := Analyze(in, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got.Indicators, want.Indicators) {
		t.Errorf("indicators differ from defaults:\n got %v\nwant %v", got.Indicators, want.Indicators)
	}
	if got.Recommendation != want.Recommendation {
		t.Errorf("recommendation = %+v, want %+v", got.Recommendation, want.Recommendation)
	}

	// A partial override keeps the other defaults.
	r, err := Analyze(in, Options{Windows: indicators.Windows{RSI: 7}})
	if err != nil {
		t.Fatalf("Analyze with RSI override: %v", err)
	}
	if _, ok := r.Indicators[indicators.RSIKey(7)]; !ok {
		t.Errorf("missing %s in %v", indicators.RSIKey(7), r.Indicators)
	}
}

func TestAnalyzeWithInputs(t *testing.T) {
	in := Input{
		Symbol:       "0700.hk",
		Points:       linearPoints(40, 300, 280),
		Fundamentals: &models.FundamentalSeed{PE: models.Float(15), EPS: models.Float(18.7)},
		Snippets: []models.Snippet{
			{Text: "buyback extended", Tag: models.TagBullish},
			{Text: "margin pressure", Tag: models.TagBearish},
			{Text: "guidance cut", Tag: models.TagBearish},
		},
	}
	r, err := Analyze(in, DefaultOptions())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if r.Series.Market != models.MarketHK || r.Series.Currency != "HKD" {
		t.Errorf("series = %+v", r.Series)
	}
	if r.Fundamental.Confidence != analysis.Observed {
		t.Errorf("confidence = %s", r.Fundamental.Confidence)
	}
	if r.Sentiment.BearishCount != 2 || r.Sentiment.Highlights[0].Text != "buyback extended" {
		t.Errorf("sentiment = %+v", r.Sentiment)
	}
	if r.Scores.Sentiment.Value != 2 {
		t.Errorf("sentiment score = %d, want 2 for net -1/3", r.Scores.Sentiment.Value)
	}
}

func TestReportJSONRoundTrip(t *testing.T) {
	a, err := New(DefaultOptions(), zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	a.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }

	r, err := a.Analyze(Input{
		Symbol:   "SAP.DE",
		Points:   linearPoints(12, 180, 170),
		Snippets: []models.Snippet{{Text: "cloud beat", Tag: models.TagBullish, PublishedAt: start}},
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	back, err := DecodeReport(data)
	if err != nil {
		t.Fatalf("DecodeReport: %v", err)
	}
	if !reflect.DeepEqual(r, back) {
		t.Errorf("round trip changed the report\nbefore: %+v\nafter:  %+v", r, back)
	}
	if v := back.Indicators.Lookup("MA20"); v.Status != indicators.StatusUnavailable {
		t.Errorf("MA20 after round trip = %+v", v)
	}
}
