package indicators

import (
	"encoding/json"
	"math"
	"reflect"
	"testing"

	apperrors "stock-analyst/internal/errors"
)

func linearCloses(n int, from, to float64) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = from + (to-from)*float64(i)/float64(n-1)
	}
	return closes
}

func TestShortSeriesMarksWindowsUnavailable(t *testing.T) {
	points := closesToPoints(linearCloses(10, 100, 110))
	set := NewStandardEngine(DefaultWindows(), 0, 4).Compute(points)

	for _, key := range []string{MAKey(20), KeyBBUpper, KeyBBMiddle, KeyBBLower, KeyPosition52W, RSIKey(14), KeyMACD, KeyMACDSignal} {
		if set.Lookup(key).Available() {
			t.Errorf("%s should be unavailable on 10 points", key)
		}
	}
	if _, ok := set.Get(MAKey(5)); !ok {
		t.Errorf("MA5 should be available on 10 points")
	}
	if _, ok := set.Get(KeyMaxDrawdown); !ok {
		t.Errorf("MAX_DRAWDOWN should be available on 10 points")
	}

	reason := set[MAKey(20)].Reason
	want := apperrors.NewInsufficientDataError("", 10, 20).Error()
	if reason != want {
		t.Errorf("reason = %q, want %q", reason, want)
	}
}

func TestMACDSignalNeedsLongerHistory(t *testing.T) {
	macd := NewMACD(12, 26, 9)

	short := run(macd, closesToPoints(linearCloses(30, 100, 130)))
	if !short[KeyMACD].Available() {
		t.Fatalf("MACD line should be available with 30 points")
	}
	if short[KeyMACDSignal].Available() || short[KeyMACDHist].Available() {
		t.Fatalf("signal and histogram need 35 points")
	}

	long := run(macd, closesToPoints(linearCloses(35, 100, 135)))
	if !long[KeyMACDSignal].Available() || !long[KeyMACDHist].Available() {
		t.Fatalf("signal should be available with 35 points: %+v", long)
	}
	// A steady uptrend keeps the fast EMA above the slow one.
	if long[KeyMACD].Value <= 0 {
		t.Errorf("expected positive MACD on uptrend, got %v", long[KeyMACD].Value)
	}

	tiny := run(macd, closesToPoints(linearCloses(10, 100, 110)))
	if want := apperrors.NewInsufficientDataError("", 10, 35).Error(); tiny[KeyMACDSignal].Reason != want {
		t.Errorf("signal reason = %q, want %q", tiny[KeyMACDSignal].Reason, want)
	}
}

func TestRSIOnTrend(t *testing.T) {
	up := run(NewRSI(14), closesToPoints(linearCloses(30, 100, 130)))[RSIKey(14)]
	if !up.Available() || up.Value != 100 {
		t.Errorf("monotonic rise should give RSI 100, got %+v", up)
	}
	down := run(NewRSI(14), closesToPoints(linearCloses(30, 130, 100)))[RSIKey(14)]
	if !down.Available() || down.Value != 0 {
		t.Errorf("monotonic fall should give RSI 0, got %+v", down)
	}
}

func TestDrawdownPercent(t *testing.T) {
	tests := []struct {
		name   string
		closes []float64
		want   float64
	}{
		{"rising", []float64{1, 2, 3}, 0},
		{"half", []float64{100, 50, 75}, -50},
		{"later peak", []float64{100, 90, 200, 150}, -25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DrawdownPercent(tt.closes); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("DrawdownPercent(%v) = %v, want %v", tt.closes, got, tt.want)
			}
		})
	}
}

func TestSharpeZeroVarianceUnavailable(t *testing.T) {
	flat := closesToPoints([]float64{10, 10, 10, 10})
	if v := run(NewSharpe(0), flat)[KeySharpe]; v.Available() {
		t.Errorf("flat series should not have a Sharpe ratio, got %v", v.Value)
	}

	varied := closesToPoints([]float64{10, 11, 10.5, 12, 12.5})
	v := run(NewSharpe(0), varied)[KeySharpe]
	if !v.Available() || v.Value <= 0 {
		t.Errorf("rising series should have positive Sharpe, got %+v", v)
	}
}

func TestVolatilityIsAnnualizedPercent(t *testing.T) {
	// Alternating +/-1% moves have a daily log-return sigma of about 1%.
	closes := []float64{100}
	for i := 1; i < 60; i++ {
		if i%2 == 1 {
			closes = append(closes, closes[i-1]*1.01)
		} else {
			closes = append(closes, closes[i-1]/1.01)
		}
	}
	v := run(NewRealizedVolatility(), closesToPoints(closes))[KeyVolatility]
	want := math.Log(1.01) * math.Sqrt(60.0/59.0) * math.Sqrt(TradingDaysPerYear) * 100
	if !v.Available() || math.Abs(v.Value-want) > 0.5 {
		t.Errorf("volatility = %+v, want about %.2f", v, want)
	}
}

func TestSupportResistanceOrdering(t *testing.T) {
	// Oscillating series ending mid-range: swings above and below price.
	closes := []float64{}
	for i := 0; i < 60; i++ {
		closes = append(closes, 100+10*math.Sin(float64(i)/4))
	}
	set := run(NewSupportResistance(20), closesToPoints(closes))
	price := closes[len(closes)-1]

	s1, ok1 := set.Get(KeySupport1)
	s2, ok2 := set.Get(KeySupport2)
	if ok1 && s1 >= price {
		t.Errorf("support 1 %v not below price %v", s1, price)
	}
	if ok1 && ok2 && s2 >= s1 {
		t.Errorf("support 2 %v should be below support 1 %v", s2, s1)
	}
	r1, ok1 := set.Get(KeyResistance1)
	r2, ok2 := set.Get(KeyResistance2)
	if ok1 && r1 <= price {
		t.Errorf("resistance 1 %v not above price %v", r1, price)
	}
	if ok1 && ok2 && r2 <= r1 {
		t.Errorf("resistance 2 %v should be above resistance 1 %v", r2, r1)
	}
}

func TestSupportResistanceFallsBackToPivots(t *testing.T) {
	// A straight rise has no swing lows below the last close.
	points := closesToPoints(linearCloses(25, 100, 124))
	for i := range points {
		points[i].High = points[i].Close + 1
		points[i].Low = points[i].Close - 1
	}
	set := run(NewSupportResistance(20), points)
	s1 := set[KeySupport1]
	if !s1.Available() || !s1.HasFlag(FlagPivotFallback) {
		t.Fatalf("expected pivot fallback for support 1, got %+v", s1)
	}
	if s1.Value >= points[len(points)-1].Close {
		t.Errorf("fallback support %v not below price", s1.Value)
	}
}

func TestRange52WFlatRange(t *testing.T) {
	flat := closesToPoints(linearCloses(30, 50, 50))
	v := run(NewRange52W(TradingDaysPerYear), flat)[KeyPosition52W]
	if !v.Available() || v.Value != 50 || !v.HasFlag(FlagReducedCoverage) {
		t.Errorf("flat range should sit at 50 with reduced coverage, got %+v", v)
	}
}

func TestAverageVolume(t *testing.T) {
	points := closesToPoints(linearCloses(20, 10, 12))
	for i := range points {
		points[i].Volume = 1000
	}
	points[len(points)-1].Volume = 2000

	set := run(NewAverageVolume(15), points)
	avg, ok := set.Get(VolumeAvgKey(15))
	if !ok || math.Abs(avg-(14*1000+2000)/15.0) > 1e-9 {
		t.Errorf("avg volume = %v", avg)
	}
	ratio, ok := set.Get(KeyVolumeRatio)
	if got := ClassifyVolume(ratio, ok); got != VolumeExpanding {
		t.Errorf("volume trend = %s, want expanding", got)
	}
	if got := ClassifyVolume(0, false); got != VolumeUnknown {
		t.Errorf("missing ratio = %s, want unknown", got)
	}
}

func TestSetJSONRoundTripKeepsUnavailable(t *testing.T) {
	set := Set{
		MAKey(5):       OK(148.2),
		MAKey(20):      insufficient(10, 20),
		KeyPosition52W: OK(71.5, FlagReducedCoverage),
		KeyMACD:        OK(0),
	}

	data, err := json.Marshal(set)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded Set
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(set, decoded) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", decoded, set)
	}
	if decoded[MAKey(20)].Available() {
		t.Errorf("unavailable marker lost")
	}
	if !decoded[KeyMACD].Available() {
		t.Errorf("zero value must stay available")
	}
}

func TestOKRejectsNonFinite(t *testing.T) {
	if OK(math.NaN()).Available() || OK(math.Inf(1)).Available() {
		t.Error("non-finite values must be unavailable")
	}
}

func TestWindowsValidate(t *testing.T) {
	if err := DefaultWindows().Validate(); err != nil {
		t.Fatalf("default windows invalid: %v", err)
	}

	bad := []func(*Windows){
		func(w *Windows) { w.RSI = 0 },
		func(w *Windows) { w.MAShort = 30 },
		func(w *Windows) { w.MACDFast = 26 },
		func(w *Windows) { w.BollingerK = 0 },
		func(w *Windows) { w.ExtraMA = []int{-1} },
	}
	for i, mutate := range bad {
		w := DefaultWindows()
		mutate(&w)
		if err := w.Validate(); !apperrors.Is(err, apperrors.ErrConfigInvalid) {
			t.Errorf("case %d: expected configuration error, got %v", i, err)
		}
	}
}
