package store

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"stock-analyst/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "analyst.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// Property: saving bars and reading them back yields the same bars.
func TestProperty_BarRoundTripConsistency(t *testing.T) {
	store := newTestStore(t)

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	symbols := []string{"AAPL", "MSFT", "0700.HK", "600519.SH", "7203.T", "SAP.DE"}

	properties.Property("save then retrieve produces equivalent bars", prop.ForAll(
		func(symbolIdx int, count int, basePrice float64, baseVolume float64) bool {
			ctx := context.Background()
			symbol := symbols[symbolIdx%len(symbols)]
			bars := generateTestBars(count, basePrice, baseVolume)

			if err := store.SaveBars(ctx, symbol, bars); err != nil {
				t.Logf("Failed to save bars: %v", err)
				return false
			}

			from := bars[0].Timestamp
			to := bars[len(bars)-1].Timestamp
			retrieved, err := store.GetBars(ctx, symbol, from, to)
			if err != nil {
				t.Logf("Failed to get bars: %v", err)
				return false
			}
			if len(retrieved) != len(bars) {
				t.Logf("Count mismatch: expected %d, got %d", len(bars), len(retrieved))
				return false
			}
			for i := range bars {
				if !barsEqual(bars[i], retrieved[i]) {
					t.Logf("Bar mismatch at %d: original=%+v, retrieved=%+v", i, bars[i], retrieved[i])
					return false
				}
			}
			return true
		},
		gen.IntRange(0, len(symbols)-1),
		gen.IntRange(1, 30),
		gen.Float64Range(1, 5000),
		gen.Float64Range(0, 1e8),
	))

	properties.Property("empty and non-finite bars are ignored", prop.ForAll(
		func(symbolIdx int) bool {
			ctx := context.Background()
			symbol := "EMPTY" + symbols[symbolIdx%len(symbols)]
			if err := store.SaveBars(ctx, symbol, nil); err != nil {
				return false
			}
			bad := generateTestBars(1, 10, 10)
			bad[0].Close = math.NaN()
			if err := store.SaveBars(ctx, symbol, bad); err != nil {
				return false
			}
			got, err := store.GetBars(ctx, symbol, time.Time{}, time.Time{})
			return err == nil && len(got) == 0
		},
		gen.IntRange(0, len(symbols)-1),
	))

	properties.TestingRun(t)
}

// generateTestBars creates daily bars with valid OHLC relationships.
func generateTestBars(count int, basePrice, baseVolume float64) []models.PricePoint {
	bars := make([]models.PricePoint, count)
	baseTime := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < count; i++ {
		variation := float64(i%10) * 0.01 * basePrice
		open := basePrice + variation
		close := basePrice + variation*0.5

		bars[i] = models.PricePoint{
			Timestamp: baseTime.AddDate(0, 0, i),
			Open:      open,
			High:      math.Max(open, close) * 1.01,
			Low:       math.Min(open, close) * 0.99,
			Close:     close,
			Volume:    math.Round(baseVolume) + float64(i*1000),
		}
	}

	return bars
}

func barsEqual(a, b models.PricePoint) bool {
	return a.Timestamp.Equal(b.Timestamp) &&
		a.Open == b.Open &&
		a.High == b.High &&
		a.Low == b.Low &&
		a.Close == b.Close &&
		a.Volume == b.Volume
}
