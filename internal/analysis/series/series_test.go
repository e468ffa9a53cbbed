package series

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	apperrors "stock-analyst/internal/errors"
	"stock-analyst/internal/models"
)

var base = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

func point(day int, close float64) models.PricePoint {
	return models.PricePoint{
		Timestamp: base.AddDate(0, 0, day),
		Open:      close,
		High:      close + 1,
		Low:       close - 1,
		Close:     close,
		Volume:    1000,
	}
}

// rawPointGen generates records that are valid most of the time and dirty
// some of the time: swapped envelopes, NaN closes, negative volume.
func rawPointGen() gopter.Gen {
	return gen.Struct(reflect.TypeOf(models.PricePoint{}), map[string]gopter.Gen{
		"Timestamp": gen.IntRange(0, 40).Map(func(d int) time.Time { return base.AddDate(0, 0, d) }),
		"Open":      gen.Float64Range(-5, 200),
		"High":      gen.Float64Range(-5, 220),
		"Low":       gen.Float64Range(-5, 200),
		"Close":     gen.OneGenOf(gen.Float64Range(-5, 200), gen.Const(math.NaN())),
		"Volume":    gen.Float64Range(-100, 1e6),
	})
}

func TestProperty_NormalizedSeriesIsOrderedAndValid(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("timestamps strictly increase and every point is valid", prop.ForAll(
		func(raw []models.PricePoint) bool {
			s, err := Normalize("TEST", raw)
			if err != nil {
				return apperrors.Is(err, apperrors.ErrInsufficientData)
			}
			for i, p := range s.Points {
				if !Valid(p) {
					return false
				}
				if i > 0 && !s.Points[i-1].Timestamp.Before(p.Timestamp) {
					return false
				}
			}
			return s.Len()+s.Dropped+s.Duplicates == len(raw)
		},
		gen.SliceOfN(60, rawPointGen()),
	))

	properties.TestingRun(t)
}

func TestNormalizeSortsAndDeduplicates(t *testing.T) {
	first := point(1, 10)
	replacement := point(1, 11)
	raw := []models.PricePoint{point(3, 12), first, point(2, 13), replacement}

	s, err := Normalize("AAPL", raw)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if s.Len() != 3 {
		t.Fatalf("expected 3 points, got %d", s.Len())
	}
	if s.Points[0].Close != 11 {
		t.Errorf("expected last-seen duplicate to win, got close %v", s.Points[0].Close)
	}
	if s.Duplicates != 1 || s.Dropped != 0 {
		t.Errorf("duplicates=%d dropped=%d, want 1 and 0", s.Duplicates, s.Dropped)
	}
	if s.Market != models.MarketUS || s.Currency != "USD" {
		t.Errorf("market=%s currency=%s", s.Market, s.Currency)
	}
}

func TestNormalizeDropsInvalidRecords(t *testing.T) {
	badEnvelope := point(2, 10)
	badEnvelope.High = 9
	nan := point(3, 10)
	nan.Close = math.NaN()
	negVolume := point(4, 10)
	negVolume.Volume = -1
	zero := point(5, 0)

	raw := []models.PricePoint{point(0, 10), point(1, 10.5), badEnvelope, nan, negVolume, zero}
	s, err := Normalize("0700.HK", raw)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if s.Dropped != 4 {
		t.Errorf("dropped = %d, want 4", s.Dropped)
	}
	if s.Len() != 2 {
		t.Errorf("len = %d, want 2", s.Len())
	}
	if s.Market != models.MarketHK || s.Currency != "HKD" {
		t.Errorf("market=%s currency=%s", s.Market, s.Currency)
	}
}

func TestNormalizeSinglePointFails(t *testing.T) {
	_, err := Normalize("AAPL", []models.PricePoint{point(0, 10)})
	if !apperrors.Is(err, apperrors.ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
	var ide *apperrors.InsufficientDataError
	if !apperrors.As(err, &ide) || ide.Have != 1 || ide.Need != 2 {
		t.Fatalf("unexpected error detail: %#v", ide)
	}
}

func TestNormalizeEmpty(t *testing.T) {
	if _, err := Normalize("AAPL", nil); !apperrors.Is(err, apperrors.ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}
