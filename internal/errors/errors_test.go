package errors

import (
	"fmt"
	"testing"
)

func TestInsufficientDataErrorMatchesSentinel(t *testing.T) {
	err := Wrap(NewInsufficientDataError("AAPL", 1, 2), "normalize")

	if !Is(err, ErrInsufficientData) {
		t.Fatalf("expected %v to match ErrInsufficientData", err)
	}

	var ide *InsufficientDataError
	if !As(err, &ide) {
		t.Fatalf("expected As to find InsufficientDataError")
	}
	if ide.Have != 1 || ide.Need != 2 {
		t.Errorf("unexpected counts: have=%d need=%d", ide.Have, ide.Need)
	}
}

func TestConfigurationErrorMatchesSentinel(t *testing.T) {
	err := fmt.Errorf("options: %w", NewConfigurationError("windows.rsi", 0, "must be positive"))
	if !Is(err, ErrConfigInvalid) {
		t.Fatalf("expected %v to match ErrConfigInvalid", err)
	}
	if Is(err, ErrInsufficientData) {
		t.Fatalf("configuration error must not match ErrInsufficientData")
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(nil, "x") != nil {
		t.Error("Wrap(nil) should be nil")
	}
	if Wrapf(nil, "x %d", 1) != nil {
		t.Error("Wrapf(nil) should be nil")
	}
}

func TestDataErrorUnwrap(t *testing.T) {
	err := NewDataError("yahoo", "0700.HK", "chart request failed", ErrRateLimited)
	if !Is(err, ErrRateLimited) {
		t.Errorf("expected DataError to unwrap to ErrRateLimited")
	}
	want := "data error [yahoo] 0700.HK: chart request failed: rate limited"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
