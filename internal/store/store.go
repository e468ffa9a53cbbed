// Package store persists price bars, analysis reports and watchlists.
package store

import (
	"context"
	"time"

	"stock-analyst/internal/analysis"
	"stock-analyst/internal/analyzer"
	"stock-analyst/internal/models"
)

// DefaultWatchlist is the list used when none is named.
const DefaultWatchlist = "default"

// DataStore defines the interface for data persistence.
type DataStore interface {
	// Bars
	SaveBars(ctx context.Context, symbol string, bars []models.PricePoint) error
	GetBars(ctx context.Context, symbol string, from, to time.Time) ([]models.PricePoint, error)
	GetBarsFreshness(ctx context.Context, symbol string) (time.Time, error)

	// Reports
	SaveReport(ctx context.Context, report *analyzer.Report) (int64, error)
	GetReports(ctx context.Context, filter ReportFilter) ([]ReportRecord, error)
	GetReportByID(ctx context.Context, id int64) (*ReportRecord, error)

	// Watchlist
	AddToWatchlist(ctx context.Context, symbol, listName string) error
	RemoveFromWatchlist(ctx context.Context, symbol, listName string) error
	GetWatchlist(ctx context.Context, listName string) ([]string, error)
	GetAllWatchlists(ctx context.Context) (map[string][]string, error)

	// Sync
	GetLastSync(key string) time.Time
	SetLastSync(key string, t time.Time) error

	// Lifecycle
	Close() error
}

// ReportFilter represents filters for querying stored reports. Results are
// newest first.
type ReportFilter struct {
	Symbol string
	Since  time.Time
	Until  time.Time
	Limit  int
}

// ReportRecord is a stored report with its summary columns.
type ReportRecord struct {
	ID          int64
	Symbol      string
	GeneratedAt time.Time
	Technical   int
	Fundamental int
	Sentiment   int
	ShortTerm   analysis.Stance
	MediumTerm  analysis.Stance
	LongTerm    analysis.Stance
	Report      *analyzer.Report
}

// Freshness describes how old the newest stored bar for a symbol is.
type Freshness struct {
	Symbol      string
	LastUpdated time.Time
	Age         time.Duration
	IsFresh     bool
}

// CheckFreshness reports whether the newest stored bar is within maxAge of
// now. A symbol with no bars is never fresh.
func CheckFreshness(ctx context.Context, s DataStore, symbol string, maxAge time.Duration, now time.Time) (*Freshness, error) {
	last, err := s.GetBarsFreshness(ctx, symbol)
	if err != nil {
		return nil, err
	}
	f := &Freshness{Symbol: symbol, LastUpdated: last}
	if last.IsZero() {
		return f, nil
	}
	f.Age = now.Sub(last)
	f.IsFresh = f.Age <= maxAge
	return f, nil
}
