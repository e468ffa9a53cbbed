// Package sources defines the data capabilities the pipeline consumes and
// simple implementations that need no network.
package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	apperrors "stock-analyst/internal/errors"
	"stock-analyst/internal/models"
	"stock-analyst/pkg/utils"
)

// Source names.
const (
	NameYahoo    = "yahoo"
	NameCSV      = "csv"
	NameSnapshot = "snapshot"
	NameStatic   = "static"
)

// PriceSource supplies historical bars.
type PriceSource interface {
	Name() string
	FetchBars(ctx context.Context, symbol string) ([]models.PricePoint, error)
}

// QuoteSource supplies a current quote.
type QuoteSource interface {
	FetchQuote(ctx context.Context, symbol string) (*models.Quote, error)
}

// FundamentalSource supplies whatever fundamentals are known. Missing fields
// stay nil.
type FundamentalSource interface {
	FetchFundamentals(ctx context.Context, symbol string) (*models.FundamentalSeed, error)
}

// SentimentSource supplies pre-tagged snippets, most recent first.
type SentimentSource interface {
	FetchSnippets(ctx context.Context, symbol string) ([]models.Snippet, error)
}

// Static serves data held in memory. It is safe for concurrent use.
type Static struct {
	mu           sync.RWMutex
	bars         map[string][]models.PricePoint
	fundamentals map[string]*models.FundamentalSeed
	snippets     map[string][]models.Snippet
}

// NewStatic creates an empty static source.
func NewStatic() *Static {
	return &Static{
		bars:         make(map[string][]models.PricePoint),
		fundamentals: make(map[string]*models.FundamentalSeed),
		snippets:     make(map[string][]models.Snippet),
	}
}

func (s *Static) Name() string { return NameStatic }

// SetBars stores bars for symbol.
func (s *Static) SetBars(symbol string, bars []models.PricePoint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bars[utils.NormalizeSymbol(symbol)] = bars
}

// SetFundamentals stores fundamentals for symbol.
func (s *Static) SetFundamentals(symbol string, seed *models.FundamentalSeed) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fundamentals[utils.NormalizeSymbol(symbol)] = seed
}

// SetSnippets stores snippets for symbol.
func (s *Static) SetSnippets(symbol string, snippets []models.Snippet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snippets[utils.NormalizeSymbol(symbol)] = snippets
}

// Symbols lists the symbols with bars, sorted.
func (s *Static) Symbols() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.bars))
	for sym := range s.bars {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

func (s *Static) FetchBars(_ context.Context, symbol string) ([]models.PricePoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bars, ok := s.bars[utils.NormalizeSymbol(symbol)]
	if !ok {
		return nil, apperrors.NewDataError(NameStatic, symbol, "no bars", apperrors.ErrSymbolNotFound)
	}
	return append([]models.PricePoint(nil), bars...), nil
}

func (s *Static) FetchFundamentals(_ context.Context, symbol string) (*models.FundamentalSeed, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fundamentals[utils.NormalizeSymbol(symbol)], nil
}

func (s *Static) FetchSnippets(_ context.Context, symbol string) ([]models.Snippet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Snippet(nil), s.snippets[utils.NormalizeSymbol(symbol)]...), nil
}

// SnippetFile reads snippets from a JSON file: either an array of snippets
// or an object keyed by symbol.
type SnippetFile struct {
	path string
}

// NewSnippetFile creates a snippet source backed by path.
func NewSnippetFile(path string) *SnippetFile {
	return &SnippetFile{path: path}
}

func (f *SnippetFile) FetchSnippets(_ context.Context, symbol string) ([]models.Snippet, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snippets: %w", err)
	}

	var list []models.Snippet
	if err := json.Unmarshal(data, &list); err == nil {
		return list, nil
	}

	var bySymbol map[string][]models.Snippet
	if err := json.Unmarshal(data, &bySymbol); err != nil {
		return nil, apperrors.NewDataError("snippets", symbol, "invalid snippets file", err)
	}
	want := utils.NormalizeSymbol(symbol)
	for k, v := range bySymbol {
		if utils.NormalizeSymbol(k) == want {
			return v, nil
		}
	}
	return nil, nil
}

// Fundamentals combines fundamental sources. Earlier sources win field by
// field; a failing source is skipped as long as another one answers.
type Fundamentals []FundamentalSource

func (fs Fundamentals) FetchFundamentals(ctx context.Context, symbol string) (*models.FundamentalSeed, error) {
	var (
		seed *models.FundamentalSeed
		errs []error
	)
	for _, src := range fs {
		got, err := src.FetchFundamentals(ctx, symbol)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		seed = seed.Merge(got)
	}
	if seed == nil && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return seed, nil
}
