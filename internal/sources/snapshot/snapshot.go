// Package snapshot extracts a quote, fundamentals and tagged discussion
// snippets from a saved or live HTML page.
//
// Pages are read by convention: elements carrying data-field="<name>" hold
// quote values (price, pe_ttm, eps, week_52_high, ...), and lists under
// data-sentiment="bullish|bearish|neutral|news" hold discussion items.
package snapshot

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"stock-analyst/internal/cache"
	apperrors "stock-analyst/internal/errors"
	"stock-analyst/internal/logging"
	"stock-analyst/internal/models"
	"stock-analyst/internal/sources"
	"stock-analyst/pkg/utils"
)

// Snapshot is everything read from one page.
type Snapshot struct {
	Quote        models.Quote
	Fundamentals models.FundamentalSeed
	Snippets     []models.Snippet
}

// Source reads a snapshot from a file path or an http(s) URL. A "{symbol}"
// placeholder in the location is replaced with the requested symbol.
type Source struct {
	location   string
	httpClient *http.Client
	cache      cache.Cache
	policy     cache.Policy
	logger     zerolog.Logger
}

// Option configures a Source.
type Option func(*Source)

// WithHTTPClient sets the client used for URLs.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Source) { s.httpClient = c }
}

// WithCache caches fetched pages under policy.
func WithCache(c cache.Cache, policy cache.Policy) Option {
	return func(s *Source) {
		s.cache = c
		s.policy = policy
	}
}

// WithLogger sets a logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Source) { s.logger = logger }
}

// New creates a snapshot source.
func New(location string, opts ...Option) *Source {
	s := &Source{
		location:   location,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Source) Name() string { return sources.NameSnapshot }

// Load reads and parses the page.
func (s *Source) Load(ctx context.Context, symbol string) (*Snapshot, error) {
	start := time.Now()
	body, hit, err := s.read(ctx, s.Location(symbol))
	logging.LogFetch(s.logger, sources.NameSnapshot, symbol, time.Since(start), hit, err)
	if err != nil {
		return nil, apperrors.NewDataError(sources.NameSnapshot, symbol, "failed to load page", err)
	}

	snap, err := Parse(bytes.NewReader(body), symbol)
	if err != nil {
		return nil, apperrors.NewDataError(sources.NameSnapshot, symbol, "failed to parse page", err)
	}
	return snap, nil
}

// Location returns where the page for symbol is read from.
func (s *Source) Location(symbol string) string {
	return strings.ReplaceAll(s.location, "{symbol}", utils.NormalizeSymbol(symbol))
}

func (s *Source) read(ctx context.Context, location string) ([]byte, bool, error) {
	if !strings.HasPrefix(location, "http://") && !strings.HasPrefix(location, "https://") {
		data, err := os.ReadFile(location)
		return data, false, err
	}
	key := cache.Key(sources.NameSnapshot, location)
	return cache.GetOrLoad(ctx, s.cache, s.policy, key, func(ctx context.Context) ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", "Mozilla/5.0")
		resp, err := s.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", apperrors.ErrConnectionFailed, err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("snapshot: status %d", resp.StatusCode)
		}
		return io.ReadAll(resp.Body)
	})
}

func (s *Source) FetchQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	snap, err := s.Load(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return &snap.Quote, nil
}

func (s *Source) FetchFundamentals(ctx context.Context, symbol string) (*models.FundamentalSeed, error) {
	snap, err := s.Load(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return &snap.Fundamentals, nil
}

func (s *Source) FetchSnippets(ctx context.Context, symbol string) ([]models.Snippet, error) {
	snap, err := s.Load(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return snap.Snippets, nil
}

// Parse reads a page. Fields that are missing or unparseable stay zero
// (quote) or nil (fundamentals).
func Parse(r io.Reader, symbol string) (*Snapshot, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	fields := make(map[string]string)
	doc.Find("[data-field]").Each(func(_ int, sel *goquery.Selection) {
		name, _ := sel.Attr("data-field")
		value, ok := sel.Attr("data-value")
		if !ok {
			value = sel.Text()
		}
		fields[strings.ToLower(strings.TrimSpace(name))] = strings.TrimSpace(value)
	})

	num := func(name string) (float64, bool) {
		raw, ok := fields[name]
		if !ok {
			return 0, false
		}
		return ParseNumber(raw)
	}
	val := func(name string) float64 {
		v, _ := num(name)
		return v
	}

	sym := utils.NormalizeSymbol(symbol)
	if s, ok := fields["symbol"]; ok && s != "" {
		sym = utils.NormalizeSymbol(s)
	}
	currency := fields["currency"]
	if currency == "" {
		currency = utils.ResolveExchange(sym).Currency
	}

	snap := &Snapshot{
		Quote: models.Quote{
			Symbol:        sym,
			Name:          fields["name"],
			Currency:      currency,
			Price:         val("price"),
			Change:        val("change"),
			ChangePercent: val("change_pct"),
			Open:          val("open"),
			High:          val("high"),
			Low:           val("low"),
			PrevClose:     val("prev_close"),
			Volume:        val("volume"),
			High52W:       val("week_52_high"),
			Low52W:        val("week_52_low"),
			MarketCap:     val("market_cap"),
			Timestamp:     time.Now().UTC(),
		},
		Fundamentals: models.FundamentalSeed{Sector: fields["sector"]},
	}
	for _, name := range []string{"pe_ttm", "pe"} {
		if v, ok := num(name); ok {
			snap.Fundamentals.PE = models.Float(v)
			break
		}
	}
	if v, ok := num("eps"); ok {
		snap.Fundamentals.EPS = models.Float(v)
	}
	if v, ok := num("peg"); ok {
		snap.Fundamentals.PEG = models.Float(v)
	}
	// Pages print growth as a percent, like change_pct.
	if v, ok := num("growth"); ok {
		snap.Fundamentals.GrowthRate = models.Float(v / 100)
	}

	doc.Find("[data-sentiment]").Each(func(_ int, list *goquery.Selection) {
		kind, _ := list.Attr("data-sentiment")
		tag := models.ParseSentimentTag(kind)
		list.Find("li").Each(func(_ int, item *goquery.Selection) {
			text := strings.Join(strings.Fields(item.Text()), " ")
			if text == "" {
				return
			}
			snippet := models.Snippet{Text: text, Tag: tag, Source: sources.NameSnapshot}
			if href, ok := item.Find("a[href]").First().Attr("href"); ok {
				snippet.URL = href
			}
			if dt, ok := item.Find("time[datetime]").First().Attr("datetime"); ok {
				if t, err := time.Parse(time.RFC3339, dt); err == nil {
					snippet.PublishedAt = t
				}
			}
			snap.Snippets = append(snap.Snippets, snippet)
		})
	})

	return snap, nil
}

var unitMultipliers = []struct {
	suffix string
	factor float64
}{
	{"万亿", 1e12},
	{"亿", 1e8},
	{"万", 1e4},
	{"T", 1e12},
	{"B", 1e9},
	{"M", 1e6},
	{"K", 1e3},
}

// ParseNumber reads numbers as scraped pages print them: with thousands
// separators, currency signs, percent signs, and K/M/B/T or 万/亿 units.
func ParseNumber(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	for _, sign := range []string{"HK$", "$", "¥", "￥", "€", "£", "%", ",", "+"} {
		s = strings.ReplaceAll(s, sign, "")
	}
	s = strings.TrimSpace(s)
	factor := 1.0
	for _, u := range unitMultipliers {
		if strings.HasSuffix(s, u.suffix) {
			factor = u.factor
			s = strings.TrimSpace(strings.TrimSuffix(s, u.suffix))
			break
		}
	}
	if s == "" || s == "-" || s == "--" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v * factor, true
}
