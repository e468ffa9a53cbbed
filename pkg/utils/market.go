package utils

import (
	"regexp"
	"strings"
	"time"

	"stock-analyst/internal/models"
)

// SessionStatus is the trading state of an exchange at a given instant.
type SessionStatus string

const (
	SessionOpen   SessionStatus = "OPEN"
	SessionLunch  SessionStatus = "LUNCH"
	SessionClosed SessionStatus = "CLOSED"
)

// Exchange describes a listing venue: how symbols are suffixed, how Yahoo
// spells them, the quote currency and the regular session in local time.
type Exchange struct {
	Code        string
	Market      models.Market
	Suffix      string
	YahooSuffix string
	Currency    string
	Location    *time.Location
	// Session bounds in minutes after local midnight. Lunch bounds are zero
	// for exchanges that trade through midday.
	OpenAt     int
	CloseAt    int
	LunchStart int
	LunchEnd   int
}

var exchanges = []Exchange{
	{Code: "NASDAQ/NYSE", Market: models.MarketUS, Currency: "USD", Location: loadLocation("America/New_York", -5), OpenAt: 570, CloseAt: 960},
	{Code: "HKEX", Market: models.MarketHK, Suffix: ".HK", YahooSuffix: ".HK", Currency: "HKD", Location: loadLocation("Asia/Hong_Kong", 8), OpenAt: 570, CloseAt: 960, LunchStart: 720, LunchEnd: 780},
	{Code: "SSE", Market: models.MarketCN, Suffix: ".SH", YahooSuffix: ".SS", Currency: "CNY", Location: loadLocation("Asia/Shanghai", 8), OpenAt: 570, CloseAt: 900, LunchStart: 690, LunchEnd: 780},
	{Code: "SZSE", Market: models.MarketCN, Suffix: ".SZ", YahooSuffix: ".SZ", Currency: "CNY", Location: loadLocation("Asia/Shanghai", 8), OpenAt: 570, CloseAt: 900, LunchStart: 690, LunchEnd: 780},
	{Code: "TSE", Market: models.MarketJP, Suffix: ".T", YahooSuffix: ".T", Currency: "JPY", Location: loadLocation("Asia/Tokyo", 9), OpenAt: 540, CloseAt: 900, LunchStart: 690, LunchEnd: 750},
	{Code: "LSE", Market: models.MarketEU, Suffix: ".L", YahooSuffix: ".L", Currency: "GBP", Location: loadLocation("Europe/London", 0), OpenAt: 480, CloseAt: 990},
	{Code: "XETRA", Market: models.MarketEU, Suffix: ".DE", YahooSuffix: ".DE", Currency: "EUR", Location: loadLocation("Europe/Berlin", 1), OpenAt: 540, CloseAt: 1050},
	{Code: "EPA", Market: models.MarketEU, Suffix: ".PA", YahooSuffix: ".PA", Currency: "EUR", Location: loadLocation("Europe/Paris", 1), OpenAt: 540, CloseAt: 1050},
	{Code: "AMS", Market: models.MarketEU, Suffix: ".AS", YahooSuffix: ".AS", Currency: "EUR", Location: loadLocation("Europe/Amsterdam", 1), OpenAt: 540, CloseAt: 1050},
}

func loadLocation(name string, offsetHours int) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		// Fallback to a fixed offset when tzdata is missing
		return time.FixedZone(name, offsetHours*60*60)
	}
	return loc
}

var (
	cnPrefixed = regexp.MustCompile(`^(SH|SZ)(\d{6})$`)
	cnBare     = regexp.MustCompile(`^\d{6}$`)
)

// NormalizeSymbol upper-cases a symbol and rewrites common A-share and
// Hong Kong spellings into the canonical CODE.SUFFIX form.
// "sh600519" and "600519" become "600519.SH"; "00700.HK" becomes "0700.HK".
func NormalizeSymbol(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if s == "" {
		return s
	}
	if m := cnPrefixed.FindStringSubmatch(s); m != nil {
		return m[2] + "." + m[1]
	}
	if cnBare.MatchString(s) {
		if s[0] == '6' || s[0] == '9' {
			return s + ".SH"
		}
		return s + ".SZ"
	}
	if strings.HasSuffix(s, ".SS") {
		return strings.TrimSuffix(s, ".SS") + ".SH"
	}
	if base, ok := strings.CutSuffix(s, ".HK"); ok {
		base = strings.TrimLeft(base, "0")
		for len(base) < 4 {
			base = "0" + base
		}
		return base + ".HK"
	}
	return s
}

// ResolveExchange returns the exchange for a symbol. Symbols without a
// recognised suffix are treated as US listings.
func ResolveExchange(symbol string) Exchange {
	s := NormalizeSymbol(symbol)
	for _, ex := range exchanges[1:] {
		if strings.HasSuffix(s, ex.Suffix) {
			return ex
		}
	}
	return exchanges[0]
}

// InferMarket returns the market a symbol is listed in.
func InferMarket(symbol string) models.Market {
	return ResolveExchange(symbol).Market
}

// YahooSymbol translates a symbol into the spelling Yahoo Finance expects.
func YahooSymbol(symbol string) string {
	s := NormalizeSymbol(symbol)
	ex := ResolveExchange(s)
	if ex.Suffix == "" || ex.Suffix == ex.YahooSuffix {
		return s
	}
	return strings.TrimSuffix(s, ex.Suffix) + ex.YahooSuffix
}

// BaseSymbol strips the exchange suffix.
func BaseSymbol(symbol string) string {
	if i := strings.Index(symbol, "."); i > 0 {
		return symbol[:i]
	}
	return symbol
}

// GetSessionStatus returns the exchange session state at t. Exchange
// holidays are not modelled.
func GetSessionStatus(ex Exchange, t time.Time) SessionStatus {
	now := t.In(ex.Location)
	if now.Weekday() == time.Saturday || now.Weekday() == time.Sunday {
		return SessionClosed
	}

	minutes := now.Hour()*60 + now.Minute()
	if minutes < ex.OpenAt || minutes >= ex.CloseAt {
		return SessionClosed
	}
	if ex.LunchEnd > ex.LunchStart && minutes >= ex.LunchStart && minutes < ex.LunchEnd {
		return SessionLunch
	}
	return SessionOpen
}

// IsMarketOpen returns true if the symbol's exchange is trading at t.
func IsMarketOpen(symbol string, t time.Time) bool {
	return GetSessionStatus(ResolveExchange(symbol), t) == SessionOpen
}

// GetNextMarketOpen returns the next session open strictly after t.
func GetNextMarketOpen(ex Exchange, t time.Time) time.Time {
	now := t.In(ex.Location)
	next := time.Date(now.Year(), now.Month(), now.Day(), ex.OpenAt/60, ex.OpenAt%60, 0, 0, ex.Location)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	for next.Weekday() == time.Saturday || next.Weekday() == time.Sunday {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
