// Package models provides domain models shared by the analysis engine and
// the data source adapters.
package models

import (
	"strings"
	"time"
)

// Market represents the listing venue group of an instrument.
type Market string

const (
	MarketUS Market = "US"
	MarketHK Market = "HK"
	MarketCN Market = "CN" // Mainland A-shares
	MarketEU Market = "EU"
	MarketJP Market = "JP"
)

// PricePoint represents OHLCV data for one period.
type PricePoint struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// Quote is a point-in-time snapshot of an instrument, as published by a
// quote page or a chart endpoint's metadata block.
type Quote struct {
	Symbol        string    `json:"symbol"`
	Name          string    `json:"name,omitempty"`
	Currency      string    `json:"currency,omitempty"`
	Price         float64   `json:"price"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"change_percent"`
	Open          float64   `json:"open,omitempty"`
	High          float64   `json:"high,omitempty"`
	Low           float64   `json:"low,omitempty"`
	PrevClose     float64   `json:"prev_close,omitempty"`
	Volume        float64   `json:"volume,omitempty"`
	High52W       float64   `json:"high_52w,omitempty"`
	Low52W        float64   `json:"low_52w,omitempty"`
	MarketCap     float64   `json:"market_cap,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// FundamentalSeed carries whatever fundamentals a source could supply.
// Nil fields are unknown and left to the estimator.
type FundamentalSeed struct {
	PE         *float64 `json:"pe,omitempty"`
	EPS        *float64 `json:"eps,omitempty"`
	PEG        *float64 `json:"peg,omitempty"`
	GrowthRate *float64 `json:"growth_rate,omitempty"`
	Sector     string   `json:"sector,omitempty"`
}

// Empty reports whether the seed carries no information at all.
func (f *FundamentalSeed) Empty() bool {
	return f == nil || (f.PE == nil && f.EPS == nil && f.PEG == nil && f.GrowthRate == nil && f.Sector == "")
}

// Merge fills fields missing in f from other. Fields already set win.
func (f *FundamentalSeed) Merge(other *FundamentalSeed) *FundamentalSeed {
	if other == nil {
		return f
	}
	if f == nil {
		cp := *other
		return &cp
	}
	out := *f
	if out.PE == nil {
		out.PE = other.PE
	}
	if out.EPS == nil {
		out.EPS = other.EPS
	}
	if out.PEG == nil {
		out.PEG = other.PEG
	}
	if out.GrowthRate == nil {
		out.GrowthRate = other.GrowthRate
	}
	if out.Sector == "" {
		out.Sector = other.Sector
	}
	return &out
}

// Float returns a pointer to v, for populating FundamentalSeed.
func Float(v float64) *float64 {
	return &v
}

// SentimentTag classifies a discussion snippet.
type SentimentTag string

const (
	TagBullish SentimentTag = "bullish"
	TagBearish SentimentTag = "bearish"
	TagNeutral SentimentTag = "neutral"
)

// ParseSentimentTag maps free-form tags to a SentimentTag. Anything that is
// not recognisably bullish or bearish is neutral.
func ParseSentimentTag(s string) SentimentTag {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bullish", "bull", "positive", "buy", "long":
		return TagBullish
	case "bearish", "bear", "negative", "sell", "short":
		return TagBearish
	default:
		return TagNeutral
	}
}

// Snippet is one pre-tagged piece of discussion or news text.
type Snippet struct {
	Text        string       `json:"text"`
	Tag         SentimentTag `json:"tag"`
	Source      string       `json:"source,omitempty"`
	URL         string       `json:"url,omitempty"`
	PublishedAt time.Time    `json:"published_at,omitempty"`
}
