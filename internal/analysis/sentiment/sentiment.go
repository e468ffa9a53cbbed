// Package sentiment aggregates pre-tagged discussion snippets into a single
// net score.
package sentiment

import (
	"stock-analyst/internal/models"
)

// Signal is the aggregated sentiment for one instrument.
type Signal struct {
	BullishCount int     `json:"bullish_count"`
	BearishCount int     `json:"bearish_count"`
	NeutralCount int     `json:"neutral_count"`
	NetScore     float64 `json:"net_score"`
	// Highlights are the input snippets in the order supplied.
	Highlights []models.Snippet `json:"highlights"`
}

// Total returns the number of snippets seen.
func (s Signal) Total() int {
	return s.BullishCount + s.BearishCount + s.NeutralCount
}

// Aggregate counts tags and computes
// netScore = (bullish - bearish) / max(1, bullish + bearish).
// Tags other than bullish or bearish count as neutral.
func Aggregate(snippets []models.Snippet) Signal {
	sig := Signal{Highlights: make([]models.Snippet, len(snippets))}
	copy(sig.Highlights, snippets)

	for _, s := range snippets {
		switch s.Tag {
		case models.TagBullish:
			sig.BullishCount++
		case models.TagBearish:
			sig.BearishCount++
		default:
			sig.NeutralCount++
		}
	}

	directional := sig.BullishCount + sig.BearishCount
	if directional < 1 {
		directional = 1
	}
	net := float64(sig.BullishCount-sig.BearishCount) / float64(directional)
	if net > 1 {
		net = 1
	} else if net < -1 {
		net = -1
	}
	sig.NetScore = net
	return sig
}
