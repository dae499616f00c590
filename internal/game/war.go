package game

import (
	"math"
	"sort"
	"time"
)

// WARHistoryLimit bounds the per-player WAR history.
const WARHistoryLimit = 30

const warTrendThreshold = 0.05

type WARRating string

const (
	WARPoor      WARRating = "poor"
	WARAverage   WARRating = "average"
	WARGood      WARRating = "good"
	WARExcellent WARRating = "excellent"
	WARLegendary WARRating = "legendary"
)

type WARTrend string

const (
	WARRising  WARTrend = "rising"
	WARFalling WARTrend = "falling"
	WARStable  WARTrend = "stable"
)

// WARStats tracks the wealth-to-asset ratio of a player.
type WARStats struct {
	Current float64   `json:"current"`
	Peak    float64   `json:"peak"`
	Trend   WARTrend  `json:"trend,omitempty"`
	Rating  WARRating `json:"rating,omitempty"`
}

type WARHistoryEntry struct {
	At             time.Time `json:"at"`
	WAR            float64   `json:"war"`
	Trigger        string    `json:"trigger"`
	PortfolioValue int64     `json:"portfolio_value"`
	Wealth         int64     `json:"wealth"`
}

// CalculateWAR is wealth over portfolio value, rounded to three places. An
// empty portfolio scores zero.
func CalculateWAR(wealth, portfolioValue int64) float64 {
	if portfolioValue == 0 {
		return 0
	}
	return math.Round(float64(wealth)/float64(portfolioValue)*1000) / 1000
}

func WARRatingFor(score float64) WARRating {
	switch {
	case score < 0.1:
		return WARPoor
	case score < 0.3:
		return WARAverage
	case score < 0.5:
		return WARGood
	case score < 0.8:
		return WARExcellent
	default:
		return WARLegendary
	}
}

// WARTrendFrom compares against the previous score with a 5% dead band.
func WARTrendFrom(current, previous float64) WARTrend {
	switch {
	case current > previous*(1+warTrendThreshold):
		return WARRising
	case current < previous*(1-warTrendThreshold):
		return WARFalling
	default:
		return WARStable
	}
}

// UpdateWAR recomputes p's WAR after a change and appends a history entry.
func (e *Engine) UpdateWAR(p *Player, trigger string, now time.Time) {
	portfolio := e.PortfolioValue(*p)
	current := CalculateWAR(p.Wealth, portfolio)
	p.WAR = WARStats{
		Current: current,
		Peak:    math.Max(current, p.WAR.Peak),
		Trend:   WARTrendFrom(current, p.WAR.Current),
		Rating:  WARRatingFor(current),
	}
	p.WARHistory = append(p.WARHistory, WARHistoryEntry{
		At:             now,
		WAR:            current,
		Trigger:        trigger,
		PortfolioValue: portfolio,
		Wealth:         p.Wealth,
	})
	if n := len(p.WARHistory); n > WARHistoryLimit {
		p.WARHistory = append([]WARHistoryEntry(nil), p.WARHistory[n-WARHistoryLimit:]...)
	}
}

// RankByWAR orders rows by WAR, highest first, and assigns ranks. Ties keep
// the higher score first, then player id.
func RankByWAR(rows []LeaderboardRow) []LeaderboardRow {
	out := append([]LeaderboardRow(nil), rows...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].WAR != out[j].WAR {
			return out[i].WAR > out[j].WAR
		}
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].PlayerID < out[j].PlayerID
	})
	for i := range out {
		out[i].Rank = int64(i + 1)
	}
	return out
}
