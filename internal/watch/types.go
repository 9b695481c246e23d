package watch

import (
	"github.com/qwerty2498888/maxpowertrading/internal/analytics"
	"github.com/qwerty2498888/maxpowertrading/internal/forecast"
)

// Batch is one round of regime updates sent to a subscriber. The first
// batch of a connection is sent as the "snapshot" event.
type Batch struct {
	BroadcasterID string  `json:"broadcaster_id"`
	Timestamp     int64   `json:"timestamp"`
	Sequence      uint64  `json:"sequence"`
	Entries       []Entry `json:"entries"`
}

// Entry is the regime headline of one ticker. Error is set instead of the
// analytics fields when the analysis failed.
type Entry struct {
	Ticker        string                  `json:"ticker"`
	AsOf          int64                   `json:"as_of,omitempty"`
	Session       analytics.SessionPhase  `json:"session,omitempty"`
	Spot          *float64                `json:"spot,omitempty"`
	Regime        analytics.MarketRegime  `json:"regime,omitempty"`
	Headline      string                  `json:"headline,omitempty"`
	GammaFlip     *float64                `json:"gamma_flip,omitempty"`
	FlipDirection analytics.FlipDirection `json:"flip_direction,omitempty"`
	KeySupport    *analytics.ScoredLevel  `json:"key_support,omitempty"`
	KeyResistance *analytics.ScoredLevel  `json:"key_resistance,omitempty"`
	TotalNetGex   *float64                `json:"total_net_gex,omitempty"`
	Error         string                  `json:"error,omitempty"`
}

func newEntry(r *analytics.AnalysisResult) Entry {
	e := Entry{
		Ticker:        analytics.DisplayTicker(r.Ticker),
		AsOf:          r.AsOf.UnixMilli(),
		Session:       r.Session,
		Spot:          r.Snapshot.Spot,
		Regime:        r.Regime,
		Headline:      forecast.Headline(r),
		KeySupport:    r.KeySupport,
		KeyResistance: r.KeyResistance,
		TotalNetGex:   r.Summary.TotalNetGex,
	}
	if r.GammaFlip != nil {
		strike := r.GammaFlip.Strike
		e.GammaFlip = &strike
		e.FlipDirection = r.GammaFlip.Direction
	}
	return e
}
