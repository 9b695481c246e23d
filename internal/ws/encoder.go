package ws

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/qwerty2498888/maxpowertrading/internal/analytics"
)

// LevelsUpdate is the payload broadcast to a ticker group.
type LevelsUpdate struct {
	Ticker        string                   `json:"ticker"`
	AsOf          time.Time                `json:"as_of"`
	Session       analytics.SessionPhase   `json:"session"`
	Spot          *float64                 `json:"spot,omitempty"`
	Regime        analytics.MarketRegime   `json:"regime"`
	RegimeLabel   string                   `json:"regime_label"`
	GammaFlip     *analytics.GammaFlipZone `json:"gamma_flip,omitempty"`
	KeySupport    *analytics.ScoredLevel   `json:"key_support,omitempty"`
	KeyResistance *analytics.ScoredLevel   `json:"key_resistance,omitempty"`
	Levels        []analytics.ScoredLevel  `json:"levels"`
	Summary       analytics.Summary        `json:"summary"`
}

// NewLevelsUpdate drops the per-strike table, which subscribers do not need.
func NewLevelsUpdate(r *analytics.AnalysisResult) LevelsUpdate {
	levels := r.ScoredLevels
	if levels == nil {
		levels = []analytics.ScoredLevel{}
	}
	return LevelsUpdate{
		Ticker:        analytics.DisplayTicker(r.Ticker),
		AsOf:          r.AsOf,
		Session:       r.Session,
		Spot:          r.Snapshot.Spot,
		Regime:        r.Regime,
		RegimeLabel:   r.Regime.Describe(),
		GammaFlip:     r.GammaFlip,
		KeySupport:    r.KeySupport,
		KeyResistance: r.KeyResistance,
		Levels:        levels,
		Summary:       r.Summary,
	}
}

// Encoder converts analysis results to wire format and compresses frames
// for zstd clients.
type Encoder struct {
	zstdEncoder *zstd.Encoder
}

// NewEncoder creates a new Encoder with Zstd compression.
func NewEncoder() (*Encoder, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	return &Encoder{zstdEncoder: enc}, nil
}

// EncodeLevels serializes the levels update for r.
func (e *Encoder) EncodeLevels(r *analytics.AnalysisResult) ([]byte, error) {
	data, err := json.Marshal(NewLevelsUpdate(r))
	if err != nil {
		return nil, fmt.Errorf("marshal levels update: %w", err)
	}
	return data, nil
}

// Compress returns the zstd frame for msg.
func (e *Encoder) Compress(msg []byte) []byte {
	return e.zstdEncoder.EncodeAll(msg, nil)
}

// Close releases encoder resources.
func (e *Encoder) Close() {
	if e.zstdEncoder != nil {
		e.zstdEncoder.Close()
	}
}
