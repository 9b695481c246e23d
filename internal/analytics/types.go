package analytics

import "time"

// StrikeRow is one aggregated strike of the option chain.
// NetGex and AbsoluteGamma are nil until ComputeMetrics runs with a known spot.
type StrikeRow struct {
	Strike           float64  `json:"strike"`
	CallOpenInterest int64    `json:"call_oi"`
	PutOpenInterest  int64    `json:"put_oi"`
	CallVolume       int64    `json:"call_volume"`
	PutVolume        int64    `json:"put_volume"`
	NetGex           *float64 `json:"net_gex,omitempty"`
	AbsoluteGamma    *float64 `json:"absolute_gamma,omitempty"`
}

// ChainSnapshot is the per-strike table for one analytics request.
// Rows are unique per strike and sorted ascending.
type ChainSnapshot struct {
	Ticker      string      `json:"ticker"`
	Rows        []StrikeRow `json:"rows"`
	Spot        *float64    `json:"spot,omitempty"`
	Expirations []string    `json:"expirations"`
}

// Empty reports whether the snapshot carries no strikes.
func (s ChainSnapshot) Empty() bool {
	return len(s.Rows) == 0
}

// OptionQuote is the reduced form of one provider option contract.
type OptionQuote struct {
	Strike       float64 `json:"strike"`
	OpenInterest int64   `json:"open_interest"`
	Volume       int64   `json:"volume"`
}

// ExpirationChain holds the calls and puts of a single expiration date.
// Err marks an upstream fetch failure for that date; such chains are skipped.
type ExpirationChain struct {
	Expiration string        `json:"expiration"`
	Calls      []OptionQuote `json:"calls"`
	Puts       []OptionQuote `json:"puts"`
	Err        error         `json:"-"`
}

// Side classifies a level relative to spot.
type Side string

const (
	SideSupport    Side = "support"
	SideResistance Side = "resistance"
)

// SignalKind names the extremum that produced a level candidate.
type SignalKind string

const (
	SignalCallVolume     SignalKind = "call_volume"
	SignalPutVolume      SignalKind = "put_volume"
	SignalNetGexPositive SignalKind = "net_gex_positive"
	SignalNetGexNegative SignalKind = "net_gex_negative"
	SignalAbsoluteGamma  SignalKind = "absolute_gamma"
	SignalCallOI         SignalKind = "call_oi"
	SignalPutOI          SignalKind = "put_oi"
	SignalGammaFlip      SignalKind = "gamma_flip"
)

// LevelCandidate is a single-signal support or resistance price.
type LevelCandidate struct {
	Price   float64      `json:"price"`
	Side    Side         `json:"side"`
	Signals []SignalKind `json:"signals"`
}

// ConsolidatedLevel is a cluster of same-side candidates.
// Low == High when the cluster holds a single price.
type ConsolidatedLevel struct {
	Low     float64      `json:"low"`
	High    float64      `json:"high"`
	Side    Side         `json:"side"`
	Signals []SignalKind `json:"signals"`
}

// Mid returns the midpoint of the level span.
func (l ConsolidatedLevel) Mid() float64 {
	return (l.Low + l.High) / 2
}

// FactorKind names a confirmation counted by the confidence scorer.
type FactorKind string

const (
	FactorAbsoluteGamma          FactorKind = "absolute_gamma"
	FactorNetGexExtremum         FactorKind = "net_gex_extremum"
	FactorVolumeExtremum         FactorKind = "volume_extremum"
	FactorGammaFlipProximity     FactorKind = "gamma_flip_proximity"
	FactorOpenInterestExtremum   FactorKind = "open_interest_extremum"
	FactorVwapProximity          FactorKind = "vwap_proximity"
	FactorMovingAverageProximity FactorKind = "moving_average_proximity"
	FactorRsiExtreme             FactorKind = "rsi_extreme"
)

// Strength is the discrete label derived from a confidence score.
type Strength string

const (
	StrengthStrong   Strength = "strong"
	StrengthModerate Strength = "moderate"
	StrengthWeak     Strength = "weak"
)

// ScoredLevel is a consolidated level with its confidence and drawable zone.
type ScoredLevel struct {
	Level             ConsolidatedLevel `json:"level"`
	Confidence        int               `json:"confidence"`
	Strength          Strength          `json:"strength"`
	ConfirmingFactors []FactorKind      `json:"confirming_factors"`
	ZoneLow           float64           `json:"zone_low"`
	ZoneHigh          float64           `json:"zone_high"`
}

// FlipDirection is the sign transition observed at a gamma flip.
type FlipDirection string

const (
	PositiveToNegative FlipDirection = "positive_to_negative"
	NegativeToPositive FlipDirection = "negative_to_positive"
)

// GammaFlipZone marks the strike where Net GEX sustains a sign change.
type GammaFlipZone struct {
	Strike    float64       `json:"strike"`
	Direction FlipDirection `json:"direction"`
}

// MarketRegime summarises dealer posture around spot.
type MarketRegime string

const (
	RegimeBullish MarketRegime = "bullish"
	RegimeBearish MarketRegime = "bearish"
	RegimeNeutral MarketRegime = "neutral"
)

// Describe returns the human label used in forecasts.
func (r MarketRegime) Describe() string {
	switch r {
	case RegimeBullish:
		return "bullish, stabilizing"
	case RegimeBearish:
		return "bearish, amplifying"
	default:
		return "neutral"
	}
}

// NowContext is the clock information supplied by the caller.
type NowContext struct {
	CurrentTime     time.Time `json:"current_time"`
	MarketOpenTime  time.Time `json:"market_open_time"`
	MarketCloseTime time.Time `json:"market_close_time"`
}

// SessionPhase locates CurrentTime relative to the trading session.
type SessionPhase string

const (
	SessionPreMarket  SessionPhase = "pre_market"
	SessionOpen       SessionPhase = "open"
	SessionAfterHours SessionPhase = "after_hours"
	SessionClosed     SessionPhase = "closed"
)

// Phase classifies CurrentTime. Zero open/close times mean a non-trading day.
func (n NowContext) Phase() SessionPhase {
	if n.MarketOpenTime.IsZero() || n.MarketCloseTime.IsZero() {
		return SessionClosed
	}
	switch {
	case n.CurrentTime.Before(n.MarketOpenTime):
		return SessionPreMarket
	case n.CurrentTime.Before(n.MarketCloseTime):
		return SessionOpen
	default:
		return SessionAfterHours
	}
}

// Indicators are independent price-based confirmations for scoring.
type Indicators struct {
	VWAP          *float64 `json:"vwap,omitempty"`
	MovingAverage *float64 `json:"moving_average,omitempty"`
	RSI           *float64 `json:"rsi,omitempty"`
}

// Summary carries chain-wide statistics reported with the analysis.
type Summary struct {
	TotalNetGex     *float64 `json:"total_net_gex,omitempty"`
	PutCallOIRatio  *float64 `json:"put_call_oi_ratio,omitempty"`
	MaxPainStrike   *float64 `json:"max_pain_strike,omitempty"`
	TotalCallOI     int64    `json:"total_call_oi"`
	TotalPutOI      int64    `json:"total_put_oi"`
	TotalCallVolume int64    `json:"total_call_volume"`
	TotalPutVolume  int64    `json:"total_put_volume"`
}

// AnalysisResult is everything the renderers need for one ticker.
type AnalysisResult struct {
	Ticker        string         `json:"ticker"`
	AsOf          time.Time      `json:"as_of"`
	Session       SessionPhase   `json:"session"`
	Snapshot      ChainSnapshot  `json:"snapshot"`
	ScoredLevels  []ScoredLevel  `json:"scored_levels"`
	GammaFlip     *GammaFlipZone `json:"gamma_flip,omitempty"`
	Regime        MarketRegime   `json:"regime"`
	KeySupport    *ScoredLevel   `json:"key_support,omitempty"`
	KeyResistance *ScoredLevel   `json:"key_resistance,omitempty"`
	Summary       Summary        `json:"summary"`
	Indicators    Indicators     `json:"indicators"`
}

func ptr[T any](v T) *T { return &v }
