package analytics

import (
	"math"
	"sort"
)

// FactorWeights is the contribution of each satisfied confirmation.
var FactorWeights = map[FactorKind]int{
	FactorAbsoluteGamma:          30,
	FactorNetGexExtremum:         30,
	FactorVolumeExtremum:         20,
	FactorGammaFlipProximity:     20,
	FactorOpenInterestExtremum:   15,
	FactorVwapProximity:          10,
	FactorMovingAverageProximity: 10,
	FactorRsiExtreme:             5,
}

const (
	rsiOversold   = 30.0
	rsiOverbought = 70.0
)

// ScoringContext holds the reference values a level is tested against.
type ScoringContext struct {
	// References maps each signal to the strike it was found at.
	References   map[SignalKind]float64
	Indicators   Indicators
	ProximityPct float64
	Class        InstrumentClassConfig
}

// ScoreLevel sums the weights of every confirming factor, clamps to
// MaxConfidence and derives the strength label.
func ScoreLevel(level ConsolidatedLevel, ctx ScoringContext) ScoredLevel {
	pct := ctx.ProximityPct
	if pct <= 0 {
		pct = DefaultProximityPct
	}

	near := func(ref float64) bool {
		return levelDistance(level, ref) <= pct*math.Abs(ref)
	}
	nearSignal := func(kind SignalKind) bool {
		ref, ok := ctx.References[kind]
		return ok && near(ref)
	}
	nearValue := func(v *float64) bool {
		return v != nil && near(*v)
	}

	support := level.Side == SideSupport
	pick := func(sup, res SignalKind) SignalKind {
		if support {
			return sup
		}
		return res
	}

	checks := []struct {
		kind FactorKind
		ok   bool
	}{
		{FactorAbsoluteGamma, nearSignal(SignalAbsoluteGamma)},
		{FactorNetGexExtremum, nearSignal(pick(SignalNetGexNegative, SignalNetGexPositive))},
		{FactorVolumeExtremum, nearSignal(pick(SignalPutVolume, SignalCallVolume))},
		{FactorGammaFlipProximity, nearSignal(SignalGammaFlip)},
		{FactorOpenInterestExtremum, nearSignal(pick(SignalPutOI, SignalCallOI))},
		{FactorVwapProximity, nearValue(ctx.Indicators.VWAP)},
		{FactorMovingAverageProximity, nearValue(ctx.Indicators.MovingAverage)},
		{FactorRsiExtreme, rsiConfirms(ctx.Indicators.RSI, support)},
	}

	score := 0
	factors := make([]FactorKind, 0, len(checks))
	for _, c := range checks {
		if c.ok {
			score += FactorWeights[c.kind]
			factors = append(factors, c.kind)
		}
	}
	sort.Slice(factors, func(i, j int) bool { return factors[i] < factors[j] })

	if score > MaxConfidence {
		score = MaxConfidence
	}
	if score < 0 {
		score = 0
	}

	zoneLow, zoneHigh := ctx.Class.zoneBounds(level)
	return ScoredLevel{
		Level:             level,
		Confidence:        score,
		Strength:          StrengthFor(score),
		ConfirmingFactors: factors,
		ZoneLow:           zoneLow,
		ZoneHigh:          zoneHigh,
	}
}

// StrengthFor maps a confidence score to its label.
func StrengthFor(score int) Strength {
	switch {
	case score > 70:
		return StrengthStrong
	case score > 40:
		return StrengthModerate
	default:
		return StrengthWeak
	}
}

func rsiConfirms(rsi *float64, support bool) bool {
	if rsi == nil {
		return false
	}
	if support {
		return *rsi < rsiOversold
	}
	return *rsi > rsiOverbought
}

// levelDistance is zero inside the level span, otherwise the gap to the nearest bound.
func levelDistance(l ConsolidatedLevel, v float64) float64 {
	switch {
	case v < l.Low:
		return l.Low - v
	case v > l.High:
		return v - l.High
	default:
		return 0
	}
}

// DominantLevels returns the highest scored level per side. Ties prefer the
// level nearer to spot, then the lower price.
func DominantLevels(levels []ScoredLevel, spot *float64) (support, resistance *ScoredLevel) {
	better := func(a, b ScoredLevel) bool {
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if spot != nil {
			da, db := levelDistance(a.Level, *spot), levelDistance(b.Level, *spot)
			if da != db {
				return da < db
			}
		}
		return a.Level.Low < b.Level.Low
	}

	for i := range levels {
		l := levels[i]
		switch l.Level.Side {
		case SideSupport:
			if support == nil || better(l, *support) {
				support = &levels[i]
			}
		case SideResistance:
			if resistance == nil || better(l, *resistance) {
				resistance = &levels[i]
			}
		}
	}
	return support, resistance
}
