package analytics

// Scaling constants for the exposure formulas. Their numerical basis is
// empirical; keep them overridable rather than changing the defaults.
const (
	DefaultNetGexScale        = 0.001
	DefaultAbsoluteGammaScale = 0.005
	DefaultMergeTolerance     = 20.0
	DefaultProximityPct       = 0.01

	// FlipRunLength is the number of consecutive opposite-sign strikes that
	// confirm a gamma flip.
	FlipRunLength = 6

	// RegimeSampleSize is the number of strikes inspected on each side of spot.
	RegimeSampleSize = 3

	MaxConfidence = 95
)

// Constants are the overridable formula scales.
type Constants struct {
	NetGexScale        float64 `json:"net_gex_scale" mapstructure:"net_gex_scale"`
	AbsoluteGammaScale float64 `json:"absolute_gamma_scale" mapstructure:"absolute_gamma_scale"`
}

// DefaultConstants returns the stock scaling constants.
func DefaultConstants() Constants {
	return Constants{
		NetGexScale:        DefaultNetGexScale,
		AbsoluteGammaScale: DefaultAbsoluteGammaScale,
	}
}

// InstrumentClassConfig carries the per-class tunables supplied by the caller.
type InstrumentClassConfig struct {
	WindowBand             float64 `json:"window_band" mapstructure:"window_band"`
	ResistanceZoneLowerPct float64 `json:"resistance_zone_lower_pct" mapstructure:"resistance_zone_lower_pct"`
	ResistanceZoneUpperPct float64 `json:"resistance_zone_upper_pct" mapstructure:"resistance_zone_upper_pct"`
	SupportZoneLowerPct    float64 `json:"support_zone_lower_pct" mapstructure:"support_zone_lower_pct"`
	SupportZoneUpperPct    float64 `json:"support_zone_upper_pct" mapstructure:"support_zone_upper_pct"`
	MergeTolerance         float64 `json:"merge_tolerance" mapstructure:"merge_tolerance"`
}

// zoneBounds expands a level span into the drawable zone for its side.
func (c InstrumentClassConfig) zoneBounds(l ConsolidatedLevel) (float64, float64) {
	if l.Side == SideResistance {
		return l.Low * (1 - c.ResistanceZoneLowerPct), l.High * (1 + c.ResistanceZoneUpperPct)
	}
	return l.Low * (1 - c.SupportZoneLowerPct), l.High * (1 + c.SupportZoneUpperPct)
}
