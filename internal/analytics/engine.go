// Package analytics derives dealer positioning signals from an option chain
// snapshot. Every function is pure: no I/O, no shared state.
package analytics

import "sort"

// Input is everything Analyze needs for one request.
type Input struct {
	Ticker       string
	Expirations  []string
	Chains       map[string]ExpirationChain
	Spot         *float64
	Now          NowContext
	Class        InstrumentClassConfig
	Constants    Constants
	Indicators   Indicators
	ProximityPct float64
}

// Analyze runs the full pipeline. Only malformed chain rows produce an error;
// missing data degrades to no levels, no flip and a neutral regime.
func Analyze(in Input) (*AnalysisResult, error) {
	ticker := NormalizeTicker(in.Ticker)

	chains := in.Chains
	if len(in.Expirations) > 0 {
		chains = make(map[string]ExpirationChain, len(in.Expirations))
		for _, date := range in.Expirations {
			if c, ok := in.Chains[date]; ok {
				chains[date] = c
			}
		}
	}

	snap, err := Aggregate(ticker, chains)
	if err != nil {
		return nil, err
	}

	k := in.Constants
	if k.NetGexScale == 0 && k.AbsoluteGammaScale == 0 {
		k = DefaultConstants()
	}
	tolerance := in.Class.MergeTolerance
	if tolerance <= 0 {
		tolerance = DefaultMergeTolerance
	}

	snap = ComputeMetrics(snap, in.Spot, k)
	windowed := snap
	if in.Class.WindowBand > 0 {
		windowed = Window(snap, in.Spot, in.Class.WindowBand)
	}

	result := &AnalysisResult{
		Ticker:       ticker,
		AsOf:         in.Now.CurrentTime,
		Session:      in.Now.Phase(),
		Snapshot:     windowed,
		ScoredLevels: []ScoredLevel{},
		Regime:       RegimeNeutral,
		Indicators:   in.Indicators,
	}
	if windowed.Empty() || in.Spot == nil {
		result.Summary = Summarize(windowed)
		return result, nil
	}

	candidates := ExtractLevels(windowed, in.Spot)
	result.GammaFlip = FindFlip(windowed.Rows)
	result.Regime = ClassifyRegime(windowed, in.Spot)

	ctx := ScoringContext{
		References:   references(candidates),
		Indicators:   in.Indicators,
		ProximityPct: in.ProximityPct,
		Class:        in.Class,
	}
	for _, level := range MergeLevels(candidates, tolerance) {
		result.ScoredLevels = append(result.ScoredLevels, ScoreLevel(level, ctx))
	}
	sort.SliceStable(result.ScoredLevels, func(i, j int) bool {
		return result.ScoredLevels[i].Level.Low < result.ScoredLevels[j].Level.Low
	})

	result.KeySupport, result.KeyResistance = DominantLevels(result.ScoredLevels, in.Spot)
	result.Summary = Summarize(windowed)
	return result, nil
}
