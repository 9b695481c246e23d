package analytics

import "github.com/shopspring/decimal"

// ComputeMetrics fills Net GEX and Absolute Gamma for every row.
// With no spot price the metrics stay undefined.
func ComputeMetrics(snap ChainSnapshot, spot *float64, k Constants) ChainSnapshot {
	out := snap.clone()
	if spot == nil {
		out.Spot = nil
		for i := range out.Rows {
			out.Rows[i].NetGex = nil
			out.Rows[i].AbsoluteGamma = nil
		}
		return out
	}

	s := *spot
	out.Spot = ptr(s)
	base := s * s / 100

	for i := range out.Rows {
		r := &out.Rows[i]
		callGex := float64(r.CallOpenInterest) * base * k.NetGexScale
		putGex := float64(r.PutOpenInterest) * base * k.NetGexScale
		r.NetGex = ptr(round1(callGex - putGex))
		r.AbsoluteGamma = ptr(round1(float64(r.CallOpenInterest+r.PutOpenInterest) * base * k.AbsoluteGammaScale))
	}
	return out
}

func round1(v float64) float64 {
	return decimal.NewFromFloat(v).Round(1).InexactFloat64()
}
