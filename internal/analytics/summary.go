package analytics

import "math"

// Summarize computes chain-wide totals, the put/call OI ratio and the max pain strike.
func Summarize(snap ChainSnapshot) Summary {
	var sum Summary
	if snap.Empty() {
		return sum
	}

	var totalGex float64
	gexDefined := false
	for _, r := range snap.Rows {
		sum.TotalCallOI += r.CallOpenInterest
		sum.TotalPutOI += r.PutOpenInterest
		sum.TotalCallVolume += r.CallVolume
		sum.TotalPutVolume += r.PutVolume
		if r.NetGex != nil {
			totalGex += *r.NetGex
			gexDefined = true
		}
	}
	if gexDefined {
		sum.TotalNetGex = ptr(round1(totalGex))
	}
	if sum.TotalCallOI > 0 {
		sum.PutCallOIRatio = ptr(math.Round(float64(sum.TotalPutOI)/float64(sum.TotalCallOI)*100) / 100)
	}
	sum.MaxPainStrike = maxPain(snap.Rows)
	return sum
}

// maxPain returns the strike minimising the intrinsic value paid to option
// holders at expiry. Ties resolve to the lowest strike.
func maxPain(rows []StrikeRow) *float64 {
	var best *float64
	minPain := math.MaxFloat64

	for _, expiry := range rows {
		pain := 0.0
		for _, r := range rows {
			if r.Strike < expiry.Strike {
				pain += (expiry.Strike - r.Strike) * float64(r.CallOpenInterest)
			}
			if r.Strike > expiry.Strike {
				pain += (r.Strike - expiry.Strike) * float64(r.PutOpenInterest)
			}
		}
		if pain < minPain {
			minPain = pain
			best = ptr(expiry.Strike)
		}
	}
	return best
}
