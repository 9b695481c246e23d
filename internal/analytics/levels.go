package analytics

// extremum tracks the best strike seen during an ascending scan. Strict
// comparison keeps the lowest strike on ties.
type extremum struct {
	strike float64
	value  float64
	found  bool
}

func (e *extremum) offerMax(strike, value float64) {
	if value <= 0 {
		return
	}
	if !e.found || value > e.value {
		e.strike, e.value, e.found = strike, value, true
	}
}

func (e *extremum) offerMin(strike, value float64) {
	if value >= 0 {
		return
	}
	if !e.found || value < e.value {
		e.strike, e.value, e.found = strike, value, true
	}
}

// ExtractLevels evaluates every positioning signal against spot and returns
// at most one candidate per signal. Ties resolve to the lowest strike.
func ExtractLevels(snap ChainSnapshot, spot *float64) []LevelCandidate {
	if spot == nil || snap.Empty() {
		return nil
	}
	s := *spot

	var callVol, putVol, gexPos, gexNeg, absGamma, callOI, putOI extremum

	for _, r := range snap.Rows {
		switch {
		case r.Strike > s:
			callVol.offerMax(r.Strike, float64(r.CallVolume))
			callOI.offerMax(r.Strike, float64(r.CallOpenInterest))
			if r.NetGex != nil {
				gexPos.offerMax(r.Strike, *r.NetGex)
			}
		case r.Strike < s:
			putVol.offerMax(r.Strike, float64(r.PutVolume))
			putOI.offerMax(r.Strike, float64(r.PutOpenInterest))
			if r.NetGex != nil {
				gexNeg.offerMin(r.Strike, *r.NetGex)
			}
		}
		if r.AbsoluteGamma != nil {
			absGamma.offerMax(r.Strike, *r.AbsoluteGamma)
		}
	}

	var out []LevelCandidate
	add := func(e extremum, side Side, kind SignalKind) {
		if e.found {
			out = append(out, LevelCandidate{Price: e.strike, Side: side, Signals: []SignalKind{kind}})
		}
	}

	add(callVol, SideResistance, SignalCallVolume)
	add(putVol, SideSupport, SignalPutVolume)
	add(gexPos, SideResistance, SignalNetGexPositive)
	add(gexNeg, SideSupport, SignalNetGexNegative)
	add(absGamma, sideOf(absGamma.strike, s), SignalAbsoluteGamma)
	add(callOI, SideResistance, SignalCallOI)
	add(putOI, SideSupport, SignalPutOI)

	if flip := FindFlip(snap.Rows); flip != nil {
		out = append(out, LevelCandidate{
			Price:   flip.Strike,
			Side:    sideOf(flip.Strike, s),
			Signals: []SignalKind{SignalGammaFlip},
		})
	}

	return out
}

func sideOf(strike, spot float64) Side {
	if strike > spot {
		return SideResistance
	}
	return SideSupport
}

// references indexes candidate prices by signal for the confidence scorer.
func references(candidates []LevelCandidate) map[SignalKind]float64 {
	refs := make(map[SignalKind]float64, len(candidates))
	for _, c := range candidates {
		for _, k := range c.Signals {
			refs[k] = c.Price
		}
	}
	return refs
}
