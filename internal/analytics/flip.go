package analytics

// FindFlip scans Net GEX in strike order for the first sign inversion that
// holds for FlipRunLength consecutive strikes. The reported strike is the
// first strike of the opposite-sign run. Rows without Net GEX are ignored.
func FindFlip(rows []StrikeRow) *GammaFlipZone {
	type point struct {
		strike float64
		sign   int
	}

	series := make([]point, 0, len(rows))
	for _, r := range rows {
		if r.NetGex == nil {
			continue
		}
		series = append(series, point{strike: r.Strike, sign: sign(*r.NetGex)})
	}

	for i := 0; i+FlipRunLength < len(series); i++ {
		s := series[i].sign
		if s == 0 {
			continue
		}
		held := true
		for j := 1; j <= FlipRunLength; j++ {
			if series[i+j].sign != -s {
				held = false
				break
			}
		}
		if !held {
			continue
		}

		dir := PositiveToNegative
		if s < 0 {
			dir = NegativeToPositive
		}
		return &GammaFlipZone{Strike: series[i+1].strike, Direction: dir}
	}
	return nil
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
