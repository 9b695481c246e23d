package analytics

// ClassifyRegime inspects the Net GEX signs of the RegimeSampleSize strikes
// nearest below and above spot.
func ClassifyRegime(snap ChainSnapshot, spot *float64) MarketRegime {
	if spot == nil {
		return RegimeNeutral
	}
	s := *spot

	var below, above []float64
	for _, r := range snap.Rows {
		if r.NetGex == nil {
			continue
		}
		switch {
		case r.Strike < s:
			below = append(below, *r.NetGex)
		case r.Strike > s:
			above = append(above, *r.NetGex)
		}
	}
	if len(below) < RegimeSampleSize || len(above) < RegimeSampleSize {
		return RegimeNeutral
	}

	// rows are ascending: nearest below are the last ones, nearest above the first ones
	below = below[len(below)-RegimeSampleSize:]
	above = above[:RegimeSampleSize]

	pb, nb := countSigns(below)
	pa, na := countSigns(above)

	switch {
	case pb >= RegimeSampleSize && pa >= RegimeSampleSize:
		return RegimeBullish
	case nb >= RegimeSampleSize && na >= RegimeSampleSize:
		return RegimeBearish
	default:
		return RegimeNeutral
	}
}

func countSigns(values []float64) (pos, neg int) {
	for _, v := range values {
		switch sign(v) {
		case 1:
			pos++
		case -1:
			neg++
		}
	}
	return pos, neg
}
