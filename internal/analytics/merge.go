package analytics

import "sort"

// MergeLevels clusters same-side candidates whose prices lie within tolerance
// of the open cluster's upper bound. Tolerance is in absolute price units.
func MergeLevels(candidates []LevelCandidate, tolerance float64) []ConsolidatedLevel {
	bySide := map[Side][]LevelCandidate{}
	for _, c := range candidates {
		bySide[c.Side] = append(bySide[c.Side], c)
	}

	var out []ConsolidatedLevel
	for _, side := range []Side{SideSupport, SideResistance} {
		group := bySide[side]
		if len(group) == 0 {
			continue
		}
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Price < group[j].Price
		})

		cur := ConsolidatedLevel{Low: group[0].Price, High: group[0].Price, Side: side}
		signals := signalSet{}
		signals.add(group[0].Signals...)

		for _, c := range group[1:] {
			if c.Price-cur.High <= tolerance {
				cur.High = c.Price
				signals.add(c.Signals...)
				continue
			}
			cur.Signals = signals.sorted()
			out = append(out, cur)

			cur = ConsolidatedLevel{Low: c.Price, High: c.Price, Side: side}
			signals = signalSet{}
			signals.add(c.Signals...)
		}
		cur.Signals = signals.sorted()
		out = append(out, cur)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Low != out[j].Low {
			return out[i].Low < out[j].Low
		}
		return out[i].Side < out[j].Side
	})
	return out
}

type signalSet map[SignalKind]struct{}

func (s signalSet) add(kinds ...SignalKind) {
	for _, k := range kinds {
		s[k] = struct{}{}
	}
}

func (s signalSet) sorted() []SignalKind {
	out := make([]SignalKind, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
