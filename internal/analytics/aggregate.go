package analytics

import (
	"math"
	"sort"
)

type strikeTotals struct {
	callOI, putOI, callVol, putVol int64
}

// Aggregate merges calls and puts of every expiration into one row per strike.
// Expirations carrying a fetch error are skipped; if none yields data the
// result is an empty snapshot. Malformed rows fail the whole aggregation.
func Aggregate(ticker string, chains map[string]ExpirationChain) (ChainSnapshot, error) {
	snap := ChainSnapshot{Ticker: ticker}

	dates := make([]string, 0, len(chains))
	for date := range chains {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	verr := &RowValidationError{}
	totals := make(map[float64]*strikeTotals)

	for _, date := range dates {
		chain := chains[date]
		if chain.Err != nil {
			continue
		}
		if len(chain.Calls) == 0 && len(chain.Puts) == 0 {
			continue
		}

		validateQuotes(verr, date, "call", chain.Calls)
		validateQuotes(verr, date, "put", chain.Puts)
		if verr.HasErrors() {
			continue
		}

		for _, q := range chain.Calls {
			t := totalsFor(totals, q.Strike)
			t.callOI += q.OpenInterest
			t.callVol += q.Volume
		}
		for _, q := range chain.Puts {
			t := totalsFor(totals, q.Strike)
			t.putOI += q.OpenInterest
			t.putVol += q.Volume
		}
		snap.Expirations = append(snap.Expirations, date)
	}

	if verr.HasErrors() {
		return ChainSnapshot{Ticker: ticker}, verr
	}

	snap.Rows = make([]StrikeRow, 0, len(totals))
	for strike, t := range totals {
		snap.Rows = append(snap.Rows, StrikeRow{
			Strike:           strike,
			CallOpenInterest: t.callOI,
			PutOpenInterest:  t.putOI,
			CallVolume:       t.callVol,
			PutVolume:        t.putVol,
		})
	}
	sort.Slice(snap.Rows, func(i, j int) bool {
		return snap.Rows[i].Strike < snap.Rows[j].Strike
	})

	return snap, nil
}

func totalsFor(m map[float64]*strikeTotals, strike float64) *strikeTotals {
	t, ok := m[strike]
	if !ok {
		t = &strikeTotals{}
		m[strike] = t
	}
	return t
}

func validateQuotes(verr *RowValidationError, date, kind string, quotes []OptionQuote) {
	for i, q := range quotes {
		var reason string
		switch {
		case math.IsNaN(q.Strike) || math.IsInf(q.Strike, 0):
			reason = "non-finite strike"
		case q.Strike <= 0:
			reason = "non-positive strike"
		case q.OpenInterest < 0:
			reason = "negative open interest"
		case q.Volume < 0:
			reason = "negative volume"
		default:
			continue
		}
		verr.Rows = append(verr.Rows, InvalidRow{
			Expiration: date,
			Kind:       kind,
			Index:      i,
			Reason:     reason,
		})
	}
}

// clone returns a copy of the snapshot whose rows can be modified freely.
func (s ChainSnapshot) clone() ChainSnapshot {
	out := s
	out.Rows = make([]StrikeRow, len(s.Rows))
	copy(out.Rows, s.Rows)
	out.Expirations = append([]string(nil), s.Expirations...)
	return out
}
