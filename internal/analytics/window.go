package analytics

// Window keeps the strikes within band of spot, bounds inclusive.
// Without a spot price no window can be computed and the snapshot is returned whole.
func Window(snap ChainSnapshot, spot *float64, band float64) ChainSnapshot {
	out := snap.clone()
	if spot == nil {
		return out
	}

	lo := *spot * (1 - band)
	hi := *spot * (1 + band)

	rows := out.Rows[:0]
	for _, r := range out.Rows {
		if r.Strike >= lo && r.Strike <= hi {
			rows = append(rows, r)
		}
	}
	out.Rows = rows
	return out
}
