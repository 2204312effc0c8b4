package returns

// ValuePoint is one dated observation of the value series being chained.
type ValuePoint struct {
	Date  string
	Value float64
}

// ChainLinkedReturn computes the time-weighted return over a value series by
// geometric linking of sub-period returns.
//
// anchorValue is the series value at the period start (the latest snapshot at
// or before it). For each subsequent point with value V_t and the day's signed
// flow F_t:
//
//	r_t = (V_t - (V_{t-1} + F_t)) / (V_{t-1} + F_t)
//
// and the period return is the compounded product minus one. A zero
// denominator contributes a zero sub-period return; a flow absorbed into the
// denominator with no price movement therefore contributes exactly 0%.
func ChainLinkedReturn(anchorValue float64, series []ValuePoint, flows map[string]float64) float64 {
	factor := 1.0
	prev := anchorValue

	for _, point := range series {
		denom := prev + flows[point.Date]
		if denom != 0 {
			r := (point.Value - denom) / denom
			factor *= 1 + r
		}
		prev = point.Value
	}

	return factor - 1
}
