package returns

// Breakdown reconciles where a period's value change came from. The identity
//
//	Ending - Beginning - NetExternalFlow = TotalPnL
//
// holds exactly; TotalPnL is then split into the invested sleeve's PnL and a
// residual bucket absorbing currency translation and rounding effects that
// cannot be attributed to either side cleanly.
type Breakdown struct {
	BeginningValue    float64 `json:"beginning_value" msgpack:"beginning_value"`
	EndingValue       float64 `json:"ending_value" msgpack:"ending_value"`
	BeginningInvested float64 `json:"beginning_invested" msgpack:"beginning_invested"`
	EndingInvested    float64 `json:"ending_invested" msgpack:"ending_invested"`
	NetExternalFlow   float64 `json:"net_external_flow" msgpack:"net_external_flow"`
	NetTrades         float64 `json:"net_trades" msgpack:"net_trades"`
	TotalPnL          float64 `json:"total_pnl" msgpack:"total_pnl"`
	InvestedPnL       float64 `json:"invested_pnl" msgpack:"invested_pnl"`
	ResidualPnL       float64 `json:"residual_pnl" msgpack:"residual_pnl"`

	// SimpleReturn is invested PnL over capital at work. Deliberately not
	// time-weighted: it answers "did my money grow" rather than "how did
	// the assets perform", and moves when TTWR does not (and vice versa).
	SimpleReturn float64 `json:"simple_return" msgpack:"simple_return"`
}

// ComputeBreakdown builds the PnL reconciliation for a period.
//
// beginning/ending are whole-portfolio values, beginningInvested and
// endingInvested the non-cash portions, netExternalFlow the period's signed
// contributions, and netTrades the signed buy-sell cash moved into the
// invested sleeve.
func ComputeBreakdown(beginning, ending, beginningInvested, endingInvested, netExternalFlow, netTrades float64) Breakdown {
	totalPnL := ending - beginning - netExternalFlow
	investedPnL := (endingInvested - beginningInvested) - netTrades

	simpleReturn := 0.0
	if capital := beginningInvested + netTrades; capital != 0 {
		simpleReturn = investedPnL / capital
	}

	return Breakdown{
		BeginningValue:    beginning,
		EndingValue:       ending,
		BeginningInvested: beginningInvested,
		EndingInvested:    endingInvested,
		NetExternalFlow:   netExternalFlow,
		NetTrades:         netTrades,
		TotalPnL:          totalPnL,
		InvestedPnL:       investedPnL,
		ResidualPnL:       totalPnL - investedPnL,
		SimpleReturn:      simpleReturn,
	}
}
