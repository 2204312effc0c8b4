package returns

import (
	"github.com/quantfolio/quantfolio/internal/modules/transactions"
)

// FlowView selects the sign convention under which transaction flows are
// aggregated. Each metric measures a different quantity and therefore counts
// different transactions with different signs; mixing them up silently
// computes the wrong metric.
type FlowView int

const (
	// ViewInvestor is the XIRR schedule convention: flows signed from the
	// investor's pocket. Money paid in is negative, money received back
	// (withdrawals, dividends, interest) is positive.
	ViewInvestor FlowView = iota

	// ViewPortfolio is the whole-portfolio TTWR convention: external
	// contributions signed from the portfolio's perspective, matching the
	// net_flow column of the snapshot series.
	ViewPortfolio

	// ViewInvested is the invested-only TTWR convention: trades are the
	// flow signal. Buys push cash into the invested sleeve, sells pull it
	// out; deposits and withdrawals are invisible to it.
	ViewInvested
)

var investorSigns = map[transactions.Kind]float64{
	transactions.KindDeposit:    -1,
	transactions.KindWithdrawal: +1,
	transactions.KindDividend:   +1,
	transactions.KindInterest:   +1,
	transactions.KindFee:        -1,
	transactions.KindTax:        -1,
}

// FlowAmount returns the transaction's signed flow in base currency under the
// given view, or 0 when the view does not count it.
func FlowAmount(tx *transactions.Transaction, view FlowView) float64 {
	switch view {
	case ViewInvestor:
		sign, ok := investorSigns[tx.Kind]
		if !ok {
			return 0
		}
		return sign * tx.BaseAmount()

	case ViewPortfolio:
		return tx.ExternalFlow()

	case ViewInvested:
		switch tx.Kind {
		case transactions.KindBuy:
			return tx.BaseAmount()
		case transactions.KindSell:
			return -tx.BaseAmount()
		}
		return 0
	}
	return 0
}

// DailyFlows groups flows by calendar day under the given view, dropping days
// that net to zero relevance (no counted transactions).
func DailyFlows(txs []transactions.Transaction, view FlowView) map[string]float64 {
	flows := make(map[string]float64)
	for i := range txs {
		amount := FlowAmount(&txs[i], view)
		if amount == 0 {
			continue
		}
		flows[txs[i].Date()] += amount
	}
	return flows
}

// SumFlows totals all flows under the given view.
func SumFlows(txs []transactions.Transaction, view FlowView) float64 {
	total := 0.0
	for i := range txs {
		total += FlowAmount(&txs[i], view)
	}
	return total
}
