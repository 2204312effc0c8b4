package returns

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/quantfolio/quantfolio/internal/modules/transactions"
	"github.com/quantfolio/quantfolio/internal/utils"
)

func flowTx(kind transactions.Kind, date string, qty, price, fxRate float64) transactions.Transaction {
	executedAt, _ := time.Parse(utils.DateLayout, date)
	return transactions.Transaction{
		PortfolioID: "p1",
		AccountID:   "a1",
		Kind:        kind,
		Quantity:    qty,
		Price:       price,
		Currency:    "EUR",
		FxRate:      fxRate,
		ExecutedAt:  executedAt,
	}
}

func TestFlowAmountInvestorView(t *testing.T) {
	deposit := flowTx(transactions.KindDeposit, "2024-03-10", 1000, 1, 1)
	withdrawal := flowTx(transactions.KindWithdrawal, "2024-03-11", 400, 1, 1)
	dividend := flowTx(transactions.KindDividend, "2024-03-12", 25, 1, 1)
	fee := flowTx(transactions.KindFee, "2024-03-13", 10, 1, 1)
	buy := flowTx(transactions.KindBuy, "2024-03-14", 5, 100, 1)

	// Money leaving the investor's pocket is negative, money coming back
	// positive. Trades are internal and invisible.
	assert.Equal(t, -1000.0, FlowAmount(&deposit, ViewInvestor))
	assert.Equal(t, 400.0, FlowAmount(&withdrawal, ViewInvestor))
	assert.Equal(t, 25.0, FlowAmount(&dividend, ViewInvestor))
	assert.Equal(t, -10.0, FlowAmount(&fee, ViewInvestor))
	assert.Equal(t, 0.0, FlowAmount(&buy, ViewInvestor))
}

func TestFlowAmountPortfolioView(t *testing.T) {
	deposit := flowTx(transactions.KindDeposit, "2024-03-10", 1000, 1, 1)
	withdrawal := flowTx(transactions.KindWithdrawal, "2024-03-11", 400, 1, 1)
	dividend := flowTx(transactions.KindDividend, "2024-03-12", 25, 1, 1)
	buy := flowTx(transactions.KindBuy, "2024-03-14", 5, 100, 1)

	// External contributions only: dividends are internal income.
	assert.Equal(t, 1000.0, FlowAmount(&deposit, ViewPortfolio))
	assert.Equal(t, -400.0, FlowAmount(&withdrawal, ViewPortfolio))
	assert.Equal(t, 0.0, FlowAmount(&dividend, ViewPortfolio))
	assert.Equal(t, 0.0, FlowAmount(&buy, ViewPortfolio))
}

func TestFlowAmountInvestedView(t *testing.T) {
	buy := flowTx(transactions.KindBuy, "2024-03-14", 5, 100, 1.1)
	sell := flowTx(transactions.KindSell, "2024-03-15", 5, 120, 1.1)
	deposit := flowTx(transactions.KindDeposit, "2024-03-10", 1000, 1, 1)

	// Trades move money into and out of the invested sleeve, in base
	// currency; cash events are invisible to it.
	assert.InDelta(t, 550, FlowAmount(&buy, ViewInvested), 1e-9)
	assert.InDelta(t, -660, FlowAmount(&sell, ViewInvested), 1e-9)
	assert.Equal(t, 0.0, FlowAmount(&deposit, ViewInvested))
}

func TestDailyFlowsGroupsByDay(t *testing.T) {
	txs := []transactions.Transaction{
		flowTx(transactions.KindDeposit, "2024-03-10", 1000, 1, 1),
		flowTx(transactions.KindDeposit, "2024-03-10", 500, 1, 1),
		flowTx(transactions.KindWithdrawal, "2024-03-12", 200, 1, 1),
		flowTx(transactions.KindBuy, "2024-03-11", 5, 100, 1),
	}

	flows := DailyFlows(txs, ViewPortfolio)
	assert.Len(t, flows, 2)
	assert.Equal(t, 1500.0, flows["2024-03-10"])
	assert.Equal(t, -200.0, flows["2024-03-12"])

	assert.InDelta(t, 1300, SumFlows(txs, ViewPortfolio), 1e-9)
}
