package transactions

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func baseTx(kind Kind) Transaction {
	return Transaction{
		PortfolioID: "p1",
		AccountID:   "a1",
		Kind:        kind,
		Quantity:    10,
		Price:       1,
		Currency:    "EUR",
		FxRate:      1,
		ExecutedAt:  time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC),
	}
}

func TestKindPredicates(t *testing.T) {
	assert.True(t, KindBuy.IsTrade())
	assert.True(t, KindTransferOut.IsTrade())
	assert.False(t, KindDeposit.IsTrade())

	assert.True(t, KindBuy.IsAcquisition())
	assert.True(t, KindTransferIn.IsAcquisition())
	assert.False(t, KindSell.IsAcquisition())

	assert.True(t, KindSell.IsDisposal())
	assert.True(t, KindTransferOut.IsDisposal())

	assert.True(t, KindDividend.IsCashEvent())
	assert.False(t, KindBuy.IsCashEvent())

	assert.False(t, Kind("SHORT").Valid())
	for _, k := range Kinds {
		assert.True(t, k.Valid())
	}
}

func TestTransactionDate(t *testing.T) {
	tx := baseTx(KindBuy)
	assert.Equal(t, "2024-03-15", tx.Date())

	// Late-evening local times still resolve to the UTC calendar date.
	tx.ExecutedAt = time.Date(2024, 3, 15, 23, 59, 59, 0, time.UTC)
	assert.Equal(t, "2024-03-15", tx.Date())
}

func TestCashEffect(t *testing.T) {
	buy := baseTx(KindBuy)
	buy.HoldingID = "h1"
	buy.Quantity = 10
	buy.Price = 50
	buy.Fee = 5
	buy.FxRate = 1.1
	// Buys consume gross plus fee.
	assert.InDelta(t, -(10*50+5)*1.1, buy.CashEffect(), 1e-9)

	sell := buy
	sell.Kind = KindSell
	// Sells produce gross minus fee.
	assert.InDelta(t, (10*50-5)*1.1, sell.CashEffect(), 1e-9)

	deposit := baseTx(KindDeposit)
	deposit.Quantity = 1000
	assert.InDelta(t, 1000, deposit.CashEffect(), 1e-9)

	withdrawal := baseTx(KindWithdrawal)
	withdrawal.Quantity = 400
	assert.InDelta(t, -400, withdrawal.CashEffect(), 1e-9)

	dividend := baseTx(KindDividend)
	dividend.Quantity = 25
	dividend.FxRate = 0.9
	assert.InDelta(t, 22.5, dividend.CashEffect(), 1e-9)

	// Transfers never touch cash.
	transfer := baseTx(KindTransferOut)
	transfer.HoldingID = "h1"
	transfer.Price = 50
	assert.Equal(t, 0.0, transfer.CashEffect())
}

func TestExternalFlow(t *testing.T) {
	deposit := baseTx(KindDeposit)
	deposit.Quantity = 1000
	assert.InDelta(t, 1000, deposit.ExternalFlow(), 1e-9)

	withdrawal := baseTx(KindWithdrawal)
	withdrawal.Quantity = 300
	assert.InDelta(t, -300, withdrawal.ExternalFlow(), 1e-9)

	fee := baseTx(KindFee)
	fee.Quantity = 10
	assert.InDelta(t, -10, fee.ExternalFlow(), 1e-9)

	// Dividends and interest are internal income, not contributions.
	dividend := baseTx(KindDividend)
	dividend.Quantity = 25
	assert.Equal(t, 0.0, dividend.ExternalFlow())

	buy := baseTx(KindBuy)
	buy.HoldingID = "h1"
	buy.Price = 50
	assert.Equal(t, 0.0, buy.ExternalFlow())
}

func TestValidate(t *testing.T) {
	valid := baseTx(KindDeposit)
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Transaction)
	}{
		{"unknown kind", func(tx *Transaction) { tx.Kind = "SHORT" }},
		{"missing portfolio", func(tx *Transaction) { tx.PortfolioID = "" }},
		{"missing account", func(tx *Transaction) { tx.AccountID = "" }},
		{"missing currency", func(tx *Transaction) { tx.Currency = "" }},
		{"zero fx rate", func(tx *Transaction) { tx.FxRate = 0 }},
		{"negative quantity", func(tx *Transaction) { tx.Quantity = -1 }},
		{"negative fee", func(tx *Transaction) { tx.Fee = -1 }},
		{"zero executed_at", func(tx *Transaction) { tx.ExecutedAt = time.Time{} }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tx := baseTx(KindDeposit)
			tc.mutate(&tx)
			assert.Error(t, tx.Validate())
		})
	}

	// Trades require a holding and a positive price.
	buy := baseTx(KindBuy)
	assert.Error(t, buy.Validate())
	buy.HoldingID = "h1"
	buy.Price = 0
	assert.Error(t, buy.Validate())
	buy.Price = 50
	assert.NoError(t, buy.Validate())

	// Account-level cash events must not reference a holding; dividends may.
	withdrawal := baseTx(KindWithdrawal)
	withdrawal.HoldingID = "h1"
	assert.Error(t, withdrawal.Validate())

	dividend := baseTx(KindDividend)
	dividend.HoldingID = "h1"
	assert.NoError(t, dividend.Validate())

	// Transfer legs require a group.
	out := baseTx(KindTransferOut)
	out.HoldingID = "h1"
	out.Price = 50
	assert.Error(t, out.Validate())
	out.TransferGroup = "g1"
	assert.NoError(t, out.Validate())
}
