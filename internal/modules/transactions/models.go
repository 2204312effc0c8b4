// Package transactions owns the transaction ledger: the immutable record of
// financial events from which positions and valuation snapshots are derived.
package transactions

import (
	"fmt"
	"time"
)

// Kind is the tagged variant of a transaction's financial event type.
type Kind string

const (
	KindBuy         Kind = "BUY"
	KindSell        Kind = "SELL"
	KindDeposit     Kind = "DEPOSIT"
	KindWithdrawal  Kind = "WITHDRAWAL"
	KindDividend    Kind = "DIVIDEND"
	KindInterest    Kind = "INTEREST"
	KindFee         Kind = "FEE"
	KindTax         Kind = "TAX"
	KindTransferIn  Kind = "TRANSFER_IN"
	KindTransferOut Kind = "TRANSFER_OUT"
)

// Kinds lists every valid transaction kind.
var Kinds = []Kind{
	KindBuy, KindSell,
	KindDeposit, KindWithdrawal,
	KindDividend, KindInterest,
	KindFee, KindTax,
	KindTransferIn, KindTransferOut,
}

// Valid reports whether k is a known transaction kind.
func (k Kind) Valid() bool {
	switch k {
	case KindBuy, KindSell, KindDeposit, KindWithdrawal, KindDividend,
		KindInterest, KindFee, KindTax, KindTransferIn, KindTransferOut:
		return true
	}
	return false
}

// IsTrade reports whether the kind moves holding quantity.
// Transfers behave as trades at the transferred unit cost.
func (k Kind) IsTrade() bool {
	switch k {
	case KindBuy, KindSell, KindTransferIn, KindTransferOut:
		return true
	}
	return false
}

// IsAcquisition reports whether the kind increases holding quantity.
func (k Kind) IsAcquisition() bool {
	return k == KindBuy || k == KindTransferIn
}

// IsDisposal reports whether the kind decreases holding quantity.
func (k Kind) IsDisposal() bool {
	return k == KindSell || k == KindTransferOut
}

// IsCashEvent reports whether the kind is a pure cash event with no holding.
func (k Kind) IsCashEvent() bool {
	switch k {
	case KindDeposit, KindWithdrawal, KindDividend, KindInterest, KindFee, KindTax:
		return true
	}
	return false
}

// cashEventSigns maps each cash event kind to its effect on the portfolio's
// cash balance: income and deposits raise it, outflows lower it.
var cashEventSigns = map[Kind]float64{
	KindDeposit:    +1,
	KindDividend:   +1,
	KindInterest:   +1,
	KindWithdrawal: -1,
	KindFee:        -1,
	KindTax:        -1,
}

// externalFlowSigns maps the kinds counted as external contribution:
// deposits minus withdrawals minus fees minus taxes. Dividends and interest
// are internal income, not contributions.
var externalFlowSigns = map[Kind]float64{
	KindDeposit:    +1,
	KindWithdrawal: -1,
	KindFee:        -1,
	KindTax:        -1,
}

// Transaction is an immutable-by-intent record of a financial event.
// Edits to BUY/SELL history are resolved by full position recompute, never by
// mutating derived state in place.
type Transaction struct {
	ID            int64     `json:"id"`
	TxID          string    `json:"tx_id"`
	PortfolioID   string    `json:"portfolio_id"`
	AccountID     string    `json:"account_id"`
	HoldingID     string    `json:"holding_id,omitempty"` // empty for pure cash events
	Kind          Kind      `json:"kind"`
	Quantity      float64   `json:"quantity"`
	Price         float64   `json:"price"` // unit price in instrument currency; 1 for cash events
	Fee           float64   `json:"fee"`
	Currency      string    `json:"currency"`
	FxRate        float64   `json:"fx_rate"` // currency -> portfolio base at execution time
	ExecutedAt    time.Time `json:"executed_at"`
	TransferGroup string    `json:"transfer_group,omitempty"`
	Note          string    `json:"note,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Date returns the transaction's calendar date (YYYY-MM-DD, UTC).
func (t *Transaction) Date() string {
	return t.ExecutedAt.UTC().Format("2006-01-02")
}

// GrossAmount returns the transaction's cash magnitude in instrument currency:
// quantity x price. Cash events are normalized to price 1 on creation, so the
// quantity column carries their amount.
func (t *Transaction) GrossAmount() float64 {
	return t.Quantity * t.Price
}

// BaseAmount returns the gross amount converted to portfolio base currency.
func (t *Transaction) BaseAmount() float64 {
	return t.GrossAmount() * t.FxRate
}

// CashEffect returns the signed effect of the transaction on the portfolio's
// cash balance in base currency. Trades consume or produce cash including the
// fee; transfers move holdings between accounts without touching cash.
func (t *Transaction) CashEffect() float64 {
	switch {
	case t.Kind == KindBuy:
		return -(t.GrossAmount() + t.Fee) * t.FxRate
	case t.Kind == KindSell:
		return (t.GrossAmount() - t.Fee) * t.FxRate
	case t.Kind.IsCashEvent():
		return cashEventSigns[t.Kind] * t.BaseAmount()
	default:
		return 0
	}
}

// ExternalFlow returns the signed external contribution of the transaction in
// base currency (deposits +, withdrawals/fees/taxes -), or 0 for kinds that do
// not count as contribution.
func (t *Transaction) ExternalFlow() float64 {
	sign, ok := externalFlowSigns[t.Kind]
	if !ok {
		return 0
	}
	return sign * t.BaseAmount()
}

// Validate checks structural invariants before the transaction is committed.
func (t *Transaction) Validate() error {
	if !t.Kind.Valid() {
		return fmt.Errorf("invalid transaction kind: %q", t.Kind)
	}
	if t.PortfolioID == "" {
		return fmt.Errorf("portfolio_id is required")
	}
	if t.AccountID == "" {
		return fmt.Errorf("account_id is required")
	}
	if t.Currency == "" {
		return fmt.Errorf("currency is required")
	}
	if t.FxRate <= 0 {
		return fmt.Errorf("fx_rate must be positive")
	}
	if t.Quantity <= 0 {
		return fmt.Errorf("quantity must be positive")
	}
	if t.Fee < 0 {
		return fmt.Errorf("fee must not be negative")
	}
	if t.ExecutedAt.IsZero() {
		return fmt.Errorf("executed_at is required")
	}

	if t.Kind.IsTrade() {
		if t.HoldingID == "" {
			return fmt.Errorf("%s requires a holding", t.Kind)
		}
		if t.Price <= 0 {
			return fmt.Errorf("%s requires a positive price", t.Kind)
		}
	}

	if t.Kind.IsCashEvent() && t.HoldingID != "" && t.Kind != KindDividend {
		// Dividends may reference the paying holding; other cash events are
		// account-level only.
		return fmt.Errorf("%s must not reference a holding", t.Kind)
	}

	if (t.Kind == KindTransferIn || t.Kind == KindTransferOut) && t.TransferGroup == "" {
		return fmt.Errorf("%s requires a transfer_group", t.Kind)
	}

	return nil
}
