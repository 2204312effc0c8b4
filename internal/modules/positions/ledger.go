package positions

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/quantfolio/quantfolio/internal/modules/transactions"
)

// qtyEpsilon absorbs float fuzz when deciding whether a position is flat.
const qtyEpsilon = 1e-9

// TransactionSource provides a pair's transaction history in replay order.
// Defined here to avoid a dependency on the transactions repository type.
type TransactionSource interface {
	ListForPair(accountID, holdingID string) ([]transactions.Transaction, error)
}

// PairKey identifies an (account, holding) pair.
type PairKey struct {
	AccountID string
	HoldingID string
}

// State is the pure cost-basis state of one pair. It is the value folded over
// a transaction sequence; Position adds persistence metadata around it.
type State struct {
	Quantity     float64
	AvgCost      float64 // per unit, instrument currency
	AvgCostBase  float64 // per unit, base currency
	CostCurrency string
}

// ApplyTransaction folds one transaction into a cost-basis state.
//
// Acquisitions (BUY, TRANSFER_IN) blend into the weighted average cost.
// Disposals (SELL, TRANSFER_OUT) reduce quantity and leave average cost
// unchanged; driving quantity to zero resets cost memory entirely. Cash events
// never touch holding state.
func ApplyTransaction(s State, tx transactions.Transaction) State {
	switch {
	case tx.Kind.IsAcquisition():
		newQty := s.Quantity + tx.Quantity
		if newQty <= qtyEpsilon {
			return State{}
		}
		return State{
			Quantity:     newQty,
			AvgCost:      (s.Quantity*s.AvgCost + tx.Quantity*tx.Price) / newQty,
			AvgCostBase:  (s.Quantity*s.AvgCostBase + tx.Quantity*tx.Price*tx.FxRate) / newQty,
			CostCurrency: tx.Currency,
		}

	case tx.Kind.IsDisposal():
		newQty := s.Quantity - tx.Quantity
		if newQty <= qtyEpsilon {
			// Flat position loses cost memory.
			return State{}
		}
		s.Quantity = newQty
		return s

	default:
		return s
	}
}

// ReplayStates folds a transaction sequence (already in replay order) into
// per-pair cost-basis states. Used both by Recompute and by the valuation
// materializer's as-of-date reconstruction, so live positions and historical
// valuations can never drift apart in semantics.
func ReplayStates(txs []transactions.Transaction) map[PairKey]State {
	states := make(map[PairKey]State)
	for _, tx := range txs {
		if !tx.Kind.IsTrade() || tx.HoldingID == "" {
			continue
		}
		key := PairKey{AccountID: tx.AccountID, HoldingID: tx.HoldingID}
		states[key] = ApplyTransaction(states[key], tx)
	}
	return states
}

// Ledger owns position rows. It is the only component allowed to write them.
type Ledger struct {
	repo *Repository
	txs  TransactionSource
	log  zerolog.Logger
}

// NewLedger creates a new position ledger.
func NewLedger(repo *Repository, txs TransactionSource, log zerolog.Logger) *Ledger {
	return &Ledger{
		repo: repo,
		txs:  txs,
		log:  log.With().Str("service", "position_ledger").Logger(),
	}
}

// Apply updates the position for the transaction's (account, holding) pair.
// Cash events are a no-op: they affect cash accounting, not holdings.
func (l *Ledger) Apply(tx transactions.Transaction) error {
	if !tx.Kind.IsTrade() || tx.HoldingID == "" {
		return nil
	}

	state, err := l.currentState(tx.AccountID, tx.HoldingID)
	if err != nil {
		return err
	}

	if tx.Kind.IsDisposal() && tx.Quantity > state.Quantity+qtyEpsilon {
		return fmt.Errorf("cannot %s %.6f of %s in account %s: only %.6f held",
			tx.Kind, tx.Quantity, tx.HoldingID, tx.AccountID, state.Quantity)
	}

	next := ApplyTransaction(state, tx)
	return l.persist(tx.AccountID, tx.HoldingID, next)
}

// Reverse removes a transaction's effect from its pair. The transaction must
// already be removed from the pair's stored history.
//
// Un-blending a weighted average is only exact while the position never went
// flat after the acquisition (a flat reset discards the cost memory the
// un-blend would need), and a disposal does not record the pre-sell average
// at all. Both cases therefore rebuild the pair by full replay of its
// remaining history.
func (l *Ledger) Reverse(tx transactions.Transaction) error {
	if !tx.Kind.IsTrade() || tx.HoldingID == "" {
		return nil
	}
	return l.Recompute(tx.AccountID, tx.HoldingID)
}

// Recompute rebuilds a pair's position from scratch by replaying its full
// transaction history in timestamp order (insertion order breaks ties). This
// is the only correctness-preserving strategy after historical edits.
func (l *Ledger) Recompute(accountID, holdingID string) error {
	history, err := l.txs.ListForPair(accountID, holdingID)
	if err != nil {
		return fmt.Errorf("failed to load pair history: %w", err)
	}

	state := State{}
	for _, tx := range history {
		state = ApplyTransaction(state, tx)
	}

	l.log.Debug().
		Str("account", accountID).
		Str("holding", holdingID).
		Int("transactions", len(history)).
		Float64("quantity", state.Quantity).
		Msg("Position recomputed from history")

	return l.persist(accountID, holdingID, state)
}

func (l *Ledger) currentState(accountID, holdingID string) (State, error) {
	pos, err := l.repo.Get(accountID, holdingID)
	if err != nil {
		return State{}, err
	}
	if pos == nil {
		return State{}, nil
	}
	return State{
		Quantity:     pos.Quantity,
		AvgCost:      pos.AvgCost,
		AvgCostBase:  pos.AvgCostBase,
		CostCurrency: pos.CostCurrency,
	}, nil
}

func (l *Ledger) persist(accountID, holdingID string, s State) error {
	if math.Abs(s.Quantity) <= qtyEpsilon {
		s = State{}
	}
	return l.repo.Upsert(Position{
		AccountID:    accountID,
		HoldingID:    holdingID,
		Quantity:     s.Quantity,
		AvgCost:      s.AvgCost,
		AvgCostBase:  s.AvgCostBase,
		CostCurrency: s.CostCurrency,
	})
}
