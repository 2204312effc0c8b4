package transactions

import (
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfolio/quantfolio/internal/domain"
	"github.com/quantfolio/quantfolio/internal/modules/reference"
)

type mockLedger struct {
	applied    []Transaction
	recomputed []string
	applyErr   error
}

func (m *mockLedger) Apply(tx Transaction) error {
	if m.applyErr != nil {
		return m.applyErr
	}
	m.applied = append(m.applied, tx)
	return nil
}

func (m *mockLedger) Reverse(tx Transaction) error {
	return nil
}

func (m *mockLedger) Recompute(accountID, holdingID string) error {
	m.recomputed = append(m.recomputed, accountID+"/"+holdingID)
	return nil
}

type mockCosts struct {
	quantity    float64
	avgCost     float64
	avgCostBase float64
}

func (m *mockCosts) CostBasis(accountID, holdingID string) (float64, float64, float64, error) {
	return m.quantity, m.avgCost, m.avgCostBase, nil
}

type mockReference struct {
	accounts map[string]*reference.Account
	holdings map[string]*reference.Holding
}

func (m *mockReference) GetAccount(id string) (*reference.Account, error) {
	return m.accounts[id], nil
}

func (m *mockReference) GetHolding(id string) (*reference.Holding, error) {
	return m.holdings[id], nil
}

type mockRebuilder struct {
	calls []string // "portfolio@fromDate"
}

func (m *mockRebuilder) Rematerialize(portfolioID, fromDate, endDate string) error {
	m.calls = append(m.calls, portfolioID+"@"+fromDate)
	return nil
}

type serviceFixture struct {
	svc     *Service
	repo    *Repository
	ledger  *mockLedger
	costs   *mockCosts
	rebuild *mockRebuilder
}

func newTestService(t *testing.T) *serviceFixture {
	t.Helper()

	repo := newTestRepo(t)
	ledger := &mockLedger{}
	costs := &mockCosts{}
	rebuild := &mockRebuilder{}
	ref := &mockReference{
		accounts: map[string]*reference.Account{
			"a1": {ID: "a1", PortfolioID: "p1", Name: "broker"},
			"a2": {ID: "a2", PortfolioID: "p1", Name: "pension"},
			"b1": {ID: "b1", PortfolioID: "p2", Name: "other"},
		},
		holdings: map[string]*reference.Holding{
			"h1": {ID: "h1", Symbol: "ACME", AssetClass: domain.AssetClassEquity, Currency: domain.CurrencyUSD},
		},
	}

	logger := zerolog.New(nil).Level(zerolog.Disabled)
	return &serviceFixture{
		svc:     NewService(repo, ledger, costs, ref, rebuild, logger),
		repo:    repo,
		ledger:  ledger,
		costs:   costs,
		rebuild: rebuild,
	}
}

func TestServiceCreateNormalizesCashEvents(t *testing.T) {
	f := newTestService(t)

	// Amount supplied as quantity x price folds into the quantity column.
	tx := testTx(KindDeposit, "2024-03-10")
	tx.Quantity = 100
	tx.Price = 10
	tx.PortfolioID = ""

	require.NoError(t, f.svc.Create(tx))
	assert.Equal(t, 1000.0, tx.Quantity)
	assert.Equal(t, 1.0, tx.Price)
	// The portfolio is resolved from the account.
	assert.Equal(t, "p1", tx.PortfolioID)

	got, err := f.repo.GetByTxID(tx.TxID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 1000.0, got.Quantity)

	assert.Equal(t, []string{"p1@2024-03-10"}, f.rebuild.calls)
}

func TestServiceCreateAppliesTrades(t *testing.T) {
	f := newTestService(t)

	tx := testTx(KindBuy, "2024-03-10")
	require.NoError(t, f.svc.Create(tx))

	require.Len(t, f.ledger.applied, 1)
	assert.Equal(t, KindBuy, f.ledger.applied[0].Kind)
}

func TestServiceCreateRejections(t *testing.T) {
	f := newTestService(t)

	unknown := testTx(KindBuy, "2024-03-10")
	unknown.AccountID = "ghost"
	assert.Error(t, f.svc.Create(unknown))

	mismatched := testTx(KindBuy, "2024-03-10")
	mismatched.PortfolioID = "p2"
	assert.Error(t, f.svc.Create(mismatched))

	leg := testTx(KindTransferIn, "2024-03-10")
	leg.TransferGroup = "g1"
	assert.Error(t, f.svc.Create(leg))

	// A ledger rejection (overselling) aborts before anything persists.
	f.ledger.applyErr = fmt.Errorf("only 0 held")
	sell := testTx(KindSell, "2024-03-10")
	assert.Error(t, f.svc.Create(sell))
	assert.Empty(t, f.rebuild.calls)
}

func TestServiceCreateTransfer(t *testing.T) {
	f := newTestService(t)
	f.costs.quantity = 10
	f.costs.avgCost = 100
	f.costs.avgCostBase = 110

	groupID, err := f.svc.CreateTransfer(TransferRequest{
		FromAccountID: "a1",
		ToAccountID:   "a2",
		HoldingID:     "h1",
		Quantity:      4,
		ExecutedAt:    time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.NotEmpty(t, groupID)

	legs, err := f.repo.GetByTransferGroup(groupID)
	require.NoError(t, err)
	require.Len(t, legs, 2)

	out, in := legs[0], legs[1]
	assert.Equal(t, KindTransferOut, out.Kind)
	assert.Equal(t, "a1", out.AccountID)
	assert.Equal(t, KindTransferIn, in.Kind)
	assert.Equal(t, "a2", in.AccountID)

	// Both legs carry the source cost basis: price is the average cost and
	// the fx rate reproduces the base-currency unit cost.
	for _, leg := range legs {
		assert.Equal(t, 100.0, leg.Price)
		assert.InDelta(t, 1.1, leg.FxRate, 1e-9)
		assert.Equal(t, groupID, leg.TransferGroup)
	}

	// Same portfolio: one rematerialization covers both accounts.
	assert.Equal(t, []string{"p1@2024-03-10"}, f.rebuild.calls)
}

func TestServiceCreateTransferAcrossPortfolios(t *testing.T) {
	f := newTestService(t)
	f.costs.quantity = 10
	f.costs.avgCost = 100
	f.costs.avgCostBase = 100

	_, err := f.svc.CreateTransfer(TransferRequest{
		FromAccountID: "a1",
		ToAccountID:   "b1",
		HoldingID:     "h1",
		Quantity:      4,
		ExecutedAt:    time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"p1@2024-03-10", "p2@2024-03-10"}, f.rebuild.calls)
}

func TestServiceCreateTransferRejections(t *testing.T) {
	f := newTestService(t)
	f.costs.quantity = 3
	f.costs.avgCost = 100
	f.costs.avgCostBase = 100

	base := TransferRequest{
		FromAccountID: "a1",
		ToAccountID:   "a2",
		HoldingID:     "h1",
		Quantity:      4,
		ExecutedAt:    time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
	}

	// More than held.
	_, err := f.svc.CreateTransfer(base)
	assert.Error(t, err)

	same := base
	same.ToAccountID = "a1"
	_, err = f.svc.CreateTransfer(same)
	assert.Error(t, err)

	negative := base
	negative.Quantity = -1
	_, err = f.svc.CreateTransfer(negative)
	assert.Error(t, err)

	ghost := base
	ghost.Quantity = 2
	ghost.HoldingID = "h9"
	_, err = f.svc.CreateTransfer(ghost)
	assert.Error(t, err)
}

func TestServiceUpdateRecomputesAndRematerializes(t *testing.T) {
	f := newTestService(t)

	tx := testTx(KindBuy, "2024-03-10")
	require.NoError(t, f.svc.Create(tx))
	f.rebuild.calls = nil

	// Move the trade a week earlier; snapshots are stale from the earlier
	// of the two dates.
	updated := *tx
	updated.ExecutedAt, _ = time.Parse("2006-01-02", "2024-03-03")
	updated.Quantity = 20
	require.NoError(t, f.svc.Update(&updated))

	assert.Contains(t, f.ledger.recomputed, "a1/h1")
	assert.Equal(t, []string{"p1@2024-03-03"}, f.rebuild.calls)

	got, err := f.repo.GetByTxID(tx.TxID)
	require.NoError(t, err)
	assert.Equal(t, 20.0, got.Quantity)
}

func TestServiceUpdateAccountMoveRecomputesBothPairs(t *testing.T) {
	f := newTestService(t)

	tx := testTx(KindBuy, "2024-03-10")
	require.NoError(t, f.svc.Create(tx))
	f.ledger.recomputed = nil

	moved := *tx
	moved.AccountID = "a2"
	require.NoError(t, f.svc.Update(&moved))

	assert.Equal(t, []string{"a1/h1", "a2/h1"}, f.ledger.recomputed)
}

func TestServiceUpdateRejectsTransferLegs(t *testing.T) {
	f := newTestService(t)
	f.costs.quantity = 10
	f.costs.avgCost = 100
	f.costs.avgCostBase = 100

	groupID, err := f.svc.CreateTransfer(TransferRequest{
		FromAccountID: "a1",
		ToAccountID:   "a2",
		HoldingID:     "h1",
		Quantity:      4,
		ExecutedAt:    time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	legs, err := f.repo.GetByTransferGroup(groupID)
	require.NoError(t, err)

	edit := legs[0]
	edit.Quantity = 2
	assert.Error(t, f.svc.Update(&edit))
}

func TestServiceDelete(t *testing.T) {
	f := newTestService(t)

	tx := testTx(KindBuy, "2024-03-10")
	require.NoError(t, f.svc.Create(tx))
	f.rebuild.calls = nil
	f.ledger.recomputed = nil

	require.NoError(t, f.svc.Delete(tx.TxID))

	got, err := f.repo.GetByTxID(tx.TxID)
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.Equal(t, []string{"a1/h1"}, f.ledger.recomputed)
	assert.Equal(t, []string{"p1@2024-03-10"}, f.rebuild.calls)

	assert.Error(t, f.svc.Delete(tx.TxID))
}

func TestServiceDeleteTransferLegRemovesGroup(t *testing.T) {
	f := newTestService(t)
	f.costs.quantity = 10
	f.costs.avgCost = 100
	f.costs.avgCostBase = 100

	groupID, err := f.svc.CreateTransfer(TransferRequest{
		FromAccountID: "a1",
		ToAccountID:   "a2",
		HoldingID:     "h1",
		Quantity:      4,
		ExecutedAt:    time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	legs, err := f.repo.GetByTransferGroup(groupID)
	require.NoError(t, err)
	require.Len(t, legs, 2)
	f.ledger.recomputed = nil

	// Deleting either leg removes the whole pair; a half-deleted transfer
	// would conjure or destroy holdings.
	require.NoError(t, f.svc.Delete(legs[1].TxID))

	remaining, err := f.repo.GetByTransferGroup(groupID)
	require.NoError(t, err)
	assert.Empty(t, remaining)

	assert.ElementsMatch(t, []string{"a1/h1", "a2/h1"}, f.ledger.recomputed)
}
