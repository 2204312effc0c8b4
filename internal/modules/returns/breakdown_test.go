package returns

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeBreakdownIdentity(t *testing.T) {
	// Start: 10000 total, 8000 invested. Deposit 2000, buy 1500 of it.
	// End: 13000 total, 10100 invested.
	b := ComputeBreakdown(10000, 13000, 8000, 10100, 2000, 1500)

	assert.InDelta(t, 1000, b.TotalPnL, 1e-9)
	assert.InDelta(t, 600, b.InvestedPnL, 1e-9)
	assert.InDelta(t, 400, b.ResidualPnL, 1e-9)

	// The reconciliation identities hold exactly.
	assert.InDelta(t, b.EndingValue-b.BeginningValue-b.NetExternalFlow, b.TotalPnL, 1e-12)
	assert.InDelta(t, b.TotalPnL, b.InvestedPnL+b.ResidualPnL, 1e-12)

	assert.InDelta(t, 600.0/9500.0, b.SimpleReturn, 1e-9)
}

func TestComputeBreakdownWithdrawalPeriod(t *testing.T) {
	// A losing period with money pulled out: ending below beginning but the
	// loss is smaller than the raw value drop.
	b := ComputeBreakdown(10000, 8500, 9000, 7000, -1000, -1800)

	assert.InDelta(t, -500, b.TotalPnL, 1e-9)
	assert.InDelta(t, -200, b.InvestedPnL, 1e-9)
	assert.InDelta(t, -300, b.ResidualPnL, 1e-9)
	assert.InDelta(t, -200.0/7200.0, b.SimpleReturn, 1e-9)
}

func TestComputeBreakdownNoCapitalAtWork(t *testing.T) {
	b := ComputeBreakdown(0, 1000, 0, 0, 1000, 0)
	assert.Equal(t, 0.0, b.SimpleReturn)
	assert.Equal(t, 0.0, b.TotalPnL)
}
