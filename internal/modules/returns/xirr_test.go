package returns

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestXIRRSingleYearRoundTrip(t *testing.T) {
	// 2021 is not a leap year, so the gap is exactly 365 days = 1.0 years.
	flows := []CashFlow{
		{Date: "2021-01-01", Amount: -1000},
		{Date: "2022-01-01", Amount: 1100},
	}
	assert.InDelta(t, 0.10, XIRR(flows), 1e-6)
}

func TestXIRRTwoYearCompounding(t *testing.T) {
	flows := []CashFlow{
		{Date: "2021-01-01", Amount: -1000},
		{Date: "2023-01-01", Amount: 1210},
	}
	// (1+r)^2 = 1.21
	assert.InDelta(t, 0.10, XIRR(flows), 1e-6)
}

func TestXIRRLoss(t *testing.T) {
	flows := []CashFlow{
		{Date: "2021-01-01", Amount: -1000},
		{Date: "2022-01-01", Amount: 600},
	}
	assert.InDelta(t, -0.40, XIRR(flows), 1e-6)
}

func TestXIRRIntermediateFlows(t *testing.T) {
	flows := []CashFlow{
		{Date: "2021-01-01", Amount: -1000},
		{Date: "2021-07-02", Amount: -500},
		{Date: "2022-01-01", Amount: 1650},
	}
	rate := XIRR(flows)

	// Verify the root directly: NPV at the solved rate must vanish.
	npv := 0.0
	years := []float64{0, 182.0 / 365, 1}
	amounts := []float64{-1000, -500, 1650}
	for i := range amounts {
		npv += amounts[i] / math.Pow(1+rate, years[i])
	}
	assert.InDelta(t, 0.0, npv, 1e-6)
	assert.Greater(t, rate, 0.0)
	assert.Less(t, rate, 0.5)
}

func TestXIRRDegenerateSchedules(t *testing.T) {
	assert.Equal(t, 0.0, XIRR(nil))
	assert.Equal(t, 0.0, XIRR([]CashFlow{{Date: "2021-01-01", Amount: -1000}}))
	assert.Equal(t, 0.0, XIRR([]CashFlow{{Date: "bad", Amount: -1000}, {Date: "2022-01-01", Amount: 1100}}))
}

func TestXIRRNoSignChangeDoesNotConverge(t *testing.T) {
	// All-positive schedules have no root; the solver must report 0 rather
	// than diverging.
	flows := []CashFlow{
		{Date: "2021-01-01", Amount: 1000},
		{Date: "2022-01-01", Amount: 1100},
	}
	assert.Equal(t, 0.0, XIRR(flows))
}

func TestXIRRNearTotalLoss(t *testing.T) {
	// A 99.9% loss sits right against the solver's lower bound; the pole
	// clamp must keep the iteration from stepping through rate = -1.
	flows := []CashFlow{
		{Date: "2021-01-01", Amount: -1000},
		{Date: "2022-01-01", Amount: 2},
	}
	rate := XIRR(flows)
	assert.LessOrEqual(t, rate, 0.0)
	assert.Greater(t, rate, -1.0)
}
