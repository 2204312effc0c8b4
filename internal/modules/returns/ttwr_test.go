package returns

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChainLinkedReturnPureGrowth(t *testing.T) {
	series := []ValuePoint{
		{Date: "2024-03-11", Value: 1050},
		{Date: "2024-03-12", Value: 1100},
	}
	got := ChainLinkedReturn(1000, series, nil)
	assert.InDelta(t, 0.10, got, 1e-9)
}

func TestChainLinkedReturnDepositIsNeutral(t *testing.T) {
	// A 1000 deposit lands mid-period with no price movement around it.
	// Time-weighting must report exactly 0%.
	series := []ValuePoint{
		{Date: "2024-03-11", Value: 2000},
	}
	flows := map[string]float64{"2024-03-11": 1000}
	assert.InDelta(t, 0.0, ChainLinkedReturn(1000, series, flows), 1e-12)
}

func TestChainLinkedReturnFlowWithGrowth(t *testing.T) {
	// Day 1: +10% on 1000. Day 2: deposit 900 then +10% on 2000.
	series := []ValuePoint{
		{Date: "2024-03-11", Value: 1100},
		{Date: "2024-03-12", Value: 2200},
	}
	flows := map[string]float64{"2024-03-12": 900}
	got := ChainLinkedReturn(1000, series, flows)
	assert.InDelta(t, 0.21, got, 1e-9)
}

func TestChainLinkedReturnSplitConsistency(t *testing.T) {
	// Chaining a window in one pass equals compounding its two halves.
	series := []ValuePoint{
		{Date: "2024-03-11", Value: 1030},
		{Date: "2024-03-12", Value: 1081.5},
		{Date: "2024-03-13", Value: 1045},
		{Date: "2024-03-14", Value: 1150},
	}
	flows := map[string]float64{"2024-03-13": -50}

	whole := ChainLinkedReturn(1000, series, flows)
	firstHalf := ChainLinkedReturn(1000, series[:2], flows)
	secondHalf := ChainLinkedReturn(1081.5, series[2:], flows)

	assert.InDelta(t, whole, (1+firstHalf)*(1+secondHalf)-1, 1e-9)
}

func TestChainLinkedReturnSkipsZeroDenominator(t *testing.T) {
	// A zero-value anchor with no recorded flow has no meaningful
	// sub-period return; the day is skipped instead of dividing by zero.
	series := []ValuePoint{
		{Date: "2024-03-11", Value: 1000},
		{Date: "2024-03-12", Value: 1100},
	}
	got := ChainLinkedReturn(0, series, nil)
	assert.InDelta(t, 0.10, got, 1e-9)
}

func TestChainLinkedReturnEmptySeries(t *testing.T) {
	assert.Equal(t, 0.0, ChainLinkedReturn(1000, nil, nil))
	assert.Equal(t, 0.0, ChainLinkedReturn(0, nil, nil))
}
