package returns

import (
	"math"
	"time"

	"github.com/quantfolio/quantfolio/internal/utils"
)

// CashFlow is one dated amount in an XIRR schedule, signed from the
// investor's perspective.
type CashFlow struct {
	Date   string
	Amount float64
}

const (
	xirrMaxIterations = 100
	xirrTolerance     = 1e-9
	xirrSecantStep    = 1e-6

	// Roots outside this window are treated as solver divergence, not as
	// plausible annualized returns.
	xirrMinRate = -0.999
	xirrMaxRate = 100.0
)

// xirrSeeds are tried in order until one converges. The spread covers typical
// portfolio outcomes plus heavy-loss and speculative-gain regimes where the
// NPV curve is badly conditioned around the default guess.
var xirrSeeds = []float64{0.1, 0.05, -0.05, 0.25, -0.25, 0.5, -0.5, 0.0}

// XIRR solves for the annualized rate at which the schedule's net present
// value is zero, using Newton iteration with a secant-estimated derivative.
// Returns 0 when no seed converges; callers must treat that as "could not be
// determined", not as an asserted zero return.
func XIRR(flows []CashFlow) float64 {
	if len(flows) < 2 {
		return 0
	}

	t0, err := time.Parse(utils.DateLayout, flows[0].Date)
	if err != nil {
		return 0
	}

	// Precompute year offsets from the first flow.
	years := make([]float64, len(flows))
	amounts := make([]float64, len(flows))
	for i, flow := range flows {
		t, err := time.Parse(utils.DateLayout, flow.Date)
		if err != nil {
			return 0
		}
		years[i] = t.Sub(t0).Hours() / 24 / 365
		amounts[i] = flow.Amount
	}

	npv := func(rate float64) float64 {
		total := 0.0
		for i := range amounts {
			total += amounts[i] / math.Pow(1+rate, years[i])
		}
		return total
	}

	for _, seed := range xirrSeeds {
		if rate, ok := newtonSolve(npv, seed); ok {
			return rate
		}
	}
	return 0
}

// newtonSolve iterates Newton's method from the given seed, estimating the
// derivative with a small secant step.
func newtonSolve(npv func(float64) float64, seed float64) (float64, bool) {
	rate := seed
	for i := 0; i < xirrMaxIterations; i++ {
		value := npv(rate)
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return 0, false
		}
		if math.Abs(value) < xirrTolerance {
			if rate <= xirrMinRate || rate >= xirrMaxRate {
				return 0, false
			}
			return rate, true
		}

		derivative := (npv(rate+xirrSecantStep) - value) / xirrSecantStep
		if derivative == 0 || math.IsNaN(derivative) || math.IsInf(derivative, 0) {
			return 0, false
		}

		next := rate - value/derivative
		if next <= xirrMinRate {
			// Clamp instead of stepping through the pole at rate = -1.
			next = (rate + xirrMinRate) / 2
		}
		if math.Abs(next-rate) < xirrTolerance {
			if next <= xirrMinRate || next >= xirrMaxRate {
				return 0, false
			}
			return next, true
		}
		rate = next
	}
	return 0, false
}
