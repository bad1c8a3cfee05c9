package pricing

import "careline/internal/calls"

// Estimator projects and settles campaign costs in minor currency units.
//
// The provider bills a flat per-call rate, so projection is recipients times
// rate and settlement counts calls that actually connected.
type Estimator struct {
	perCallMinor int64
}

func NewEstimator(perCallMinor int64) Estimator {
	return Estimator{perCallMinor: perCallMinor}
}

// Estimate returns the projected cost of dialing n recipients.
func (e Estimator) Estimate(n int) int64 {
	if n <= 0 {
		return 0
	}
	return e.perCallMinor * int64(n)
}

// Actual totals the cost of attempts that reached the recipient. Failed
// dispatches and dead numbers cost nothing; no-answer and busy still consumed
// a provider call.
func (e Estimator) Actual(attempts []calls.CallAttempt) int64 {
	var billed int64
	for _, a := range attempts {
		switch a.Status {
		case calls.AttemptCompleted, calls.AttemptNoAnswer, calls.AttemptBusy:
			billed++
		}
	}
	return e.perCallMinor * billed
}
