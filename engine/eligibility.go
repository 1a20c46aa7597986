/*
eligibility.go - Hard-constraint filtering for automatic assignment

PURPOSE:
  Reduces the candidate set to fee earners structurally able to take a
  matter. Used ONLY by automatic assignment; the advisory ranking
  (scoring.go) deliberately scores everyone so a human can see why a
  candidate is a poor match.

PREDICATES:
  A candidate is eligible iff all of the following hold:
    1. settings row exists
    2. opted in to auto-assignment
    3. no active availability block
    4. handles the matter type (empty set = all types)
    5. transaction value under max bound (if set)
    6. transaction value over min bound (if set)
    7. concurrent capacity under 100%
    8. weekly intake capacity under 100%

ROUNDING POLICY:
  Capacity thresholds compare the UNROUNDED percentage. A fee earner at
  99.6% is under the limit; one at exactly 100% is not. Rounding is for
  display only. The scorer uses the same unrounded values.
*/
package engine

import (
	"github.com/shopspring/decimal"
)

// FilterEligible returns the fee earners able to take the matter, in
// the candidates' input order. An empty result means automatic
// assignment must fail with ErrNoEligibleCandidate; callers never fall
// back to an unfiltered pick.
func FilterEligible(candidates []Candidate, matterType string, transactionValue decimal.Decimal) []FeeEarnerID {
	var eligible []FeeEarnerID
	for _, c := range candidates {
		if IsEligible(c, matterType, transactionValue) {
			eligible = append(eligible, c.Settings.FeeEarnerID)
		}
	}
	return eligible
}

// IsEligible evaluates all eight predicates for one candidate.
func IsEligible(c Candidate, matterType string, transactionValue decimal.Decimal) bool {
	w := c.Workload
	return w.SettingsConfigured &&
		w.AcceptsAutoAssignment &&
		w.IsAvailable &&
		c.Settings.HandlesMatterType(matterType) &&
		c.Settings.ValueWithinBounds(transactionValue) &&
		w.CapacityPercent < 100 &&
		w.WeeklyCapacityPercent < 100
}
