/*
scoring.go - Weighted advisory ranking

PURPOSE:
  Produces the scored recommendation list shown to a human choosing an
  assignee manually. Unlike eligibility filtering, this scores EVERY
  configured fee earner, including unavailable and over-capacity ones,
  so the requester can see why someone is a poor match.

SCORE:
  The score is a plain sum of independent weighted terms. No
  normalization, no cap. Each factor appends one rationale token in
  evaluation order; the joined tokens are the human-readable reason.

    priority * 10
    +50  currently available
    +30 / +20 / +10  capacity under 50% / 75% / at most 90%
    +20  weekly intake capacity under 100%
    +20  handles the matter type (empty set matches all)
    +15  transaction value within configured bounds

TWO STRATEGIES, ON PURPOSE:
  This ranking and the automatic selection in assign.go are distinct,
  named strategies. The advisory top pick is NOT guaranteed to be the
  automatic pick: auto-assignment orders eligible candidates by
  priority then lowest capacity, which can disagree with this weighted
  sum. Keep them separate.

TIE-BREAK:
  Equal scores sort by fee-earner ID ascending so the list is stable
  across runs regardless of input enumeration order.
*/
package engine

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// Score weights. The capacity bands use the unrounded percentage, with
// the 90 boundary inclusive: a fee earner at exactly 9-of-10 load still
// lands in the near-capacity band.
const (
	weightPriority     = 10
	scoreAvailable     = 50
	scoreLowCapacity   = 30
	scoreMidCapacity   = 20
	scoreHighCapacity  = 10
	scoreWeeklyRoom    = 20
	scoreTypeMatch     = 20
	scoreValueInBounds = 15
)

// Ranker produces advisory recommendation lists.
type Ranker struct {
	Calc *WorkloadCalculator
}

// Rank scores every configured fee earner of the tenant against the
// matter and returns recommendations in descending score order. Fee
// earners with no settings row never appear.
func (r *Ranker) Rank(ctx context.Context, tenantID TenantID, matter Matter, now time.Time) ([]AssignmentRecommendation, error) {
	candidates, err := r.Calc.CandidatesForTenant(ctx, tenantID, now)
	if err != nil {
		return nil, err
	}
	return RankCandidates(candidates, matter), nil
}

// RankCandidates is the pure scoring core, usable without stores.
func RankCandidates(candidates []Candidate, matter Matter) []AssignmentRecommendation {
	recs := make([]AssignmentRecommendation, 0, len(candidates))
	for _, c := range candidates {
		if !c.Workload.SettingsConfigured {
			continue
		}
		recs = append(recs, ScoreCandidate(c, matter))
	}

	sort.Slice(recs, func(i, j int) bool {
		if recs[i].Score != recs[j].Score {
			return recs[i].Score > recs[j].Score
		}
		return recs[i].FeeEarnerID < recs[j].FeeEarnerID
	})
	return recs
}

// ScoreCandidate computes the weighted score and rationale for one
// configured fee earner.
func ScoreCandidate(c Candidate, matter Matter) AssignmentRecommendation {
	w := c.Workload
	score := 0
	var tokens []string

	score += w.AssignmentPriority * weightPriority
	tokens = append(tokens, fmt.Sprintf("Assignment priority %d", w.AssignmentPriority))

	if w.IsAvailable {
		score += scoreAvailable
		tokens = append(tokens, "Available now")
	} else {
		tokens = append(tokens, "Currently unavailable")
	}

	switch {
	case w.CapacityPercent < 50:
		score += scoreLowCapacity
		tokens = append(tokens, "Low workload")
	case w.CapacityPercent < 75:
		score += scoreMidCapacity
		tokens = append(tokens, "Moderate workload")
	case w.CapacityPercent <= 90:
		score += scoreHighCapacity
		tokens = append(tokens, "Near capacity")
	default:
		tokens = append(tokens, "At or over capacity")
	}

	if w.WeeklyCapacityPercent < 100 {
		score += scoreWeeklyRoom
		tokens = append(tokens, "Weekly capacity remaining")
	} else {
		tokens = append(tokens, "Weekly limit reached")
	}

	if c.Settings.HandlesMatterType(matter.MatterType) {
		score += scoreTypeMatch
		tokens = append(tokens, "Handles this matter type")
	} else {
		tokens = append(tokens, "Does not handle this matter type")
	}

	if c.Settings.ValueWithinBounds(matter.TransactionValue) {
		score += scoreValueInBounds
		tokens = append(tokens, "Transaction value within limits")
	} else {
		tokens = append(tokens, "Transaction value outside limits")
	}

	return AssignmentRecommendation{
		FeeEarnerID:  w.FeeEarnerID,
		Score:        score,
		ReasonTokens: tokens,
		Workload:     w,
	}
}

