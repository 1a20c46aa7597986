package engine_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/conveyly/assignment-engine/engine"
)

// =============================================================================
// HELPERS
// =============================================================================

func candidate(id engine.FeeEarnerID, mutate func(*engine.FeeEarnerSettings, *engine.WorkloadSnapshot)) engine.Candidate {
	settings := configuredSettings(id)
	snap := engine.WorkloadSnapshot{
		FeeEarnerID:           id,
		MaxConcurrentMatters:  settings.MaxConcurrentMatters,
		MaxNewMattersPerWeek:  settings.MaxNewMattersPerWeek,
		IsAvailable:           true,
		AcceptsAutoAssignment: true,
		AssignmentPriority:    settings.AssignmentPriority,
		SettingsConfigured:    true,
	}
	if mutate != nil {
		mutate(&settings, &snap)
	}
	return engine.Candidate{Settings: settings, Workload: snap}
}

func purchaseMatter(value string) engine.Matter {
	return engine.Matter{
		ID:               "m-1",
		TenantID:         testTenant,
		MatterType:       "purchase",
		TransactionValue: decimal.RequireFromString(value),
		Status:           engine.MatterNew,
	}
}

// =============================================================================
// SCORE COMPOSITION
// =============================================================================

func TestScoreCandidate_NearCapacityComposition(t *testing.T) {
	// GIVEN: Priority 5, 9 of 10 matters (90%), 1 of 3 this week,
	//        available, handles all types, no value bounds
	// WHEN: Scoring
	// THEN: 50 (priority) + 50 (available) + 10 (near capacity)
	//       + 20 (weekly) + 20 (type) + 15 (value) = 165

	c := candidate("fe-a", func(_ *engine.FeeEarnerSettings, w *engine.WorkloadSnapshot) {
		w.ActiveMatterCount = 9
		w.CapacityPercent = 90
		w.NewMattersThisWeek = 1
		w.WeeklyCapacityPercent = 100.0 / 3
	})

	rec := engine.ScoreCandidate(c, purchaseMatter("250000"))

	if rec.Score != 165 {
		t.Errorf("expected score 165, got %d", rec.Score)
	}
	want := []string{
		"Assignment priority 5",
		"Available now",
		"Near capacity",
		"Weekly capacity remaining",
		"Handles this matter type",
		"Transaction value within limits",
	}
	if len(rec.ReasonTokens) != len(want) {
		t.Fatalf("expected %d tokens, got %v", len(want), rec.ReasonTokens)
	}
	for i, tok := range want {
		if rec.ReasonTokens[i] != tok {
			t.Errorf("token %d: expected %q, got %q", i, tok, rec.ReasonTokens[i])
		}
	}
}

func TestScoreCandidate_CapacityBands(t *testing.T) {
	cases := []struct {
		name     string
		capacity float64
		want     int // band contribution only
	}{
		{"low", 40, 30},
		{"moderate", 60, 20},
		{"near", 90, 10},
		{"just over", 90.1, 0},
		{"full", 100, 0},
	}

	base := 50 + 50 + 20 + 20 + 15 // priority 5, available, weekly, type, value
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := candidate("fe-x", func(_ *engine.FeeEarnerSettings, w *engine.WorkloadSnapshot) {
				w.CapacityPercent = tc.capacity
			})
			rec := engine.ScoreCandidate(c, purchaseMatter("100000"))
			if rec.Score != base+tc.want {
				t.Errorf("capacity %v: expected %d, got %d", tc.capacity, base+tc.want, rec.Score)
			}
		})
	}
}

func TestScoreCandidate_PenaltyTokens(t *testing.T) {
	// GIVEN: Unavailable, over weekly limit, wrong matter type, value out of bounds
	// WHEN: Scoring
	// THEN: Only priority and capacity band contribute; tokens explain each miss

	min := decimal.RequireFromString("500000")
	c := candidate("fe-b", func(s *engine.FeeEarnerSettings, w *engine.WorkloadSnapshot) {
		s.MatterTypes = []string{"sale"}
		s.MinTransactionValue = &min
		w.IsAvailable = false
		w.WeeklyCapacityPercent = 100
		w.CapacityPercent = 10
	})

	rec := engine.ScoreCandidate(c, purchaseMatter("250000"))

	if rec.Score != 50+30 {
		t.Errorf("expected 80, got %d", rec.Score)
	}
	want := []string{
		"Assignment priority 5",
		"Currently unavailable",
		"Low workload",
		"Weekly limit reached",
		"Does not handle this matter type",
		"Transaction value outside limits",
	}
	for i, tok := range want {
		if rec.ReasonTokens[i] != tok {
			t.Errorf("token %d: expected %q, got %q", i, tok, rec.ReasonTokens[i])
		}
	}
}

// =============================================================================
// RANKING
// =============================================================================

func TestRankCandidates_DescendingScoreThenID(t *testing.T) {
	// GIVEN: One strong candidate and two identical weaker ones with
	//        IDs out of order
	// WHEN: Ranking
	// THEN: Strong first; the tie resolves by fee-earner ID ascending

	strong := candidate("fe-z", func(_ *engine.FeeEarnerSettings, w *engine.WorkloadSnapshot) {
		w.AssignmentPriority = 10
	})
	tiedB := candidate("fe-b", nil)
	tiedA := candidate("fe-a", nil)

	recs := engine.RankCandidates([]engine.Candidate{tiedB, strong, tiedA}, purchaseMatter("100000"))

	gotIDs := []engine.FeeEarnerID{recs[0].FeeEarnerID, recs[1].FeeEarnerID, recs[2].FeeEarnerID}
	wantIDs := []engine.FeeEarnerID{"fe-z", "fe-a", "fe-b"}
	for i := range wantIDs {
		if gotIDs[i] != wantIDs[i] {
			t.Fatalf("expected order %v, got %v", wantIDs, gotIDs)
		}
	}
	if recs[1].Score != recs[2].Score {
		t.Errorf("tied candidates should have equal scores: %d vs %d", recs[1].Score, recs[2].Score)
	}
}

func TestRankCandidates_UnconfiguredExcluded(t *testing.T) {
	// GIVEN: A candidate whose settings row is missing
	// WHEN: Ranking
	// THEN: Excluded entirely, not scored zero

	ghost := engine.Candidate{Workload: engine.WorkloadSnapshot{FeeEarnerID: "fe-ghost"}}
	real := candidate("fe-a", nil)

	recs := engine.RankCandidates([]engine.Candidate{ghost, real}, purchaseMatter("100000"))

	if len(recs) != 1 {
		t.Fatalf("expected 1 recommendation, got %d", len(recs))
	}
	if recs[0].FeeEarnerID != "fe-a" {
		t.Errorf("expected fe-a, got %s", recs[0].FeeEarnerID)
	}
}

func TestRankCandidates_IncludesIneligible(t *testing.T) {
	// GIVEN: An unavailable, over-capacity candidate
	// WHEN: Ranking
	// THEN: Still present in the advisory list (unlike eligibility filtering)

	overloaded := candidate("fe-busy", func(_ *engine.FeeEarnerSettings, w *engine.WorkloadSnapshot) {
		w.IsAvailable = false
		w.CapacityPercent = 120
	})

	recs := engine.RankCandidates([]engine.Candidate{overloaded}, purchaseMatter("100000"))
	if len(recs) != 1 {
		t.Fatalf("expected the ineligible candidate to be ranked, got %d entries", len(recs))
	}
	if recs[0].Reason() == "" {
		t.Error("expected a rationale string")
	}
}
