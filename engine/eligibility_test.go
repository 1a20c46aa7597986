package engine_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/conveyly/assignment-engine/engine"
)

// =============================================================================
// ELIGIBILITY PREDICATES
// =============================================================================

func TestIsEligible_AllPredicatesHold(t *testing.T) {
	c := candidate("fe-a", func(_ *engine.FeeEarnerSettings, w *engine.WorkloadSnapshot) {
		w.CapacityPercent = 40
		w.WeeklyCapacityPercent = 33
	})
	if !engine.IsEligible(c, "purchase", decimal.RequireFromString("250000")) {
		t.Error("expected eligible")
	}
}

func TestIsEligible_EachPredicateFailsIndependently(t *testing.T) {
	value := decimal.RequireFromString("250000")
	min := decimal.RequireFromString("300000")
	max := decimal.RequireFromString("200000")

	cases := []struct {
		name   string
		mutate func(*engine.FeeEarnerSettings, *engine.WorkloadSnapshot)
	}{
		{"not configured", func(s *engine.FeeEarnerSettings, w *engine.WorkloadSnapshot) {
			w.SettingsConfigured = false
		}},
		{"auto-assignment opt-out", func(s *engine.FeeEarnerSettings, w *engine.WorkloadSnapshot) {
			w.AcceptsAutoAssignment = false
		}},
		{"unavailable", func(s *engine.FeeEarnerSettings, w *engine.WorkloadSnapshot) {
			w.IsAvailable = false
		}},
		{"wrong matter type", func(s *engine.FeeEarnerSettings, w *engine.WorkloadSnapshot) {
			s.MatterTypes = []string{"sale", "remortgage"}
		}},
		{"value below minimum", func(s *engine.FeeEarnerSettings, w *engine.WorkloadSnapshot) {
			s.MinTransactionValue = &min
		}},
		{"value above maximum", func(s *engine.FeeEarnerSettings, w *engine.WorkloadSnapshot) {
			s.MaxTransactionValue = &max
		}},
		{"at concurrent capacity", func(s *engine.FeeEarnerSettings, w *engine.WorkloadSnapshot) {
			w.CapacityPercent = 100
		}},
		{"at weekly capacity", func(s *engine.FeeEarnerSettings, w *engine.WorkloadSnapshot) {
			w.WeeklyCapacityPercent = 100
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := candidate("fe-a", tc.mutate)
			if engine.IsEligible(c, "purchase", value) {
				t.Error("expected ineligible")
			}
		})
	}
}

func TestIsEligible_UnroundedThreshold(t *testing.T) {
	// GIVEN: 99.6% capacity, which rounds to 100 for display
	// WHEN: Checking eligibility
	// THEN: Still eligible; thresholds compare the unrounded value

	c := candidate("fe-a", func(_ *engine.FeeEarnerSettings, w *engine.WorkloadSnapshot) {
		w.CapacityPercent = 99.6
	})
	if !engine.IsEligible(c, "purchase", decimal.RequireFromString("100000")) {
		t.Error("99.6%% capacity must remain eligible")
	}
	if c.Workload.DisplayCapacityPercent() != 100 {
		t.Errorf("display should round to 100, got %d", c.Workload.DisplayCapacityPercent())
	}
}

func TestIsEligible_EmptyMatterTypesAcceptsAll(t *testing.T) {
	c := candidate("fe-a", nil)
	for _, matterType := range []string{"purchase", "sale", "remortgage", "anything"} {
		if !engine.IsEligible(c, matterType, decimal.RequireFromString("100000")) {
			t.Errorf("empty matter type set should accept %q", matterType)
		}
	}
}

func TestIsEligible_MissingBoundAlwaysSatisfies(t *testing.T) {
	min := decimal.RequireFromString("100000")
	c := candidate("fe-a", func(s *engine.FeeEarnerSettings, _ *engine.WorkloadSnapshot) {
		s.MinTransactionValue = &min // max left unset
	})
	if !engine.IsEligible(c, "purchase", decimal.RequireFromString("99999999")) {
		t.Error("unset max bound must not cap the value")
	}
	// Boundary values are inclusive on both sides.
	if !engine.IsEligible(c, "purchase", decimal.RequireFromString("100000")) {
		t.Error("value equal to minimum must satisfy the bound")
	}
}

// =============================================================================
// FILTERING
// =============================================================================

func TestFilterEligible_SubsetOfConfigured(t *testing.T) {
	// GIVEN: A mix of eligible and ineligible candidates
	// WHEN: Filtering
	// THEN: Only the eligible ones remain, in input order

	eligible1 := candidate("fe-a", nil)
	ineligible := candidate("fe-b", func(_ *engine.FeeEarnerSettings, w *engine.WorkloadSnapshot) {
		w.IsAvailable = false
	})
	eligible2 := candidate("fe-c", nil)

	got := engine.FilterEligible(
		[]engine.Candidate{eligible1, ineligible, eligible2},
		"purchase", decimal.RequireFromString("100000"))

	if len(got) != 2 || got[0] != "fe-a" || got[1] != "fe-c" {
		t.Errorf("expected [fe-a fe-c], got %v", got)
	}
}

func TestFilterEligible_EmptyResult(t *testing.T) {
	ineligible := candidate("fe-a", func(_ *engine.FeeEarnerSettings, w *engine.WorkloadSnapshot) {
		w.AcceptsAutoAssignment = false
	})
	got := engine.FilterEligible([]engine.Candidate{ineligible}, "purchase", decimal.RequireFromString("100000"))
	if len(got) != 0 {
		t.Errorf("expected empty result, got %v", got)
	}
}
