package engine

import (
	"database/sql"
	"testing"
	"time"

	"github.com/propfund/propex/models"
	"github.com/propfund/propex/types"
)

var t0 = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func defaultRule(bps int64, effective time.Time) *models.RateRule {
	return &models.RateRule{Scope: types.ScopeDefault, RateBps: bps, EffectiveAt: effective}
}

func roleRule(role string, bps int64, effective time.Time) *models.RateRule {
	return &models.RateRule{
		Scope:       types.ScopeRole,
		Role:        sql.NullString{String: role, Valid: true},
		RateBps:     bps,
		EffectiveAt: effective,
	}
}

func overrideRule(memberID int64, bps int64, effective time.Time) *models.RateRule {
	return &models.RateRule{
		Scope:       types.ScopePrincipalOverride,
		MemberID:    sql.NullInt64{Int64: memberID, Valid: true},
		RateBps:     bps,
		EffectiveAt: effective,
	}
}

func TestResolveRate_ScopePrecedence(t *testing.T) {
	agent := member(7, types.RoleAgent, 0)
	rules := []*models.RateRule{
		defaultRule(100, t0),
		roleRule(types.RoleAgent, 500, t0),
		overrideRule(7, 900, t0),
	}

	got := ResolveRate(rules, agent, "evaluation", 1, t0.Add(time.Hour), 3)
	if got != 900 {
		t.Errorf("expected principal override 900, got %d", got)
	}

	other := member(8, types.RoleAgent, 0)
	if got := ResolveRate(rules, other, "evaluation", 1, t0.Add(time.Hour), 3); got != 500 {
		t.Errorf("expected role rule 500, got %d", got)
	}

	trader := member(9, types.RoleTrader, 0)
	if got := ResolveRate(rules, trader, "evaluation", 1, t0.Add(time.Hour), 3); got != 100 {
		t.Errorf("expected default 100, got %d", got)
	}
}

func TestResolveRate_ProductKindSpecificityAndRecency(t *testing.T) {
	agent := member(7, types.RoleAgent, 0)

	specific := roleRule(types.RoleAgent, 700, t0)
	specific.ProductKind = sql.NullString{String: "evaluation", Valid: true}

	rules := []*models.RateRule{
		roleRule(types.RoleAgent, 500, t0.Add(time.Minute)),
		specific,
	}

	if got := ResolveRate(rules, agent, "evaluation", 1, t0.Add(time.Hour), 3); got != 700 {
		t.Errorf("product-kind rule should beat generic despite recency, got %d", got)
	}
	if got := ResolveRate(rules, agent, "funded", 1, t0.Add(time.Hour), 3); got != 500 {
		t.Errorf("generic rule should apply to other kinds, got %d", got)
	}

	// within equal specificity, most recent wins
	rules = []*models.RateRule{
		roleRule(types.RoleAgent, 500, t0),
		roleRule(types.RoleAgent, 600, t0.Add(time.Minute)),
	}
	if got := ResolveRate(rules, agent, "evaluation", 1, t0.Add(time.Hour), 3); got != 600 {
		t.Errorf("expected most recent 600, got %d", got)
	}
}

func TestResolveRate_PerLevelDefaults(t *testing.T) {
	agent := member(7, types.RoleAgent, 0)

	l1 := defaultRule(1000, t0)
	l1.Level = 1
	l2 := defaultRule(500, t0)
	l2.Level = 2
	l3 := defaultRule(200, t0)
	l3.Level = 3

	rules := []*models.RateRule{l1, l2, l3}

	want := []int64{1000, 500, 200}
	for level := 1; level <= 3; level++ {
		if got := ResolveRate(rules, agent, "evaluation", level, t0.Add(time.Hour), 3); got != want[level-1] {
			t.Errorf("level %d: expected %d, got %d", level, want[level-1], got)
		}
	}
}

func TestResolveRate_LevelMatchBeatsGeneric(t *testing.T) {
	agent := member(7, types.RoleAgent, 0)

	generic := defaultRule(300, t0.Add(time.Minute))
	leveled := defaultRule(1000, t0)
	leveled.Level = 1

	rules := []*models.RateRule{generic, leveled}

	if got := ResolveRate(rules, agent, "evaluation", 1, t0.Add(time.Hour), 3); got != 1000 {
		t.Errorf("level-specific rule should beat a newer generic one, got %d", got)
	}
	if got := ResolveRate(rules, agent, "evaluation", 2, t0.Add(time.Hour), 3); got != 300 {
		t.Errorf("generic rule should cover other levels, got %d", got)
	}
}

func TestResolveRate_EffectiveAtFilter(t *testing.T) {
	agent := member(7, types.RoleAgent, 0)
	rules := []*models.RateRule{
		roleRule(types.RoleAgent, 500, t0),
		roleRule(types.RoleAgent, 800, t0.Add(48*time.Hour)),
	}

	// the purchase predates the 800 rule; replay must keep resolving 500
	if got := ResolveRate(rules, agent, "evaluation", 1, t0.Add(time.Hour), 3); got != 500 {
		t.Errorf("future rule must not apply, got %d", got)
	}
}

func TestResolveRate_LevelBounds(t *testing.T) {
	agent := member(7, types.RoleAgent, 0)
	rules := []*models.RateRule{defaultRule(500, t0)}

	if got := ResolveRate(rules, agent, "evaluation", 4, t0.Add(time.Hour), 3); got != 0 {
		t.Errorf("level beyond max must yield zero, got %d", got)
	}
	if got := ResolveRate(rules, agent, "evaluation", 0, t0.Add(time.Hour), 3); got != 0 {
		t.Errorf("level zero must yield zero, got %d", got)
	}
}

func TestResolveRate_NegativeRateClamped(t *testing.T) {
	agent := member(7, types.RoleAgent, 0)
	rules := []*models.RateRule{defaultRule(-100, t0)}

	if got := ResolveRate(rules, agent, "evaluation", 1, t0.Add(time.Hour), 3); got != 0 {
		t.Errorf("negative rate must resolve to zero, got %d", got)
	}
}

func TestScaleToCeiling_UnderCeilingUntouched(t *testing.T) {
	got := ScaleToCeiling([]int64{1000, 500, 200}, 5000)

	want := []int64{1000, 500, 200}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("rate %d: expected %d, got %d", i, want[i], got[i])
		}
	}
}

func TestScaleToCeiling_ScalesProportionally(t *testing.T) {
	// 30/25/10 percent against a 50 percent ceiling
	got := ScaleToCeiling([]int64{3000, 2500, 1000}, 5000)

	var sum int64
	for _, r := range got {
		sum += r
	}
	if sum != 5000 {
		t.Fatalf("scaled sum must equal the ceiling, got %d", sum)
	}

	// 3000*50/65 = 2307.69..., 2500*50/65 = 1923.07..., 1000*50/65 = 769.23...
	if got[0] != 2308 || got[1] != 1923 || got[2] != 769 {
		t.Errorf("expected [2308 1923 769], got %v", got)
	}
	if got[0] <= got[1] || got[1] <= got[2] {
		t.Errorf("scaling must preserve ordering, got %v", got)
	}
}

func TestScaleToCeiling_ZeroSum(t *testing.T) {
	got := ScaleToCeiling([]int64{0, 0}, 5000)
	if got[0] != 0 || got[1] != 0 {
		t.Errorf("zero rates stay zero, got %v", got)
	}
}
