package engine

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/volatiletech/null"

	"github.com/propfund/propex/models"
	"github.com/propfund/propex/types"
)

// resolveChain mirrors Resolver.ChainRates over an in-memory rule table.
func resolveChain(rules []*models.RateRule, chain []*models.Member, productKind string, paidAt time.Time, maxLevels int, ceiling int64) []int64 {
	rates := make([]int64, 0, len(chain))
	for i, ancestor := range chain {
		rates = append(rates, ResolveRate(rules, ancestor, productKind, i+1, paidAt, maxLevels))
	}
	return ScaleToCeiling(rates, ceiling)
}

func TestAttribution_ThreeLevelScenario(t *testing.T) {
	// root(supermaster) -> master -> agent -> trader buying for 1000
	root := member(1, types.RoleSupermaster, 0)
	m := member(2, types.RoleMaster, 1)
	a := member(3, types.RoleAgent, 2)
	chain := []*models.Member{a, m, root}

	l1 := defaultRule(1000, t0)
	l1.Level = 1
	l2 := defaultRule(500, t0)
	l2.Level = 2
	l3 := defaultRule(200, t0)
	l3.Level = 3
	rules := []*models.RateRule{l1, l2, l3}

	purchase := &models.Purchase{
		ID:          99,
		BuyerID:     4,
		GrossAmount: dec("1000"),
		CurrencyID:  "usd",
		ExternalRef: "ext-001",
	}

	rates := resolveChain(rules, chain, "evaluation", t0.Add(time.Hour), 3, 5000)
	entries := ComputeEntries(purchase, chain, rates)

	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}

	want := map[int64]string{3: "100", 2: "50", 1: "20"}
	for _, entry := range entries {
		if !entry.Amount.Equal(dec(want[entry.MemberID])) {
			t.Errorf("member %d: expected %s, got %s", entry.MemberID, want[entry.MemberID], entry.Amount)
		}
		if entry.State != types.EntryPending {
			t.Errorf("member %d: expected pending, got %s", entry.MemberID, entry.State)
		}
	}
}

func TestAttribution_CeilingScenario(t *testing.T) {
	// chain rates 30/25/10 percent, ceiling 50 percent: scaled sum is
	// exactly the ceiling and total booked matches gross * 50% within a
	// minor unit
	root := member(1, types.RoleSupermaster, 0)
	m := member(2, types.RoleMaster, 1)
	a := member(3, types.RoleAgent, 2)
	chain := []*models.Member{a, m, root}

	l1 := defaultRule(3000, t0)
	l1.Level = 1
	l2 := defaultRule(2500, t0)
	l2.Level = 2
	l3 := defaultRule(1000, t0)
	l3.Level = 3
	rules := []*models.RateRule{l1, l2, l3}

	purchase := &models.Purchase{GrossAmount: dec("1000"), ExternalRef: "ext-ceiling"}

	rates := resolveChain(rules, chain, "evaluation", t0.Add(time.Hour), 3, 5000)

	var sum int64
	for _, r := range rates {
		sum += r
	}
	if sum != 5000 {
		t.Fatalf("scaled rates must sum to the ceiling, got %d", sum)
	}

	entries := ComputeEntries(purchase, chain, rates)
	total := decimal.Zero
	for _, entry := range entries {
		total = total.Add(entry.Amount)
	}

	half := dec("500")
	if total.Sub(half).Abs().GreaterThan(dec("0.01")) {
		t.Errorf("expected total near 500, got %s", total)
	}
}

func TestAttribution_ChainTruncation(t *testing.T) {
	// four ancestors, three levels: the fourth earns nothing
	chain := []*models.Member{
		member(4, types.RoleAgent, 3),
		member(3, types.RoleAgent, 2),
		member(2, types.RoleMaster, 1),
		member(1, types.RoleSupermaster, 0),
	}
	rules := []*models.RateRule{defaultRule(500, t0)}

	rates := resolveChain(rules, chain, "evaluation", t0.Add(time.Hour), 3, 5000)
	if rates[3] != 0 {
		t.Errorf("level 4 beyond max must resolve to zero, got %d", rates[3])
	}

	purchase := &models.Purchase{GrossAmount: dec("1000"), ExternalRef: "ext-trunc"}
	entries := ComputeEntries(purchase, chain, rates)
	if len(entries) != 3 {
		t.Errorf("expected 3 entries after truncation, got %d", len(entries))
	}
}

func TestAttribution_RuleWindowClosesAtPayment(t *testing.T) {
	// the purchase was created before the rule became effective but is paid
	// after: the rule applies, because the filter runs against paid_at
	agent := member(7, types.RoleAgent, 0)
	rules := []*models.RateRule{defaultRule(800, t0)}

	purchase := &models.Purchase{
		CreatedAt:   t0.Add(-24 * time.Hour),
		GrossAmount: dec("1000"),
		ExternalRef: "ext-window",
	}

	now := t0.Add(time.Hour)
	paidAt := attributionTime(purchase, now)
	if !paidAt.Equal(now) {
		t.Fatalf("first attribution must use the payment time, got %v", paidAt)
	}
	if got := ResolveRate(rules, agent, "evaluation", 1, paidAt, 3); got != 800 {
		t.Errorf("rule effective before payment must apply, got %d", got)
	}

	// a replay keeps the stored paid_at so resolution stays identical
	purchase.PaidAt = null.TimeFrom(now)
	if replayAt := attributionTime(purchase, t0.Add(72*time.Hour)); !replayAt.Equal(now) {
		t.Errorf("replay must reuse the stored paid_at, got %v", replayAt)
	}
}

func TestAttribution_ReplayDeterminism(t *testing.T) {
	// the same purchase resolved twice yields identical entries
	chain := []*models.Member{member(3, types.RoleAgent, 2)}
	rules := []*models.RateRule{defaultRule(1000, t0)}
	purchase := &models.Purchase{GrossAmount: dec("123.45"), ExternalRef: "ext-replay"}

	first := ComputeEntries(purchase, chain, resolveChain(rules, chain, "evaluation", t0.Add(time.Hour), 3, 5000))
	second := ComputeEntries(purchase, chain, resolveChain(rules, chain, "evaluation", t0.Add(time.Hour), 3, 5000))

	if len(first) != len(second) {
		t.Fatalf("replay entry count diverged: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if !first[i].Amount.Equal(second[i].Amount) || first[i].Level != second[i].Level {
			t.Errorf("entry %d diverged on replay", i)
		}
	}
}
