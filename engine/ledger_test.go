package engine

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/volatiletech/null"
	"gorm.io/gorm"

	"github.com/propfund/propex/models"
	"github.com/propfund/propex/types"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestAmountForRate_ThreeLevelScenario(t *testing.T) {
	gross := dec("1000")

	// default chain rates 10/5/2 percent on a 1000 purchase
	cases := []struct {
		bps  int64
		want string
	}{
		{1000, "100"},
		{500, "50"},
		{200, "20"},
	}

	for _, c := range cases {
		got := AmountForRate(gross, c.bps)
		if !got.Equal(dec(c.want)) {
			t.Errorf("bps %d: expected %s, got %s", c.bps, c.want, got)
		}
	}
}

func TestAmountForRate_RoundHalfEven(t *testing.T) {
	// exact halves at the minor unit must round to even
	if got := AmountForRate(dec("1.25"), 200); !got.Equal(dec("0.02")) {
		t.Errorf("0.025 must round to even 0.02, got %s", got)
	}
	if got := AmountForRate(dec("1.75"), 200); !got.Equal(dec("0.04")) {
		t.Errorf("0.035 must round to even 0.04, got %s", got)
	}
}

func TestComputeEntries_ThreeLevels(t *testing.T) {
	chain := []*models.Member{
		member(3, types.RoleAgent, 2),
		member(2, types.RoleMaster, 1),
		member(1, types.RoleSupermaster, 0),
	}
	purchase := &models.Purchase{
		ID:          11,
		BuyerID:     4,
		GrossAmount: dec("1000"),
		CurrencyID:  "usd",
		ExternalRef: "pay-abc",
	}

	entries := ComputeEntries(purchase, chain, []int64{1000, 500, 200})
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}

	wantAmounts := []string{"100", "50", "20"}
	for i, entry := range entries {
		if entry.Level != i+1 {
			t.Errorf("entry %d: expected level %d, got %d", i, i+1, entry.Level)
		}
		if !entry.Amount.Equal(dec(wantAmounts[i])) {
			t.Errorf("entry %d: expected amount %s, got %s", i, wantAmounts[i], entry.Amount)
		}
		if entry.State != types.EntryPending {
			t.Errorf("entry %d: expected pending, got %s", i, entry.State)
		}
		if entry.Kind != types.KindCredit {
			t.Errorf("entry %d: expected credit, got %s", i, entry.Kind)
		}
		if entry.ExternalRef != "pay-abc" {
			t.Errorf("entry %d: expected purchase ref, got %s", i, entry.ExternalRef)
		}
	}
}

func TestComputeEntries_SkipsZeroRates(t *testing.T) {
	chain := []*models.Member{
		member(3, types.RoleAgent, 2),
		member(2, types.RoleMaster, 1),
		member(1, types.RoleSupermaster, 0),
	}
	purchase := &models.Purchase{GrossAmount: dec("1000"), ExternalRef: "pay-zero"}

	entries := ComputeEntries(purchase, chain, []int64{1000, 0, 200})
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Level != 1 || entries[1].Level != 3 {
		t.Errorf("expected levels [1 3], got [%d %d]", entries[0].Level, entries[1].Level)
	}
}

func TestComputeEntries_RatesShorterThanChain(t *testing.T) {
	chain := []*models.Member{
		member(3, types.RoleAgent, 2),
		member(2, types.RoleMaster, 1),
	}
	purchase := &models.Purchase{GrossAmount: dec("1000"), ExternalRef: "pay-short"}

	entries := ComputeEntries(purchase, chain, []int64{1000})
	if len(entries) != 1 {
		t.Fatalf("levels beyond the rate slice yield nothing, got %d entries", len(entries))
	}
}

func TestComputeEntries_WithinRoundingTolerance(t *testing.T) {
	// sum of entries must match gross * sum(rates) within one minor unit
	chain := []*models.Member{
		member(3, types.RoleAgent, 2),
		member(2, types.RoleMaster, 1),
		member(1, types.RoleSupermaster, 0),
	}
	purchase := &models.Purchase{GrossAmount: dec("333.33"), ExternalRef: "pay-round"}

	rates := []int64{2308, 1923, 769}
	entries := ComputeEntries(purchase, chain, rates)

	total := decimal.Zero
	var bpsSum int64
	for i, entry := range entries {
		total = total.Add(entry.Amount)
		bpsSum += rates[i]
	}

	exact := purchase.GrossAmount.Mul(decimal.NewFromInt(bpsSum)).Div(decimal.NewFromInt(10000))
	if total.Sub(exact).Abs().GreaterThan(dec("0.03")) {
		t.Errorf("rounding drift too large: exact %s, booked %s", exact, total)
	}
}

func creditEntry(memberID int64, level int, amount string, state types.EntryState) *models.CommissionEntry {
	return &models.CommissionEntry{
		MemberID:    memberID,
		PurchaseID:  21,
		ExternalRef: "pay-unwind",
		Level:       level,
		Kind:        types.KindCredit,
		RateBps:     1000,
		GrossBasis:  dec("1000"),
		Amount:      dec(amount),
		CurrencyID:  "usd",
		State:       state,
	}
}

func TestPlanReversals_VoidsPendingAndAvailable(t *testing.T) {
	credits := []*models.CommissionEntry{
		creditEntry(3, 1, "100", types.EntryPending),
		creditEntry(2, 2, "50", types.EntryAvailable),
	}

	plan := PlanReversals(credits)

	if len(plan.Entries) != 2 {
		t.Fatalf("expected 2 reversal rows, got %d", len(plan.Entries))
	}
	for i, reversal := range plan.Entries {
		if reversal.Kind != types.KindReversal {
			t.Errorf("row %d: expected reversal kind, got %s", i, reversal.Kind)
		}
		if reversal.State != types.EntryVoid {
			t.Errorf("row %d: expected void state, got %s", i, reversal.State)
		}
		if !reversal.Amount.Equal(credits[i].Amount.Neg()) {
			t.Errorf("row %d: expected %s, got %s", i, credits[i].Amount.Neg(), reversal.Amount)
		}
		if reversal.ExternalRef != credits[i].ExternalRef || reversal.Level != credits[i].Level {
			t.Errorf("row %d: reversal must mirror its credit", i)
		}
	}

	if len(plan.VoidCredits) != 2 {
		t.Errorf("both credits must be voided, got %d", len(plan.VoidCredits))
	}
	if len(plan.Debtors) != 0 || len(plan.BrokenReservations) != 0 {
		t.Errorf("no debtors or broken reservations expected, got %v / %v",
			plan.Debtors, plan.BrokenReservations)
	}
}

func TestPlanReversals_WithdrawnBecomesDebt(t *testing.T) {
	credits := []*models.CommissionEntry{
		creditEntry(3, 1, "70", types.EntryWithdrawn),
	}

	plan := PlanReversals(credits)

	if len(plan.Entries) != 1 {
		t.Fatalf("expected 1 adjustment row, got %d", len(plan.Entries))
	}
	adjustment := plan.Entries[0]
	if adjustment.Kind != types.KindAdjustment {
		t.Errorf("expected adjustment kind, got %s", adjustment.Kind)
	}
	if adjustment.State != types.EntryAvailable {
		t.Errorf("debt must land in available, got %s", adjustment.State)
	}
	if !adjustment.Amount.Equal(dec("-70")) {
		t.Errorf("expected -70, got %s", adjustment.Amount)
	}

	if len(plan.VoidCredits) != 0 {
		t.Errorf("withdrawn credits stay withdrawn, got %d voids", len(plan.VoidCredits))
	}
	if len(plan.Debtors) != 1 || plan.Debtors[0] != 3 {
		t.Errorf("member 3 must be flagged as debtor, got %v", plan.Debtors)
	}
}

func TestPlanReversals_BreaksReservation(t *testing.T) {
	// a refund landing while a payout is pending: the reserved credit is
	// still available but bound to the request, and voiding it must break
	// that reservation so the request gets failed instead of dispatched
	reserved := creditEntry(3, 1, "100", types.EntryAvailable)
	reserved.PayoutID = null.Int64From(9)

	plan := PlanReversals([]*models.CommissionEntry{
		reserved,
		creditEntry(2, 2, "50", types.EntryAvailable),
	})

	if len(plan.BrokenReservations) != 1 || plan.BrokenReservations[0] != 9 {
		t.Fatalf("expected broken reservation [9], got %v", plan.BrokenReservations)
	}
	if len(plan.VoidCredits) != 2 {
		t.Errorf("the reserved credit must still be voided, got %d voids", len(plan.VoidCredits))
	}
}

func TestPlanReversals_NetsToCreditSum(t *testing.T) {
	credits := []*models.CommissionEntry{
		creditEntry(3, 1, "100", types.EntryPending),
		creditEntry(2, 2, "50", types.EntryAvailable),
		creditEntry(1, 3, "20", types.EntryWithdrawn),
	}

	plan := PlanReversals(credits)

	total := decimal.Zero
	for _, entry := range plan.Entries {
		total = total.Add(entry.Amount)
	}
	if !total.Equal(dec("-170")) {
		t.Errorf("reversal rows must net out the credits, got %s", total)
	}
}

func TestLookupErrClassification(t *testing.T) {
	if !IsCode(lookupErr(gorm.ErrRecordNotFound), ErrNotFound.Code) {
		t.Error("missing row must map to not_found")
	}
	if !IsCode(lookupErr(context.DeadlineExceeded), ErrUnavailable.Code) {
		t.Error("deadline hit must map to unavailable, not not_found")
	}
}
