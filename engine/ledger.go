package engine

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"github.com/volatiletech/null"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/propfund/propex/config"
	"github.com/propfund/propex/models"
	"github.com/propfund/propex/types"
)

var bpsDivisor = decimal.NewFromInt(10000)

// moneyScale is the booking-currency scale. Snapshots of crypto rails keep
// their own scale inside the frozen JSON; the ledger itself books at 2.
const moneyScale = 2

// AmountForRate books gross * bps with banker's rounding at the minor unit.
func AmountForRate(gross decimal.Decimal, rateBps int64) decimal.Decimal {
	return gross.Mul(decimal.NewFromInt(rateBps)).Div(bpsDivisor).RoundBank(moneyScale)
}

// ComputeEntries builds the credit rows for one paid purchase, lower levels
// first. Zero-rate levels produce no entry.
func ComputeEntries(purchase *models.Purchase, chain []*models.Member, rates []int64) []*models.CommissionEntry {
	entries := make([]*models.CommissionEntry, 0, len(chain))

	for i, ancestor := range chain {
		if i >= len(rates) || rates[i] == 0 {
			continue
		}

		amount := AmountForRate(purchase.GrossAmount, rates[i])
		if amount.IsZero() {
			continue
		}

		entries = append(entries, &models.CommissionEntry{
			MemberID:    ancestor.ID,
			PurchaseID:  purchase.ID,
			ExternalRef: purchase.ExternalRef,
			Level:       i + 1,
			Kind:        types.KindCredit,
			RateBps:     rates[i],
			GrossBasis:  purchase.GrossAmount,
			Amount:      amount,
			CurrencyID:  purchase.CurrencyID,
			State:       types.EntryPending,
		})
	}

	return entries
}

// Ledger is the append-only commission store and the source of truth for
// balances.
type Ledger struct {
	DB *gorm.DB
}

func NewLedger() *Ledger {
	return &Ledger{DB: config.DataBase}
}

// lookupErr classifies a row-fetch failure: a missing row is not_found,
// anything else (deadline hit, lost connection) is transient.
func lookupErr(err error) error {
	if err == gorm.ErrRecordNotFound {
		return ErrNotFound
	}
	return ErrUnavailable
}

// lockMembersRootward takes FOR UPDATE locks on the chain's member rows,
// root first, so concurrent purchases from one sub-tree cannot deadlock.
func lockMembersRootward(tx *gorm.DB, chain []*models.Member) error {
	for i := len(chain) - 1; i >= 0; i-- {
		var locked models.Member
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&locked, "id = ?", chain[i].ID).Error; err != nil {
			return ErrUnavailable
		}
	}

	return nil
}

// PostAttribution commits the purchase transition to paid together with its
// commission entries and the attribution outbox event. paidAt is the same
// timestamp the rates were resolved against. Re-posting the same
// external_ref is a no-op.
func (l *Ledger) PostAttribution(purchase *models.Purchase, chain []*models.Member, entries []*models.CommissionEntry, paidAt time.Time) error {
	return l.DB.Transaction(func(tx *gorm.DB) error {
		var locked models.Purchase

		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&locked, "id = ?", purchase.ID).Error; err != nil {
			return lookupErr(err)
		}

		if locked.State == types.PurchasePaid {
			// already attributed, replay is idempotent
			purchase.State = locked.State
			return nil
		}
		if locked.State != types.PurchasePending {
			return ErrConflict
		}

		if err := lockMembersRootward(tx, chain); err != nil {
			return err
		}

		for _, entry := range entries {
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
				Create(entry).Error; err != nil {
				return ErrUnavailable
			}
		}

		if err := tx.Model(&locked).Updates(map[string]interface{}{
			"state":   types.PurchasePaid,
			"paid_at": paidAt,
		}).Error; err != nil {
			return ErrUnavailable
		}

		purchase.State = types.PurchasePaid
		purchase.PaidAt = null.TimeFrom(paidAt)

		return appendOutbox(tx, types.EventPurchaseAttributed, map[string]interface{}{
			"external_ref": purchase.ExternalRef,
			"buyer_id":     purchase.BuyerID,
			"gross_amount": purchase.GrossAmount,
			"entries":      len(entries),
		})
	})
}

// ReversalPlan is the consequence set of unwinding one purchase: rows to
// append, credits to void, members whose available may now be negative, and
// payout requests whose reservation held a voided credit.
type ReversalPlan struct {
	Entries            []*models.CommissionEntry
	VoidCredits        []*models.CommissionEntry
	Debtors            []int64
	BrokenReservations []int64
}

// PlanReversals derives the reversal rows for a purchase's credits. Pending
// and available credits void in place with a matching negative reversal row;
// withdrawn credits get a negative adjustment landing in available. A credit
// that was reserved for a payout breaks that reservation: the request must
// be failed before its reserved sum is trusted again.
func PlanReversals(credits []*models.CommissionEntry) *ReversalPlan {
	plan := &ReversalPlan{}
	seenDebtor := map[int64]bool{}
	seenPayout := map[int64]bool{}

	for _, credit := range credits {
		switch credit.State {
		case types.EntryPending, types.EntryAvailable:
			plan.Entries = append(plan.Entries, reversalRow(credit, types.KindReversal, types.EntryVoid))
			plan.VoidCredits = append(plan.VoidCredits, credit)
			if credit.PayoutID.Valid && !seenPayout[credit.PayoutID.Int64] {
				seenPayout[credit.PayoutID.Int64] = true
				plan.BrokenReservations = append(plan.BrokenReservations, credit.PayoutID.Int64)
			}
		case types.EntryWithdrawn:
			plan.Entries = append(plan.Entries, reversalRow(credit, types.KindAdjustment, types.EntryAvailable))
			if !seenDebtor[credit.MemberID] {
				seenDebtor[credit.MemberID] = true
				plan.Debtors = append(plan.Debtors, credit.MemberID)
			}
		}
	}

	return plan
}

func reversalRow(credit *models.CommissionEntry, kind types.EntryKind, state types.EntryState) *models.CommissionEntry {
	return &models.CommissionEntry{
		MemberID:    credit.MemberID,
		PurchaseID:  credit.PurchaseID,
		ExternalRef: credit.ExternalRef,
		Level:       credit.Level,
		Kind:        kind,
		RateBps:     credit.RateBps,
		GrossBasis:  credit.GrossBasis,
		Amount:      credit.Amount.Neg(),
		CurrencyID:  credit.CurrencyID,
		State:       state,
	}
}

// Unwind posts reversals for a refunded or charged-back purchase.
//
// Credits still pending or available are voided in place with a matching
// void reversal row. Credits already withdrawn get a negative adjustment
// that lands in available, which can push the principal's available below
// zero; that flags payouts_blocked until future credits repay the debt.
// Pending or approved payout requests holding a voided credit are failed
// and their reservation released.
func (l *Ledger) Unwind(purchase *models.Purchase, finalState types.PurchaseState, reason string) error {
	if finalState != types.PurchaseRefunded && finalState != types.PurchaseChargeback {
		return ErrValidation
	}

	return l.DB.Transaction(func(tx *gorm.DB) error {
		var locked models.Purchase

		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&locked, "id = ?", purchase.ID).Error; err != nil {
			return lookupErr(err)
		}

		if locked.State == finalState {
			return nil
		}
		if locked.State != types.PurchasePaid {
			return ErrConflict
		}

		var credits []*models.CommissionEntry
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("purchase_id = ? AND kind = ?", locked.ID, types.KindCredit).
			Order("level asc").
			Find(&credits).Error; err != nil {
			return ErrUnavailable
		}

		plan := PlanReversals(credits)

		for _, entry := range plan.Entries {
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
				Create(entry).Error; err != nil {
				return ErrUnavailable
			}
		}

		for _, credit := range plan.VoidCredits {
			if err := tx.Model(credit).Update("state", types.EntryVoid).Error; err != nil {
				return ErrUnavailable
			}
		}

		for _, payoutID := range plan.BrokenReservations {
			var request models.PayoutRequest
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				First(&request, "id = ?", payoutID).Error; err != nil {
				return lookupErr(err)
			}
			if request.Status != types.PayoutPending && request.Status != types.PayoutApproved {
				continue
			}
			if err := releaseReservation(tx, request.ID); err != nil {
				return err
			}
			if err := tx.Model(&request).Updates(map[string]interface{}{
				"status":           types.PayoutRejected,
				"rejection_reason": "reserved commission reversed",
			}).Error; err != nil {
				return ErrUnavailable
			}
		}

		for _, memberID := range plan.Debtors {
			available, err := availableOf(tx, memberID)
			if err != nil {
				return err
			}
			if available.IsNegative() {
				if err := tx.Model(&models.Member{}).
					Where("id = ?", memberID).
					Update("payouts_blocked", true).Error; err != nil {
					return ErrUnavailable
				}
			}
		}

		now := time.Now().UTC()
		if err := tx.Model(&locked).Updates(map[string]interface{}{
			"state":      finalState,
			"unwound_at": now,
		}).Error; err != nil {
			return ErrUnavailable
		}

		purchase.State = finalState
		purchase.UnwoundAt = null.TimeFrom(now)

		return appendOutbox(tx, types.EventPurchaseUnwound, map[string]interface{}{
			"external_ref": purchase.ExternalRef,
			"final_state":  finalState,
			"reason":       reason,
		})
	})
}

// PostAdjustment appends an admin adjustment in available. Positive
// adjustments repay debt and clear payouts_blocked when the balance
// recovers.
func (l *Ledger) PostAdjustment(actor *models.Member, memberID int64, amount decimal.Decimal, ref string) error {
	if !actor.IsAdmin() {
		return ErrNotAuthorized
	}
	if amount.IsZero() {
		return ErrValidation
	}

	return l.DB.Transaction(func(tx *gorm.DB) error {
		var member models.Member
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&member, "id = ?", memberID).Error; err != nil {
			return lookupErr(err)
		}

		entry := &models.CommissionEntry{
			MemberID:    memberID,
			ExternalRef: ref,
			Kind:        types.KindAdjustment,
			Amount:      amount.RoundBank(moneyScale),
			CurrencyID:  config.Vars.BookingCurrency,
			State:       types.EntryAvailable,
		}

		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(entry).Error; err != nil {
			return ErrUnavailable
		}

		available, err := availableOf(tx, memberID)
		if err != nil {
			return err
		}

		return tx.Model(&member).
			Update("payouts_blocked", available.IsNegative()).Error
	})
}

func availableOf(tx *gorm.DB, memberID int64) (decimal.Decimal, error) {
	var row struct {
		Total decimal.Decimal
	}

	err := tx.Model(&models.CommissionEntry{}).
		Select("COALESCE(SUM(amount), 0) as total").
		Where("member_id = ? AND state = ?", memberID, types.EntryAvailable).
		Scan(&row).Error
	if err != nil {
		return decimal.Zero, ErrUnavailable
	}

	return row.Total, nil
}

// BalanceOf derives the three-bucket projection for one principal.
func (l *Ledger) BalanceOf(memberID int64) (*models.Balance, error) {
	var rows []struct {
		State types.EntryState
		Total decimal.Decimal
	}

	err := l.DB.Model(&models.CommissionEntry{}).
		Select("state", "COALESCE(SUM(amount), 0) as total").
		Where("member_id = ? AND state <> ?", memberID, types.EntryVoid).
		Group("state").
		Scan(&rows).Error
	if err != nil {
		return nil, ErrUnavailable
	}

	balance := &models.Balance{
		Pending:   decimal.Zero,
		Available: decimal.Zero,
		Withdrawn: decimal.Zero,
	}

	for _, row := range rows {
		switch row.State {
		case types.EntryPending:
			balance.Pending = row.Total
		case types.EntryAvailable:
			balance.Available = row.Total
		case types.EntryWithdrawn:
			balance.Withdrawn = row.Total
		}
	}

	return balance, nil
}

// VerifyMember checks the projection invariants for one principal; used by
// the reconciliation tooling.
func (l *Ledger) VerifyMember(memberID int64) error {
	balance, err := l.BalanceOf(memberID)
	if err != nil {
		return err
	}

	if balance.Pending.IsNegative() {
		return ErrInvariant.WithMeta("member_id", memberID).WithMeta("bucket", "pending")
	}
	if balance.Available.Add(balance.Withdrawn).IsNegative() {
		return ErrInvariant.WithMeta("member_id", memberID).WithMeta("bucket", "available+withdrawn")
	}

	return nil
}

func appendOutbox(tx *gorm.DB, name types.EventName, payload map[string]interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return ErrUnavailable
	}

	event := &models.OutboxEvent{
		Name:    name,
		Payload: string(body),
	}

	if err := tx.Create(event).Error; err != nil {
		return ErrUnavailable
	}

	return nil
}
