package engine

import (
	"context"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/volatiletech/null"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/propfund/propex/config"
	"github.com/propfund/propex/models"
	"github.com/propfund/propex/types"
)

// Orchestrator drives a payout request from submission through external
// confirmation. Every transition runs under the principal's row lock.
type Orchestrator struct {
	DB               *gorm.DB
	Ledger           *Ledger
	MinPayout        decimal.Decimal
	ApprovalRequired bool
}

func NewOrchestrator(ledger *Ledger) *Orchestrator {
	return &Orchestrator{
		DB:               config.DataBase,
		Ledger:           ledger,
		MinPayout:        config.Vars.MinPayoutAmount,
		ApprovalRequired: config.Vars.PayoutApprovalRequired,
	}
}

// bounded caps one orchestrator transaction; a deadline hit rolls back and
// surfaces as engine.unavailable through the gorm error path.
func (o *Orchestrator) bounded(timeout time.Duration) (*gorm.DB, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	return o.DB.WithContext(ctx), cancel
}

// ComputeFee applies max(flat, rate*amount) clamped to the amount so the
// net can never go negative.
func ComputeFee(params config.FeeParams, amount decimal.Decimal) decimal.Decimal {
	fee := decimal.Max(params.Flat, params.Rate.Mul(amount)).RoundBank(moneyScale)

	if fee.GreaterThan(amount) {
		return amount
	}

	return fee
}

// SelectForReservation picks available entries FIFO by cleared_at until
// their sum covers the target, returning the selected rows and the change
// (overshoot of the last entry). Entries already reserved are skipped by
// the caller's query.
func SelectForReservation(entries []*models.CommissionEntry, target decimal.Decimal) ([]*models.CommissionEntry, decimal.Decimal, error) {
	selected := make([]*models.CommissionEntry, 0, len(entries))
	covered := decimal.Zero

	for _, entry := range entries {
		if covered.GreaterThanOrEqual(target) {
			break
		}
		selected = append(selected, entry)
		covered = covered.Add(entry.Amount)
	}

	if covered.LessThan(target) {
		return nil, decimal.Zero, ErrInsufficientFunds
	}

	return selected, covered.Sub(target), nil
}

// Submit validates the request, freezes the method snapshot, reserves
// entries and creates the pending row. With approval disabled the request
// lands directly in approved.
func (o *Orchestrator) Submit(member *models.Member, amount decimal.Decimal, methodID int64) (*models.PayoutRequest, error) {
	if amount.LessThan(o.MinPayout) {
		return nil, ErrUnderMinimum.WithMeta("minimum", o.MinPayout.StringFixed(moneyScale))
	}

	var request *models.PayoutRequest

	db, cancel := o.bounded(config.Vars.RequestTimeout)
	defer cancel()

	err := db.Transaction(func(tx *gorm.DB) error {
		var locked models.Member
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&locked, "id = ?", member.ID).Error; err != nil {
			return lookupErr(err)
		}

		if locked.PayoutsBlocked {
			return ErrPayoutsBlocked
		}

		var method models.PaymentMethod
		if err := tx.First(&method, "id = ? AND member_id = ? AND is_active = ?",
			methodID, member.ID, true).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return ErrMethodNotFound
			}
			return ErrUnavailable
		}

		fee := ComputeFee(config.Fees.For(method.MethodKind), amount)
		target := amount.Add(fee)

		available, err := availableOf(tx, member.ID)
		if err != nil {
			return err
		}
		if available.LessThan(target) {
			return ErrInsufficientFunds.WithMeta("available", available.StringFixed(moneyScale))
		}

		entries, err := unreservedAvailable(tx, member.ID)
		if err != nil {
			return err
		}

		selected, _, err := SelectForReservation(entries, target)
		if err != nil {
			if IsCode(err, ErrInsufficientFunds.Code) {
				return ErrInsufficientFunds.WithMeta("available", available.StringFixed(moneyScale))
			}
			return err
		}

		request = &models.PayoutRequest{
			MemberID:       member.ID,
			Amount:         amount,
			Fee:            fee,
			NetAmount:      amount.Sub(fee),
			CurrencyID:     config.Vars.BookingCurrency,
			MethodSnapshot: method.Snapshot(),
			Status:         types.PayoutPending,
		}
		if !o.ApprovalRequired {
			request.Status = types.PayoutApproved
			request.ApprovedAt = null.TimeFrom(time.Now().UTC())
		}

		if err := tx.Create(request).Error; err != nil {
			return ErrUnavailable
		}

		for _, entry := range selected {
			if err := tx.Model(entry).
				Update("payout_id", request.ID).Error; err != nil {
				return ErrUnavailable
			}
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return request, nil
}

// unreservedAvailable loads credit-bearing available entries not yet bound
// to a payout, oldest clearing first. Only positive rows are reservable;
// negative adjustments stay in the balance but cannot back a payout.
func unreservedAvailable(tx *gorm.DB, memberID int64) ([]*models.CommissionEntry, error) {
	var entries []*models.CommissionEntry

	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("member_id = ? AND state = ? AND payout_id IS NULL AND amount > 0",
			memberID, types.EntryAvailable).
		Order("cleared_at asc, id asc").
		Find(&entries).Error
	if err != nil {
		return nil, ErrUnavailable
	}

	return entries, nil
}

// CheckTransition is the state machine table as data: allowed (from,
// event) pairs.
var payoutTransitions = map[string]types.PayoutStatus{
	"approve:" + types.PayoutPending:    types.PayoutApproved,
	"reject:" + types.PayoutPending:     types.PayoutRejected,
	"cancel:" + types.PayoutPending:     types.PayoutCancelled,
	"dispatch:" + types.PayoutApproved:  types.PayoutProcessing,
	"confirm:" + types.PayoutProcessing: types.PayoutPaid,
	"fail:" + types.PayoutProcessing:    types.PayoutRejected,
}

func CheckTransition(event string, from types.PayoutStatus) (types.PayoutStatus, error) {
	to, ok := payoutTransitions[event+":"+from]
	if !ok {
		return "", ErrConflict.WithMeta("status", from).WithMeta("event", event)
	}
	return to, nil
}

func (o *Orchestrator) Approve(admin *models.Member, requestID int64) (*models.PayoutRequest, error) {
	if !admin.IsAdmin() {
		return nil, ErrNotAuthorized
	}

	return o.transition(requestID, "approve", config.Vars.RequestTimeout, func(tx *gorm.DB, request *models.PayoutRequest) error {
		request.ApproverID = null.Int64From(admin.ID)
		request.ApprovedAt = null.TimeFrom(time.Now().UTC())
		return nil
	})
}

func (o *Orchestrator) Reject(admin *models.Member, requestID int64, reason string) (*models.PayoutRequest, error) {
	if !admin.IsAdmin() {
		return nil, ErrNotAuthorized
	}

	return o.transition(requestID, "reject", config.Vars.RequestTimeout, func(tx *gorm.DB, request *models.PayoutRequest) error {
		request.RejectionReason = null.StringFrom(reason)
		return releaseReservation(tx, request.ID)
	})
}

func (o *Orchestrator) Cancel(member *models.Member, requestID int64) (*models.PayoutRequest, error) {
	return o.transition(requestID, "cancel", config.Vars.RequestTimeout, func(tx *gorm.DB, request *models.PayoutRequest) error {
		if request.MemberID != member.ID {
			return ErrNotAuthorized
		}
		return releaseReservation(tx, request.ID)
	})
}

// Dispatch hands the request to the external rail: reserved entries become
// withdrawn and an exact-change adjustment pair trues up the overshoot.
// Only entries still available count toward the reserved sum; a reservation
// holding voided rows cannot cover the target and surfaces as an invariant
// violation instead of withdrawing reversed money.
func (o *Orchestrator) Dispatch(requestID int64) (*models.PayoutRequest, error) {
	return o.transition(requestID, "dispatch", config.Vars.DispatchTimeout, func(tx *gorm.DB, request *models.PayoutRequest) error {
		var reserved []*models.CommissionEntry
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("payout_id = ? AND state = ?", request.ID, types.EntryAvailable).
			Order("cleared_at asc, id asc").
			Find(&reserved).Error; err != nil {
			return ErrUnavailable
		}

		covered := decimal.Zero
		for _, entry := range reserved {
			if err := tx.Model(entry).
				Update("state", types.EntryWithdrawn).Error; err != nil {
				return ErrUnavailable
			}
			covered = covered.Add(entry.Amount)
		}

		target := request.Amount.Add(request.Fee)
		if covered.LessThan(target) {
			return ErrInvariant.WithMeta("payout_id", request.ID)
		}

		change := covered.Sub(target)
		if change.IsPositive() {
			pair := []*models.CommissionEntry{
				{
					MemberID:    request.MemberID,
					ExternalRef: payoutRef(request.ID, "change"),
					Kind:        types.KindAdjustment,
					Amount:      change.Neg(),
					CurrencyID:  request.CurrencyID,
					State:       types.EntryWithdrawn,
					PayoutID:    null.Int64From(request.ID),
				},
				{
					MemberID:    request.MemberID,
					ExternalRef: payoutRef(request.ID, "change"),
					Kind:        types.KindCredit,
					Amount:      change,
					CurrencyID:  request.CurrencyID,
					State:       types.EntryAvailable,
					ClearedAt:   null.TimeFrom(time.Now().UTC()),
				},
			}
			for _, entry := range pair {
				if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
					Create(entry).Error; err != nil {
					return ErrUnavailable
				}
			}
		}

		request.DispatchedAt = null.TimeFrom(time.Now().UTC())
		return nil
	})
}

// Confirm marks the request paid. Replaying the same external txn id is a
// no-op success.
func (o *Orchestrator) Confirm(requestID int64, externalTxnID string) (*models.PayoutRequest, error) {
	var out *models.PayoutRequest

	db, cancel := o.bounded(config.Vars.RequestTimeout)
	defer cancel()

	err := db.Transaction(func(tx *gorm.DB) error {
		var request models.PayoutRequest
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&request, "id = ?", requestID).Error; err != nil {
			return lookupErr(err)
		}

		if request.Status == types.PayoutPaid &&
			request.ExternalTxnID.Valid && request.ExternalTxnID.String == externalTxnID {
			out = &request
			return nil
		}

		next, err := CheckTransition("confirm", request.Status)
		if err != nil {
			return err
		}

		updates := map[string]interface{}{
			"status":          next,
			"external_txn_id": externalTxnID,
		}
		if err := tx.Model(&request).Updates(updates).Error; err != nil {
			return ErrUnavailable
		}

		request.Status = next
		request.ExternalTxnID = null.StringFrom(externalTxnID)
		out = &request

		return appendOutbox(tx, types.EventPayoutPaid, map[string]interface{}{
			"payout_id":       request.ID,
			"member_id":       request.MemberID,
			"amount":          request.Amount,
			"external_txn_id": externalTxnID,
		})
	})

	if err != nil {
		return nil, err
	}

	return out, nil
}

// Fail sends a processing request back to rejected and releases its
// reservation: withdrawn reserved entries revert to available.
func (o *Orchestrator) Fail(requestID int64, reason string) (*models.PayoutRequest, error) {
	return o.transition(requestID, "fail", config.Vars.RequestTimeout, func(tx *gorm.DB, request *models.PayoutRequest) error {
		request.RejectionReason = null.StringFrom(reason)
		return releaseReservation(tx, request.ID)
	})
}

func (o *Orchestrator) transition(requestID int64, event string, timeout time.Duration, apply func(tx *gorm.DB, request *models.PayoutRequest) error) (*models.PayoutRequest, error) {
	var out *models.PayoutRequest

	db, cancel := o.bounded(timeout)
	defer cancel()

	err := db.Transaction(func(tx *gorm.DB) error {
		var request models.PayoutRequest
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&request, "id = ?", requestID).Error; err != nil {
			return lookupErr(err)
		}

		next, err := CheckTransition(event, request.Status)
		if err != nil {
			return err
		}

		if err := apply(tx, &request); err != nil {
			return err
		}

		request.Status = next
		if err := tx.Save(&request).Error; err != nil {
			return ErrUnavailable
		}

		out = &request
		return nil
	})

	if err != nil {
		return nil, err
	}

	return out, nil
}

// releaseReservation unbinds entries from the request and restores any
// withdrawn ones to available.
func releaseReservation(tx *gorm.DB, requestID int64) error {
	var reserved []*models.CommissionEntry
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("payout_id = ?", requestID).
		Find(&reserved).Error; err != nil {
		return ErrUnavailable
	}

	for _, entry := range reserved {
		updates := map[string]interface{}{"payout_id": nil}
		if entry.State == types.EntryWithdrawn {
			updates["state"] = types.EntryAvailable
		}
		if err := tx.Model(entry).Updates(updates).Error; err != nil {
			return ErrUnavailable
		}
	}

	return nil
}

func payoutRef(requestID int64, suffix string) string {
	return "payout:" + strconv.FormatInt(requestID, 10) + ":" + suffix
}

// ReconcileStale finds dispatches stuck in processing past the timeout.
// They stay processing; the list feeds the out-of-band reconciliation job
// which confirms or fails each against the rail.
func (o *Orchestrator) ReconcileStale(now time.Time, timeout time.Duration) ([]*models.PayoutRequest, error) {
	var stale []*models.PayoutRequest

	err := o.DB.
		Where("status = ? AND dispatched_at IS NOT NULL AND dispatched_at <= ?",
			types.PayoutProcessing, now.Add(-timeout)).
		Find(&stale).Error
	if err != nil {
		return nil, ErrUnavailable
	}

	return stale, nil
}
