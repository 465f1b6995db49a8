package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/volatiletech/null"

	"github.com/propfund/propex/types"
)

// CommissionEntry is one append-only ledger row. Amounts are signed,
// reversals negative. The composite unique index is the idempotency key
// for posting.
type CommissionEntry struct {
	ID          int64            `json:"id" gorm:"primaryKey"`
	MemberID    int64            `json:"member_id" gorm:"index;uniqueIndex:idx_entry_idempotency"`
	PurchaseID  int64            `json:"purchase_id" gorm:"index"`
	ExternalRef string           `json:"external_ref" gorm:"uniqueIndex:idx_entry_idempotency"`
	Level       int              `json:"level" gorm:"uniqueIndex:idx_entry_idempotency"`
	Kind        types.EntryKind  `json:"kind" gorm:"uniqueIndex:idx_entry_idempotency"`
	RateBps     int64            `json:"rate_bps"`
	GrossBasis  decimal.Decimal  `json:"gross_basis"`
	Amount      decimal.Decimal  `json:"amount"`
	CurrencyID  string           `json:"currency_id"`
	State       types.EntryState `json:"state" gorm:"default:pending;index"`
	PayoutID    null.Int64       `json:"payout_id"`
	CreatedAt   time.Time        `json:"created_at"`
	ClearedAt   null.Time        `json:"cleared_at"`
}

func (e *CommissionEntry) IsReserved() bool {
	return e.PayoutID.Valid
}

// Balance is the per-member projection over non-void entries.
type Balance struct {
	Pending   decimal.Decimal `json:"pending"`
	Available decimal.Decimal `json:"available"`
	Withdrawn decimal.Decimal `json:"withdrawn"`
}
