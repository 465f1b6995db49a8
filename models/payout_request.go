package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/volatiletech/null"

	"github.com/propfund/propex/types"
)

type PayoutRequest struct {
	ID              int64              `json:"id" gorm:"primaryKey"`
	MemberID        int64              `json:"member_id" gorm:"index"`
	Amount          decimal.Decimal    `json:"amount"`
	Fee             decimal.Decimal    `json:"fee"`
	NetAmount       decimal.Decimal    `json:"net_amount"`
	CurrencyID      string             `json:"currency_id"`
	MethodSnapshot  string             `json:"method_snapshot" gorm:"type:jsonb"`
	Status          types.PayoutStatus `json:"status" gorm:"default:pending;index"`
	ApproverID      null.Int64         `json:"approver_id"`
	ApprovedAt      null.Time          `json:"approved_at"`
	DispatchedAt    null.Time          `json:"dispatched_at"`
	ExternalTxnID   null.String        `json:"external_txn_id"`
	RejectionReason null.String        `json:"rejection_reason"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

func (r *PayoutRequest) IsTerminal() bool {
	switch r.Status {
	case types.PayoutPaid, types.PayoutRejected, types.PayoutCancelled:
		return true
	}
	return false
}
