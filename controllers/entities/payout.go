package entities

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type PayoutRequestEntity struct {
	ID              int64           `json:"id"`
	Amount          decimal.Decimal `json:"amount"`
	Fee             decimal.Decimal `json:"fee"`
	NetAmount       decimal.Decimal `json:"net_amount"`
	CurrencyID      string          `json:"currency_id"`
	Status          string          `json:"status"`
	MethodSnapshot  json.RawMessage `json:"method_snapshot"`
	ExternalTxnID   *string         `json:"external_txn_id,omitempty"`
	RejectionReason *string         `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	ApprovedAt      *time.Time      `json:"approved_at,omitempty"`
}
