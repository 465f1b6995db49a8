package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

type AffiliateLinkEntity struct {
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"created_at"`
}

type AffiliateStatsEntity struct {
	Pending       decimal.Decimal `json:"pending"`
	Available     decimal.Decimal `json:"available"`
	Withdrawn     decimal.Decimal `json:"withdrawn"`
	ReferralCount int64           `json:"referral_count"`
	Earned30d     decimal.Decimal `json:"earned_30d"`
	Currency      string          `json:"currency"`
}

type CommissionEntryEntity struct {
	ID          int64           `json:"id"`
	ExternalRef string          `json:"external_ref"`
	Level       int             `json:"level"`
	Kind        string          `json:"kind"`
	RateBps     int64           `json:"rate_bps"`
	Amount      decimal.Decimal `json:"amount"`
	CurrencyID  string          `json:"currency_id"`
	State       string          `json:"state"`
	CreatedAt   time.Time       `json:"created_at"`
	ClearedAt   *time.Time      `json:"cleared_at,omitempty"`
}
