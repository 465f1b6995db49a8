package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/volatiletech/null"

	"github.com/propfund/propex/types"
)

type Purchase struct {
	ID          int64               `json:"id" gorm:"primaryKey"`
	BuyerID     int64               `json:"buyer_id"`
	ProductID   int64               `json:"product_id"`
	GrossAmount decimal.Decimal     `json:"gross_amount"`
	CurrencyID  string              `json:"currency_id"`
	State       types.PurchaseState `json:"state" gorm:"default:pending"`
	ExternalRef string              `json:"external_ref" gorm:"uniqueIndex"`
	PaidAt      null.Time           `json:"paid_at"`
	UnwoundAt   null.Time           `json:"unwound_at"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

func (p *Purchase) IsPaid() bool {
	return p.State == types.PurchasePaid
}

func (p *Purchase) IsUnwound() bool {
	return p.State == types.PurchaseRefunded || p.State == types.PurchaseChargeback
}
