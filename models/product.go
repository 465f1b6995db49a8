package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID          int64           `json:"id" gorm:"primaryKey"`
	Title       string          `json:"title"`
	Price       decimal.Decimal `json:"price"`
	CurrencyID  string          `json:"currency_id"`
	ProductKind string          `json:"product_kind"`
	Visible     bool            `json:"visible" gorm:"default:true"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
