package models

import (
	"database/sql"
	"time"

	"github.com/propfund/propex/types"
)

// RateRule is one row of the commission rate table. Level 0 applies to any
// level. Resolution precedence is principal_override > role > default;
// within a tier a level match beats a generic rule, then a product-kind
// match, recency breaks the remaining ties.
type RateRule struct {
	ID          int64           `json:"id" gorm:"primaryKey"`
	Scope       types.RateScope `json:"scope" gorm:"default:default"`
	Role        sql.NullString  `json:"role"`
	MemberID    sql.NullInt64   `json:"member_id"`
	ProductKind sql.NullString  `json:"product_kind"`
	Level       int             `json:"level" gorm:"default:0"`
	RateBps     int64           `json:"rate_bps"`
	EffectiveAt time.Time       `json:"effective_at"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (r *RateRule) ScopeRank() int {
	switch r.Scope {
	case types.ScopePrincipalOverride:
		return 0
	case types.ScopeRole:
		return 1
	default:
		return 2
	}
}
