package models

import (
	"time"

	"github.com/propfund/propex/config"
)

// Referral binds a buyer to the member whose link attributed them.
// The binding is written once at registration and never updated.
type Referral struct {
	ID         int64     `json:"id" gorm:"primaryKey"`
	MemberID   int64     `json:"member_id" gorm:"uniqueIndex"`
	ReferrerID int64     `json:"referrer_id"`
	LinkCode   string    `json:"link_code"`
	CreatedAt  time.Time `json:"created_at"`
}

func ReferralOf(buyerID int64) *Referral {
	var referral *Referral

	if result := config.DataBase.First(&referral, "member_id = ?", buyerID); result.Error != nil {
		return nil
	}

	return referral
}
