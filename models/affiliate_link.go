package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AffiliateLink struct {
	ID        int64          `json:"id" gorm:"primaryKey"`
	MemberID  int64          `json:"member_id"`
	Code      string         `json:"code" gorm:"uniqueIndex"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// NewLinkCode mints a short opaque code. Collisions are caught by the
// unique index, callers retry on conflict.
func NewLinkCode() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return raw[:10]
}
