package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"

	"github.com/propfund/propex/types"
)

type PaymentMethod struct {
	ID         int64            `json:"id" gorm:"primaryKey"`
	MemberID   int64            `json:"member_id" gorm:"index"`
	MethodKind types.MethodKind `json:"method_kind"`
	Label      string           `json:"label"`
	Details    string           `json:"details" gorm:"type:jsonb"`
	IsActive   bool             `json:"is_active" gorm:"default:true"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
	DeletedAt  gorm.DeletedAt   `json:"-" gorm:"index"`
}

// Snapshot freezes the method as it exists now. The snapshot is stored on
// the payout request verbatim and never mutated afterwards.
func (m *PaymentMethod) Snapshot() string {
	snap, _ := json.Marshal(map[string]interface{}{
		"method_id":   m.ID,
		"method_kind": m.MethodKind,
		"label":       m.Label,
		"details":     json.RawMessage(m.Details),
		"taken_at":    time.Now().UTC(),
	})

	return string(snap)
}
