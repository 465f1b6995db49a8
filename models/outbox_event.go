package models

import (
	"time"

	"github.com/volatiletech/null"

	"github.com/propfund/propex/types"
)

// OutboxEvent is written inside the same transaction as the ledger rows it
// describes. A background dispatcher publishes committed rows exactly once.
type OutboxEvent struct {
	ID           int64           `json:"id" gorm:"primaryKey"`
	Name         types.EventName `json:"name"`
	Payload      string          `json:"payload" gorm:"type:jsonb"`
	CreatedAt    time.Time       `json:"created_at"`
	DispatchedAt null.Time       `json:"dispatched_at" gorm:"index"`
}
