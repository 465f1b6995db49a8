package models

import (
	"time"
)

// IdempotencyKey stores one prior response per client key for 24 hours.
// Replays with the same request hash get the stored response back;
// replays with a different hash are rejected.
type IdempotencyKey struct {
	ID           int64     `json:"id" gorm:"primaryKey"`
	Key          string    `json:"key" gorm:"uniqueIndex"`
	RequestHash  string    `json:"request_hash"`
	ResponseCode int       `json:"response_code"`
	ResponseBody string    `json:"response_body"`
	ExpiresAt    time.Time `json:"expires_at" gorm:"index"`
	CreatedAt    time.Time `json:"created_at"`
}
