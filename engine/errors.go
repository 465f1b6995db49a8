package engine

import (
	"errors"
	"math/rand"
	"time"
)

// Error carries a stable machine-readable code alongside the human message.
// Controllers map codes onto HTTP statuses; the engine retries only
// transient codes.
type Error struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Meta    map[string]interface{} `json:"meta,omitempty"`
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

func NewError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func (e *Error) WithMeta(key string, value interface{}) *Error {
	meta := make(map[string]interface{}, len(e.Meta)+1)
	for k, v := range e.Meta {
		meta[k] = v
	}
	meta[key] = value

	return &Error{Code: e.Code, Message: e.Message, Meta: meta}
}

var (
	ErrCycleDetected     = NewError("hierarchy.cycle_detected", "parent chain contains a cycle")
	ErrDepthExceeded     = NewError("hierarchy.depth_exceeded", "parent chain exceeds the maximum depth")
	ErrForbiddenCreation = NewError("hierarchy.forbidden_creation", "actor may not create a principal of this role")
	ErrInactiveActor     = NewError("hierarchy.inactive_actor", "actor is not active")
	ErrRootLimit         = NewError("hierarchy.root_limit", "root supermaster limit reached")

	ErrNotFound      = NewError("engine.not_found", "referenced entity does not exist")
	ErrConflict      = NewError("engine.conflict", "state machine guard violated")
	ErrUnavailable   = NewError("engine.unavailable", "temporarily unavailable")
	ErrInvariant     = NewError("engine.invariant_violation", "ledger consistency violated")
	ErrNotAuthorized = NewError("authz.invalid_permission", "actor lacks the required capability")
	ErrValidation    = NewError("engine.invalid_params", "malformed input")

	ErrUnderMinimum      = NewError("payout.under_minimum", "requested amount is below the minimum payout")
	ErrInsufficientFunds = NewError("payout.insufficient_funds", "requested amount exceeds available balance")
	ErrPayoutsBlocked    = NewError("payout.blocked", "payouts are blocked until the negative balance is repaid")
	ErrMethodNotFound    = NewError("payout.method_not_found", "payment method not found or inactive")
)

// CodeOf extracts the engine code from any error, empty when the error did
// not originate here.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

func IsCode(err error, code string) bool {
	return CodeOf(err) == code
}

const retryAttempts = 3

// WithRetry re-runs fn on transient failures with jittered exponential
// backoff, surfacing the last error after the attempt budget is spent.
func WithRetry(fn func() error) error {
	var err error

	backoff := 50 * time.Millisecond
	for i := 0; i < retryAttempts; i++ {
		err = fn()
		if err == nil || !IsCode(err, ErrUnavailable.Code) {
			return err
		}

		time.Sleep(backoff + time.Duration(rand.Int63n(int64(backoff))))
		backoff *= 2
	}

	return err
}
