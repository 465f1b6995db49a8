package config

import (
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// EngineVars holds the commission/payout settings read once at startup.
// Tests construct their own instance instead of touching the environment.
type EngineVars struct {
	ClearingWindow         time.Duration
	MaxCommissionLevels    int
	RateCeilingBps         int64
	MinPayoutAmount        decimal.Decimal
	PayoutApprovalRequired bool
	BookingCurrency        string
	MaxDepth               int
	MaxRoots               int
	DispatchTimeout        time.Duration
	RequestTimeout         time.Duration
}

var Vars EngineVars

func LoadEngineVars() {
	Vars = EngineVars{
		ClearingWindow:         time.Duration(envInt("CLEARING_WINDOW_DAYS", 14)) * 24 * time.Hour,
		MaxCommissionLevels:    envInt("MAX_COMMISSION_LEVELS", 3),
		RateCeilingBps:         int64(envInt("COMMISSION_RATE_CEILING_BPS", 5000)),
		MinPayoutAmount:        envDecimal("MIN_PAYOUT_AMOUNT", "50"),
		PayoutApprovalRequired: envBool("PAYOUT_APPROVAL_REQUIRED", true),
		BookingCurrency:        envString("BOOKING_CURRENCY", "usd"),
		MaxDepth:               envInt("MAX_HIERARCHY_DEPTH", 8),
		MaxRoots:               envInt("MAX_ROOT_SUPERMASTERS", 3),
		DispatchTimeout:        time.Duration(envInt("PAYOUT_DISPATCH_TIMEOUT", 30)) * time.Second,
		RequestTimeout:         time.Duration(envInt("ENGINE_REQUEST_TIMEOUT", 5)) * time.Second,
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); len(v) > 0 {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func envBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func envDecimal(key, fallback string) decimal.Decimal {
	v, err := decimal.NewFromString(os.Getenv(key))
	if err != nil {
		v, _ = decimal.NewFromString(fallback)
	}
	return v
}
