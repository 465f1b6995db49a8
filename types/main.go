package types

type Role = string

var (
	RoleSupermaster Role = "supermaster"
	RoleMaster      Role = "master"
	RoleAgent       Role = "agent"
	RoleTrader      Role = "trader"
)

// ValidRole reports whether the role is one of the four hierarchy roles.
func ValidRole(role Role) bool {
	switch role {
	case RoleSupermaster, RoleMaster, RoleAgent, RoleTrader:
		return true
	}
	return false
}

// RoleDepth returns the position of a role in the hierarchy, root first.
// Unknown roles sit below every known one.
func RoleDepth(role Role) int {
	switch role {
	case RoleSupermaster:
		return 0
	case RoleMaster:
		return 1
	case RoleAgent:
		return 2
	case RoleTrader:
		return 3
	default:
		return 4
	}
}

type PurchaseState = string

var (
	PurchasePending    PurchaseState = "pending"
	PurchasePaid       PurchaseState = "paid"
	PurchaseRefunded   PurchaseState = "refunded"
	PurchaseChargeback PurchaseState = "chargeback"
)

type RateScope = string

var (
	ScopeDefault           RateScope = "default"
	ScopeRole              RateScope = "role"
	ScopePrincipalOverride RateScope = "principal_override"
)

type EntryKind = string

var (
	KindCredit     EntryKind = "credit"
	KindReversal   EntryKind = "reversal"
	KindAdjustment EntryKind = "adjustment"
)

type EntryState = string

var (
	EntryPending   EntryState = "pending"
	EntryAvailable EntryState = "available"
	EntryWithdrawn EntryState = "withdrawn"
	EntryVoid      EntryState = "void"
)

type PayoutStatus = string

var (
	PayoutPending    PayoutStatus = "pending"
	PayoutApproved   PayoutStatus = "approved"
	PayoutProcessing PayoutStatus = "processing"
	PayoutPaid       PayoutStatus = "paid"
	PayoutRejected   PayoutStatus = "rejected"
	PayoutCancelled  PayoutStatus = "cancelled"
)

type MethodKind = string

var (
	MethodBank   MethodKind = "bank"
	MethodPaypal MethodKind = "paypal"
	MethodCrypto MethodKind = "crypto"
	MethodWise   MethodKind = "wise"
)

type EventName = string

var (
	EventPurchaseAttributed EventName = "purchase.attributed"
	EventPurchaseUnwound    EventName = "purchase.unwound"
	EventPayoutPaid         EventName = "payout.paid"
)
