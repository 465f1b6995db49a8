package main

import (
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"github.com/propfund/propex/config"
	"github.com/propfund/propex/engine"
	"github.com/propfund/propex/models"
	"github.com/propfund/propex/types"
)

// Exit codes: 0 success, 1 validation/usage, 2 invariant violation found
// during reconciliation.
func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	if err := config.InitializeConfig(); err != nil {
		fmt.Println(err.Error())
		os.Exit(1)
	}

	switch os.Args[1] {
	case "migrate":
		os.Exit(migrate())
	case "reconcile":
		os.Exit(reconcile())
	case "seed":
		os.Exit(seed())
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("usage: propex-admin <migrate|reconcile|seed>")
}

func migrate() int {
	err := config.DataBase.AutoMigrate(
		&models.Member{},
		&models.AffiliateLink{},
		&models.Referral{},
		&models.Product{},
		&models.Purchase{},
		&models.RateRule{},
		&models.CommissionEntry{},
		&models.PaymentMethod{},
		&models.PayoutRequest{},
		&models.OutboxEvent{},
		&models.IdempotencyKey{},
	)
	if err != nil {
		fmt.Println(err.Error())
		return 1
	}

	fmt.Println("schema migrated")
	return 0
}

// reconcile verifies the projection invariants for every principal with
// ledger activity and the reservation exactness of every paid payout.
func reconcile() int {
	ledger := engine.NewLedger()

	var memberIDs []int64
	config.DataBase.Model(&models.CommissionEntry{}).
		Distinct().
		Pluck("member_id", &memberIDs)

	violations := 0
	for _, memberID := range memberIDs {
		if err := ledger.VerifyMember(memberID); err != nil {
			fmt.Printf("member %d: %v\n", memberID, err)
			violations++
		}
	}

	var paid []*models.PayoutRequest
	config.DataBase.Where("status = ?", types.PayoutPaid).Find(&paid)

	for _, request := range paid {
		var row struct {
			Total decimal.Decimal
		}
		config.DataBase.Model(&models.CommissionEntry{}).
			Select("COALESCE(SUM(amount), 0) as total").
			Where("payout_id = ? AND state = ?", request.ID, types.EntryWithdrawn).
			Scan(&row)

		if !row.Total.Equal(request.Amount.Add(request.Fee)) {
			fmt.Printf("payout %d: reserved sum %s != amount+fee %s\n",
				request.ID, row.Total, request.Amount.Add(request.Fee))
			violations++
		}
	}

	if violations > 0 {
		fmt.Printf("%d invariant violations\n", violations)
		return 2
	}

	fmt.Println("ledger clean")
	return 0
}

// seed bootstraps a root supermaster and the default rate table.
func seed() int {
	hierarchy := engine.NewHierarchy()

	root, err := hierarchy.CreateRoot("root@propfund.local", "ROOT000001")
	if err != nil {
		fmt.Println(err.Error())
		return 1
	}

	defaults := []int64{1000, 500, 200}
	for level, bps := range defaults {
		rule := &models.RateRule{
			Scope:       types.ScopeDefault,
			Level:       level + 1,
			RateBps:     bps,
			EffectiveAt: time.Now().UTC(),
		}
		if result := config.DataBase.Create(rule); result.Error != nil {
			fmt.Println(result.Error.Error())
			return 1
		}
	}

	fmt.Printf("seeded root member %d and %d default rules\n", root.ID, len(defaults))
	return 0
}
