package engine

import (
	"time"

	"gorm.io/gorm"

	"github.com/propfund/propex/config"
	"github.com/propfund/propex/models"
	"github.com/propfund/propex/types"
)

// Gateway is the single entry point from the payments subsystem. It is
// idempotent on the purchase external_ref in both directions.
type Gateway struct {
	DB        *gorm.DB
	Hierarchy *Hierarchy
	Resolver  *Resolver
	Ledger    *Ledger
}

func NewGateway() *Gateway {
	return &Gateway{
		DB:        config.DataBase,
		Hierarchy: NewHierarchy(),
		Resolver:  NewResolver(),
		Ledger:    NewLedger(),
	}
}

// attributionTime is the paid_at used for rate resolution and persisted on
// the purchase. A replay keeps the stored timestamp so it resolves the same
// rates the first attribution did.
func attributionTime(purchase *models.Purchase, now time.Time) time.Time {
	if purchase.PaidAt.Valid {
		return purchase.PaidAt.Time
	}
	return now
}

// OnPurchasePaid attributes a confirmed purchase to its upstream chain and
// posts the commission entries atomically with the pending -> paid
// transition. A buyer without a referral transitions with no entries.
func (g *Gateway) OnPurchasePaid(purchase *models.Purchase) error {
	paidAt := attributionTime(purchase, time.Now().UTC())

	referral := models.ReferralOf(purchase.BuyerID)
	if referral == nil {
		return g.Ledger.PostAttribution(purchase, nil, nil, paidAt)
	}

	var referrer models.Member
	if err := g.DB.First(&referrer, "id = ?", referral.ReferrerID).Error; err != nil {
		return ErrNotFound
	}

	upstream, err := g.Hierarchy.UpstreamChain(&referrer)
	if err != nil {
		return err
	}

	// level 1 is the referrer itself, ancestors follow nearest-first
	chain := append([]*models.Member{&referrer}, upstream...)
	if len(chain) > g.Resolver.MaxLevels {
		chain = chain[:g.Resolver.MaxLevels]
	}

	var product models.Product
	if err := g.DB.First(&product, "id = ?", purchase.ProductID).Error; err != nil {
		return ErrNotFound
	}

	rates, err := g.Resolver.ChainRates(chain, product.ProductKind, paidAt)
	if err != nil {
		return err
	}

	entries := ComputeEntries(purchase, chain, rates)

	if err := WithRetry(func() error {
		return g.Ledger.PostAttribution(purchase, chain, entries, paidAt)
	}); err != nil {
		return err
	}

	config.Logger.Infof("attributed purchase %s across %d levels", purchase.ExternalRef, len(entries))

	return nil
}

// OnPurchaseUnwound posts the reversals for a refund or chargeback.
func (g *Gateway) OnPurchaseUnwound(purchase *models.Purchase, finalState types.PurchaseState, reason string) error {
	if err := WithRetry(func() error {
		return g.Ledger.Unwind(purchase, finalState, reason)
	}); err != nil {
		return err
	}

	config.Logger.Infof("unwound purchase %s (%s)", purchase.ExternalRef, reason)

	return nil
}
