package engine

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/propfund/propex/models"
	"github.com/propfund/propex/types"
)

// ClearDue moves pending credits to available once the clearing window has
// elapsed and the purchase is still paid. Safe to re-run: an already
// cleared entry no longer matches the predicate.
func (l *Ledger) ClearDue(now time.Time, window time.Duration) (int, error) {
	cutoff := now.Add(-window)

	var memberIDs []int64
	err := l.DB.Model(&models.CommissionEntry{}).
		Distinct().
		Joins("JOIN purchases ON purchases.id = commission_entries.purchase_id").
		Where("commission_entries.state = ? AND purchases.state = ? AND purchases.paid_at <= ?",
			types.EntryPending, types.PurchasePaid, cutoff).
		Pluck("commission_entries.member_id", &memberIDs).Error
	if err != nil {
		return 0, ErrUnavailable
	}

	cleared := 0
	for _, memberID := range memberIDs {
		n, err := l.clearMember(memberID, now, cutoff)
		if err != nil {
			return cleared, err
		}
		cleared += n
	}

	return cleared, nil
}

// clearMember clears one principal under its row lock, then re-evaluates
// the payouts_blocked flag in case fresh credits repaid a debt.
func (l *Ledger) clearMember(memberID int64, now time.Time, cutoff time.Time) (int, error) {
	cleared := 0

	err := l.DB.Transaction(func(tx *gorm.DB) error {
		var member models.Member
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&member, "id = ?", memberID).Error; err != nil {
			return lookupErr(err)
		}

		var entries []*models.CommissionEntry
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Joins("JOIN purchases ON purchases.id = commission_entries.purchase_id").
			Where("commission_entries.member_id = ? AND commission_entries.state = ? AND purchases.state = ? AND purchases.paid_at <= ?",
				memberID, types.EntryPending, types.PurchasePaid, cutoff).
			Order("commission_entries.id asc").
			Find(&entries).Error; err != nil {
			return ErrUnavailable
		}

		for _, entry := range entries {
			if err := tx.Model(entry).Updates(map[string]interface{}{
				"state":      types.EntryAvailable,
				"cleared_at": now,
			}).Error; err != nil {
				return ErrUnavailable
			}
			cleared++
		}

		if member.PayoutsBlocked {
			available, err := availableOf(tx, memberID)
			if err != nil {
				return err
			}
			if !available.IsNegative() {
				if err := tx.Model(&member).
					Update("payouts_blocked", false).Error; err != nil {
					return ErrUnavailable
				}
			}
		}

		return nil
	})

	return cleared, err
}
