package controllers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/propfund/propex/config"
	"github.com/propfund/propex/controllers/entities"
	"github.com/propfund/propex/controllers/helpers"
	"github.com/propfund/propex/controllers/queries"
	"github.com/propfund/propex/engine"
	"github.com/propfund/propex/models"
	"github.com/propfund/propex/types"
)

// CreateAffiliateLink mints a link code for the caller. Traders are not
// eligible; links belong to the affiliate side of the hierarchy.
func CreateAffiliateLink(c *fiber.Ctx) error {
	CurrentUser := c.Locals("CurrentUser").(*models.Member)

	if CurrentUser.Role == types.RoleTrader || !CurrentUser.IsActive {
		return helpers.RenderEngineError(c, engine.ErrNotAuthorized)
	}

	var link *models.AffiliateLink
	for attempt := 0; attempt < 3; attempt++ {
		link = &models.AffiliateLink{
			MemberID: CurrentUser.ID,
			Code:     models.NewLinkCode(),
		}
		if result := config.DataBase.Create(link); result.Error == nil {
			break
		}
		link = nil
	}

	if link == nil {
		return helpers.RenderEngineError(c, engine.ErrUnavailable)
	}

	return c.Status(201).JSON(entities.AffiliateLinkEntity{
		Code:      link.Code,
		CreatedAt: link.CreatedAt,
	})
}

// GetAffiliateStats returns the caller's balance projection, referral count
// and the last 30 days of credited earnings.
func GetAffiliateStats(c *fiber.Ctx) error {
	CurrentUser := c.Locals("CurrentUser").(*models.Member)

	ledger := engine.NewLedger()
	balance, err := ledger.BalanceOf(CurrentUser.ID)
	if err != nil {
		return helpers.RenderEngineError(c, err)
	}

	var referralCount int64
	config.DataBase.Model(&models.Referral{}).
		Where("referrer_id = ?", CurrentUser.ID).
		Count(&referralCount)

	var row struct {
		Total decimal.Decimal
	}
	config.DataBase.Model(&models.CommissionEntry{}).
		Select("COALESCE(SUM(amount), 0) as total").
		Where("member_id = ? AND kind = ? AND state <> ? AND created_at >= ?",
			CurrentUser.ID, types.KindCredit, types.EntryVoid, time.Now().AddDate(0, 0, -30)).
		Scan(&row)

	return c.Status(200).JSON(entities.AffiliateStatsEntity{
		Pending:       balance.Pending,
		Available:     balance.Available,
		Withdrawn:     balance.Withdrawn,
		ReferralCount: referralCount,
		Earned30d:     row.Total,
		Currency:      config.Vars.BookingCurrency,
	})
}

// GetCommissions lists the caller's ledger entries, newest first.
func GetCommissions(c *fiber.Ctx) error {
	CurrentUser := c.Locals("CurrentUser").(*models.Member)

	errs := new(helpers.Errors)
	params := new(queries.CommissionQueries)

	if err := c.QueryParser(params); err != nil {
		return c.Status(500).JSON(helpers.Errors{
			Errors: []string{"server.method.invalid_query"},
		})
	}

	helpers.Vaildate(params, errs)
	if errs.Size() > 0 {
		return c.Status(422).JSON(errs)
	}

	if params.Limit == 0 {
		params.Limit = 100
	}
	if params.Page == 0 {
		params.Page = 1
	}

	var commissions []*models.CommissionEntry

	config.DataBase.Order("id desc").
		Offset(params.Page*params.Limit - params.Limit).
		Limit(params.Limit).
		Find(&commissions, "member_id = ?", CurrentUser.ID)

	commission_entities := make([]*entities.CommissionEntryEntity, 0)
	for _, commission := range commissions {
		entity := &entities.CommissionEntryEntity{
			ID:          commission.ID,
			ExternalRef: commission.ExternalRef,
			Level:       commission.Level,
			Kind:        commission.Kind,
			RateBps:     commission.RateBps,
			Amount:      commission.Amount,
			CurrencyID:  commission.CurrencyID,
			State:       commission.State,
			CreatedAt:   commission.CreatedAt,
		}
		if commission.ClearedAt.Valid {
			cleared := commission.ClearedAt.Time
			entity.ClearedAt = &cleared
		}
		commission_entities = append(commission_entities, entity)
	}

	c.Response().Header.Add("page", strconv.FormatInt(int64(params.Page), 10))
	c.Response().Header.Add("per-page", strconv.FormatInt(int64(len(commissions)), 10))

	return c.Status(200).JSON(commission_entities)
}
