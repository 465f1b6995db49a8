package admin_controllers

import (
	"database/sql"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/propfund/propex/config"
	"github.com/propfund/propex/controllers/helpers"
	"github.com/propfund/propex/engine"
	"github.com/propfund/propex/models"
	"github.com/propfund/propex/types"
)

type UpsertRateRulePayload struct {
	Scope       string `json:"scope" validate:"required"`
	Role        string `json:"role"`
	MemberID    int64  `json:"member_id"`
	ProductKind string `json:"product_kind"`
	Level       int    `json:"level"`
	RateBps     int64  `json:"rate_bps" validate:"required"`
	EffectiveAt string `json:"effective_at"`
}

// UpsertRateRule appends a new rule row. Rules are never edited in place:
// recency resolves which one applies, and old purchases keep resolving
// against their own effective window.
func UpsertRateRule(c *fiber.Ctx) error {
	errs := new(helpers.Errors)
	payload := new(UpsertRateRulePayload)

	if err := c.BodyParser(payload); err != nil {
		return c.Status(400).JSON(helpers.Errors{
			Errors: []string{"server.method.invalid_body"},
		})
	}

	helpers.Vaildate(payload, errs)
	if errs.Size() > 0 {
		return c.Status(422).JSON(errs)
	}

	if payload.RateBps < 0 {
		return helpers.RenderEngineError(c, engine.ErrValidation)
	}
	if payload.Level < 0 || payload.Level > config.Vars.MaxCommissionLevels {
		return helpers.RenderEngineError(c, engine.ErrValidation)
	}

	rule := &models.RateRule{
		Scope:       payload.Scope,
		Level:       payload.Level,
		RateBps:     payload.RateBps,
		EffectiveAt: time.Now().UTC(),
	}

	switch payload.Scope {
	case types.ScopeRole:
		if len(payload.Role) == 0 {
			return helpers.RenderEngineError(c, engine.ErrValidation)
		}
		rule.Role = sql.NullString{String: payload.Role, Valid: true}
	case types.ScopePrincipalOverride:
		if payload.MemberID == 0 {
			return helpers.RenderEngineError(c, engine.ErrValidation)
		}
		rule.MemberID = sql.NullInt64{Int64: payload.MemberID, Valid: true}
	case types.ScopeDefault:
	default:
		return helpers.RenderEngineError(c, engine.ErrValidation)
	}

	if len(payload.ProductKind) > 0 {
		rule.ProductKind = sql.NullString{String: payload.ProductKind, Valid: true}
	}
	if len(payload.EffectiveAt) > 0 {
		at, err := time.Parse(time.RFC3339, payload.EffectiveAt)
		if err != nil {
			return helpers.RenderEngineError(c, engine.ErrValidation)
		}
		rule.EffectiveAt = at
	}

	if result := config.DataBase.Create(rule); result.Error != nil {
		return helpers.RenderEngineError(c, engine.ErrUnavailable)
	}

	engine.NewResolver().InvalidateRules()

	return c.Status(201).JSON(rule)
}

type SetParentPayload struct {
	ParentID int64 `json:"parent_id" validate:"required"`
}

func SetParent(c *fiber.Ctx) error {
	CurrentUser := c.Locals("CurrentUser").(*models.Member)

	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return helpers.RenderEngineError(c, engine.ErrValidation)
	}

	errs := new(helpers.Errors)
	payload := new(SetParentPayload)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(400).JSON(helpers.Errors{
			Errors: []string{"server.method.invalid_body"},
		})
	}

	helpers.Vaildate(payload, errs)
	if errs.Size() > 0 {
		return c.Status(422).JSON(errs)
	}

	var member, parent models.Member
	if result := config.DataBase.First(&member, "id = ?", id); result.Error != nil {
		return helpers.RenderEngineError(c, engine.ErrNotFound)
	}
	if result := config.DataBase.First(&parent, "id = ?", payload.ParentID); result.Error != nil {
		return helpers.RenderEngineError(c, engine.ErrNotFound)
	}

	if err := engine.NewHierarchy().SetParent(CurrentUser, &member, &parent); err != nil {
		return helpers.RenderEngineError(c, err)
	}

	return c.Status(200).JSON(member)
}

type AdjustmentPayload struct {
	MemberID int64           `json:"member_id" validate:"required"`
	Amount   decimal.Decimal `json:"amount" validate:"required"`
	Ref      string          `json:"ref" validate:"required"`
}

// CreateAdjustment posts a manual ledger adjustment, typically to settle a
// negative balance left by a withdrawn-then-refunded commission.
func CreateAdjustment(c *fiber.Ctx) error {
	CurrentUser := c.Locals("CurrentUser").(*models.Member)

	errs := new(helpers.Errors)
	payload := new(AdjustmentPayload)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(400).JSON(helpers.Errors{
			Errors: []string{"server.method.invalid_body"},
		})
	}

	helpers.Vaildate(payload, errs)
	if errs.Size() > 0 {
		return c.Status(422).JSON(errs)
	}

	ledger := engine.NewLedger()
	if err := ledger.PostAdjustment(CurrentUser, payload.MemberID, payload.Amount, "admin:"+payload.Ref); err != nil {
		return helpers.RenderEngineError(c, err)
	}

	balance, err := ledger.BalanceOf(payload.MemberID)
	if err != nil {
		return helpers.RenderEngineError(c, err)
	}

	return c.Status(201).JSON(balance)
}

// GetPayouts lists payout requests platform-wide, filterable by status.
func GetPayouts(c *fiber.Ctx) error {
	status := c.Query("status")

	scope := config.DataBase.Order("id desc").Limit(200)
	if len(status) > 0 {
		scope = scope.Where("status = ?", status)
	}

	var requests []*models.PayoutRequest
	scope.Find(&requests)

	return c.Status(200).JSON(requests)
}

// DispatchPayout pushes an approved request to the external rail.
func DispatchPayout(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return helpers.RenderEngineError(c, engine.ErrValidation)
	}

	request, err := engine.NewOrchestrator(engine.NewLedger()).Dispatch(id)
	if err != nil {
		return helpers.RenderEngineError(c, err)
	}

	return c.Status(200).JSON(request)
}
