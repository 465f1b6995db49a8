package controllers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/propfund/propex/config"
	"github.com/propfund/propex/controllers/helpers"
	"github.com/propfund/propex/engine"
	"github.com/propfund/propex/models"
	"github.com/propfund/propex/types"
)

type UnwindPurchasePayload struct {
	Kind   string `json:"kind" validate:"required"`
	Reason string `json:"reason"`
}

// ConfirmPurchase is the internal hook from the payments subsystem: mark
// the purchase paid and attribute it. Replays are idempotent-OK.
func ConfirmPurchase(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return helpers.RenderEngineError(c, engine.ErrValidation)
	}

	var purchase models.Purchase
	if result := config.DataBase.First(&purchase, "id = ?", id); result.Error != nil {
		return helpers.RenderEngineError(c, engine.ErrNotFound)
	}

	if err := engine.NewGateway().OnPurchasePaid(&purchase); err != nil {
		return helpers.RenderEngineError(c, err)
	}

	return c.Status(200).JSON(fiber.Map{
		"external_ref": purchase.ExternalRef,
		"state":        purchase.State,
	})
}

// UnwindPurchase handles refunds and chargebacks.
func UnwindPurchase(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return helpers.RenderEngineError(c, engine.ErrValidation)
	}

	errs := new(helpers.Errors)
	payload := new(UnwindPurchasePayload)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(400).JSON(helpers.Errors{
			Errors: []string{"server.method.invalid_body"},
		})
	}

	helpers.Vaildate(payload, errs)
	if errs.Size() > 0 {
		return c.Status(422).JSON(errs)
	}

	var finalState types.PurchaseState
	switch payload.Kind {
	case types.PurchaseRefunded, types.PurchaseChargeback:
		finalState = payload.Kind
	default:
		return helpers.RenderEngineError(c, engine.ErrValidation)
	}

	var purchase models.Purchase
	if result := config.DataBase.First(&purchase, "id = ?", id); result.Error != nil {
		return helpers.RenderEngineError(c, engine.ErrNotFound)
	}

	if err := engine.NewGateway().OnPurchaseUnwound(&purchase, finalState, payload.Reason); err != nil {
		return helpers.RenderEngineError(c, err)
	}

	return c.Status(200).JSON(fiber.Map{
		"external_ref": purchase.ExternalRef,
		"state":        purchase.State,
	})
}
