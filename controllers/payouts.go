package controllers

import (
	"encoding/json"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/propfund/propex/config"
	"github.com/propfund/propex/controllers/entities"
	"github.com/propfund/propex/controllers/helpers"
	"github.com/propfund/propex/controllers/queries"
	"github.com/propfund/propex/engine"
	"github.com/propfund/propex/models"
)

type CreatePayoutPayload struct {
	Amount   decimal.Decimal `json:"amount" validate:"required"`
	MethodID int64           `json:"method_id" validate:"required"`
}

type RejectPayoutPayload struct {
	Reason string `json:"reason" validate:"required"`
}

type ConfirmPayoutPayload struct {
	TxnID string `json:"txn_id" validate:"required"`
}

func orchestrator() *engine.Orchestrator {
	return engine.NewOrchestrator(engine.NewLedger())
}

func payoutEntity(request *models.PayoutRequest) *entities.PayoutRequestEntity {
	entity := &entities.PayoutRequestEntity{
		ID:             request.ID,
		Amount:         request.Amount,
		Fee:            request.Fee,
		NetAmount:      request.NetAmount,
		CurrencyID:     request.CurrencyID,
		Status:         request.Status,
		MethodSnapshot: json.RawMessage(request.MethodSnapshot),
		CreatedAt:      request.CreatedAt,
	}
	if request.ExternalTxnID.Valid {
		entity.ExternalTxnID = &request.ExternalTxnID.String
	}
	if request.RejectionReason.Valid {
		entity.RejectionReason = &request.RejectionReason.String
	}
	if request.ApprovedAt.Valid {
		approved := request.ApprovedAt.Time
		entity.ApprovedAt = &approved
	}
	return entity
}

func CreatePayout(c *fiber.Ctx) error {
	CurrentUser := c.Locals("CurrentUser").(*models.Member)

	errs := new(helpers.Errors)
	payload := new(CreatePayoutPayload)

	if err := c.BodyParser(payload); err != nil {
		return c.Status(400).JSON(helpers.Errors{
			Errors: []string{"server.method.invalid_body"},
		})
	}

	helpers.Vaildate(payload, errs)
	if errs.Size() > 0 {
		return c.Status(422).JSON(errs)
	}

	request, err := orchestrator().Submit(CurrentUser, payload.Amount, payload.MethodID)
	if err != nil {
		return helpers.RenderEngineError(c, err)
	}

	return c.Status(201).JSON(payoutEntity(request))
}

func payoutID(c *fiber.Ctx) (int64, error) {
	return strconv.ParseInt(c.Params("id"), 10, 64)
}

func ApprovePayout(c *fiber.Ctx) error {
	CurrentUser := c.Locals("CurrentUser").(*models.Member)

	id, err := payoutID(c)
	if err != nil {
		return helpers.RenderEngineError(c, engine.ErrValidation)
	}

	request, err := orchestrator().Approve(CurrentUser, id)
	if err != nil {
		return helpers.RenderEngineError(c, err)
	}

	return c.Status(200).JSON(payoutEntity(request))
}

func RejectPayout(c *fiber.Ctx) error {
	CurrentUser := c.Locals("CurrentUser").(*models.Member)

	id, err := payoutID(c)
	if err != nil {
		return helpers.RenderEngineError(c, engine.ErrValidation)
	}

	errs := new(helpers.Errors)
	payload := new(RejectPayoutPayload)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(400).JSON(helpers.Errors{
			Errors: []string{"server.method.invalid_body"},
		})
	}

	helpers.Vaildate(payload, errs)
	if errs.Size() > 0 {
		return c.Status(422).JSON(errs)
	}

	request, err := orchestrator().Reject(CurrentUser, id, payload.Reason)
	if err != nil {
		return helpers.RenderEngineError(c, err)
	}

	return c.Status(200).JSON(payoutEntity(request))
}

func CancelPayout(c *fiber.Ctx) error {
	CurrentUser := c.Locals("CurrentUser").(*models.Member)

	id, err := payoutID(c)
	if err != nil {
		return helpers.RenderEngineError(c, engine.ErrValidation)
	}

	request, err := orchestrator().Cancel(CurrentUser, id)
	if err != nil {
		return helpers.RenderEngineError(c, err)
	}

	return c.Status(200).JSON(payoutEntity(request))
}

// ConfirmPayout is the external-system hook; it carries the rail's
// transaction id and replays idempotently.
func ConfirmPayout(c *fiber.Ctx) error {
	id, err := payoutID(c)
	if err != nil {
		return helpers.RenderEngineError(c, engine.ErrValidation)
	}

	errs := new(helpers.Errors)
	payload := new(ConfirmPayoutPayload)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(400).JSON(helpers.Errors{
			Errors: []string{"server.method.invalid_body"},
		})
	}

	helpers.Vaildate(payload, errs)
	if errs.Size() > 0 {
		return c.Status(422).JSON(errs)
	}

	request, err := orchestrator().Confirm(id, payload.TxnID)
	if err != nil {
		return helpers.RenderEngineError(c, err)
	}

	return c.Status(200).JSON(payoutEntity(request))
}

func GetPayouts(c *fiber.Ctx) error {
	CurrentUser := c.Locals("CurrentUser").(*models.Member)

	errs := new(helpers.Errors)
	params := new(queries.PayoutQueries)

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

	scope := config.DataBase.Order("id desc").
		Offset(params.Page*params.Limit - params.Limit).
		Limit(params.Limit).
		Where("member_id = ?", CurrentUser.ID)
	if len(params.Status) > 0 {
		scope = scope.Where("status = ?", params.Status)
	}

	var requests []*models.PayoutRequest
	scope.Find(&requests)

	payout_entities := make([]*entities.PayoutRequestEntity, 0)
	for _, request := range requests {
		payout_entities = append(payout_entities, payoutEntity(request))
	}

	return c.Status(200).JSON(payout_entities)
}
