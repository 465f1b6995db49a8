package helpers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gookit/validate"

	"github.com/propfund/propex/config"
	"github.com/propfund/propex/engine"
)

type Errors struct {
	Errors []string `json:"errors"`
}

func (e Errors) Size() int {
	return len(e.Errors)
}

func Vaildate(payload interface{}, err_src *Errors) {
	v := validate.Struct(payload)
	if !v.Validate() {
		for _, errs := range v.Errors.All() {
			for _, err := range errs {
				err_src.Errors = append(err_src.Errors, err)
			}
		}
	}
}

var statusByCode = map[string]int{
	engine.ErrValidation.Code:        400,
	engine.ErrUnderMinimum.Code:      400,
	engine.ErrNotAuthorized.Code:     403,
	engine.ErrForbiddenCreation.Code: 403,
	engine.ErrInactiveActor.Code:     403,
	engine.ErrRootLimit.Code:         403,
	engine.ErrNotFound.Code:          404,
	engine.ErrMethodNotFound.Code:    404,
	engine.ErrConflict.Code:          409,
	engine.ErrCycleDetected.Code:     409,
	engine.ErrDepthExceeded.Code:     409,
	engine.ErrInsufficientFunds.Code: 402,
	engine.ErrPayoutsBlocked.Code:    402,
	engine.ErrUnavailable.Code:       503,
	engine.ErrInvariant.Code:         500,
}

// RenderEngineError maps an engine error onto its HTTP status and the
// standard error body. Error meta (e.g. the available balance on an
// insufficient-funds rejection) rides along.
func RenderEngineError(c *fiber.Ctx, err error) error {
	var e *engine.Error
	if !errors.As(err, &e) {
		config.Logger.Errorf("unclassified error: %v", err)
		return c.Status(500).JSON(Errors{Errors: []string{"server.internal_error"}})
	}

	status, ok := statusByCode[e.Code]
	if !ok {
		status = 500
	}

	if e.Code == engine.ErrInvariant.Code {
		config.Logger.Errorf("invariant violation: %v", e)
	}

	body := fiber.Map{"errors": []string{e.Code}}
	for k, v := range e.Meta {
		body[k] = v
	}

	return c.Status(status).JSON(body)
}
