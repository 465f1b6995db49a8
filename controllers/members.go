package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/propfund/propex/controllers/helpers"
	"github.com/propfund/propex/engine"
	"github.com/propfund/propex/models"
)

type CreateMemberPayload struct {
	Role  string `json:"role" validate:"required"`
	Email string `json:"email" validate:"required|email"`
	UID   string `json:"uid" validate:"required"`
}

// CreateMember adds a principal under the caller. The role must sit deeper
// in the hierarchy than the caller's own, unless the caller holds the
// same-role capability.
func CreateMember(c *fiber.Ctx) error {
	CurrentUser := c.Locals("CurrentUser").(*models.Member)

	errs := new(helpers.Errors)
	payload := new(CreateMemberPayload)

	if err := c.BodyParser(payload); err != nil {
		return c.Status(400).JSON(helpers.Errors{
			Errors: []string{"server.method.invalid_body"},
		})
	}

	helpers.Vaildate(payload, errs)
	if errs.Size() > 0 {
		return c.Status(422).JSON(errs)
	}

	member, err := engine.NewHierarchy().CreatePrincipal(CurrentUser, payload.Role, payload.Email, payload.UID)
	if err != nil {
		return helpers.RenderEngineError(c, err)
	}

	return c.Status(201).JSON(member)
}

// GetDownline lists the caller's direct children.
func GetDownline(c *fiber.Ctx) error {
	CurrentUser := c.Locals("CurrentUser").(*models.Member)

	var children []*models.Member
	engine.NewHierarchy().DB.
		Where("parent_id = ?", CurrentUser.ID).
		Order("id asc").
		Find(&children)

	return c.Status(200).JSON(children)
}
