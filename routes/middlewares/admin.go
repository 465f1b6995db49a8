package middlewares

import (
	"github.com/gofiber/fiber/v2"

	"github.com/propfund/propex/controllers/helpers"
	"github.com/propfund/propex/models"
)

func AdminVaildator(c *fiber.Ctx) error {
	CurrentUser := c.Locals("CurrentUser").(*models.Member)

	if !CurrentUser.IsAdmin() {
		return c.Status(403).JSON(helpers.Errors{
			Errors: []string{"authz.invalid_permission"},
		})
	}

	return c.Next()
}
