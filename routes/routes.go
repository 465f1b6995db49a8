package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/propfund/propex/controllers"
	"github.com/propfund/propex/controllers/admin_controllers"
	"github.com/propfund/propex/routes/middlewares"
)

func SetupRouter() *fiber.App {
	app := fiber.New()

	app.Get("/api/v2/public/timestamp", controllers.GetTimestamp)

	api := app.Group("/api/v2", middlewares.Authenticate, middlewares.Idempotency)

	api.Post("/members", controllers.CreateMember)
	api.Get("/members/downline", controllers.GetDownline)

	api.Post("/affiliate/links", controllers.CreateAffiliateLink)
	api.Get("/affiliate/stats", controllers.GetAffiliateStats)
	api.Get("/affiliate/commissions", controllers.GetCommissions)

	api.Post("/purchases/:id/confirm", controllers.ConfirmPurchase)
	api.Post("/purchases/:id/unwind", controllers.UnwindPurchase)

	api.Post("/payouts", controllers.CreatePayout)
	api.Get("/payouts", controllers.GetPayouts)
	api.Post("/payouts/:id/cancel", controllers.CancelPayout)
	api.Post("/payouts/:id/confirm", controllers.ConfirmPayout)
	api.Post("/payouts/:id/approve", middlewares.AdminVaildator, controllers.ApprovePayout)
	api.Post("/payouts/:id/reject", middlewares.AdminVaildator, controllers.RejectPayout)

	admin := api.Group("/admin", middlewares.AdminVaildator)
	admin.Post("/payouts/:id/dispatch", admin_controllers.DispatchPayout)
	admin.Get("/payouts", admin_controllers.GetPayouts)
	admin.Post("/rate_rules", admin_controllers.UpsertRateRule)
	admin.Post("/members/:id/parent", admin_controllers.SetParent)
	admin.Post("/adjustments", admin_controllers.CreateAdjustment)

	return app
}
