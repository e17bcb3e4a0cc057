package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/sellforge/sellforge/app/controllers"
	"github.com/sellforge/sellforge/internal/pkg/middleware"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New())
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	v1 := api.Group("/v1", middleware.APIKeyAuthMiddleware())

	v1.Post("/checkout", controllers.HandleCheckout)
	v1.Get("/account", controllers.HandleAccountProfile)
	v1.Get("/account/orders", controllers.HandleListOrders)
	v1.Get("/account/orders/:public_id", controllers.HandleGetOrder)
	v1.Post("/account/orders/:public_id/confirm", controllers.HandleConfirmOrder)
	v1.Get("/account/downloads", controllers.HandleListDownloads)
	v1.Get("/account/entitlements", controllers.HandleAccountEntitlements)
	v1.Get("/account/subscriptions", controllers.HandleAccountSubscriptions)
	v1.Get("/account/bookings", controllers.HandleAccountBookings)

	admin := v1.Group("/admin", middleware.RequireAdmin)
	admin.Get("/webhooks/stats", controllers.HandleWebhookStats)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
