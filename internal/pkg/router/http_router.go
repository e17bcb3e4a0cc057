package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/sellforge/sellforge/app/controllers"
	"github.com/sellforge/sellforge/internal/pkg/constants"
)

type HttpRouter struct {
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// Wire repositories, managers and the billing service.
	controllers.InitializeControllers()

	app.Get(constants.HealthRoute, func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Provider webhook ingestion. Unauthenticated; the request proves itself
	// via its signature.
	app.Post(constants.WebhookRoute, controllers.HandleProviderWebhook)

	// Download redemption. The grant token is the capability.
	app.Get(constants.DownloadRoute, controllers.HandleRedeemDownload)
	app.Get(constants.DownloadFileRoute, controllers.HandleDownloadFile)
}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}
