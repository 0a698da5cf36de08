package rest

import (
	"github.com/AzielCF/az-aiwa/pkg/metrics"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
)

type App struct {
	Version string
}

func InitRestApp(app fiber.Router, version string) App {
	rest := App{Version: version}
	app.Get("/", rest.Index)
	app.Get("/app/version", rest.GetVersion)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))
	return rest
}

// Index reports that the bot is running.
func (handler *App) Index(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "✅ Chatbot WhatsApp sedang berjalan."})
}

func (handler *App) GetVersion(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"version": handler.Version})
}
