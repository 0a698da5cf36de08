package rest

import (
	"github.com/AzielCF/az-aiwa/pkg/botmonitor"
	"github.com/gofiber/fiber/v2"
)

type BotMonitor struct {
	Monitor *botmonitor.Monitor
}

func InitRestBotMonitor(app fiber.Router, monitor *botmonitor.Monitor) BotMonitor {
	handler := BotMonitor{Monitor: monitor}
	app.Get("/api/bot-monitor/stats", handler.GetStats)
	return handler
}

// GetStats returns pipeline counters and the latest events.
func (h *BotMonitor) GetStats(c *fiber.Ctx) error {
	return c.JSON(h.Monitor.GetStats())
}
