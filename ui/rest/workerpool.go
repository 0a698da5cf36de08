package rest

import (
	"github.com/AzielCF/az-aiwa/pkg/msgworker"
	"github.com/gofiber/fiber/v2"
)

// PoolStatsProvider is satisfied by *msgworker.MessageWorkerPool.
type PoolStatsProvider interface {
	GetStats() msgworker.PoolStats
}

type WorkerPool struct {
	Pool PoolStatsProvider
}

func InitRestWorkerPool(app fiber.Router, pool PoolStatsProvider) WorkerPool {
	handler := WorkerPool{Pool: pool}
	app.Get("/api/worker-pool/stats", handler.GetStats)
	return handler
}

// GetStats returns real-time worker pool statistics
func (h *WorkerPool) GetStats(c *fiber.Ctx) error {
	if h.Pool == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Message worker pool not initialized",
		})
	}
	return c.JSON(h.Pool.GetStats())
}
