package rest

import (
	"github.com/AzielCF/az-aiwa/domains/health"
	"github.com/AzielCF/az-aiwa/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

type Health struct {
	Service health.IHealthUsecase
}

func InitRestHealth(app fiber.Router, service health.IHealthUsecase) Health {
	handler := Health{Service: service}
	app.Get("/api/health", handler.GetStatus)
	return handler
}

// GetStatus answers 503 when any dependency is down so it can back a
// readiness probe.
func (h *Health) GetStatus(c *fiber.Ctx) error {
	report, err := h.Service.GetStatus(c.UserContext())
	if err != nil {
		return c.Status(500).JSON(utils.ResponseData{
			Status:  500,
			Code:    "INTERNAL_SERVER_ERROR",
			Message: err.Error(),
		})
	}

	status, code, message := fiber.StatusOK, "SUCCESS", "Health status retrieved"
	for _, r := range report.Records {
		if r.Status == health.StatusError {
			status, code, message = fiber.StatusServiceUnavailable, "UNHEALTHY", "One or more dependencies are down"
			break
		}
	}
	return c.Status(status).JSON(utils.ResponseData{
		Status:  status,
		Code:    code,
		Message: message,
		Results: report,
	})
}
