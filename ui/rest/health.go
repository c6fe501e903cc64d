package rest

import (
	"github.com/gofiber/fiber/v2"
	"github.com/lhudash/chisa-api/domains/health"
	"github.com/lhudash/chisa-api/pkg/utils"
)

type Health struct {
	Service health.IHealthUsecase
}

func InitRestHealth(app fiber.Router, service health.IHealthUsecase) Health {
	handler := Health{Service: service}
	app.Get("/health/status", handler.GetStatus)
	return handler
}

func (h *Health) GetStatus(c *fiber.Ctx) error {
	records, err := h.Service.GetStatus(c.UserContext())
	utils.PanicIfNeeded(err)

	status := fiber.StatusOK
	for _, r := range records {
		if r.Status == health.StatusError {
			status = fiber.StatusServiceUnavailable
			break
		}
	}

	code := "SUCCESS"
	if status != fiber.StatusOK {
		code = "DEGRADED"
	}
	return c.Status(status).JSON(utils.ResponseData{
		Status:  status,
		Code:    code,
		Message: "Health status retrieved",
		Results: records,
	})
}
