package rest

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/lhudash/chisa-api/domains/monitoring"
	"github.com/lhudash/chisa-api/pkg/utils"
)

type Monitoring struct {
	Service monitoring.IMonitoringUsecase
}

// InitRestMonitoring registers /monitoring/stats under api. The memory report
// and the prometheus exposition live on root, outside the api prefix.
func InitRestMonitoring(api fiber.Router, root fiber.Router, service monitoring.IMonitoringUsecase, metricsHandler http.Handler) Monitoring {
	h := Monitoring{Service: service}

	api.Get("/monitoring/stats", h.GetStats)
	root.Get("/metrics/memory", h.GetMemory)
	if metricsHandler != nil {
		root.Get("/metrics", adaptor.HTTPHandler(metricsHandler))
	}
	return h
}

func (h *Monitoring) GetStats(c *fiber.Ctx) error {
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success get stats",
		Results: h.Service.Stats(c.UserContext()),
	})
}

func (h *Monitoring) GetMemory(c *fiber.Ctx) error {
	return c.JSON(h.Service.Memory())
}
