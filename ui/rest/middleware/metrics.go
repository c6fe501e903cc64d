package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/lhudash/chisa-api/pkg/metrics"
)

// Metrics counts requests by matched route and final status. It must sit
// outside Recovery so recovered panics are counted with their rendered status.
func Metrics(m *metrics.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()
		if m == nil {
			return err
		}
		route := "unmatched"
		if r := c.Route(); r != nil && r.Path != "" && r.Path != "/" {
			route = r.Path
		}
		status := c.Response().StatusCode()
		if e, ok := err.(*fiber.Error); ok {
			status = e.Code
		}
		m.RecordRequest(route, status)
		return err
	}
}
