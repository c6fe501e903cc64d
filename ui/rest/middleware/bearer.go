package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	pkgError "github.com/lhudash/chisa-api/pkg/error"
)

const accessTokenKey = "access_token"

// Bearer requires an "Authorization: Bearer <token>" header and stores the
// token for AccessToken.
func Bearer() fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
		scheme, token, ok := strings.Cut(header, " ")
		token = strings.TrimSpace(token)
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			panic(pkgError.UnauthorizedError("Thiếu access token"))
		}
		c.Locals(accessTokenKey, token)
		return c.Next()
	}
}

func AccessToken(c *fiber.Ctx) string {
	token, _ := c.Locals(accessTokenKey).(string)
	return token
}
