package rest

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/gofiber/fiber/v2"
	pkgError "github.com/lhudash/chisa-api/pkg/error"
	"github.com/lhudash/chisa-api/pkg/utils"
)

type Searcher interface {
	Enabled() bool
	Search(ctx context.Context, query string) (json.RawMessage, error)
}

type Search struct {
	Searcher Searcher
}

func InitRestSearch(app fiber.Router, searcher Searcher) Search {
	rest := Search{Searcher: searcher}
	app.Get("/search", rest.Search)
	return rest
}

func (handler *Search) Search(c *fiber.Ctx) error {
	if handler.Searcher == nil || !handler.Searcher.Enabled() {
		utils.PanicIfNeeded(pkgError.InternalServerError("web search is not configured"))
	}
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		utils.PanicIfNeeded(pkgError.ValidationError("q: cannot be blank."))
	}

	results, err := handler.Searcher.Search(c.UserContext(), query)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success search",
		Results: results,
	})
}
