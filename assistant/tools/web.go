package tools

import (
	"context"

	"github.com/lhudash/chisa-api/assistant/domain"
	pkgError "github.com/lhudash/chisa-api/pkg/error"
)

func webTools(web WebSearch) []domain.NativeTool {
	return []domain.NativeTool{
		{
			Tool: domain.Tool{
				Name:        "search_web",
				Description: "Search the web for information",
				InputSchema: objectSchema(map[string]any{
					"query": prop("string", "The search query string"),
				}, "query"),
			},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				query, err := requiredString(args, "query")
				if err != nil {
					return nil, err
				}
				return web.Search(ctx, query)
			},
		},
		{
			Tool: domain.Tool{
				Name:        "extract_web",
				Description: "Extract information from a list of web URLs",
				InputSchema: objectSchema(map[string]any{
					"web_url": map[string]any{
						"type":        "array",
						"items":       map[string]any{"type": "string"},
						"description": "List of web URLs to extract information from",
					},
				}, "web_url"),
			},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				urls := stringsArg(args, "web_url")
				if len(urls) == 0 {
					return nil, pkgError.ValidationError("web_url is required")
				}
				return web.Extract(ctx, urls)
			},
		},
	}
}
