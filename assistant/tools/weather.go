package tools

import (
	"context"

	"github.com/lhudash/chisa-api/assistant/domain"
)

func weatherTools(src WeatherSource) []domain.NativeTool {
	return []domain.NativeTool{
		{
			Tool: domain.Tool{
				Name:        "get_current_weather",
				Description: "Get current weather information at the campus (LHU) location at this moment.",
				InputSchema: objectSchema(nil),
			},
			Handler: func(ctx context.Context, _ map[string]any) (any, error) {
				current, err := src.Current(ctx)
				if err != nil {
					return nil, err
				}
				return map[string]any{"result": current}, nil
			},
		},
		{
			Tool: domain.Tool{
				Name: "get_weather_forecast",
				Description: "Get weather forecast for a specific hour based on unix timestamp (seconds). " +
					"If timestamp is not provided, current hour will be used, " +
					"location is the campus (LHU), max 3 days include today.",
				InputSchema: objectSchema(map[string]any{
					"timestamp": prop("string", "Unix timestamp in seconds (as string). Example: 1735534800. Optional"),
				}),
			},
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				ts, _, err := intArg(args, "timestamp")
				if err != nil {
					return nil, err
				}
				hour, err := src.ForecastAt(ctx, ts)
				if err != nil {
					return nil, err
				}
				return map[string]any{"result": hour}, nil
			},
		},
		{
			Tool: domain.Tool{
				Name:        "get_forecast_days",
				Description: "Get the full forecast for upcoming days",
				InputSchema: objectSchema(nil),
			},
			Handler: func(ctx context.Context, _ map[string]any) (any, error) {
				f, err := src.Forecast(ctx)
				if err != nil {
					return nil, err
				}
				return map[string]any{"result": f.Forecast.ForecastDay}, nil
			},
		},
	}
}
