package rest

import (
	"context"
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/lhudash/chisa-api/integrations/weather"
	pkgError "github.com/lhudash/chisa-api/pkg/error"
	"github.com/lhudash/chisa-api/pkg/utils"
)

type WeatherSource interface {
	Current(ctx context.Context) (json.RawMessage, error)
	Forecast(ctx context.Context) (*weather.Forecast, error)
	ForecastAt(ctx context.Context, ts int64) (json.RawMessage, error)
}

type Weather struct {
	Source WeatherSource
}

func InitRestWeather(app fiber.Router, source WeatherSource) Weather {
	rest := Weather{Source: source}
	app.Get("/weather/current", rest.Current)
	app.Get("/weather/forecast", rest.ForecastAt)
	app.Get("/weather/forecast_all", rest.ForecastAll)
	return rest
}

func (handler *Weather) Current(c *fiber.Ctx) error {
	current, err := handler.Source.Current(c.UserContext())
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success get current weather",
		Results: current,
	})
}

func (handler *Weather) ForecastAt(c *fiber.Ctx) error {
	ts := int64(c.QueryInt("timestamp", 0))
	if ts < 0 {
		utils.PanicIfNeeded(pkgError.ValidationError("timestamp: must be a unix time in seconds"))
	}

	hour, err := handler.Source.ForecastAt(c.UserContext(), ts)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success get forecast",
		Results: hour,
	})
}

func (handler *Weather) ForecastAll(c *fiber.Ctx) error {
	forecast, err := handler.Source.Forecast(c.UserContext())
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success get forecast",
		Results: forecast.Forecast.ForecastDay,
	})
}
