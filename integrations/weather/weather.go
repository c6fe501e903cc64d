// Package weather reads current conditions and hourly forecasts for the
// campus from weatherapi.com.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	pkgError "github.com/lhudash/chisa-api/pkg/error"
	"github.com/lhudash/chisa-api/pkg/metrics"
	"github.com/sirupsen/logrus"
	"resty.dev/v3"
)

const (
	DefaultBaseURL = "http://api.weatherapi.com/v1"
	serviceName    = "weather"
	forecastDays   = 14

	CampusLat  = 10.954859
	CampusLong = 106.796100
)

var ErrNoForecast = pkgError.NotFoundError("No forecast found for the given timestamp")

// Forecast mirrors the forecast.json envelope. Nested objects stay raw so
// callers receive exactly what the provider sent.
type Forecast struct {
	Location json.RawMessage `json:"location"`
	Current  json.RawMessage `json:"current"`
	Forecast struct {
		ForecastDay []ForecastDay `json:"forecastday"`
	} `json:"forecast"`
	Alerts json.RawMessage `json:"alerts,omitempty"`
}

type ForecastDay struct {
	Date      string            `json:"date"`
	DateEpoch int64             `json:"date_epoch"`
	Day       json.RawMessage   `json:"day"`
	Astro     json.RawMessage   `json:"astro"`
	Hour      []json.RawMessage `json:"hour"`
}

type hourEpoch struct {
	TimeEpoch int64 `json:"time_epoch"`
}

type Client struct {
	baseURL string
	apiKey  string
	loc     *time.Location
	http    *resty.Client
	metrics *metrics.Metrics
	now     func() time.Time
}

type Option func(*Client)

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// WithLocation sets the zone used when rounding timestamps to the hour.
func WithLocation(loc *time.Location) Option {
	return func(c *Client) {
		if loc != nil {
			c.loc = loc
		}
	}
}

func NewClient(baseURL, apiKey string, timeout time.Duration, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		loc:     time.Local,
		http:    resty.New().SetBaseURL(baseURL).SetTimeout(timeout),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Close() error {
	return c.http.Close()
}

func (c *Client) request(ctx context.Context) *resty.Request {
	return c.http.R().
		SetContext(ctx).
		SetQueryParam("key", c.apiKey).
		SetQueryParam("q", fmt.Sprintf("%g,%g", CampusLat, CampusLong)).
		SetQueryParam("lang", "vi").
		SetQueryParam("aqi", "yes")
}

// Current returns the current.json payload for the campus.
func (c *Client) Current(ctx context.Context) (json.RawMessage, error) {
	var out json.RawMessage
	resp, err := c.request(ctx).SetResult(&out).Get("/current.json")
	if err = c.check("current", resp, err); err != nil {
		return nil, err
	}
	return out, nil
}

// Forecast returns the full multi-day forecast for the campus.
func (c *Client) Forecast(ctx context.Context) (*Forecast, error) {
	var out Forecast
	resp, err := c.request(ctx).
		SetQueryParam("days", strconv.Itoa(forecastDays)).
		SetResult(&out).
		Get("/forecast.json")
	if err = c.check("forecast", resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

// ForecastAt returns the hourly forecast nearest to ts (unix seconds). A
// zero ts means now.
func (c *Client) ForecastAt(ctx context.Context, ts int64) (json.RawMessage, error) {
	if ts == 0 {
		ts = c.now().Unix()
	}
	forecast, err := c.Forecast(ctx)
	if err != nil {
		return nil, err
	}
	return forecast.HourAt(RoundToHour(ts, c.loc))
}

// HourAt finds the hour entry whose time_epoch equals epoch.
func (f *Forecast) HourAt(epoch int64) (json.RawMessage, error) {
	for _, day := range f.Forecast.ForecastDay {
		for _, raw := range day.Hour {
			var h hourEpoch
			if err := json.Unmarshal(raw, &h); err != nil {
				continue
			}
			if h.TimeEpoch == epoch {
				return raw, nil
			}
		}
	}
	return nil, ErrNoForecast
}

// RoundToHour rounds ts to the nearest hour: minutes >= 30 round up.
func RoundToHour(ts int64, loc *time.Location) int64 {
	if loc == nil {
		loc = time.Local
	}
	t := time.Unix(ts, 0).In(loc)
	if t.Minute() >= 30 {
		t = t.Add(time.Hour)
	}
	t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, loc)
	return t.Unix()
}

func (c *Client) check(op string, resp *resty.Response, err error) error {
	if err != nil {
		logrus.WithError(err).Warnf("[WEATHER] %s request failed", op)
		err = &pkgError.UpstreamError{
			Service: serviceName,
			Code:    pkgError.CodeNetworkError,
			Message: err.Error(),
			Err:     err,
		}
	} else if resp.IsError() {
		logrus.WithField("status", resp.StatusCode()).Warnf("[WEATHER] %s rejected", op)
		err = &pkgError.UpstreamError{
			Service: serviceName,
			Code:    pkgError.CodeAPIError,
			Message: fmt.Sprintf("Failed to fetch weather %s", op),
			Status:  resp.StatusCode(),
		}
	}
	c.metrics.RecordUpstream(serviceName, err)
	return err
}
