// Package lhu talks to the university portal: timetable, account, attendance,
// library booking and the grade sheet.
package lhu

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/lhudash/chisa-api/core/config"
	pkgError "github.com/lhudash/chisa-api/pkg/error"
	"github.com/lhudash/chisa-api/pkg/metrics"
	"github.com/sirupsen/logrus"
	"resty.dev/v3"
)

const serviceName = "lhu"

const (
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64)"

	msgSessionExpired = "Chứng thực của bạn không còn hiệu lực"
	msgTokenInvalid   = "Chứng thực của bạn không hợp lệ"
)

var (
	ErrMissingToken   = pkgError.UnauthorizedError("missing access token")
	ErrSessionExpired = pkgError.UnauthorizedError("UNAUTHORIZED")
)

type Config struct {
	ScheduleURL   string
	AuthURL       string
	UnauthURL     string
	UserInfoURL   string
	AttendanceURL string
	TAPIURL       string
	MarkURL       string
	Timeout       time.Duration
	// Location is used for portal timestamps that carry no zone.
	Location *time.Location
}

func ConfigFrom(cfg config.UpstreamConfig, timezone string) Config {
	loc, err := time.LoadLocation(timezone)
	if err != nil || timezone == "" {
		loc = time.Local
	}
	return Config{
		ScheduleURL:   cfg.ScheduleURL,
		AuthURL:       cfg.AuthURL,
		UnauthURL:     cfg.UnauthURL,
		UserInfoURL:   cfg.UserInfoURL,
		AttendanceURL: cfg.AttendanceURL,
		TAPIURL:       strings.TrimRight(cfg.TAPIURL, "/"),
		MarkURL:       cfg.MarkURL,
		Timeout:       cfg.Timeout(),
		Location:      loc,
	}
}

type Client struct {
	cfg     Config
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

func NewClient(cfg Config, opts ...Option) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	c := &Client{
		cfg: cfg,
		http: resty.New().
			SetTimeout(cfg.Timeout).
			SetHeader("Content-Type", "application/json"),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Close() error {
	return c.http.Close()
}

// portalMessage is the error envelope the portal returns on failures.
type portalMessage struct {
	Message      string `json:"Message"`
	MessageLower string `json:"message"`
}

func (m portalMessage) text() string {
	if m.Message != "" {
		return m.Message
	}
	return m.MessageLower
}

func (c *Client) request(ctx context.Context, token string) *resty.Request {
	req := c.http.R().SetContext(ctx)
	if token != "" {
		req.SetAuthToken(token)
	}
	return req
}

func (c *Client) networkError(op string, err error) error {
	logrus.WithError(err).Warnf("[LHU] %s request failed", op)
	return &pkgError.UpstreamError{
		Service: serviceName,
		Code:    pkgError.CodeNetworkError,
		Message: err.Error(),
		Err:     err,
	}
}

func (c *Client) statusError(op string, resp *resty.Response, body portalMessage) error {
	msg := body.text()
	if msg == "" {
		msg = fmt.Sprintf("%s failed: %s", op, resp.Status())
	}
	logrus.WithFields(logrus.Fields{
		"op":     op,
		"status": resp.StatusCode(),
	}).Warnf("[LHU] upstream rejected request: %s", msg)
	return &pkgError.UpstreamError{
		Service: serviceName,
		Code:    pkgError.CodeAPIError,
		Message: msg,
		Status:  resp.StatusCode(),
	}
}

func (c *Client) record(err error) {
	c.metrics.RecordUpstream(serviceName, err)
}

// IsUnauthorized reports whether err means the caller must log in again.
func IsUnauthorized(err error) bool {
	var unauthorized pkgError.UnauthorizedError
	if errors.As(err, &unauthorized) {
		return true
	}
	var upstream *pkgError.UpstreamError
	if errors.As(err, &upstream) {
		return upstream.Code == pkgError.CodeAuthInvalid || upstream.Code == pkgError.CodeNoToken ||
			upstream.Status == http.StatusUnauthorized
	}
	return false
}
