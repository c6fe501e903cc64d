package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	pkgError "github.com/lhudash/chisa-api/pkg/error"
	"github.com/lhudash/chisa-api/pkg/metrics"
	"github.com/sirupsen/logrus"
	"resty.dev/v3"
)

// MinimumBalance is the balance at or below which the assistant is closed.
const MinimumBalance = 0.01

const serviceName = "ai_credits"

type creditsResponse struct {
	Balance json.RawMessage `json:"balance"`
}

// CreditChecker reads the model gateway balance. Without a URL every check
// reports the assistant as available.
type CreditChecker struct {
	url     string
	apiKey  string
	http    *resty.Client
	metrics *metrics.Metrics
}

func NewCreditChecker(url, apiKey string, timeout time.Duration, m *metrics.Metrics) *CreditChecker {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &CreditChecker{
		url:     url,
		apiKey:  apiKey,
		http:    resty.New().SetTimeout(timeout),
		metrics: m,
	}
}

func (c *CreditChecker) Close() error {
	return c.http.Close()
}

// Balance returns the remaining gateway credit.
func (c *CreditChecker) Balance(ctx context.Context) (float64, error) {
	var out creditsResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(c.apiKey).
		SetResult(&out).
		Get(c.url)
	if err != nil {
		err = &pkgError.UpstreamError{Service: serviceName, Code: pkgError.CodeNetworkError, Message: err.Error(), Err: err}
		c.metrics.RecordUpstream(serviceName, err)
		return 0, err
	}
	if resp.IsError() {
		err = &pkgError.UpstreamError{
			Service: serviceName,
			Code:    pkgError.CodeAPIError,
			Message: fmt.Sprintf("credit lookup failed: %s", resp.Status()),
			Status:  resp.StatusCode(),
		}
		c.metrics.RecordUpstream(serviceName, err)
		return 0, err
	}
	c.metrics.RecordUpstream(serviceName, nil)
	return parseBalance(out.Balance)
}

// Available reports whether the balance is above MinimumBalance. Lookup
// failures keep the assistant open and are logged.
func (c *CreditChecker) Available(ctx context.Context) bool {
	if c == nil || c.url == "" {
		return true
	}
	balance, err := c.Balance(ctx)
	if err != nil {
		logrus.WithError(err).Warn("[ASSISTANT] Credit check failed")
		return true
	}
	return balance > MinimumBalance
}

// parseBalance accepts both "12.5" and 12.5.
func parseBalance(raw json.RawMessage) (float64, error) {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if s == "" || s == "null" {
		return 0, pkgError.ValidationError("missing balance")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse balance %q: %w", s, err)
	}
	return v, nil
}
