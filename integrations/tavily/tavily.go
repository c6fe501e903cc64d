// Package tavily wraps the Tavily web search and extraction API.
package tavily

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	pkgError "github.com/lhudash/chisa-api/pkg/error"
	"github.com/lhudash/chisa-api/pkg/metrics"
	"github.com/sirupsen/logrus"
	"resty.dev/v3"
)

const (
	DefaultBaseURL    = "https://api.tavily.com"
	DefaultMaxResults = 10
	serviceName       = "tavily"
)

var ErrNotConfigured = pkgError.ValidationError("web search is not configured")

type searchRequest struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

type extractRequest struct {
	URLs []string `json:"urls"`
}

type apiError struct {
	Detail struct {
		Error string `json:"error"`
	} `json:"detail"`
}

type Client struct {
	apiKey  string
	http    *resty.Client
	metrics *metrics.Metrics
}

type Option func(*Client)

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

func NewClient(baseURL, apiKey string, timeout time.Duration, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 36 * time.Second
	}
	c := &Client{
		apiKey: apiKey,
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetHeader("Content-Type", "application/json"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Close() error {
	return c.http.Close()
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool {
	return c != nil && c.apiKey != ""
}

// Search runs a web search and returns the provider's result document.
func (c *Client) Search(ctx context.Context, query string) (json.RawMessage, error) {
	if query == "" {
		return nil, pkgError.ValidationError("query is required")
	}
	logrus.Debugf("[TAVILY] Searching for %q", query)
	return c.post(ctx, "/search", searchRequest{Query: query, MaxResults: DefaultMaxResults})
}

// Extract pulls readable content from each URL.
func (c *Client) Extract(ctx context.Context, urls []string) (json.RawMessage, error) {
	if len(urls) == 0 {
		return nil, pkgError.ValidationError("at least one url is required")
	}
	logrus.Debugf("[TAVILY] Extracting %d website(s)", len(urls))
	return c.post(ctx, "/extract", extractRequest{URLs: urls})
}

func (c *Client) post(ctx context.Context, path string, body any) (json.RawMessage, error) {
	if !c.Enabled() {
		return nil, ErrNotConfigured
	}

	var (
		out     json.RawMessage
		failure apiError
	)
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(c.apiKey).
		SetBody(body).
		SetResult(&out).
		SetError(&failure).
		Post(path)
	if err != nil {
		logrus.WithError(err).Warnf("[TAVILY] %s request failed", path)
		err = &pkgError.UpstreamError{
			Service: serviceName,
			Code:    pkgError.CodeNetworkError,
			Message: err.Error(),
			Err:     err,
		}
		c.metrics.RecordUpstream(serviceName, err)
		return nil, err
	}
	if resp.IsError() {
		msg := failure.Detail.Error
		if msg == "" {
			msg = fmt.Sprintf("%s failed: %s", path, resp.Status())
		}
		err = &pkgError.UpstreamError{
			Service: serviceName,
			Code:    pkgError.CodeAPIError,
			Message: msg,
			Status:  resp.StatusCode(),
		}
		c.metrics.RecordUpstream(serviceName, err)
		return nil, err
	}
	c.metrics.RecordUpstream(serviceName, nil)
	return out, nil
}
