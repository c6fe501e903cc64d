// Package turnstile verifies Cloudflare Turnstile challenge tokens.
package turnstile

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
)

const DefaultVerifyURL = "https://challenges.cloudflare.com/turnstile/v0/siteverify"

type verifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

// Verifier posts tokens to the siteverify endpoint.
type Verifier struct {
	url     string
	secret  string
	timeout time.Duration
	client  *fasthttp.Client
}

func NewVerifier(url, secret string, timeout time.Duration) *Verifier {
	if url == "" {
		url = DefaultVerifyURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Verifier{
		url:     url,
		secret:  secret,
		timeout: timeout,
		client:  &fasthttp.Client{Name: "chisa-api"},
	}
}

// Enabled reports whether a secret is configured.
func (v *Verifier) Enabled() bool {
	return v != nil && v.secret != ""
}

// Verify returns false for empty tokens, transport failures and rejected
// challenges. Failures are logged.
func (v *Verifier) Verify(ctx context.Context, token, remoteIP string) bool {
	if token == "" {
		return false
	}

	ok, err := v.verify(ctx, token, remoteIP)
	if err != nil {
		logrus.WithError(err).Warn("[TURNSTILE] Validation error")
		return false
	}
	return ok
}

func (v *Verifier) verify(ctx context.Context, token, remoteIP string) (bool, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	args := fasthttp.AcquireArgs()
	defer fasthttp.ReleaseArgs(args)
	args.Set("secret", v.secret)
	args.Set("response", token)
	if remoteIP != "" {
		args.Set("remoteip", remoteIP)
	}

	req.SetRequestURI(v.url)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/x-www-form-urlencoded")
	req.SetBody(args.QueryString())

	timeout := v.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if d := time.Until(deadline); d < timeout {
			timeout = d
		}
	}

	if err := v.client.DoTimeout(req, resp, timeout); err != nil {
		return false, fmt.Errorf("siteverify request: %w", err)
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return false, fmt.Errorf("siteverify returned status %d", resp.StatusCode())
	}

	var out verifyResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return false, fmt.Errorf("decode siteverify response: %w", err)
	}
	if !out.Success {
		logrus.Warnf("[TURNSTILE] Validation failed: %v", out.ErrorCodes)
	}
	return out.Success, nil
}
