package lhu

import (
	"context"
	"strings"

	pkgError "github.com/lhudash/chisa-api/pkg/error"
	"github.com/lhudash/chisa-api/profiles/domain"
)

type loginRequest struct {
	DeviceInfo string `json:"DeviceInfo"`
	UserID     string `json:"UserID"`
	Password   string `json:"Password"`
}

type loginResponse struct {
	Token string `json:"Token"`
}

type userInfoResponse struct {
	Data *domain.Profile `json:"data"`
}

type logoutRequest struct {
	SignOutAll bool `json:"SignOutAll"`
}

// Login exchanges portal credentials for an access token. deviceInfo is the
// JSON device descriptor the portal expects.
func (c *Client) Login(ctx context.Context, userID, password, deviceInfo string) (string, error) {
	if !strings.HasPrefix(deviceInfo, "{") {
		return "", pkgError.ValidationError("invalid device info")
	}

	var (
		out     loginResponse
		failure portalMessage
	)
	resp, err := c.request(ctx, "").
		SetBody(loginRequest{DeviceInfo: deviceInfo, UserID: userID, Password: password}).
		SetResult(&out).
		SetError(&failure).
		Post(c.cfg.AuthURL)
	if err != nil {
		err = c.networkError("login", err)
		c.record(err)
		return "", err
	}
	if resp.IsError() {
		err = c.statusError("login", resp, failure)
		c.record(err)
		return "", err
	}
	c.record(nil)

	if out.Token == "" {
		return "", &pkgError.UpstreamError{
			Service: serviceName,
			Code:    pkgError.CodeAPIError,
			Message: "Đăng nhập thất bại - không tìm thấy token",
			Status:  resp.StatusCode(),
		}
	}
	return out.Token, nil
}

// UserInfo loads the account behind token.
func (c *Client) UserInfo(ctx context.Context, token string) (domain.Profile, error) {
	if token == "" {
		return domain.Profile{}, ErrMissingToken
	}

	var (
		out     userInfoResponse
		failure portalMessage
	)
	resp, err := c.request(ctx, token).
		SetResult(&out).
		SetError(&failure).
		Post(c.cfg.UserInfoURL)
	if err != nil {
		err = c.networkError("userinfo", err)
		c.record(err)
		return domain.Profile{}, err
	}
	if resp.IsError() {
		if failure.text() == msgSessionExpired {
			c.record(nil)
			return domain.Profile{}, ErrSessionExpired
		}
		err = c.statusError("userinfo", resp, failure)
		c.record(err)
		return domain.Profile{}, err
	}
	c.record(nil)

	if out.Data == nil {
		return domain.Profile{}, &pkgError.UpstreamError{
			Service: serviceName,
			Code:    pkgError.CodeAPIError,
			Message: "Invalid response from server",
			Status:  resp.StatusCode(),
		}
	}
	return *out.Data, nil
}

// Logout ends the portal session for token only.
func (c *Client) Logout(ctx context.Context, token string) error {
	if token == "" {
		return ErrMissingToken
	}

	var failure portalMessage
	resp, err := c.request(ctx, token).
		SetBody(logoutRequest{SignOutAll: false}).
		SetError(&failure).
		Post(c.cfg.UnauthURL)
	if err != nil {
		err = c.networkError("logout", err)
		c.record(err)
		return err
	}
	if resp.IsError() {
		err = c.statusError("logout", resp, failure)
		c.record(err)
		return err
	}
	c.record(nil)
	return nil
}
