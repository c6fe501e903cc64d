package user

import (
	"context"

	profileDomain "github.com/lhudash/chisa-api/profiles/domain"
)

type IUserUsecase interface {
	Login(ctx context.Context, request LoginRequest) (LoginResponse, error)
	Info(ctx context.Context, accessToken string) (profileDomain.Profile, error)
	Logout(ctx context.Context, accessToken string) error
}

type LoginRequest struct {
	UserID         string `json:"user_id" form:"user_id"`
	Password       string `json:"password" form:"password"`
	DeviceInfo     string `json:"device_info" form:"device_info"`
	TurnstileToken string `json:"cf_token,omitempty" form:"cf_token"`
	RemoteIP       string `json:"-"`
}

type LoginResponse struct {
	AccessToken string `json:"accessToken"`
}
