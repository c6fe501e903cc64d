package usecase

import (
	"context"

	domainUser "github.com/lhudash/chisa-api/domains/user"
	pkgError "github.com/lhudash/chisa-api/pkg/error"
	profileDomain "github.com/lhudash/chisa-api/profiles/domain"
	"github.com/lhudash/chisa-api/validations"
	"github.com/sirupsen/logrus"
)

// Accounts is the portal side of the user endpoints.
type Accounts interface {
	Login(ctx context.Context, userID, password, deviceInfo string) (string, error)
	UserInfo(ctx context.Context, token string) (profileDomain.Profile, error)
	Logout(ctx context.Context, token string) error
}

type ChallengeVerifier interface {
	Enabled() bool
	Verify(ctx context.Context, token, remoteIP string) bool
}

type ProfileWriter interface {
	SetUserData(ctx context.Context, userID string, p profileDomain.Profile)
}

type serviceUser struct {
	accounts  Accounts
	challenge ChallengeVerifier
	profiles  ProfileWriter
}

func NewUserService(accounts Accounts, challenge ChallengeVerifier, profiles ProfileWriter) domainUser.IUserUsecase {
	return &serviceUser{accounts: accounts, challenge: challenge, profiles: profiles}
}

func (service serviceUser) Login(ctx context.Context, request domainUser.LoginRequest) (response domainUser.LoginResponse, err error) {
	if err = validations.ValidateLogin(ctx, request); err != nil {
		return response, err
	}

	if service.challenge != nil && service.challenge.Enabled() {
		if !service.challenge.Verify(ctx, request.TurnstileToken, request.RemoteIP) {
			return response, pkgError.UnauthorizedError("Xác minh Turnstile thất bại")
		}
	}

	token, err := service.accounts.Login(ctx, request.UserID, request.Password, request.DeviceInfo)
	if err != nil {
		logrus.WithError(err).WithField("user_id", request.UserID).Warn("[USER] Login failed")
		return response, err
	}

	response.AccessToken = token
	return response, nil
}

// Info returns the portal profile and refreshes the profile cache with it.
func (service serviceUser) Info(ctx context.Context, accessToken string) (profileDomain.Profile, error) {
	if err := validations.ValidateAccessToken(accessToken); err != nil {
		return profileDomain.Profile{}, err
	}

	profile, err := service.accounts.UserInfo(ctx, accessToken)
	if err != nil {
		return profileDomain.Profile{}, err
	}

	if service.profiles != nil && profile.UserID != "" {
		service.profiles.SetUserData(ctx, profile.UserID, profile)
	}
	return profile, nil
}

func (service serviceUser) Logout(ctx context.Context, accessToken string) error {
	if err := validations.ValidateAccessToken(accessToken); err != nil {
		return err
	}
	return service.accounts.Logout(ctx, accessToken)
}
