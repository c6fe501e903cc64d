package validations

import (
	"context"
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	domainUser "github.com/lhudash/chisa-api/domains/user"
	pkgError "github.com/lhudash/chisa-api/pkg/error"
)

func ValidateLogin(ctx context.Context, request domainUser.LoginRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.UserID, validation.Required, validation.Length(1, 64)),
		validation.Field(&request.Password, validation.Required),
		validation.Field(&request.DeviceInfo, validation.Required, validation.By(startsWithBrace)),
	)

	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	return nil
}

// startsWithBrace accepts the portal's JSON device descriptor.
func startsWithBrace(value any) error {
	s, _ := value.(string)
	if !strings.HasPrefix(s, "{") {
		return errors.New("must be a JSON object")
	}
	return nil
}

func ValidateAccessToken(token string) error {
	if strings.TrimSpace(token) == "" {
		return pkgError.UnauthorizedError("missing bearer token")
	}
	return nil
}
