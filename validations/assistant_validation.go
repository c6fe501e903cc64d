package validations

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	assistantApp "github.com/lhudash/chisa-api/assistant/application"
	pkgError "github.com/lhudash/chisa-api/pkg/error"
)

func ValidateAssistantChat(ctx context.Context, request assistantApp.ChatInput) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.AccessToken, validation.Required),
		validation.Field(&request.Messages, validation.Required, validation.Length(1, 200)),
	)
	if err != nil {
		return pkgError.ValidationError(err.Error())
	}
	if request.ChatID != "" {
		if err := isChatID(request.ChatID); err != nil {
			return pkgError.ValidationError("id: " + err.Error())
		}
	}
	return nil
}
