package validations

import (
	"context"
	"errors"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	chatDomain "github.com/lhudash/chisa-api/chathistory/domain"
	domainChat "github.com/lhudash/chisa-api/domains/chat"
	pkgError "github.com/lhudash/chisa-api/pkg/error"
)

var errInvalidChatID = errors.New("invalid chat id")

func isChatID(value any) error {
	s, _ := value.(string)
	if _, err := uuid.Parse(s); err != nil {
		return errInvalidChatID
	}
	return nil
}

func isRole(value any) error {
	s, _ := value.(string)
	if !chatDomain.Role(s).Valid() {
		return errors.New("must be user, assistant or system")
	}
	return nil
}

func ValidateCreateChat(ctx context.Context, request domainChat.CreateChatRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.UserID, validation.Required),
	)
	if err != nil {
		return pkgError.ValidationError(err.Error())
	}
	return nil
}

func ValidatePersistMessages(ctx context.Context, request domainChat.PersistMessagesRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.ChatID, validation.Required, validation.By(isChatID)),
		validation.Field(&request.UserID, validation.Required),
		validation.Field(&request.Messages, validation.Required),
	)
	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	for _, m := range request.Messages {
		err := validation.ValidateStructWithContext(ctx, &m,
			validation.Field(&m.Role, validation.Required, validation.By(isRole)),
			validation.Field(&m.Content, validation.Required),
		)
		if err != nil {
			return pkgError.ValidationError("messages: " + err.Error())
		}
	}
	return nil
}

func ValidateListChats(ctx context.Context, query domainChat.ListChatsQuery) error {
	err := validation.ValidateStructWithContext(ctx, &query,
		validation.Field(&query.UserID, validation.Required),
		validation.Field(&query.Limit, validation.Min(0), validation.Max(chatDomain.MaxPageLimit)),
	)
	if err != nil {
		return pkgError.ValidationError(err.Error())
	}
	return nil
}

func ValidateHistory(ctx context.Context, query domainChat.HistoryQuery) error {
	err := validation.ValidateStructWithContext(ctx, &query,
		validation.Field(&query.ChatID, validation.Required, validation.By(isChatID)),
		validation.Field(&query.UserID, validation.Required),
		validation.Field(&query.Limit, validation.Min(0), validation.Max(chatDomain.MaxPageLimit)),
		validation.Field(&query.Skip, validation.Min(0)),
		validation.Field(&query.Page, validation.Min(0)),
	)
	if err != nil {
		return pkgError.ValidationError(err.Error())
	}
	return nil
}

func ValidateChatOwner(ctx context.Context, chatID, userID string) error {
	if err := isChatID(chatID); err != nil {
		return pkgError.ValidationError(err.Error())
	}
	if userID == "" {
		return pkgError.ValidationError("user_id: cannot be blank.")
	}
	return nil
}
