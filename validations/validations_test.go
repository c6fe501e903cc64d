package validations

import (
	"context"
	"testing"

	"github.com/google/uuid"
	assistantApp "github.com/lhudash/chisa-api/assistant/application"
	"github.com/lhudash/chisa-api/assistant/domain"
	domainChat "github.com/lhudash/chisa-api/domains/chat"
	domainUser "github.com/lhudash/chisa-api/domains/user"
	pkgError "github.com/lhudash/chisa-api/pkg/error"
	"github.com/stretchr/testify/assert"
)

func TestValidateLogin(t *testing.T) {
	ctx := context.Background()
	ok := domainUser.LoginRequest{UserID: "123", Password: "pw", DeviceInfo: `{"os":"web"}`}
	assert.NoError(t, ValidateLogin(ctx, ok))

	bad := ok
	bad.DeviceInfo = "web"
	err := ValidateLogin(ctx, bad)
	var vErr pkgError.ValidationError
	assert.ErrorAs(t, err, &vErr)
	assert.Contains(t, err.Error(), "device_info")

	bad = ok
	bad.Password = ""
	assert.Error(t, ValidateLogin(ctx, bad))
}

func TestValidatePersistMessages(t *testing.T) {
	ctx := context.Background()
	req := domainChat.PersistMessagesRequest{
		ChatID:   uuid.NewString(),
		UserID:   "123",
		Messages: []domainChat.MessageInput{{Role: "user", Content: "hi"}},
	}
	assert.NoError(t, ValidatePersistMessages(ctx, req))

	req.Messages = append(req.Messages, domainChat.MessageInput{Role: "robot", Content: "x"})
	assert.Error(t, ValidatePersistMessages(ctx, req))

	req.Messages = nil
	assert.Error(t, ValidatePersistMessages(ctx, req))

	req.Messages = []domainChat.MessageInput{{Role: "user", Content: "hi"}}
	req.ChatID = "not-a-uuid"
	assert.Error(t, ValidatePersistMessages(ctx, req))
}

func TestValidateHistoryAndList(t *testing.T) {
	ctx := context.Background()
	assert.NoError(t, ValidateHistory(ctx, domainChat.HistoryQuery{ChatID: uuid.NewString(), UserID: "1", Limit: 20}))
	assert.Error(t, ValidateHistory(ctx, domainChat.HistoryQuery{ChatID: uuid.NewString(), UserID: "1", Limit: 101}))
	assert.Error(t, ValidateHistory(ctx, domainChat.HistoryQuery{ChatID: uuid.NewString(), UserID: "1", Skip: -1}))

	assert.NoError(t, ValidateListChats(ctx, domainChat.ListChatsQuery{UserID: "1"}))
	assert.Error(t, ValidateListChats(ctx, domainChat.ListChatsQuery{}))

	assert.NoError(t, ValidateCreateChat(ctx, domainChat.CreateChatRequest{UserID: "1"}))
	assert.Error(t, ValidateCreateChat(ctx, domainChat.CreateChatRequest{}))
}

func TestValidateAssistantChat(t *testing.T) {
	ctx := context.Background()
	in := assistantApp.ChatInput{
		AccessToken: "tok",
		Messages:    []domain.InputMessage{{Role: "user", Content: "hi"}},
	}
	assert.NoError(t, ValidateAssistantChat(ctx, in))

	in.ChatID = "nope"
	assert.Error(t, ValidateAssistantChat(ctx, in))

	in.ChatID = ""
	in.AccessToken = ""
	assert.Error(t, ValidateAssistantChat(ctx, in))
}

func TestValidateAccessToken(t *testing.T) {
	var unauthorized pkgError.UnauthorizedError
	assert.ErrorAs(t, ValidateAccessToken(" "), &unauthorized)
	assert.NoError(t, ValidateAccessToken("abc"))
}
