package chat

import (
	"context"

	chatApp "github.com/lhudash/chisa-api/chathistory/application"
	chatDomain "github.com/lhudash/chisa-api/chathistory/domain"
)

type IChatUsecase interface {
	CreateChat(ctx context.Context, request CreateChatRequest) (*chatDomain.Chat, error)
	ListChats(ctx context.Context, query ListChatsQuery) (chatApp.SummaryPage, error)
	History(ctx context.Context, query HistoryQuery) (chatApp.HistoryResult, error)
	PersistMessages(ctx context.Context, request PersistMessagesRequest) ([]chatDomain.Summary, error)
	DeleteChat(ctx context.Context, chatID, userID string) error
}

type CreateChatRequest struct {
	UserID string `json:"user_id" form:"user_id"`
}

type MessageInput struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type PersistMessagesRequest struct {
	ChatID   string         `json:"-"`
	UserID   string         `json:"user_id"`
	Messages []MessageInput `json:"messages"`
}

// ToMessages converts the validated input into stored messages.
func (r PersistMessagesRequest) ToMessages() []chatDomain.Message {
	out := make([]chatDomain.Message, 0, len(r.Messages))
	for _, m := range r.Messages {
		out = append(out, chatDomain.Message{Role: chatDomain.Role(m.Role), Content: m.Content})
	}
	return out
}

type ListChatsQuery struct {
	UserID string `query:"user_id"`
	Limit  int    `query:"limit"`
	Cursor string `query:"cursor"`
}

type HistoryQuery struct {
	ChatID string `query:"-"`
	UserID string `query:"user_id"`
	Limit  int    `query:"limit"`
	Skip   int    `query:"skip"`
	After  string `query:"after"`
	Page   int    `query:"page"`
}
