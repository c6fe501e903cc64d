package usecase

import (
	"context"

	chatApp "github.com/lhudash/chisa-api/chathistory/application"
	chatDomain "github.com/lhudash/chisa-api/chathistory/domain"
	domainChat "github.com/lhudash/chisa-api/domains/chat"
	"github.com/lhudash/chisa-api/validations"
)

// ChatStore is the part of the chat history service the REST layer reaches.
type ChatStore interface {
	CreateChat(ctx context.Context, userID string) (*chatDomain.Chat, error)
	PersistMessages(ctx context.Context, chatID, userID string, msgs []chatDomain.Message) ([]chatDomain.Summary, error)
	Summaries(ctx context.Context, userID string) ([]chatDomain.Summary, error)
	SummariesPage(ctx context.Context, userID string, limit int, cursor string) (chatApp.SummaryPage, error)
	History(ctx context.Context, chatID, userID string, req chatApp.HistoryRequest) (chatApp.HistoryResult, error)
	DeleteChat(ctx context.Context, chatID, userID string) error
}

type serviceChat struct {
	store ChatStore
}

func NewChatService(store ChatStore) domainChat.IChatUsecase {
	return &serviceChat{store: store}
}

func (service serviceChat) CreateChat(ctx context.Context, request domainChat.CreateChatRequest) (*chatDomain.Chat, error) {
	if err := validations.ValidateCreateChat(ctx, request); err != nil {
		return nil, err
	}
	return service.store.CreateChat(ctx, request.UserID)
}

// ListChats returns every chat when neither limit nor cursor is given,
// otherwise one page.
func (service serviceChat) ListChats(ctx context.Context, query domainChat.ListChatsQuery) (chatApp.SummaryPage, error) {
	if err := validations.ValidateListChats(ctx, query); err != nil {
		return chatApp.SummaryPage{}, err
	}

	if query.Limit == 0 && query.Cursor == "" {
		summaries, err := service.store.Summaries(ctx, query.UserID)
		if err != nil {
			return chatApp.SummaryPage{}, err
		}
		return chatApp.SummaryPage{Chats: summaries}, nil
	}
	return service.store.SummariesPage(ctx, query.UserID, query.Limit, query.Cursor)
}

func (service serviceChat) History(ctx context.Context, query domainChat.HistoryQuery) (chatApp.HistoryResult, error) {
	if err := validations.ValidateHistory(ctx, query); err != nil {
		return chatApp.HistoryResult{}, err
	}
	return service.store.History(ctx, query.ChatID, query.UserID, chatApp.HistoryRequest{
		Limit: query.Limit,
		Skip:  query.Skip,
		After: query.After,
		Page:  query.Page,
	})
}

func (service serviceChat) PersistMessages(ctx context.Context, request domainChat.PersistMessagesRequest) ([]chatDomain.Summary, error) {
	if err := validations.ValidatePersistMessages(ctx, request); err != nil {
		return nil, err
	}
	return service.store.PersistMessages(ctx, request.ChatID, request.UserID, request.ToMessages())
}

func (service serviceChat) DeleteChat(ctx context.Context, chatID, userID string) error {
	if err := validations.ValidateChatOwner(ctx, chatID, userID); err != nil {
		return err
	}
	return service.store.DeleteChat(ctx, chatID, userID)
}
