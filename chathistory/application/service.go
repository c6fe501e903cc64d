package application

import (
	"context"
	"errors"
	"strings"

	"github.com/lhudash/chisa-api/chathistory/domain"
	"github.com/lhudash/chisa-api/chathistory/infrastructure"
	pkgError "github.com/lhudash/chisa-api/pkg/error"
	"github.com/sirupsen/logrus"
)

// OwnerDirectory tells whether a user has a stored profile.
type OwnerDirectory interface {
	Exists(ctx context.Context, userID string) (bool, error)
}

// SummaryPage is the API shape of a paginated chat listing.
type SummaryPage struct {
	Chats      []domain.Summary `json:"chats"`
	NextCursor string           `json:"next_cursor,omitempty"`
}

// ChatService is the entry point for chat history reads and writes.
type ChatService struct {
	repo   domain.Repository
	buffer *infrastructure.WriteBuffer
	owners OwnerDirectory
}

func NewChatService(repo domain.Repository, buffer *infrastructure.WriteBuffer, owners OwnerDirectory) *ChatService {
	return &ChatService{repo: repo, buffer: buffer, owners: owners}
}

// CreateChat opens a new chat for a known user.
func (s *ChatService) CreateChat(ctx context.Context, userID string) (*domain.Chat, error) {
	if err := s.requireOwner(ctx, userID); err != nil {
		return nil, err
	}
	return s.repo.CreateChat(ctx, userID)
}

// PersistMessages writes msgs to chatID before returning and reports the
// user's chat summaries.
func (s *ChatService) PersistMessages(ctx context.Context, chatID, userID string, msgs []domain.Message) ([]domain.Summary, error) {
	if len(msgs) == 0 {
		return nil, pkgError.ValidationError("messages required")
	}
	for _, m := range msgs {
		if !m.Role.Valid() {
			return nil, pkgError.ValidationError("invalid message role: " + string(m.Role))
		}
	}

	chat, err := s.repo.GetChatForOwner(ctx, chatID, userID)
	if err != nil {
		return nil, err
	}

	s.buffer.Append(chat.ID, userID, msgs)
	s.buffer.FlushNow(ctx, chat.ID)

	return s.repo.ListSummaries(ctx, userID)
}

func (s *ChatService) Summaries(ctx context.Context, userID string) ([]domain.Summary, error) {
	return s.repo.ListSummaries(ctx, userID)
}

// SummariesPage lists chats newest first. cursor is the NextCursor of the
// previous page.
func (s *ChatService) SummariesPage(ctx context.Context, userID string, limit int, cursor string) (SummaryPage, error) {
	after, err := domain.ParseCursor(cursor)
	if err != nil {
		return SummaryPage{}, err
	}

	page, err := s.repo.ListSummariesPage(ctx, userID, limit, after)
	if err != nil {
		return SummaryPage{}, err
	}

	out := SummaryPage{Chats: page.Items}
	if page.NextCursor != nil {
		out.NextCursor = page.NextCursor.Encode()
	}
	return out, nil
}

// HistoryRequest selects a slice of a chat. Page > 0 switches to offset
// pagination with Limit as the page size.
type HistoryRequest struct {
	Limit int
	Skip  int
	After string
	Page  int
}

// HistoryResult carries the messages plus the cursor to continue from.
type HistoryResult struct {
	Messages   []domain.Message `json:"messages"`
	NextCursor string           `json:"next_cursor,omitempty"`
}

func (s *ChatService) History(ctx context.Context, chatID, userID string, req HistoryRequest) (HistoryResult, error) {
	if _, err := s.repo.GetChatForOwner(ctx, chatID, userID); err != nil {
		return HistoryResult{}, err
	}

	var (
		msgs []domain.Message
		err  error
	)
	if req.Page > 0 {
		msgs, err = s.repo.LoadHistoryPage(ctx, chatID, req.Page, req.Limit)
	} else {
		after, perr := domain.ParseCursor(req.After)
		if perr != nil {
			return HistoryResult{}, perr
		}
		msgs, err = s.repo.LoadHistory(ctx, chatID, domain.HistoryQuery{Limit: req.Limit, Skip: req.Skip, After: after})
	}
	if err != nil {
		return HistoryResult{}, err
	}

	out := HistoryResult{Messages: msgs}
	if n := len(msgs); n > 0 {
		last := msgs[n-1]
		out.NextCursor = domain.Cursor{Time: last.CreatedAt, ID: last.ID}.Encode()
	}
	return out, nil
}

// DeleteChat removes an owned chat, its messages and anything still buffered.
func (s *ChatService) DeleteChat(ctx context.Context, chatID, userID string) error {
	if _, err := s.repo.GetChatForOwner(ctx, chatID, userID); err != nil {
		return err
	}
	s.buffer.Discard(chatID)
	return s.repo.DeleteChat(ctx, chatID)
}

// RecordTurn queues one assistant exchange. The chat is resolved by id, then
// a new chat is opened for the user, then the latest chat is reused.
func (s *ChatService) RecordTurn(ctx context.Context, chatID, userID string, msgs []domain.Message) (string, error) {
	if len(msgs) == 0 {
		return "", nil
	}

	chat, err := s.resolveChat(ctx, chatID, userID)
	if err != nil {
		return "", err
	}

	s.buffer.Append(chat.ID, userID, msgs)
	return chat.ID, nil
}

func (s *ChatService) resolveChat(ctx context.Context, chatID, userID string) (*domain.Chat, error) {
	if strings.TrimSpace(chatID) != "" {
		chat, err := s.repo.GetChatForOwner(ctx, chatID, userID)
		if err == nil {
			return chat, nil
		}
		if !errors.Is(err, domain.ErrChatNotFound) {
			return nil, err
		}
	}

	chat, err := s.CreateChat(ctx, userID)
	if err == nil {
		return chat, nil
	}
	if errors.Is(err, domain.ErrOwnerNotFound) {
		return nil, err
	}
	logrus.WithError(err).WithField("user_id", userID).Warn("[CHAT] Could not open a new chat, reusing latest")
	return s.repo.GetOrCreateChat(ctx, userID)
}

func (s *ChatService) requireOwner(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return pkgError.ValidationError("user_id required")
	}
	if s.owners == nil {
		return nil
	}
	ok, err := s.owners.Exists(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrOwnerNotFound
	}
	return nil
}

// BufferStats is reported by the monitoring endpoint.
type BufferStats struct {
	Pending int `json:"pending"`
	Locks   int `json:"locks"`
}

func (s *ChatService) BufferStats() BufferStats {
	entries, locks := s.buffer.Tracked()
	return BufferStats{Pending: entries, Locks: locks}
}
