package domain

import (
	"context"
	"time"

	pkgError "github.com/lhudash/chisa-api/pkg/error"
)

var (
	ErrChatNotFound  = pkgError.NotFoundError("chat not found")
	ErrOwnerNotFound = pkgError.NotFoundError("user not found")
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// Chat is one conversation owned by a user.
type Chat struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Message struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chat_id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Summary is a chat listing row.
type Summary struct {
	ChatID       string    `json:"chatId"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	MessageCount int64     `json:"messageCount"`
}

// Cursor points at a row by its sort key and id.
type Cursor struct {
	Time time.Time
	ID   string
}

const (
	DefaultHistoryLimit = 20
	DefaultPageLimit    = 20
	MaxPageLimit        = 100
)

// HistoryQuery selects messages in chronological order. When After is set
// Skip is ignored.
type HistoryQuery struct {
	Limit int
	Skip  int
	After *Cursor
}

type SummaryPage struct {
	Items      []Summary `json:"items"`
	NextCursor *Cursor   `json:"-"`
}

// ClampPageLimit applies the 1..100 window with a default of 20.
func ClampPageLimit(limit int) int {
	if limit <= 0 {
		return DefaultPageLimit
	}
	if limit > MaxPageLimit {
		return MaxPageLimit
	}
	return limit
}

// Repository persists chats and their messages.
type Repository interface {
	InitSchema(ctx context.Context) error

	CreateChat(ctx context.Context, ownerID string) (*Chat, error)
	GetChat(ctx context.Context, chatID string) (*Chat, error)
	GetChatForOwner(ctx context.Context, chatID, ownerID string) (*Chat, error)
	LatestChat(ctx context.Context, ownerID string) (*Chat, error)
	GetOrCreateChat(ctx context.Context, ownerID string) (*Chat, error)
	DeleteChat(ctx context.Context, chatID string) error

	LoadHistory(ctx context.Context, chatID string, q HistoryQuery) ([]Message, error)
	LoadHistoryPage(ctx context.Context, chatID string, page, size int) ([]Message, error)

	BulkInsert(ctx context.Context, chatID string, msgs []Message) error
	TouchUpdatedAt(ctx context.Context, chatID string) error
	PruneOldest(ctx context.Context, ownerID string, keep int) error

	ListSummaries(ctx context.Context, ownerID string) ([]Summary, error)
	ListSummariesPage(ctx context.Context, ownerID string, limit int, after *Cursor) (SummaryPage, error)
}
