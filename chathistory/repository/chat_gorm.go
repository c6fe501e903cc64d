package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lhudash/chisa-api/chathistory/domain"
	"gorm.io/gorm"
)

// --- Persistence Models ---

type chatModel struct {
	ID        string    `gorm:"primaryKey"`
	OwnerID   string    `gorm:"index:idx_chats_owner_updated,priority:1;not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"index:idx_chats_owner_updated,priority:2;not null"`
}

func (chatModel) TableName() string {
	return "chats"
}

type messageModel struct {
	ID        string    `gorm:"primaryKey"`
	ChatID    string    `gorm:"index:idx_messages_chat_created,priority:1;not null"`
	Role      string    `gorm:"not null"`
	Content   string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"index:idx_messages_chat_created,priority:2;not null"`
}

func (messageModel) TableName() string {
	return "messages"
}

// --- Repository Implementation ---

type ChatGormRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewChatGormRepository(db *gorm.DB) *ChatGormRepository {
	return &ChatGormRepository{db: db, now: time.Now}
}

func (r *ChatGormRepository) InitSchema(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&chatModel{}, &messageModel{})
}

// timestamp keeps microsecond precision so sqlite and postgres compare the same.
func (r *ChatGormRepository) timestamp() time.Time {
	return r.now().UTC().Truncate(time.Microsecond)
}

// Chats

func (r *ChatGormRepository) CreateChat(ctx context.Context, ownerID string) (*domain.Chat, error) {
	now := r.timestamp()
	m := chatModel{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return nil, err
	}
	return fromChatModel(m), nil
}

func (r *ChatGormRepository) GetChat(ctx context.Context, chatID string) (*domain.Chat, error) {
	var m chatModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", chatID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrChatNotFound
		}
		return nil, err
	}
	return fromChatModel(m), nil
}

// GetChatForOwner returns ErrChatNotFound both for missing chats and chats
// owned by someone else.
func (r *ChatGormRepository) GetChatForOwner(ctx context.Context, chatID, ownerID string) (*domain.Chat, error) {
	var m chatModel
	err := r.db.WithContext(ctx).Where("id = ? AND owner_id = ?", chatID, ownerID).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrChatNotFound
		}
		return nil, err
	}
	return fromChatModel(m), nil
}

func (r *ChatGormRepository) LatestChat(ctx context.Context, ownerID string) (*domain.Chat, error) {
	var m chatModel
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("updated_at DESC").Order("id DESC").
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrChatNotFound
		}
		return nil, err
	}
	return fromChatModel(m), nil
}

func (r *ChatGormRepository) GetOrCreateChat(ctx context.Context, ownerID string) (*domain.Chat, error) {
	chat, err := r.LatestChat(ctx, ownerID)
	if err == nil {
		return chat, nil
	}
	if !errors.Is(err, domain.ErrChatNotFound) {
		return nil, err
	}
	return r.CreateChat(ctx, ownerID)
}

// DeleteChat removes the chat and all of its messages.
func (r *ChatGormRepository) DeleteChat(ctx context.Context, chatID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("chat_id = ?", chatID).Delete(&messageModel{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", chatID).Delete(&chatModel{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrChatNotFound
		}
		return nil
	})
}

// Messages

// LoadHistory returns messages oldest first. A cursor continues strictly after
// (createdAt, id) and ignores Skip.
func (r *ChatGormRepository) LoadHistory(ctx context.Context, chatID string, q domain.HistoryQuery) ([]domain.Message, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = domain.DefaultHistoryLimit
	}

	query := r.db.WithContext(ctx).Model(&messageModel{}).Where("chat_id = ?", chatID)
	if q.After != nil {
		after := q.After.Time.UTC()
		query = query.Where("(created_at > ?) OR (created_at = ? AND id > ?)", after, after, q.After.ID)
	} else if q.Skip > 0 {
		query = query.Offset(q.Skip)
	}

	var models []messageModel
	if err := query.Order("created_at ASC").Order("id ASC").Limit(limit).Find(&models).Error; err != nil {
		return nil, err
	}

	out := make([]domain.Message, 0, len(models))
	for _, m := range models {
		out = append(out, fromMessageModel(m))
	}
	return out, nil
}

// LoadHistoryPage is offset pagination with a 1-based page.
func (r *ChatGormRepository) LoadHistoryPage(ctx context.Context, chatID string, page, size int) ([]domain.Message, error) {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = domain.DefaultHistoryLimit
	}
	return r.LoadHistory(ctx, chatID, domain.HistoryQuery{Skip: (page - 1) * size, Limit: size})
}

// BulkInsert writes msgs in order. Messages without a timestamp get
// increasing ones so history order matches insertion order.
func (r *ChatGormRepository) BulkInsert(ctx context.Context, chatID string, msgs []domain.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	base := r.timestamp()
	models := make([]messageModel, 0, len(msgs))
	for i, msg := range msgs {
		m := toMessageModel(msg)
		m.ChatID = chatID
		if m.ID == "" {
			m.ID = uuid.New().String()
		}
		if m.CreatedAt.IsZero() {
			m.CreatedAt = base.Add(time.Duration(i) * time.Microsecond)
		} else {
			m.CreatedAt = m.CreatedAt.UTC().Truncate(time.Microsecond)
		}
		models = append(models, m)
	}

	return r.db.WithContext(ctx).CreateInBatches(&models, 100).Error
}

func (r *ChatGormRepository) TouchUpdatedAt(ctx context.Context, chatID string) error {
	return r.db.WithContext(ctx).Model(&chatModel{}).
		Where("id = ?", chatID).
		UpdateColumn("updated_at", r.timestamp()).Error
}

// PruneOldest keeps the newest keep chats of ownerID by updatedAt and deletes
// the rest along with their messages.
func (r *ChatGormRepository) PruneOldest(ctx context.Context, ownerID string, keep int) error {
	if keep < 0 {
		keep = 0
	}

	var all []string
	err := r.db.WithContext(ctx).Model(&chatModel{}).
		Where("owner_id = ?", ownerID).
		Order("updated_at DESC").Order("id DESC").
		Pluck("id", &all).Error
	if err != nil {
		return err
	}
	if len(all) <= keep {
		return nil
	}
	ids := all[keep:]

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("chat_id IN ?", ids).Delete(&messageModel{}).Error; err != nil {
			return err
		}
		return tx.Where("id IN ?", ids).Delete(&chatModel{}).Error
	})
}

// Summaries

func (r *ChatGormRepository) ListSummaries(ctx context.Context, ownerID string) ([]domain.Summary, error) {
	var chats []chatModel
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("updated_at DESC").Order("id DESC").
		Find(&chats).Error
	if err != nil {
		return nil, err
	}
	return r.summarize(ctx, chats)
}

// ListSummariesPage returns up to limit chats ordered by updatedAt desc, id
// desc, and a cursor when more rows follow.
func (r *ChatGormRepository) ListSummariesPage(ctx context.Context, ownerID string, limit int, after *domain.Cursor) (domain.SummaryPage, error) {
	limit = domain.ClampPageLimit(limit)

	query := r.db.WithContext(ctx).Where("owner_id = ?", ownerID)
	if after != nil {
		t := after.Time.UTC()
		query = query.Where("(updated_at < ?) OR (updated_at = ? AND id < ?)", t, t, after.ID)
	}

	var chats []chatModel
	if err := query.Order("updated_at DESC").Order("id DESC").Limit(limit + 1).Find(&chats).Error; err != nil {
		return domain.SummaryPage{}, err
	}

	hasMore := len(chats) > limit
	if hasMore {
		chats = chats[:limit]
	}

	items, err := r.summarize(ctx, chats)
	if err != nil {
		return domain.SummaryPage{}, err
	}

	page := domain.SummaryPage{Items: items}
	if hasMore {
		last := chats[len(chats)-1]
		page.NextCursor = &domain.Cursor{Time: last.UpdatedAt, ID: last.ID}
	}
	return page, nil
}

func (r *ChatGormRepository) summarize(ctx context.Context, chats []chatModel) ([]domain.Summary, error) {
	out := make([]domain.Summary, 0, len(chats))
	if len(chats) == 0 {
		return out, nil
	}

	ids := make([]string, 0, len(chats))
	for _, c := range chats {
		ids = append(ids, c.ID)
	}

	var rows []struct {
		ChatID string
		Count  int64
	}
	err := r.db.WithContext(ctx).Model(&messageModel{}).
		Select("chat_id, COUNT(*) AS count").
		Where("chat_id IN ?", ids).
		Group("chat_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.ChatID] = row.Count
	}

	for _, c := range chats {
		out = append(out, domain.Summary{
			ChatID:       c.ID,
			CreatedAt:    c.CreatedAt,
			UpdatedAt:    c.UpdatedAt,
			MessageCount: counts[c.ID],
		})
	}
	return out, nil
}

// --- Mappers ---

func fromChatModel(m chatModel) *domain.Chat {
	return &domain.Chat{
		ID:        m.ID,
		OwnerID:   m.OwnerID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func toMessageModel(m domain.Message) messageModel {
	return messageModel{
		ID:        m.ID,
		ChatID:    m.ChatID,
		Role:      string(m.Role),
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
}

func fromMessageModel(m messageModel) domain.Message {
	return domain.Message{
		ID:        m.ID,
		ChatID:    m.ChatID,
		Role:      domain.Role(m.Role),
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
}
