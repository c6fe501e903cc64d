package repository

import (
	"context"
	"errors"
	"time"

	"github.com/lhudash/chisa-api/profiles/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// --- Persistence Model ---

// Only the fields the chat features need are persisted; the rest stays in memory.
type profileModel struct {
	UserID         string `gorm:"primaryKey;column:user_id"`
	FullName       string
	Class          string `gorm:"index:idx_users_class"`
	DepartmentName string
	CreatedAt      time.Time `gorm:"not null"`
	UpdatedAt      time.Time `gorm:"not null"`
}

func (profileModel) TableName() string {
	return "users"
}

// --- Repository Implementation ---

type ProfileGormRepository struct {
	db *gorm.DB
}

func NewProfileGormRepository(db *gorm.DB) *ProfileGormRepository {
	return &ProfileGormRepository{db: db}
}

func (r *ProfileGormRepository) InitSchema(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&profileModel{})
}

func (r *ProfileGormRepository) FetchByID(ctx context.Context, userID string) (domain.Profile, error) {
	var m profileModel
	if err := r.db.WithContext(ctx).First(&m, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Profile{}, domain.ErrProfileNotFound
		}
		return domain.Profile{}, err
	}
	return fromProfileModel(m), nil
}

// Upsert inserts the profile or refreshes the persisted columns.
func (r *ProfileGormRepository) Upsert(ctx context.Context, profile domain.Profile) error {
	now := time.Now()
	m := toProfileModel(profile)
	m.CreatedAt = now
	m.UpdatedAt = now

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"full_name", "class", "department_name", "updated_at"}),
	}).Create(&m).Error
}

func (r *ProfileGormRepository) Exists(ctx context.Context, userID string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&profileModel{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// --- Mappers ---

func toProfileModel(p domain.Profile) profileModel {
	return profileModel{
		UserID:         p.UserID,
		FullName:       p.FullName,
		Class:          p.Class,
		DepartmentName: p.DepartmentName,
	}
}

func fromProfileModel(m profileModel) domain.Profile {
	return domain.Profile{
		UserID:         m.UserID,
		FullName:       m.FullName,
		Class:          m.Class,
		DepartmentName: m.DepartmentName,
	}
}
