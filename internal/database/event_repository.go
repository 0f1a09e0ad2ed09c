package database

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"socialgraph/backend/internal/models"
	"socialgraph/backend/internal/repository"
)

type postgresEventRepository struct {
	db *gorm.DB
}

// NewPostgresEventRepository creates a repository.EventRepository on postgres.
func NewPostgresEventRepository(db *gorm.DB) repository.EventRepository {
	return &postgresEventRepository{db: db}
}

func (r *postgresEventRepository) ListEvents(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.UserEvent, error) {
	var events []models.UserEvent
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&events).Error
	return events, err
}

func (r *postgresEventRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.UserEvent{}).
		Where("user_id = ? AND is_read = false", userID).
		Count(&count).Error
	return count, err
}

func (r *postgresEventRepository) MarkRead(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Model(&models.UserEvent{}).
		Where("user_id = ? AND id IN ?", userID, ids).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}

func (r *postgresEventRepository) DeleteEvent(ctx context.Context, userID, id uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&models.UserEvent{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}
