package repository

import (
	"context"
	"time"

	"fulfillment/internal/domain/model"
	repo "fulfillment/internal/repository"

	"gorm.io/gorm"
)

type notificationGormRepository struct {
	db *gorm.DB
}

func NewNotificationGormRepository(db *gorm.DB) repo.NotificationRepository {
	return &notificationGormRepository{db: db}
}

func (r *notificationGormRepository) Create(ctx context.Context, n model.Notification) (model.Notification, error) {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	if err := r.db.WithContext(ctx).Create(&n).Error; err != nil {
		return model.Notification{}, classify(err)
	}
	return n, nil
}

func (r *notificationGormRepository) ListUnread(ctx context.Context, audience model.Audience, recipientID int64) ([]model.Notification, error) {
	out := []model.Notification{}
	err := r.db.WithContext(ctx).
		Where("audience = ? AND is_read = ?", audience, false).
		Where("recipient_id = 0 OR recipient_id = ?", recipientID).
		Order("id desc").
		Find(&out).Error
	if err != nil {
		return []model.Notification{}, classify(err)
	}
	return out, nil
}

func (r *notificationGormRepository) MarkRead(ctx context.Context, id int64, audience model.Audience, recipientID int64) error {
	res := r.db.WithContext(ctx).Model(&model.Notification{}).
		Where("id = ? AND audience = ?", id, audience).
		Where("recipient_id = 0 OR recipient_id = ?", recipientID).
		Update("is_read", true)
	if res.Error != nil {
		return classify(res.Error)
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}
