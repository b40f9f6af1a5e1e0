package usecase

import (
	"context"
	"errors"
	"fmt"

	"fulfillment/internal/domain/model"
	repo "fulfillment/internal/repository"
)

type NotificationUsecase struct {
	notifications repo.NotificationRepository
}

func NewNotificationUsecase(notifications repo.NotificationRepository) *NotificationUsecase {
	return &NotificationUsecase{notifications: notifications}
}

// ListUnread はロールの区分宛て（全体宛て含む）の未読を返す
func (u *NotificationUsecase) ListUnread(ctx context.Context, viewer Viewer) ([]model.Notification, error) {
	items, err := u.notifications.ListUnread(ctx, model.AudienceFor(viewer.Role), viewer.UserID)
	if err != nil {
		return nil, storeError(err)
	}
	return items, nil
}

func (u *NotificationUsecase) MarkRead(ctx context.Context, viewer Viewer, id int64) error {
	if id <= 0 {
		return validationError("invalid notification id")
	}
	err := u.notifications.MarkRead(ctx, id, model.AudienceFor(viewer.Role), viewer.UserID)
	if errors.Is(err, repo.ErrNotFound) {
		return fmt.Errorf("%w: %d", ErrNotificationNotFound, id)
	}
	if err != nil {
		return storeError(err)
	}
	return nil
}
