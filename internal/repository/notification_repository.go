package repository

import (
	"context"

	"fulfillment/internal/domain/model"
)

type NotificationRepository interface {
	Create(ctx context.Context, n model.Notification) (model.Notification, error)

	//区分全体宛て(recipient 0)と本人宛ての未読
	ListUnread(ctx context.Context, audience model.Audience, recipientID int64) ([]model.Notification, error)

	//宛先が一致しなければErrNotFound
	MarkRead(ctx context.Context, id int64, audience model.Audience, recipientID int64) error
}
