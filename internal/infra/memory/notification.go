package memory

import (
	"context"
	"sync"
	"time"

	"fulfillment/internal/domain/model"
	repo "fulfillment/internal/repository"
)

type NotificationRepository struct {
	mu     sync.Mutex
	nextID int64
	items  []model.Notification
}

func NewNotificationRepository() *NotificationRepository {
	return &NotificationRepository{}
}

func (r *NotificationRepository) Create(ctx context.Context, n model.Notification) (model.Notification, error) {
	if err := ctx.Err(); err != nil {
		return model.Notification{}, unavailable(err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	n.ID = r.nextID
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	r.items = append(r.items, n)
	return n, nil
}

func visibleTo(n model.Notification, audience model.Audience, recipientID int64) bool {
	return n.Audience == audience && (n.RecipientID == 0 || n.RecipientID == recipientID)
}

func (r *NotificationRepository) ListUnread(ctx context.Context, audience model.Audience, recipientID int64) ([]model.Notification, error) {
	if err := ctx.Err(); err != nil {
		return []model.Notification{}, unavailable(err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []model.Notification{}
	for i := len(r.items) - 1; i >= 0; i-- {
		n := r.items[i]
		if !n.IsRead && visibleTo(n, audience, recipientID) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (r *NotificationRepository) MarkRead(ctx context.Context, id int64, audience model.Audience, recipientID int64) error {
	if err := ctx.Err(); err != nil {
		return unavailable(err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.items {
		if r.items[i].ID == id && visibleTo(r.items[i], audience, recipientID) {
			r.items[i].IsRead = true
			return nil
		}
	}
	return repo.ErrNotFound
}
