package memory

import (
	"context"
	"sync"

	"fulfillment/internal/domain/model"
	repo "fulfillment/internal/repository"
)

type AuditLogRepository struct {
	mu     sync.Mutex
	nextID int64
	logs   []model.AuditLog
}

func NewAuditLogRepository() *AuditLogRepository {
	return &AuditLogRepository{}
}

func (r *AuditLogRepository) Append(ctx context.Context, log model.AuditLog) error {
	if err := ctx.Err(); err != nil {
		return unavailable(err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	log.ID = r.nextID
	r.logs = append(r.logs, log)
	return nil
}

func (r *AuditLogRepository) List(ctx context.Context, filter repo.AuditQuery) ([]model.AuditLog, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable(err)
	}
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	//新しい順
	var out []model.AuditLog
	skipped := 0
	for i := len(r.logs) - 1; i >= 0 && len(out) < limit; i-- {
		l := r.logs[i]
		if !matchAudit(l, filter) {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func matchAudit(l model.AuditLog, f repo.AuditQuery) bool {
	if f.ActorUserID != nil && l.ActorUserID != *f.ActorUserID {
		return false
	}
	if f.Action != nil && l.Action != *f.Action {
		return false
	}
	if f.ResourceType != nil && l.ResourceType != *f.ResourceType {
		return false
	}
	if f.ResourceID != nil && l.ResourceID != *f.ResourceID {
		return false
	}
	if f.Since != nil && l.CreatedAt.Before(*f.Since) {
		return false
	}
	if f.Until != nil && l.CreatedAt.After(*f.Until) {
		return false
	}
	return true
}
