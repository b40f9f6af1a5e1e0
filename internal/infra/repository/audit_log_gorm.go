package repository

import (
	"context"
	"time"

	"fulfillment/internal/domain/model"
	repo "fulfillment/internal/repository"

	"gorm.io/gorm"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 200
)

// 監査ログは追記のみ（更新・削除はしない）
type AuditLogGormRepository struct {
	db *gorm.DB
}

func NewAuditLogGormRepository(db *gorm.DB) *AuditLogGormRepository {
	return &AuditLogGormRepository{db: db}
}

func (r *AuditLogGormRepository) Append(ctx context.Context, log model.AuditLog) error {
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	return classify(r.db.WithContext(ctx).Create(&log).Error)
}

func (r *AuditLogGormRepository) List(ctx context.Context, f repo.AuditQuery) ([]model.AuditLog, error) {
	logs := []model.AuditLog{}
	err := r.db.WithContext(ctx).
		Scopes(auditFilter(f), page(f.Limit, f.Offset)).
		Order("id DESC").
		Find(&logs).Error
	if err != nil {
		return nil, classify(err)
	}
	return logs, nil
}

// auditFilter はnilでない条件だけWHEREに足す
func auditFilter(f repo.AuditQuery) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		conds := map[string]any{}
		if f.ActorUserID != nil {
			conds["actor_user_id"] = *f.ActorUserID
		}
		if f.Action != nil {
			conds["action"] = string(*f.Action)
		}
		if f.ResourceType != nil {
			conds["resource_type"] = string(*f.ResourceType)
		}
		if f.ResourceID != nil {
			conds["resource_id"] = *f.ResourceID
		}
		if len(conds) > 0 {
			q = q.Where(conds)
		}
		if f.Since != nil {
			q = q.Where("created_at >= ?", *f.Since)
		}
		if f.Until != nil {
			q = q.Where("created_at <= ?", *f.Until)
		}
		return q
	}
}

func page(limit, offset int) func(*gorm.DB) *gorm.DB {
	if limit <= 0 || limit > maxAuditLimit {
		limit = defaultAuditLimit
	}
	if offset < 0 {
		offset = 0
	}
	return func(q *gorm.DB) *gorm.DB {
		return q.Limit(limit).Offset(offset)
	}
}
