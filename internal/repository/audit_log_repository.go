package repository

import (
	"context"
	"time"

	"fulfillment/internal/domain/model"
)

// AuditQuery はnilの項目を条件に含めない。Limitが0なら既定件数
type AuditQuery struct {
	ActorUserID  *int64
	Action       *model.AuditAction
	ResourceType *model.AuditResourceType
	ResourceID   *string
	Since        *time.Time
	Until        *time.Time
	Limit        int
	Offset       int
}

// AuditLogRepository は追記専用。更新・削除は持たない
type AuditLogRepository interface {
	Append(ctx context.Context, log model.AuditLog) error

	//新しい順
	List(ctx context.Context, q AuditQuery) ([]model.AuditLog, error)
}
