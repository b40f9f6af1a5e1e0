package usecase

import (
	"context"
	"time"

	"fulfillment/internal/domain/model"
	repo "fulfillment/internal/repository"
)

// AuditUsecase は監査ログの閲覧（CSR/Admin）
type AuditUsecase struct {
	audits repo.AuditLogRepository
}

func NewAuditUsecase(audits repo.AuditLogRepository) *AuditUsecase {
	return &AuditUsecase{audits: audits}
}

type ListAuditLogsInput struct {
	ActorUserID *int64
	Action      string
	ResourceID  string
	From        *time.Time
	To          *time.Time
	Limit       int
	Offset      int
}

func (u *AuditUsecase) List(ctx context.Context, in ListAuditLogsInput) ([]model.AuditLog, error) {
	if in.Limit < 0 || in.Limit > 200 {
		return nil, validationError("invalid limit")
	}
	if in.Offset < 0 {
		return nil, validationError("invalid offset")
	}
	if in.From != nil && in.To != nil && in.From.After(*in.To) {
		return nil, validationError("from must be <= to")
	}

	f := repo.AuditQuery{
		ActorUserID: in.ActorUserID,
		Since:       in.From,
		Until:       in.To,
		Limit:       in.Limit,
		Offset:      in.Offset,
	}
	if in.Action != "" {
		a := model.AuditAction(in.Action)
		switch a {
		case model.AuditActionMarkDelivered, model.AuditActionResolveCancellation, model.AuditActionRestock:
		default:
			return nil, validationError("invalid action")
		}
		f.Action = &a
	}
	if in.ResourceID != "" {
		id := in.ResourceID
		f.ResourceID = &id
	}

	logs, err := u.audits.List(ctx, f)
	if err != nil {
		return nil, storeError(err)
	}
	if logs == nil {
		logs = []model.AuditLog{}
	}
	return logs, nil
}
