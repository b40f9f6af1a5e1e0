package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"fulfillment/internal/domain/model"
	"fulfillment/internal/metrics"
	repo "fulfillment/internal/repository"

	"go.uber.org/zap"
)

type CancellationUsecaseDeps struct {
	Orders     repo.OrderRepository
	Ledger     StockLedger
	Audits     repo.AuditLogRepository
	Notifier   Notifier
	Clock      Clock
	MaxRetries int
	Metrics    *metrics.Collectors
	Logger     *zap.Logger
}

// CancellationUsecase は2段階のキャンセル（顧客の依頼 → CSR/Adminの承認/却下）
type CancellationUsecase struct {
	ledger   StockLedger
	audits   repo.AuditLogRepository
	notifier Notifier
	clock    Clock
	writer   orderWriter
	logger   *zap.Logger
}

func NewCancellationUsecase(d CancellationUsecaseDeps) *CancellationUsecase {
	if d.Notifier == nil {
		d.Notifier = nopNotifier{}
	}
	if d.Clock == nil {
		d.Clock = SystemClock{}
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return &CancellationUsecase{
		ledger:   d.Ledger,
		audits:   d.Audits,
		notifier: d.Notifier,
		clock:    d.Clock,
		writer:   newOrderWriter(d.Orders, d.Clock, d.MaxRetries, d.Metrics, d.Logger),
		logger:   d.Logger,
	}
}

// RequestCancellation は依頼フラグとメモを立てるだけ。ステータスは変えない。
// すでに依頼中なら何もせず成功（最初のメモを残す）
func (u *CancellationUsecase) RequestCancellation(ctx context.Context, customerID int64, orderID string, note string) (OrderOutput, error) {
	note = strings.TrimSpace(note)
	if customerID <= 0 {
		return OrderOutput{}, validationError("invalid customer id")
	}
	if strings.TrimSpace(orderID) == "" {
		return OrderOutput{}, validationError("order id required")
	}
	if note == "" {
		return OrderOutput{}, validationError("cancellation note required")
	}
	if len(note) > 1000 {
		return OrderOutput{}, validationError("cancellation note too long")
	}

	res, err := u.writer.update(ctx, orderID, func(o model.Order) (repo.OrderMutation, bool, error) {
		//他人の注文は見えない扱い
		if o.CustomerID != customerID {
			return repo.OrderMutation{}, false, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
		}
		if !model.CanRequestCancellation(o.Status) {
			return repo.OrderMutation{}, false, fmt.Errorf("order %s: %w: cannot request cancellation of %s order", orderID, ErrInvalidTransition, o.Status)
		}
		if o.CancellationRequested {
			return repo.OrderMutation{}, false, nil
		}
		return repo.OrderMutation{
			CancellationRequested: boolPtr(true),
			CancellationNote:      &note,
		}, true, nil
	})
	if err != nil {
		return OrderOutput{}, err
	}
	if !res.Written {
		return toOrderOutput(res.After), nil
	}

	u.logger.Info("cancellation requested",
		zap.String("order_id", orderID),
		zap.Int64("customer_id", customerID))
	u.notifier.Notify(ctx, model.Notification{
		Audience:      model.AudienceAdmin,
		Message:       fmt.Sprintf("Cancellation requested for order %s: %s", orderID, note),
		CorrelationID: orderID,
	})
	return toOrderOutput(res.After), nil
}

type ResolveCancellationInput struct {
	Approve bool
	//任意。空なら記録しない
	Note string
}

// ResolveCancellation はCSR/Adminの判断。
// 承認ならCANCELEDへ遷移して全明細の在庫を戻す。却下ならフラグを下ろすだけ。
func (u *CancellationUsecase) ResolveCancellation(ctx context.Context, actorID int64, orderID string, in ResolveCancellationInput) (OrderOutput, error) {
	if actorID <= 0 {
		return OrderOutput{}, validationError("invalid actor id")
	}
	if strings.TrimSpace(orderID) == "" {
		return OrderOutput{}, validationError("order id required")
	}
	note := strings.TrimSpace(in.Note)
	if len(note) > 1000 {
		return OrderOutput{}, validationError("resolution note too long")
	}

	res, err := u.writer.update(ctx, orderID, func(o model.Order) (repo.OrderMutation, bool, error) {
		if o.Status.IsTerminal() {
			return repo.OrderMutation{}, false, fmt.Errorf("order %s: %w: order is %s", orderID, ErrInvalidTransition, o.Status)
		}
		if !o.CancellationRequested {
			return repo.OrderMutation{}, false, fmt.Errorf("order %s: %w: no pending cancellation request", orderID, ErrInvalidTransition)
		}

		m := repo.OrderMutation{CancellationRequested: boolPtr(false)}
		if note != "" {
			m.ResolutionNote = &note
		}
		if in.Approve {
			next, err := model.NextStatus(o.Status, model.OrderEventCancel, o.Items)
			if err != nil {
				return repo.OrderMutation{}, false, fmt.Errorf("order %s: %w", orderID, err)
			}
			m.Status = statusPtr(next)
		}
		return m, true, nil
	})
	if err != nil {
		return OrderOutput{}, err
	}

	action := "rejected"
	if in.Approve {
		action = "approved"
	}
	u.logger.Info("cancellation resolved",
		zap.String("order_id", orderID),
		zap.Int64("actor_id", actorID),
		zap.String("decision", action))

	writeAudit(ctx, u.audits, u.logger, model.AuditLog{
		ActorUserID:  actorID,
		Action:       model.AuditActionResolveCancellation,
		ResourceType: model.AuditResourceOrder,
		ResourceID:   orderID,
		BeforeJSON:   orderStateJSON(res.Before),
		AfterJSON:    orderStateJSON(res.After),
		CreatedAt:    u.clock.Now(),
	})

	var releaseErr error
	if in.Approve {
		releaseErr = u.releaseAll(ctx, res.Before)
	}

	u.notifier.Notify(ctx, model.Notification{
		Audience:      model.AudienceCustomer,
		RecipientID:   res.After.CustomerID,
		Message:       fmt.Sprintf("Your cancellation request for order %s was %s", orderID, action),
		CorrelationID: orderID,
	})

	if releaseErr != nil {
		return OrderOutput{}, fmt.Errorf("order %s canceled but stock release failed: %w", orderID, releaseErr)
	}
	return toOrderOutput(res.After), nil
}

// releaseAll はキャンセル確定後に全明細の在庫を戻す。途中で失敗しても残りは続ける
func (u *CancellationUsecase) releaseAll(ctx context.Context, o model.Order) error {
	ctx = context.WithoutCancel(ctx)
	var errs []error
	for _, it := range o.Items {
		if _, err := u.ledger.Release(ctx, it.ProductID, it.Quantity, o.ID); err != nil {
			u.logger.Error("stock release failed after cancellation",
				zap.String("order_id", o.ID),
				zap.Int64("product_id", it.ProductID),
				zap.Int64("quantity", it.Quantity),
				zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
