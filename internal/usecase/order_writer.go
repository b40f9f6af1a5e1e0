package usecase

import (
	"context"
	"errors"
	"fmt"

	"fulfillment/internal/domain/model"
	"fulfillment/internal/metrics"
	repo "fulfillment/internal/repository"

	"go.uber.org/zap"
)

// orderPlan は最新の注文を見て、書き込む内容を決める。
// write=false なら何も書かずに終わる（すでに目的の状態など）
type orderPlan func(o model.Order) (m repo.OrderMutation, write bool, err error)

type orderUpdate struct {
	Before  model.Order
	After   model.Order
	Written bool
}

// orderWriter は注文の条件付き更新をまとめたもの。
// バージョンが競合したら読み直して plan を評価し直す。
type orderWriter struct {
	orders     repo.OrderRepository
	clock      Clock
	maxRetries int
	metrics    *metrics.Collectors
	logger     *zap.Logger
}

func newOrderWriter(orders repo.OrderRepository, clock Clock, maxRetries int, m *metrics.Collectors, logger *zap.Logger) orderWriter {
	if clock == nil {
		clock = SystemClock{}
	}
	if maxRetries < 1 {
		maxRetries = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return orderWriter{
		orders:     orders,
		clock:      clock,
		maxRetries: maxRetries,
		metrics:    m,
		logger:     logger,
	}
}

func (w orderWriter) load(ctx context.Context, orderID string) (model.Order, error) {
	o, err := w.orders.FindByID(ctx, orderID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Order{}, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	if err != nil {
		return model.Order{}, storeError(err)
	}
	return o, nil
}

func (w orderWriter) update(ctx context.Context, orderID string, plan orderPlan) (orderUpdate, error) {
	for attempt := 1; attempt <= w.maxRetries; attempt++ {
		o, err := w.load(ctx, orderID)
		if err != nil {
			return orderUpdate{}, err
		}

		m, write, err := plan(o)
		if err != nil {
			return orderUpdate{}, err
		}
		if !write {
			return orderUpdate{Before: o, After: o}, nil
		}

		m.ExpectedVersion = o.Version
		m.UpdatedAt = w.clock.Now()
		err = w.orders.ConditionalUpdate(ctx, orderID, m)
		if errors.Is(err, repo.ErrConflict) {
			w.metrics.ObserveOrderConflict()
			w.logger.Debug("order version conflict, retrying",
				zap.String("order_id", orderID), zap.Int("attempt", attempt))
			continue
		}
		if errors.Is(err, repo.ErrNotFound) {
			return orderUpdate{}, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
		}
		if err != nil {
			return orderUpdate{}, storeError(err)
		}

		after := m.Apply(o)
		if after.Status != o.Status {
			w.metrics.ObserveTransition(string(after.Status))
		}
		return orderUpdate{Before: o, After: after, Written: true}, nil
	}

	return orderUpdate{}, fmt.Errorf("%w: order %s changed during %d attempts", ErrConcurrencyConflict, orderID, w.maxRetries)
}

func statusPtr(s model.OrderStatus) *model.OrderStatus {
	return &s
}

func boolPtr(b bool) *bool {
	return &b
}
