package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"

	"fulfillment/internal/domain/model"
	"fulfillment/internal/metrics"
	repo "fulfillment/internal/repository"

	"go.uber.org/zap"
)

type LedgerConfig struct {
	//在庫がこれ未満になったら在庫少
	LowStockThreshold int64
	//条件付き更新の最大試行回数
	MaxRetries int
}

// InventoryLedger は在庫数を変更できる唯一の場所。
// 書き込みは「読んだ在庫数と一致するときだけ」の条件付き更新で行い、
// 負けたら読み直してリトライする。
type InventoryLedger struct {
	products repo.ProductRepository
	notifier Notifier
	cfg      LedgerConfig
	metrics  *metrics.Collectors
	logger   *zap.Logger
}

func NewInventoryLedger(products repo.ProductRepository, notifier Notifier, cfg LedgerConfig, m *metrics.Collectors, logger *zap.Logger) *InventoryLedger {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InventoryLedger{
		products: products,
		notifier: notifier,
		cfg:      cfg,
		metrics:  m,
		logger:   logger,
	}
}

// Reserve は在庫を qty だけ減らす。足りなければ ErrInsufficientStock。
// 返す商品は減算後の値
func (l *InventoryLedger) Reserve(ctx context.Context, productID int64, qty int64, orderID string) (model.Product, error) {
	if qty <= 0 {
		return model.Product{}, validationError("quantity must be positive")
	}

	for attempt := 1; attempt <= l.cfg.MaxRetries; attempt++ {
		p, err := l.load(ctx, productID)
		if err != nil {
			l.metrics.ObserveReservation("error")
			return model.Product{}, err
		}
		if !p.IsActive {
			l.metrics.ObserveReservation("not_found")
			return model.Product{}, fmt.Errorf("%w: product %d is not active", ErrProductNotFound, productID)
		}
		if p.Stock < qty {
			l.metrics.ObserveReservation("insufficient_stock")
			return model.Product{}, fmt.Errorf("%w: product %d available %d, requested %d", ErrInsufficientStock, productID, p.Stock, qty)
		}

		after := p.Stock - qty
		low := l.isLow(after)
		err = l.products.ApplyStockDelta(ctx, repo.StockDelta{
			ProductID:     productID,
			Delta:         -qty,
			ExpectedStock: p.Stock,
			LowStock:      low,
			OrderID:       orderID,
			Reason:        model.InventoryReasonReserve,
		})
		if errors.Is(err, repo.ErrConflict) {
			l.metrics.ObserveStockConflict()
			l.logger.Debug("stock conflict, retrying",
				zap.Int64("product_id", productID), zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			l.metrics.ObserveReservation("error")
			return model.Product{}, l.mapWriteError(productID, err)
		}

		//閾値をまたいだときだけ通知する
		if low && !l.isLow(p.Stock) {
			l.signalLowStock(ctx, p, after)
		}

		p.Stock = after
		p.IsLowStock = low
		l.metrics.ObserveReservation("ok")
		l.logger.Info("stock reserved",
			zap.Int64("product_id", productID),
			zap.Int64("quantity", qty),
			zap.Int64("stock", after),
			zap.String("order_id", orderID))
		return p, nil
	}

	l.metrics.ObserveReservation("conflict")
	return model.Product{}, fmt.Errorf("%w: product %d stock changed during %d attempts", ErrConcurrencyConflict, productID, l.cfg.MaxRetries)
}

// Release は予約した在庫を戻す（キャンセル・ロールバック）
func (l *InventoryLedger) Release(ctx context.Context, productID int64, qty int64, orderID string) (model.Product, error) {
	return l.add(ctx, productID, qty, orderID, model.InventoryReasonRelease)
}

// Restock は注文と関係なく在庫を補充する
func (l *InventoryLedger) Restock(ctx context.Context, productID int64, qty int64) (model.Product, error) {
	return l.add(ctx, productID, qty, "", model.InventoryReasonRestock)
}

func (l *InventoryLedger) add(ctx context.Context, productID int64, qty int64, orderID string, reason model.InventoryReason) (model.Product, error) {
	if qty <= 0 {
		return model.Product{}, validationError("quantity must be positive")
	}

	for attempt := 1; attempt <= l.cfg.MaxRetries; attempt++ {
		p, err := l.load(ctx, productID)
		if err != nil {
			return model.Product{}, err
		}
		if p.Stock > math.MaxInt64-qty {
			return model.Product{}, validationError("stock overflow for product %d", productID)
		}

		after := p.Stock + qty
		low := l.isLow(after)
		err = l.products.ApplyStockDelta(ctx, repo.StockDelta{
			ProductID:     productID,
			Delta:         qty,
			ExpectedStock: p.Stock,
			LowStock:      low,
			OrderID:       orderID,
			Reason:        reason,
		})
		if errors.Is(err, repo.ErrConflict) {
			l.metrics.ObserveStockConflict()
			continue
		}
		if err != nil {
			return model.Product{}, l.mapWriteError(productID, err)
		}

		p.Stock = after
		p.IsLowStock = low
		l.metrics.ObserveRelease()
		l.logger.Info("stock released",
			zap.Int64("product_id", productID),
			zap.Int64("quantity", qty),
			zap.Int64("stock", after),
			zap.String("reason", string(reason)),
			zap.String("order_id", orderID))
		return p, nil
	}

	return model.Product{}, fmt.Errorf("%w: product %d stock changed during %d attempts", ErrConcurrencyConflict, productID, l.cfg.MaxRetries)
}

func (l *InventoryLedger) load(ctx context.Context, productID int64) (model.Product, error) {
	p, err := l.products.FindByID(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Product{}, fmt.Errorf("%w: product %d", ErrProductNotFound, productID)
	}
	if err != nil {
		return model.Product{}, storeError(err)
	}
	return p, nil
}

func (l *InventoryLedger) mapWriteError(productID int64, err error) error {
	if errors.Is(err, repo.ErrNotFound) {
		return fmt.Errorf("%w: product %d", ErrProductNotFound, productID)
	}
	return storeError(err)
}

func (l *InventoryLedger) isLow(stock int64) bool {
	return stock < l.cfg.LowStockThreshold
}

func (l *InventoryLedger) signalLowStock(ctx context.Context, p model.Product, stock int64) {
	l.metrics.ObserveLowStock()
	l.logger.Warn("product crossed low-stock threshold",
		zap.Int64("product_id", p.ID),
		zap.Int64("vendor_id", p.VendorID),
		zap.Int64("stock", stock))
	l.notifier.Notify(ctx, lowStockNotice(p, stock))
}

func lowStockNotice(p model.Product, stock int64) model.Notification {
	return model.Notification{
		Audience:      model.AudienceVendor,
		RecipientID:   p.VendorID,
		Message:       fmt.Sprintf("Warning: the stock for product '%s' is low (only %d left). Please restock.", p.Name, stock),
		CorrelationID: strconv.FormatInt(p.ID, 10),
	}
}
