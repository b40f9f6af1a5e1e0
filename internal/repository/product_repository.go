package repository

import (
	"context"

	"fulfillment/internal/domain/model"
)

// 在庫の条件付き更新。ExpectedStockと現在値が一致するときだけ Delta を足す
type StockDelta struct {
	ProductID     int64
	Delta         int64
	ExpectedStock int64
	LowStock      bool

	//履歴用
	OrderID string
	Reason  model.InventoryReason
}

// 商品カタログの永続化。在庫はApplyStockDeltaだけで変える。
type ProductRepository interface {
	FindByID(ctx context.Context, id int64) (model.Product, error)
	ListByVendor(ctx context.Context, vendorID int64) ([]model.Product, error)
	Create(ctx context.Context, p model.Product) (model.Product, error)

	//不一致ならErrConflict、商品がなければErrNotFound。
	//成功時は在庫調整履歴も同じトランザクションで保存する
	ApplyStockDelta(ctx context.Context, d StockDelta) error

	ListAdjustments(ctx context.Context, productID int64) ([]model.InventoryAdjustment, error)
}
