package repository

import (
	"context"

	"fulfillment/internal/domain/model"
	repo "fulfillment/internal/repository"

	"gorm.io/gorm"
)

type ProductGormRepository struct {
	db *gorm.DB
}

// DI
func NewProductGormRepository(db *gorm.DB) *ProductGormRepository {
	return &ProductGormRepository{db: db}
}

// IDで商品を取得
func (r *ProductGormRepository) FindByID(ctx context.Context, id int64) (model.Product, error) {
	var p model.Product
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return model.Product{}, classify(err)
	}
	return p, nil
}

// ベンダーの商品一覧
func (r *ProductGormRepository) ListByVendor(ctx context.Context, vendorID int64) ([]model.Product, error) {
	products := []model.Product{}
	err := r.db.WithContext(ctx).
		Where("vendor_id = ?", vendorID).
		Order("id asc").
		Find(&products).Error
	if err != nil {
		return []model.Product{}, classify(err)
	}
	return products, nil
}

// 商品の作成
func (r *ProductGormRepository) Create(ctx context.Context, p model.Product) (model.Product, error) {
	if err := r.db.WithContext(ctx).Create(&p).Error; err != nil {
		return model.Product{}, classify(err)
	}
	return p, nil
}

// 在庫が期待値のときだけ更新し、調整履歴も残す
func (r *ProductGormRepository) ApplyStockDelta(ctx context.Context, d repo.StockDelta) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Product{}).
			Where("id = ? AND stock = ?", d.ProductID, d.ExpectedStock).
			Updates(map[string]interface{}{
				"stock":        gorm.Expr("stock + ?", d.Delta),
				"is_low_stock": d.LowStock,
			})
		if res.Error != nil {
			return res.Error
		}

		if res.RowsAffected == 0 {
			//商品がないのか、在庫が変わっていたのか
			var n int64
			if err := tx.Model(&model.Product{}).Where("id = ?", d.ProductID).Count(&n).Error; err != nil {
				return err
			}
			if n == 0 {
				return repo.ErrNotFound
			}
			return repo.ErrConflict
		}

		//adjustmentsを作成
		adj := model.InventoryAdjustment{
			ProductID: d.ProductID,
			OrderID:   d.OrderID,
			Delta:     d.Delta,
			Reason:    d.Reason,
		}
		return tx.Create(&adj).Error
	})
	return classify(err)
}

// 在庫調整履歴（新しい順）
func (r *ProductGormRepository) ListAdjustments(ctx context.Context, productID int64) ([]model.InventoryAdjustment, error) {
	adjs := []model.InventoryAdjustment{}
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("id desc").
		Find(&adjs).Error
	if err != nil {
		return []model.InventoryAdjustment{}, classify(err)
	}
	return adjs, nil
}
