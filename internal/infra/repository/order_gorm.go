package repository

import (
	"context"
	"time"

	"fulfillment/internal/domain/model"
	repo "fulfillment/internal/repository"

	"gorm.io/gorm"
)

type OrderGormRepository struct {
	db *gorm.DB
}

func NewOrderGormRepository(db *gorm.DB) *OrderGormRepository {
	return &OrderGormRepository{db: db}
}

func preloadItems(db *gorm.DB) *gorm.DB {
	return db.Order("id asc")
}

// 注文と明細を同じトランザクションで作る
func (r *OrderGormRepository) Insert(ctx context.Context, order model.Order) error {
	return classify(r.db.WithContext(ctx).Create(&order).Error)
}

func (r *OrderGormRepository) FindByID(ctx context.Context, orderID string) (model.Order, error) {
	var o model.Order
	err := r.db.WithContext(ctx).
		Preload("Items", preloadItems).
		Where("id = ?", orderID).
		First(&o).Error
	if err != nil {
		return model.Order{}, classify(err)
	}
	return o, nil
}

func (r *OrderGormRepository) List(ctx context.Context, f repo.OrderListFilter) ([]model.Order, int64, error) {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 50
	}

	filtered := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&model.Order{})

		//status 絞り込み
		if f.Status != "" {
			q = q.Where("status = ?", f.Status)
		}

		//customer_id 絞り込み
		if f.CustomerID != nil {
			q = q.Where("customer_id = ?", *f.CustomerID)
		}

		//そのベンダーの明細を含む注文だけ
		if f.VendorID != nil {
			q = q.Where("EXISTS (SELECT 1 FROM order_items oi WHERE oi.order_id = orders.id AND oi.vendor_id = ?)", *f.VendorID)
		}
		return q
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return []model.Order{}, 0, classify(err)
	}

	var items []model.Order
	offset := (f.Page - 1) * f.Limit
	err := filtered().Preload("Items", preloadItems).
		Order("created_at desc").Order("id desc").
		Limit(f.Limit).Offset(offset).
		Find(&items).Error
	if err != nil {
		return []model.Order{}, 0, classify(err)
	}

	return items, total, nil
}

type statusCount struct {
	Status model.OrderStatus
	Count  int64
}

// ステータスごとの件数
func (r *OrderGormRepository) CountByStatus(ctx context.Context) (map[model.OrderStatus]int64, error) {
	var rows []statusCount
	err := r.db.WithContext(ctx).Model(&model.Order{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, classify(err)
	}

	out := make(map[model.OrderStatus]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Count
	}
	return out, nil
}

// version一致のときだけ注文行を更新し、明細はベンダーの行だけ書き換える
func (r *OrderGormRepository) ConditionalUpdate(ctx context.Context, orderID string, m repo.OrderMutation) error {
	updatedAt := m.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fields := map[string]interface{}{
			"version":    gorm.Expr("version + 1"),
			"updated_at": updatedAt,
		}
		if m.Status != nil {
			fields["status"] = *m.Status
		}
		if m.CancellationRequested != nil {
			fields["cancellation_requested"] = *m.CancellationRequested
		}
		if m.CancellationNote != nil {
			fields["cancellation_note"] = *m.CancellationNote
		}
		if m.ResolutionNote != nil {
			fields["resolution_note"] = *m.ResolutionNote
		}

		res := tx.Model(&model.Order{}).
			Where("id = ? AND version = ?", orderID, m.ExpectedVersion).
			Updates(fields)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var n int64
			if err := tx.Model(&model.Order{}).Where("id = ?", orderID).Count(&n).Error; err != nil {
				return err
			}
			if n == 0 {
				return repo.ErrNotFound
			}
			return repo.ErrConflict
		}

		if m.VendorID > 0 {
			err := tx.Model(&model.OrderItem{}).
				Where("order_id = ? AND vendor_id = ?", orderID, m.VendorID).
				Update("vendor_status", m.VendorStatus).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
	return classify(err)
}
