package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"fulfillment/internal/domain/model"
	repo "fulfillment/internal/repository"
)

// ProductRepository はプロセス内の商品ストア。
type ProductRepository struct {
	mu          sync.Mutex
	nextID      int64
	nextAdjID   int64
	products    map[int64]model.Product
	adjustments []model.InventoryAdjustment
}

func NewProductRepository() *ProductRepository {
	return &ProductRepository{products: map[int64]model.Product{}}
}

func (r *ProductRepository) FindByID(ctx context.Context, id int64) (model.Product, error) {
	if err := ctx.Err(); err != nil {
		return model.Product{}, unavailable(err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[id]
	if !ok || p.DeletedAt.Valid {
		return model.Product{}, repo.ErrNotFound
	}
	return p, nil
}

func (r *ProductRepository) ListByVendor(ctx context.Context, vendorID int64) ([]model.Product, error) {
	if err := ctx.Err(); err != nil {
		return []model.Product{}, unavailable(err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []model.Product{}
	for _, p := range r.products {
		if p.VendorID == vendorID && !p.DeletedAt.Valid {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *ProductRepository) Create(ctx context.Context, p model.Product) (model.Product, error) {
	if err := ctx.Err(); err != nil {
		return model.Product{}, unavailable(err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	now := time.Now()
	p.ID = r.nextID
	p.CreatedAt = now
	p.UpdatedAt = now
	r.products[p.ID] = p
	return p, nil
}

func (r *ProductRepository) ApplyStockDelta(ctx context.Context, d repo.StockDelta) error {
	if err := ctx.Err(); err != nil {
		return unavailable(err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[d.ProductID]
	if !ok || p.DeletedAt.Valid {
		return repo.ErrNotFound
	}
	if p.Stock != d.ExpectedStock || p.Stock+d.Delta < 0 {
		return repo.ErrConflict
	}

	p.Stock += d.Delta
	p.IsLowStock = d.LowStock
	p.UpdatedAt = time.Now()
	r.products[p.ID] = p

	r.nextAdjID++
	r.adjustments = append(r.adjustments, model.InventoryAdjustment{
		ID:        r.nextAdjID,
		ProductID: d.ProductID,
		OrderID:   d.OrderID,
		Delta:     d.Delta,
		Reason:    d.Reason,
		CreatedAt: p.UpdatedAt,
	})
	return nil
}

func (r *ProductRepository) ListAdjustments(ctx context.Context, productID int64) ([]model.InventoryAdjustment, error) {
	if err := ctx.Err(); err != nil {
		return []model.InventoryAdjustment{}, unavailable(err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []model.InventoryAdjustment{}
	for i := len(r.adjustments) - 1; i >= 0; i-- {
		if r.adjustments[i].ProductID == productID {
			out = append(out, r.adjustments[i])
		}
	}
	return out, nil
}
