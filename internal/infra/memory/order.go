package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"fulfillment/internal/domain/model"
	repo "fulfillment/internal/repository"
)

// OrderRepository はプロセス内の注文ストア。呼び出し側とはコピーでやり取りする
type OrderRepository struct {
	mu         sync.Mutex
	nextItemID int64
	orders     map[string]model.Order
}

func NewOrderRepository() *OrderRepository {
	return &OrderRepository{orders: map[string]model.Order{}}
}

func cloneOrder(o model.Order) model.Order {
	out := o
	out.Items = make([]model.OrderItem, len(o.Items))
	copy(out.Items, o.Items)
	if o.CancellationNote != nil {
		note := *o.CancellationNote
		out.CancellationNote = &note
	}
	if o.ResolutionNote != nil {
		note := *o.ResolutionNote
		out.ResolutionNote = &note
	}
	return out
}

func (r *OrderRepository) Insert(ctx context.Context, order model.Order) error {
	if err := ctx.Err(); err != nil {
		return unavailable(err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orders[order.ID]; exists {
		return fmt.Errorf("order %s already exists", order.ID)
	}

	o := cloneOrder(order)
	for i := range o.Items {
		r.nextItemID++
		o.Items[i].ID = r.nextItemID
		o.Items[i].OrderID = o.ID
	}
	r.orders[o.ID] = o
	return nil
}

func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (model.Order, error) {
	if err := ctx.Err(); err != nil {
		return model.Order{}, unavailable(err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[orderID]
	if !ok {
		return model.Order{}, repo.ErrNotFound
	}
	return cloneOrder(o), nil
}

func (r *OrderRepository) List(ctx context.Context, f repo.OrderListFilter) ([]model.Order, int64, error) {
	if err := ctx.Err(); err != nil {
		return []model.Order{}, 0, unavailable(err)
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 50
	}

	r.mu.Lock()
	matched := []model.Order{}
	for _, o := range r.orders {
		if f.Status != "" && string(o.Status) != f.Status {
			continue
		}
		if f.CustomerID != nil && o.CustomerID != *f.CustomerID {
			continue
		}
		if f.VendorID != nil && len(o.ItemsOfVendor(*f.VendorID)) == 0 {
			continue
		}
		matched = append(matched, cloneOrder(o))
	}
	r.mu.Unlock()

	//新しい順
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	start := (f.Page - 1) * f.Limit
	if start >= len(matched) {
		return []model.Order{}, total, nil
	}
	end := start + f.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (r *OrderRepository) CountByStatus(ctx context.Context) (map[model.OrderStatus]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable(err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	out := map[model.OrderStatus]int64{}
	for _, o := range r.orders {
		out[o.Status]++
	}
	return out, nil
}

func (r *OrderRepository) ConditionalUpdate(ctx context.Context, orderID string, m repo.OrderMutation) error {
	if err := ctx.Err(); err != nil {
		return unavailable(err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[orderID]
	if !ok {
		return repo.ErrNotFound
	}
	if o.Version != m.ExpectedVersion {
		return repo.ErrConflict
	}
	r.orders[orderID] = m.Apply(o)
	return nil
}
