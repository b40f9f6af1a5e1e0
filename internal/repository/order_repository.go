package repository

import (
	"context"
	"time"

	"fulfillment/internal/domain/model"
)

type OrderListFilter struct {
	Page       int
	Limit      int
	Status     string
	CustomerID *int64
	VendorID   *int64
}

// 注文の条件付き更新。ExpectedVersionが一致したときだけ適用する。
// VendorIDが指定されたら、そのベンダーの明細だけVendorStatusを書き換える
type OrderMutation struct {
	ExpectedVersion int64

	Status *model.OrderStatus

	VendorID     int64
	VendorStatus model.VendorStatus

	CancellationRequested *bool
	CancellationNote      *string
	ResolutionNote        *string

	UpdatedAt time.Time
}

// Apply はミューテーションを注文に反映したコピーを返す（バージョンも進める）
func (m OrderMutation) Apply(o model.Order) model.Order {
	out := o
	out.Items = make([]model.OrderItem, len(o.Items))
	copy(out.Items, o.Items)

	if m.Status != nil {
		out.Status = *m.Status
	}
	if m.VendorID > 0 {
		for i := range out.Items {
			if out.Items[i].VendorID == m.VendorID {
				out.Items[i].VendorStatus = m.VendorStatus
			}
		}
	}
	if m.CancellationRequested != nil {
		out.CancellationRequested = *m.CancellationRequested
	}
	if m.CancellationNote != nil {
		note := *m.CancellationNote
		out.CancellationNote = &note
	}
	if m.ResolutionNote != nil {
		note := *m.ResolutionNote
		out.ResolutionNote = &note
	}
	if !m.UpdatedAt.IsZero() {
		out.UpdatedAt = m.UpdatedAt
	}
	out.Version = o.Version + 1
	return out
}

type OrderRepository interface {
	//注文と明細をまとめて保存
	Insert(ctx context.Context, order model.Order) error
	FindByID(ctx context.Context, orderID string) (model.Order, error)
	List(ctx context.Context, f OrderListFilter) ([]model.Order, int64, error)
	CountByStatus(ctx context.Context) (map[model.OrderStatus]int64, error)

	//バージョン不一致ならErrConflict、注文がなければErrNotFound
	ConditionalUpdate(ctx context.Context, orderID string, m OrderMutation) error
}
