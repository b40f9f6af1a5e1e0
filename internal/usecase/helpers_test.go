package usecase_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"fulfillment/internal/domain/model"
	"fulfillment/internal/infra/memory"
	repo "fulfillment/internal/repository"
	"fulfillment/internal/usecase"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// =====================
// テスト用の部品
// =====================

type recordingNotifier struct {
	mu   sync.Mutex
	sent []model.Notification
}

func (n *recordingNotifier) Notify(_ context.Context, x model.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, x)
}

func (n *recordingNotifier) to(a model.Audience) []model.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := []model.Notification{}
	for _, x := range n.sent {
		if x.Audience == a {
			out = append(out, x)
		}
	}
	return out
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type seqIDs struct{ n atomic.Int64 }

func (s *seqIDs) NewID() string {
	return fmt.Sprintf("order-%d", s.n.Add(1))
}

// fixture はメモリストアの上に全部のusecaseを組み立てる
type fixture struct {
	products *memory.ProductRepository
	orders   *memory.OrderRepository
	audits   *memory.AuditLogRepository
	notifier *recordingNotifier

	ledger *usecase.InventoryLedger
	order  *usecase.OrderUsecase
	cancel *usecase.CancellationUsecase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		products: memory.NewProductRepository(),
		orders:   memory.NewOrderRepository(),
		audits:   memory.NewAuditLogRepository(),
		notifier: &recordingNotifier{},
	}
	clock := fixedClock{t: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}

	f.ledger = usecase.NewInventoryLedger(f.products, f.notifier, usecase.LedgerConfig{
		LowStockThreshold: 5,
		MaxRetries:        5,
	}, nil, nil)
	f.order = usecase.NewOrderUsecase(usecase.OrderUsecaseDeps{
		Orders:     f.orders,
		Ledger:     f.ledger,
		Audits:     f.audits,
		Notifier:   f.notifier,
		IDs:        &seqIDs{},
		Clock:      clock,
		MaxRetries: 5,
	})
	f.cancel = usecase.NewCancellationUsecase(usecase.CancellationUsecaseDeps{
		Orders:     f.orders,
		Ledger:     f.ledger,
		Audits:     f.audits,
		Notifier:   f.notifier,
		Clock:      clock,
		MaxRetries: 5,
	})
	return f
}

func (f *fixture) addProduct(t *testing.T, vendorID int64, name string, price string, stock int64) model.Product {
	t.Helper()
	p, err := f.products.Create(context.Background(), model.Product{
		VendorID:   vendorID,
		Name:       name,
		Price:      decimal.RequireFromString(price),
		Stock:      stock,
		IsLowStock: stock < 5,
		IsActive:   true,
	})
	require.NoError(t, err)
	return p
}

func (f *fixture) stock(t *testing.T, productID int64) int64 {
	t.Helper()
	p, err := f.products.FindByID(context.Background(), productID)
	require.NoError(t, err)
	return p.Stock
}

func orderInput(customerID int64, items ...usecase.CreateOrderItemInput) usecase.CreateOrderInput {
	return usecase.CreateOrderInput{
		CustomerID:      customerID,
		ShippingAddress: "1-2-3 Shibuya, Tokyo",
		PaymentMethod:   "card",
		Items:           items,
	}
}

func line(productID, qty int64) usecase.CreateOrderItemInput {
	return usecase.CreateOrderItemInput{ProductID: productID, Quantity: qty}
}

// =====================
// Mocks（失敗を注入したいところだけ）
// =====================

type ProductRepoMock struct{ mock.Mock }

func (m *ProductRepoMock) FindByID(ctx context.Context, id int64) (model.Product, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(model.Product)
	return p, args.Error(1)
}

func (m *ProductRepoMock) ListByVendor(ctx context.Context, vendorID int64) ([]model.Product, error) {
	args := m.Called(ctx, vendorID)
	items, _ := args.Get(0).([]model.Product)
	return items, args.Error(1)
}

func (m *ProductRepoMock) Create(ctx context.Context, p model.Product) (model.Product, error) {
	args := m.Called(ctx, p)
	created, _ := args.Get(0).(model.Product)
	return created, args.Error(1)
}

func (m *ProductRepoMock) ApplyStockDelta(ctx context.Context, d repo.StockDelta) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *ProductRepoMock) ListAdjustments(ctx context.Context, productID int64) ([]model.InventoryAdjustment, error) {
	panic("not used in usecase tests")
}

type OrderRepoMock struct{ mock.Mock }

func (m *OrderRepoMock) Insert(ctx context.Context, order model.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *OrderRepoMock) FindByID(ctx context.Context, orderID string) (model.Order, error) {
	args := m.Called(ctx, orderID)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *OrderRepoMock) List(ctx context.Context, f repo.OrderListFilter) ([]model.Order, int64, error) {
	args := m.Called(ctx, f)
	orders, _ := args.Get(0).([]model.Order)
	return orders, args.Get(1).(int64), args.Error(2)
}

func (m *OrderRepoMock) CountByStatus(ctx context.Context) (map[model.OrderStatus]int64, error) {
	args := m.Called(ctx)
	counts, _ := args.Get(0).(map[model.OrderStatus]int64)
	return counts, args.Error(1)
}

func (m *OrderRepoMock) ConditionalUpdate(ctx context.Context, orderID string, mut repo.OrderMutation) error {
	args := m.Called(ctx, orderID, mut)
	return args.Error(0)
}

type LedgerMock struct{ mock.Mock }

func (m *LedgerMock) Reserve(ctx context.Context, productID int64, qty int64, orderID string) (model.Product, error) {
	args := m.Called(ctx, productID, qty, orderID)
	p, _ := args.Get(0).(model.Product)
	return p, args.Error(1)
}

func (m *LedgerMock) Release(ctx context.Context, productID int64, qty int64, orderID string) (model.Product, error) {
	args := m.Called(ctx, productID, qty, orderID)
	p, _ := args.Get(0).(model.Product)
	return p, args.Error(1)
}
