package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"fulfillment/internal/config"
	"fulfillment/internal/domain/model"
	"fulfillment/internal/handler"
	"fulfillment/internal/infra/memory"
	"fulfillment/internal/metrics"
	"fulfillment/internal/server"
	"fulfillment/internal/usecase"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type testApp struct {
	e        *echo.Echo
	products *memory.ProductRepository
}

// メモリストアで全部を組み立てる（Kafkaなし、通知は同期で保存）
func newTestApp(t *testing.T) *testApp {
	t.Helper()

	cfg := config.Config{JWTSecret: testSecret}
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	products := memory.NewProductRepository()
	orders := memory.NewOrderRepository()
	audits := memory.NewAuditLogRepository()
	notifications := memory.NewNotificationRepository()
	notifier := storeNotifier{notifications}

	ledger := usecase.NewInventoryLedger(products, notifier, usecase.LedgerConfig{LowStockThreshold: 5, MaxRetries: 5}, m, nil)
	orderUC := usecase.NewOrderUsecase(usecase.OrderUsecaseDeps{
		Orders: orders, Ledger: ledger, Audits: audits, Notifier: notifier, MaxRetries: 5, Metrics: m,
	})
	cancelUC := usecase.NewCancellationUsecase(usecase.CancellationUsecaseDeps{
		Orders: orders, Ledger: ledger, Audits: audits, Notifier: notifier, MaxRetries: 5, Metrics: m,
	})
	catalogUC := usecase.NewCatalogUsecase(products, ledger, audits, notifier, 5, nil)

	e := server.New(cfg, server.Handlers{
		Orders:        handler.NewOrderHandler(orderUC, cancelUC),
		Vendor:        handler.NewVendorHandler(orderUC, catalogUC),
		Admin:         handler.NewAdminOrderHandler(orderUC, cancelUC, catalogUC, usecase.NewAuditUsecase(audits)),
		Notifications: handler.NewNotificationHandler(usecase.NewNotificationUsecase(notifications)),
	}, nil, m, reg)

	return &testApp{e: e, products: products}
}

type storeNotifier struct {
	store *memory.NotificationRepository
}

func (n storeNotifier) Notify(ctx context.Context, x model.Notification) {
	_, _ = n.store.Create(ctx, x)
}

func token(t *testing.T, sub int64, role model.Role) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  sub,
		"role": string(role),
		"exp":  9999999999,
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func (a *testApp) do(t *testing.T, method, path, tok string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), rec.Body.String())
	return v
}

func (a *testApp) seed(t *testing.T, vendorID int64, name string, stock int64) model.Product {
	t.Helper()
	p, err := a.products.Create(context.Background(), model.Product{
		VendorID: vendorID, Name: name, Price: decimal.NewFromInt(500), Stock: stock, IsActive: true,
	})
	require.NoError(t, err)
	return p
}

func orderBody(items ...[2]int64) map[string]any {
	lines := []map[string]int64{}
	for _, it := range items {
		lines = append(lines, map[string]int64{"product_id": it[0], "quantity": it[1]})
	}
	return map[string]any{
		"shipping_address": "1-2-3 Shibuya, Tokyo",
		"payment_method":   "card",
		"items":            lines,
	}
}

func TestServer_HealthAndMetrics(t *testing.T) {
	a := newTestApp(t)

	rec := a.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "fulfillment_")
}

func TestServer_OrderLifecycle(t *testing.T) {
	a := newTestApp(t)
	pa := a.seed(t, 10, "A", 10)
	pb := a.seed(t, 20, "B", 10)

	customer := token(t, 1, model.RoleCustomer)
	vendorA := token(t, 10, model.RoleVendor)
	vendorB := token(t, 20, model.RoleVendor)
	csr := token(t, 500, model.RoleCSR)

	rec := a.do(t, http.MethodPost, "/orders", customer, orderBody([2]int64{pa.ID, 2}, [2]int64{pb.ID, 1}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[usecase.OrderOutput](t, rec)
	assert.Equal(t, "PROCESSING", created.Status)
	assert.Equal(t, "1500", created.TotalAmount.String())

	//ベンダーは新規注文の通知を受け取る
	rec = a.do(t, http.MethodGet, "/notifications", vendorA, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.Notification](t, rec), 1)

	rec = a.do(t, http.MethodPut, "/vendor/orders/"+created.ID+"/ready", vendorA, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "PARTIALLY_DELIVERED", decode[usecase.OrderOutput](t, rec).Status)

	//まだ全員READYではない
	rec = a.do(t, http.MethodPut, "/admin/orders/"+created.ID+"/deliver", csr, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = a.do(t, http.MethodPut, "/vendor/orders/"+created.ID+"/ready", vendorB, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "VENDOR_READY", decode[usecase.OrderOutput](t, rec).Status)

	rec = a.do(t, http.MethodPut, "/admin/orders/"+created.ID+"/deliver", csr, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "DELIVERED", decode[usecase.OrderOutput](t, rec).Status)

	rec = a.do(t, http.MethodPost, "/orders/"+created.ID+"/cancellation", customer, map[string]string{"note": "too late"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = a.do(t, http.MethodGet, "/admin/audit-logs?action=MARK_DELIVERED", csr, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.AuditLog](t, rec), 1)

	rec = a.do(t, http.MethodGet, "/admin/orders/counts", csr, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1), decode[map[string]int64](t, rec)["DELIVERED"])
}

func TestServer_CancellationFlow(t *testing.T) {
	a := newTestApp(t)
	p := a.seed(t, 10, "A", 6)
	customer := token(t, 1, model.RoleCustomer)
	admin := token(t, 900, model.RoleAdmin)

	rec := a.do(t, http.MethodPost, "/orders", customer, orderBody([2]int64{p.ID, 4}))
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[usecase.OrderOutput](t, rec)

	rec = a.do(t, http.MethodPost, "/orders/"+created.ID+"/cancellation", customer, map[string]string{"note": "changed mind"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[usecase.OrderOutput](t, rec).CancellationRequested)

	rec = a.do(t, http.MethodPut, "/admin/orders/"+created.ID+"/cancellation", admin, map[string]string{"decision": "maybe"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, http.MethodPut, "/admin/orders/"+created.ID+"/cancellation", admin, map[string]string{"decision": "approve", "note": "refund issued"})
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode[usecase.OrderOutput](t, rec)
	assert.Equal(t, "CANCELED", out.Status)
	assert.Equal(t, "changed mind", out.CancellationNote)
	assert.Equal(t, "refund issued", out.ResolutionNote)

	got, err := a.products.FindByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(6), got.Stock)
}

func TestServer_ErrorMapping(t *testing.T) {
	a := newTestApp(t)
	p := a.seed(t, 10, "A", 1)
	customer := token(t, 1, model.RoleCustomer)

	cases := []struct {
		name   string
		method string
		path   string
		tok    string
		body   any
		status int
	}{
		{"no token", http.MethodGet, "/orders", "", nil, http.StatusUnauthorized},
		{"wrong role", http.MethodGet, "/admin/orders", customer, nil, http.StatusForbidden},
		{"empty items", http.MethodPost, "/orders", customer, orderBody(), http.StatusBadRequest},
		{"insufficient", http.MethodPost, "/orders", customer, orderBody([2]int64{p.ID, 2}), http.StatusConflict},
		{"unknown product", http.MethodPost, "/orders", customer, orderBody([2]int64{999, 1}), http.StatusNotFound},
		{"unknown order", http.MethodGet, "/orders/nope", customer, nil, http.StatusNotFound},
		{"bad paging", http.MethodGet, "/orders?page=x", customer, nil, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := a.do(t, tc.method, tc.path, tc.tok, tc.body)
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
		})
	}
}

func TestServer_VendorProducts(t *testing.T) {
	a := newTestApp(t)
	vendor := token(t, 10, model.RoleVendor)
	other := token(t, 11, model.RoleVendor)

	rec := a.do(t, http.MethodPost, "/vendor/products", vendor, map[string]any{"name": "Mug", "price": "12.50", "stock": 3})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	p := decode[model.Product](t, rec)
	assert.True(t, p.IsLowStock)

	rec = a.do(t, http.MethodPost, fmt.Sprintf("/vendor/products/%d/restock", p.ID), other, map[string]int64{"quantity": 5})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = a.do(t, http.MethodPost, fmt.Sprintf("/vendor/products/%d/restock", p.ID), vendor, map[string]int64{"quantity": 5})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(8), decode[model.Product](t, rec).Stock)

	rec = a.do(t, http.MethodGet, fmt.Sprintf("/vendor/products/%d/adjustments", p.ID), vendor, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "RESTOCK"))

	rec = a.do(t, http.MethodGet, "/vendor/products", vendor, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.Product](t, rec), 1)
}
