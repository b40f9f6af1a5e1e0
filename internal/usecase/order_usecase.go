package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"fulfillment/internal/domain/model"
	"fulfillment/internal/metrics"
	repo "fulfillment/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// StockLedger は注文側から見た在庫台帳
type StockLedger interface {
	Reserve(ctx context.Context, productID int64, qty int64, orderID string) (model.Product, error)
	Release(ctx context.Context, productID int64, qty int64, orderID string) (model.Product, error)
}

type OrderUsecaseDeps struct {
	Orders     repo.OrderRepository
	Ledger     StockLedger
	Audits     repo.AuditLogRepository
	Notifier   Notifier
	IDs        IDGenerator
	Clock      Clock
	MaxRetries int
	Metrics    *metrics.Collectors
	Logger     *zap.Logger
}

type OrderUsecase struct {
	orders   repo.OrderRepository
	ledger   StockLedger
	audits   repo.AuditLogRepository
	notifier Notifier
	ids      IDGenerator
	clock    Clock
	writer   orderWriter
	logger   *zap.Logger
}

// DI
func NewOrderUsecase(d OrderUsecaseDeps) *OrderUsecase {
	if d.Notifier == nil {
		d.Notifier = nopNotifier{}
	}
	if d.IDs == nil {
		d.IDs = UUIDGenerator{}
	}
	if d.Clock == nil {
		d.Clock = SystemClock{}
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return &OrderUsecase{
		orders:   d.Orders,
		ledger:   d.Ledger,
		audits:   d.Audits,
		notifier: d.Notifier,
		ids:      d.IDs,
		clock:    d.Clock,
		writer:   newOrderWriter(d.Orders, d.Clock, d.MaxRetries, d.Metrics, d.Logger),
		logger:   d.Logger,
	}
}

type CreateOrderItemInput struct {
	ProductID int64 `json:"product_id" validate:"gt=0"`
	Quantity  int64 `json:"quantity" validate:"gt=0"`
}

type CreateOrderInput struct {
	CustomerID      int64                  `json:"-" validate:"gt=0"`
	ShippingAddress string                 `json:"shipping_address" validate:"required,max=1000"`
	PaymentMethod   string                 `json:"payment_method" validate:"required,max=50"`
	Items           []CreateOrderItemInput `json:"items" validate:"required,min=1,dive"`
}

type OrderItemOutput struct {
	ProductID    int64           `json:"product_id"`
	VendorID     int64           `json:"vendor_id"`
	Name         string          `json:"name"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Quantity     int64           `json:"quantity"`
	VendorStatus string          `json:"vendor_status"`
}

type OrderOutput struct {
	ID                    string            `json:"id"`
	CustomerID            int64             `json:"customer_id"`
	Status                string            `json:"status"`
	ShippingAddress       string            `json:"shipping_address"`
	PaymentMethod         string            `json:"payment_method"`
	TotalAmount           decimal.Decimal   `json:"total_amount"`
	CancellationRequested bool              `json:"cancellation_requested"`
	CancellationNote      string            `json:"cancellation_note,omitempty"`
	ResolutionNote        string            `json:"resolution_note,omitempty"`
	CreatedAt             time.Time         `json:"created_at"`
	UpdatedAt             time.Time         `json:"updated_at"`
	Items                 []OrderItemOutput `json:"items"`
}

type OrderListOutput struct {
	Items []OrderOutput `json:"items"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

type reservation struct {
	productID int64
	quantity  int64
}

// CreateOrder は明細ごとに在庫を予約してから注文を保存する。
// どこかで失敗したら、それまでの予約をすべて戻してからエラーを返す。
func (u *OrderUsecase) CreateOrder(ctx context.Context, in CreateOrderInput) (OrderOutput, error) {
	in.ShippingAddress = strings.TrimSpace(in.ShippingAddress)
	in.PaymentMethod = strings.TrimSpace(in.PaymentMethod)
	if err := validateStruct(in); err != nil {
		return OrderOutput{}, err
	}

	orderID := u.ids.NewID()
	now := u.clock.Now()

	reserved := make([]reservation, 0, len(in.Items))
	items := make([]model.OrderItem, 0, len(in.Items))
	total := decimal.Zero

	for _, it := range in.Items {
		p, err := u.ledger.Reserve(ctx, it.ProductID, it.Quantity, orderID)
		if err != nil {
			return OrderOutput{}, u.withRollback(ctx, err, orderID, reserved)
		}
		reserved = append(reserved, reservation{productID: it.ProductID, quantity: it.Quantity})

		//価格はこの時点のものを固定する
		item := model.OrderItem{
			OrderID:             orderID,
			ProductID:           p.ID,
			VendorID:            p.VendorID,
			ProductNameSnapshot: p.Name,
			UnitPriceSnapshot:   p.Price,
			Quantity:            it.Quantity,
			VendorStatus:        model.VendorStatusProcessing,
			CreatedAt:           now,
		}
		total = total.Add(item.Subtotal())
		items = append(items, item)
	}

	o := model.Order{
		ID:              orderID,
		CustomerID:      in.CustomerID,
		Status:          model.OrderStatusProcessing,
		ShippingAddress: in.ShippingAddress,
		PaymentMethod:   in.PaymentMethod,
		TotalAmount:     total,
		Version:         1,
		Items:           items,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := u.orders.Insert(ctx, o); err != nil {
		return OrderOutput{}, u.withRollback(ctx, storeError(err), orderID, reserved)
	}

	u.logger.Info("order created",
		zap.String("order_id", orderID),
		zap.Int64("customer_id", in.CustomerID),
		zap.Int("items", len(items)),
		zap.String("total", total.StringFixed(2)))

	for _, vendorID := range o.VendorIDs() {
		u.notifier.Notify(ctx, model.Notification{
			Audience:      model.AudienceVendor,
			RecipientID:   vendorID,
			Message:       fmt.Sprintf("New order received: order %s", orderID),
			CorrelationID: orderID,
		})
	}

	return toOrderOutput(o), nil
}

// withRollback は予約を戻し、戻しに失敗した分を元のエラーに足す
func (u *OrderUsecase) withRollback(ctx context.Context, cause error, orderID string, reserved []reservation) error {
	if rbErr := u.rollback(ctx, orderID, reserved); rbErr != nil {
		return errors.Join(cause, rbErr)
	}
	return cause
}

// rollback は予約を逆順に戻す。呼び出し元のctxが切れていても戻し切る
// 戻せなかった分はまとめて返す（在庫が漏れたことを呼び出し元に知らせる）
func (u *OrderUsecase) rollback(ctx context.Context, orderID string, reserved []reservation) error {
	ctx = context.WithoutCancel(ctx)
	var errs []error
	for i := len(reserved) - 1; i >= 0; i-- {
		r := reserved[i]
		if _, err := u.ledger.Release(ctx, r.productID, r.quantity, orderID); err != nil {
			errs = append(errs, fmt.Errorf("rollback product %d: %w", r.productID, err))
			u.logger.Error("stock release failed during rollback",
				zap.String("order_id", orderID),
				zap.Int64("product_id", r.productID),
				zap.Int64("quantity", r.quantity),
				zap.Error(err))
		}
	}
	return errors.Join(errs...)
}

// MarkVendorReady はベンダー自身の明細だけをREADYにし、全体ステータスを再計算する
func (u *OrderUsecase) MarkVendorReady(ctx context.Context, vendorID int64, orderID string) (OrderOutput, error) {
	if vendorID <= 0 {
		return OrderOutput{}, validationError("invalid vendor id")
	}
	if strings.TrimSpace(orderID) == "" {
		return OrderOutput{}, validationError("order id required")
	}

	res, err := u.writer.update(ctx, orderID, func(o model.Order) (repo.OrderMutation, bool, error) {
		mine := o.ItemsOfVendor(vendorID)
		if len(mine) == 0 {
			return repo.OrderMutation{}, false, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
		}

		m := repo.OrderMutation{VendorID: vendorID, VendorStatus: model.VendorStatusReady}
		next, err := model.NextStatus(o.Status, model.OrderEventVendorReady, m.Apply(o).Items)
		if err != nil {
			return repo.OrderMutation{}, false, fmt.Errorf("order %s: %w", orderID, err)
		}

		if allReady(mine) {
			return repo.OrderMutation{}, false, nil
		}
		m.Status = statusPtr(next)
		return m, true, nil
	})
	if err != nil {
		return OrderOutput{}, err
	}

	if res.Written {
		u.logger.Info("vendor items ready",
			zap.String("order_id", orderID),
			zap.Int64("vendor_id", vendorID),
			zap.String("status", string(res.After.Status)))
	}
	return toOrderOutput(res.After), nil
}

// MarkDelivered はCSR/Adminの配送完了。VENDOR_READYからだけ進める
func (u *OrderUsecase) MarkDelivered(ctx context.Context, actorID int64, orderID string) (OrderOutput, error) {
	if actorID <= 0 {
		return OrderOutput{}, validationError("invalid actor id")
	}
	if strings.TrimSpace(orderID) == "" {
		return OrderOutput{}, validationError("order id required")
	}

	res, err := u.writer.update(ctx, orderID, func(o model.Order) (repo.OrderMutation, bool, error) {
		next, err := model.NextStatus(o.Status, model.OrderEventDeliver, o.Items)
		if err != nil {
			return repo.OrderMutation{}, false, fmt.Errorf("order %s: %w", orderID, err)
		}
		return repo.OrderMutation{Status: statusPtr(next)}, true, nil
	})
	if err != nil {
		return OrderOutput{}, err
	}

	u.logger.Info("order delivered", zap.String("order_id", orderID), zap.Int64("actor_id", actorID))
	writeAudit(ctx, u.audits, u.logger, model.AuditLog{
		ActorUserID:  actorID,
		Action:       model.AuditActionMarkDelivered,
		ResourceType: model.AuditResourceOrder,
		ResourceID:   orderID,
		BeforeJSON:   orderStateJSON(res.Before),
		AfterJSON:    orderStateJSON(res.After),
		CreatedAt:    u.clock.Now(),
	})
	u.notifier.Notify(ctx, model.Notification{
		Audience:      model.AudienceCustomer,
		RecipientID:   res.After.CustomerID,
		Message:       fmt.Sprintf("Your order %s has been delivered", orderID),
		CorrelationID: orderID,
	})

	return toOrderOutput(res.After), nil
}

// GetOrder は見えない注文をErrOrderNotFoundにする（存在を漏らさない）
func (u *OrderUsecase) GetOrder(ctx context.Context, viewer Viewer, orderID string) (OrderOutput, error) {
	if strings.TrimSpace(orderID) == "" {
		return OrderOutput{}, validationError("order id required")
	}
	o, err := u.writer.load(ctx, orderID)
	if err != nil {
		return OrderOutput{}, err
	}
	if !viewer.canSee(o) {
		return OrderOutput{}, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	return toOrderOutput(o), nil
}

type ListOrdersInput struct {
	Page       int
	Limit      int
	Status     string
	CustomerID *int64
	VendorID   *int64
}

func (u *OrderUsecase) ListOrders(ctx context.Context, viewer Viewer, in ListOrdersInput) (OrderListOutput, error) {
	if in.Page < 1 {
		return OrderListOutput{}, validationError("invalid page")
	}
	if in.Limit < 1 || in.Limit > 100 {
		return OrderListOutput{}, validationError("invalid limit")
	}
	if in.Status != "" && !model.OrderStatus(in.Status).Valid() {
		return OrderListOutput{}, validationError("invalid status")
	}

	f := repo.OrderListFilter{
		Page:       in.Page,
		Limit:      in.Limit,
		Status:     in.Status,
		CustomerID: in.CustomerID,
		VendorID:   in.VendorID,
	}
	//ロールで絞り込みを上書きする
	switch {
	case viewer.Role.IsStaff():
	case viewer.Role == model.RoleVendor:
		id := viewer.UserID
		f.VendorID = &id
	default:
		id := viewer.UserID
		f.CustomerID = &id
		f.VendorID = nil
	}

	orders, total, err := u.orders.List(ctx, f)
	if err != nil {
		return OrderListOutput{}, storeError(err)
	}
	out := make([]OrderOutput, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderOutput(o))
	}
	return OrderListOutput{Items: out, Total: total, Page: in.Page, Limit: in.Limit}, nil
}

// StatusCounts はダッシュボード用。全ステータスを0埋めで返す
func (u *OrderUsecase) StatusCounts(ctx context.Context) (map[string]int64, error) {
	counts, err := u.orders.CountByStatus(ctx)
	if err != nil {
		return nil, storeError(err)
	}
	out := map[string]int64{
		string(model.OrderStatusProcessing):         0,
		string(model.OrderStatusPartiallyDelivered): 0,
		string(model.OrderStatusVendorReady):        0,
		string(model.OrderStatusDelivered):          0,
		string(model.OrderStatusCanceled):           0,
	}
	for s, n := range counts {
		out[string(s)] = n
	}
	return out, nil
}

func allReady(items []model.OrderItem) bool {
	for _, it := range items {
		if it.VendorStatus != model.VendorStatusReady {
			return false
		}
	}
	return true
}

// 監査ログは本処理の後に書く。失敗しても注文の更新は取り消さない
func writeAudit(ctx context.Context, audits repo.AuditLogRepository, logger *zap.Logger, log model.AuditLog) {
	if audits == nil {
		return
	}
	if err := audits.Append(context.WithoutCancel(ctx), log); err != nil {
		logger.Error("audit log write failed",
			zap.String("action", string(log.Action)),
			zap.String("resource_id", log.ResourceID),
			zap.Error(err))
	}
}

func orderStateJSON(o model.Order) string {
	b, err := json.Marshal(struct {
		Status                model.OrderStatus `json:"status"`
		CancellationRequested bool              `json:"cancellation_requested"`
		ResolutionNote        *string           `json:"resolution_note,omitempty"`
	}{o.Status, o.CancellationRequested, o.ResolutionNote})
	if err != nil {
		return "{}"
	}
	return string(b)
}

func toOrderOutput(o model.Order) OrderOutput {
	items := make([]OrderItemOutput, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, OrderItemOutput{
			ProductID:    it.ProductID,
			VendorID:     it.VendorID,
			Name:         it.ProductNameSnapshot,
			UnitPrice:    it.UnitPriceSnapshot,
			Quantity:     it.Quantity,
			VendorStatus: string(it.VendorStatus),
		})
	}
	out := OrderOutput{
		ID:                    o.ID,
		CustomerID:            o.CustomerID,
		Status:                string(o.Status),
		ShippingAddress:       o.ShippingAddress,
		PaymentMethod:         o.PaymentMethod,
		TotalAmount:           o.TotalAmount,
		CancellationRequested: o.CancellationRequested,
		CreatedAt:             o.CreatedAt,
		UpdatedAt:             o.UpdatedAt,
		Items:                 items,
	}
	if o.CancellationNote != nil {
		out.CancellationNote = *o.CancellationNote
	}
	if o.ResolutionNote != nil {
		out.ResolutionNote = *o.ResolutionNote
	}
	return out
}
