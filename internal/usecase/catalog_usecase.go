package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"fulfillment/internal/domain/model"
	repo "fulfillment/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Restocker interface {
	Restock(ctx context.Context, productID int64, qty int64) (model.Product, error)
}

// CatalogUsecase はベンダーの商品管理（登録・一覧・補充・在庫履歴）
type CatalogUsecase struct {
	products          repo.ProductRepository
	ledger            Restocker
	audits            repo.AuditLogRepository
	notifier          Notifier
	clock             Clock
	lowStockThreshold int64
	logger            *zap.Logger
}

func NewCatalogUsecase(
	products repo.ProductRepository,
	ledger Restocker,
	audits repo.AuditLogRepository,
	notifier Notifier,
	lowStockThreshold int64,
	logger *zap.Logger,
) *CatalogUsecase {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogUsecase{
		products:          products,
		ledger:            ledger,
		audits:            audits,
		notifier:          notifier,
		clock:             SystemClock{},
		lowStockThreshold: lowStockThreshold,
		logger:            logger,
	}
}

type CreateProductInput struct {
	Name        string          `json:"name" validate:"required,max=255"`
	Description string          `json:"description" validate:"max=5000"`
	Price       decimal.Decimal `json:"price"`
	Stock       int64           `json:"stock" validate:"gte=0"`
	IsActive    *bool           `json:"is_active"`
}

func (u *CatalogUsecase) CreateProduct(ctx context.Context, vendorID int64, in CreateProductInput) (model.Product, error) {
	if vendorID <= 0 {
		return model.Product{}, validationError("invalid vendor id")
	}
	in.Name = strings.TrimSpace(in.Name)
	if err := validateStruct(in); err != nil {
		return model.Product{}, err
	}
	if in.Price.IsNegative() {
		return model.Product{}, validationError("price must be >= 0")
	}

	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	now := u.clock.Now()
	p, err := u.products.Create(ctx, model.Product{
		VendorID:    vendorID,
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price.Round(2),
		Stock:       in.Stock,
		IsLowStock:  in.Stock < u.lowStockThreshold,
		IsActive:    active,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return model.Product{}, storeError(err)
	}
	u.logger.Info("product created", zap.Int64("product_id", p.ID), zap.Int64("vendor_id", vendorID))
	return p, nil
}

// ListVendorProducts はベンダーの商品一覧。
// 在庫が残りわずか（0より多く閾値未満）の商品があれば補充を促す通知を出す
func (u *CatalogUsecase) ListVendorProducts(ctx context.Context, vendorID int64) ([]model.Product, error) {
	if vendorID <= 0 {
		return nil, validationError("invalid vendor id")
	}
	items, err := u.products.ListByVendor(ctx, vendorID)
	if err != nil {
		return nil, storeError(err)
	}
	for _, p := range items {
		if p.Stock > 0 && p.Stock < u.lowStockThreshold {
			u.notifier.Notify(ctx, lowStockNotice(p, p.Stock))
		}
	}
	return items, nil
}

// Restock はベンダー（自分の商品のみ）かAdminが在庫を足す
func (u *CatalogUsecase) Restock(ctx context.Context, viewer Viewer, productID int64, qty int64) (model.Product, error) {
	if productID <= 0 {
		return model.Product{}, validationError("invalid product id")
	}
	before, err := u.ownedProduct(ctx, viewer, productID)
	if err != nil {
		return model.Product{}, err
	}

	after, err := u.ledger.Restock(ctx, productID, qty)
	if err != nil {
		return model.Product{}, err
	}

	writeAudit(ctx, u.audits, u.logger, model.AuditLog{
		ActorUserID:  viewer.UserID,
		Action:       model.AuditActionRestock,
		ResourceType: model.AuditResourceProduct,
		ResourceID:   strconv.FormatInt(productID, 10),
		BeforeJSON:   fmt.Sprintf(`{"stock":%d}`, before.Stock),
		AfterJSON:    fmt.Sprintf(`{"stock":%d}`, after.Stock),
		CreatedAt:    u.clock.Now(),
	})
	return after, nil
}

func (u *CatalogUsecase) Adjustments(ctx context.Context, viewer Viewer, productID int64) ([]model.InventoryAdjustment, error) {
	if productID <= 0 {
		return nil, validationError("invalid product id")
	}
	if _, err := u.ownedProduct(ctx, viewer, productID); err != nil {
		return nil, err
	}
	adjs, err := u.products.ListAdjustments(ctx, productID)
	if err != nil {
		return nil, storeError(err)
	}
	return adjs, nil
}

// 他ベンダーの商品は存在しない扱い
func (u *CatalogUsecase) ownedProduct(ctx context.Context, viewer Viewer, productID int64) (model.Product, error) {
	p, err := u.products.FindByID(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Product{}, fmt.Errorf("%w: product %d", ErrProductNotFound, productID)
	}
	if err != nil {
		return model.Product{}, storeError(err)
	}
	if viewer.Role == model.RoleVendor && p.VendorID != viewer.UserID {
		return model.Product{}, fmt.Errorf("%w: product %d", ErrProductNotFound, productID)
	}
	return p, nil
}
