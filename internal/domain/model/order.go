package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusProcessing         OrderStatus = "PROCESSING"
	OrderStatusPartiallyDelivered OrderStatus = "PARTIALLY_DELIVERED"
	OrderStatusVendorReady        OrderStatus = "VENDOR_READY"
	OrderStatusDelivered          OrderStatus = "DELIVERED"
	OrderStatusCanceled           OrderStatus = "CANCELED"
)

// 注文。物理削除はしない（終端状態も監査用に残す）
type Order struct {
	ID              string          `gorm:"type:varchar(64);primaryKey" json:"id"`
	CustomerID      int64           `gorm:"not null;index" json:"customer_id"`
	Status          OrderStatus     `gorm:"type:varchar(32);not null;index" json:"status"`
	ShippingAddress string          `gorm:"type:text;not null" json:"shipping_address"`
	TotalAmount     decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"total_amount"`
	PaymentMethod   string          `gorm:"type:varchar(50);not null" json:"payment_method"`

	//キャンセル依頼中か
	CancellationRequested bool `gorm:"not null;default:false" json:"cancellation_requested"`

	//依頼時に入る。解決後も残す
	CancellationNote *string `gorm:"type:text" json:"cancellation_note,omitempty"`

	//CSR/Adminが承認・却下時に書いた理由
	ResolutionNote *string `gorm:"type:text" json:"resolution_note,omitempty"`

	//条件付き更新用のバージョン
	Version int64 `gorm:"not null;default:1" json:"version"`

	Items     []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:RESTRICT" json:"items"`
	CreatedAt time.Time   `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time   `gorm:"not null" json:"updated_at"`
}

// ItemsOfVendor は指定ベンダーの明細だけ返す
func (o Order) ItemsOfVendor(vendorID int64) []OrderItem {
	out := make([]OrderItem, 0, len(o.Items))
	for _, it := range o.Items {
		if it.VendorID == vendorID {
			out = append(out, it)
		}
	}
	return out
}

// VendorIDs は注文に含まれるベンダーを出現順で返す
func (o Order) VendorIDs() []int64 {
	seen := make(map[int64]struct{}, len(o.Items))
	out := make([]int64, 0, len(o.Items))
	for _, it := range o.Items {
		if _, ok := seen[it.VendorID]; ok {
			continue
		}
		seen[it.VendorID] = struct{}{}
		out = append(out, it.VendorID)
	}
	return out
}
