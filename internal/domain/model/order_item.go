package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ベンダーごとの明細ステータス
type VendorStatus string

const (
	VendorStatusProcessing VendorStatus = "PROCESSING"
	VendorStatusReady      VendorStatus = "READY"
)

// 注文明細。価格は注文時点のスナップショットで以後変えない
type OrderItem struct {
	ID                  int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID             string          `gorm:"type:varchar(64);not null;index" json:"order_id"`
	ProductID           int64           `gorm:"not null;index" json:"product_id"`
	VendorID            int64           `gorm:"not null;index" json:"vendor_id"`
	ProductNameSnapshot string          `gorm:"type:varchar(255);not null" json:"product_name_snapshot"`
	UnitPriceSnapshot   decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"unit_price_snapshot"`
	Quantity            int64           `gorm:"not null;check:quantity > 0" json:"quantity"`
	VendorStatus        VendorStatus    `gorm:"type:varchar(20);not null" json:"vendor_status"`
	CreatedAt           time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
}

// Subtotal = 数量 * 単価
func (it OrderItem) Subtotal() decimal.Decimal {
	return it.UnitPriceSnapshot.Mul(decimal.NewFromInt(it.Quantity))
}
