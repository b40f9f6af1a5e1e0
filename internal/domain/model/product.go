package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// 商品（カタログ所有、在庫はInventoryLedgerだけが更新する）
type Product struct {
	ID          int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	VendorID    int64           `gorm:"not null;index" json:"vendor_id"`
	Name        string          `gorm:"type:varchar(255);not null" json:"name"`
	Description string          `gorm:"type:text" json:"description"`
	Price       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`

	//在庫数。0未満にはならない
	Stock int64 `gorm:"not null;check:stock >= 0" json:"stock"`

	//在庫が閾値を下回っているか（派生値）
	IsLowStock bool `gorm:"not null;default:false" json:"is_low_stock"`

	IsActive  bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
