package model

import "time"

// 在庫変動の理由
type InventoryReason string

const (
	InventoryReasonReserve InventoryReason = "RESERVE"
	InventoryReasonRelease InventoryReason = "RELEASE"
	InventoryReasonRestock InventoryReason = "RESTOCK"
)

//在庫調整の履歴（在庫更新と同じトランザクションで書く）

type InventoryAdjustment struct {
	ID        int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID int64           `gorm:"not null;index" json:"product_id"`
	OrderID   string          `gorm:"type:varchar(64);index" json:"order_id,omitempty"`
	Delta     int64           `gorm:"not null" json:"delta"`
	Reason    InventoryReason `gorm:"type:varchar(20);not null" json:"reason"`
	CreatedAt time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
}
