package model

import "time"

// 注文の確定操作など。
type AuditAction string

const (
	//配送完了にした操作。
	AuditActionMarkDelivered AuditAction = "MARK_DELIVERED"
	//キャンセル依頼を承認/却下した操作。
	AuditActionResolveCancellation AuditAction = "RESOLVE_CANCELLATION"
	//在庫を補充した操作。
	AuditActionRestock AuditAction = "RESTOCK"
)

// 何に対する操作か
type AuditResourceType string

const (
	//商品に対する操作。
	AuditResourceProduct AuditResourceType = "product"

	//注文に対する操作。
	AuditResourceOrder AuditResourceType = "order"
)

// 監査ログ（CSR/Admin/ベンダー操作ログ）。
// 「誰が」「何を」「どの対象に」「どう変えたか」を残す。
type AuditLog struct {
	//IDは監査ログの主キー
	ID int64 `gorm:"primaryKey;autoIncrement" json:"id"`

	//操作したユーザーのID。
	ActorUserID int64 `gorm:"not null;index" json:"actor_user_id"`

	//Actionは操作の種類（MARK_DELIVERED / RESOLVE_CANCELLATION など）。
	Action AuditAction `gorm:"type:varchar(50);not null;index" json:"action"`

	//対象の種類（product / order）。
	ResourceType AuditResourceType `gorm:"type:varchar(50);not null;index" json:"resource_type"`

	//対象のID（注文はUUID、商品は数値を文字列で）。
	ResourceID string `gorm:"type:varchar(64);not null;index" json:"resource_id"`

	//JSON文字列で保存する。
	BeforeJSON string `gorm:"type:text" json:"before_json"`

	//JSON文字列で保存する。
	AfterJSON string `gorm:"type:text" json:"after_json"`

	//作成時刻
	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}
