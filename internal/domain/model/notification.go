package model

import "time"

// 通知の宛先区分
type Audience string

const (
	AudienceVendor   Audience = "VENDOR"
	AudienceCustomer Audience = "CUSTOMER"
	AudienceAdmin    Audience = "ADMIN"
)

// AudienceFor はロールから受け取る通知区分を返す
func AudienceFor(r Role) Audience {
	switch r {
	case RoleVendor:
		return AudienceVendor
	case RoleCSR, RoleAdmin:
		return AudienceAdmin
	default:
		return AudienceCustomer
	}
}

type Notification struct {
	ID       int64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Audience Audience `gorm:"type:varchar(20);not null;index" json:"audience"`

	//0なら区分全体宛て
	RecipientID int64 `gorm:"not null;default:0;index" json:"recipient_id"`

	Message string `gorm:"type:text;not null" json:"message"`

	//注文IDや商品IDなど、何に関する通知か
	CorrelationID string    `gorm:"type:varchar(64);index" json:"correlation_id"`
	IsRead        bool      `gorm:"not null;default:false" json:"is_read"`
	CreatedAt     time.Time `gorm:"not null" json:"created_at"`
}
