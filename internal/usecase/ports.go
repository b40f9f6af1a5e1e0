package usecase

import (
	"context"
	"time"

	"fulfillment/internal/domain/model"

	"github.com/google/uuid"
)

// Notifier は通知の送り出し。失敗しても呼び出し側には返さない（投げっぱなし）
type Notifier interface {
	Notify(ctx context.Context, n model.Notification)
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, model.Notification) {}

type IDGenerator interface {
	NewID() string
}

type UUIDGenerator struct{}

func (UUIDGenerator) NewID() string {
	return uuid.NewString()
}

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// Viewer は操作しているユーザー（JWTから取り出したもの）
type Viewer struct {
	UserID int64
	Role   model.Role
}

// canSee: 顧客は自分の注文、ベンダーは自分の明細を含む注文、CSR/Adminは全部
func (v Viewer) canSee(o model.Order) bool {
	switch {
	case v.Role.IsStaff():
		return true
	case v.Role == model.RoleVendor:
		return len(o.ItemsOfVendor(v.UserID)) > 0
	default:
		return o.CustomerID == v.UserID
	}
}
