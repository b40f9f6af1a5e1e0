package model

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition は現在の状態から許されない遷移。
var ErrInvalidTransition = errors.New("invalid order status transition")

// 注文ステータスを動かすイベント
type OrderEvent string

const (
	//ベンダーが自分の明細をREADYにした
	OrderEventVendorReady OrderEvent = "VENDOR_READY"
	//CSR/Adminが配送完了にした
	OrderEventDeliver OrderEvent = "DELIVER"
	//キャンセル承認
	OrderEventCancel OrderEvent = "CANCEL"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusProcessing, OrderStatusPartiallyDelivered, OrderStatusVendorReady,
		OrderStatusDelivered, OrderStatusCanceled:
		return true
	}
	return false
}

// IsTerminal: DELIVERED / CANCELED からは何も動かせない
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCanceled
}

// DeriveOverallStatus は明細のベンダーステータスから全体ステータスを決める。
// 全部READY → VENDOR_READY、一部 → PARTIALLY_DELIVERED、なし → PROCESSING
func DeriveOverallStatus(items []OrderItem) OrderStatus {
	ready := 0
	for _, it := range items {
		if it.VendorStatus == VendorStatusReady {
			ready++
		}
	}
	switch {
	case len(items) > 0 && ready == len(items):
		return OrderStatusVendorReady
	case ready > 0:
		return OrderStatusPartiallyDelivered
	default:
		return OrderStatusProcessing
	}
}

// NextStatus は遷移表に従って次の状態を返す。
// VENDOR_READYイベントでは items（更新後の明細）から再計算する。
func NextStatus(current OrderStatus, ev OrderEvent, items []OrderItem) (OrderStatus, error) {
	if current.IsTerminal() {
		return current, fmt.Errorf("%w: order is %s", ErrInvalidTransition, current)
	}

	switch ev {
	case OrderEventVendorReady:
		return DeriveOverallStatus(items), nil
	case OrderEventDeliver:
		if current != OrderStatusVendorReady {
			return current, fmt.Errorf("%w: cannot deliver from %s", ErrInvalidTransition, current)
		}
		return OrderStatusDelivered, nil
	case OrderEventCancel:
		//PROCESSING / PARTIALLY_DELIVERED / VENDOR_READY から可能
		return OrderStatusCanceled, nil
	default:
		return current, fmt.Errorf("%w: unknown event %q", ErrInvalidTransition, ev)
	}
}

// CanRequestCancellation: 配送完了・キャンセル済みでなければ依頼できる
func CanRequestCancellation(s OrderStatus) bool {
	return !s.IsTerminal()
}
