package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func items(statuses ...VendorStatus) []OrderItem {
	out := make([]OrderItem, 0, len(statuses))
	for i, s := range statuses {
		out = append(out, OrderItem{ID: int64(i + 1), VendorStatus: s})
	}
	return out
}

func TestDeriveOverallStatus(t *testing.T) {
	cases := []struct {
		name  string
		items []OrderItem
		want  OrderStatus
	}{
		{"none ready", items(VendorStatusProcessing, VendorStatusProcessing), OrderStatusProcessing},
		{"some ready", items(VendorStatusReady, VendorStatusProcessing), OrderStatusPartiallyDelivered},
		{"all ready", items(VendorStatusReady, VendorStatusReady, VendorStatusReady), OrderStatusVendorReady},
		{"single ready", items(VendorStatusReady), OrderStatusVendorReady},
		{"empty", nil, OrderStatusProcessing},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DeriveOverallStatus(tc.items))
		})
	}
}

func TestNextStatus_TransitionTable(t *testing.T) {
	cases := []struct {
		name    string
		from    OrderStatus
		ev      OrderEvent
		items   []OrderItem
		want    OrderStatus
		wantErr bool
	}{
		{"processing all ready", OrderStatusProcessing, OrderEventVendorReady, items(VendorStatusReady), OrderStatusVendorReady, false},
		{"processing some ready", OrderStatusProcessing, OrderEventVendorReady, items(VendorStatusReady, VendorStatusProcessing), OrderStatusPartiallyDelivered, false},
		{"partial to ready", OrderStatusPartiallyDelivered, OrderEventVendorReady, items(VendorStatusReady, VendorStatusReady), OrderStatusVendorReady, false},
		{"deliver from vendor ready", OrderStatusVendorReady, OrderEventDeliver, nil, OrderStatusDelivered, false},
		{"deliver from processing", OrderStatusProcessing, OrderEventDeliver, nil, OrderStatusProcessing, true},
		{"deliver from partial", OrderStatusPartiallyDelivered, OrderEventDeliver, nil, OrderStatusPartiallyDelivered, true},
		{"cancel from processing", OrderStatusProcessing, OrderEventCancel, nil, OrderStatusCanceled, false},
		{"cancel from partial", OrderStatusPartiallyDelivered, OrderEventCancel, nil, OrderStatusCanceled, false},
		{"cancel from vendor ready", OrderStatusVendorReady, OrderEventCancel, nil, OrderStatusCanceled, false},
		{"cancel from delivered", OrderStatusDelivered, OrderEventCancel, nil, OrderStatusDelivered, true},
		{"cancel from canceled", OrderStatusCanceled, OrderEventCancel, nil, OrderStatusCanceled, true},
		{"vendor ready on delivered", OrderStatusDelivered, OrderEventVendorReady, items(VendorStatusReady), OrderStatusDelivered, true},
		{"vendor ready on canceled", OrderStatusCanceled, OrderEventVendorReady, items(VendorStatusReady), OrderStatusCanceled, true},
		{"deliver twice", OrderStatusDelivered, OrderEventDeliver, nil, OrderStatusDelivered, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NextStatus(tc.from, tc.ev, tc.items)
			assert.Equal(t, tc.want, got)
			if tc.wantErr {
				assert.True(t, errors.Is(err, ErrInvalidTransition), "err=%v", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCanRequestCancellation(t *testing.T) {
	assert.True(t, CanRequestCancellation(OrderStatusProcessing))
	assert.True(t, CanRequestCancellation(OrderStatusPartiallyDelivered))
	assert.True(t, CanRequestCancellation(OrderStatusVendorReady))
	assert.False(t, CanRequestCancellation(OrderStatusDelivered))
	assert.False(t, CanRequestCancellation(OrderStatusCanceled))
}

func TestOrder_VendorHelpers(t *testing.T) {
	o := Order{Items: []OrderItem{
		{ID: 1, VendorID: 10},
		{ID: 2, VendorID: 20},
		{ID: 3, VendorID: 10},
	}}

	assert.Equal(t, []int64{10, 20}, o.VendorIDs())
	assert.Len(t, o.ItemsOfVendor(10), 2)
	assert.Len(t, o.ItemsOfVendor(30), 0)
}
