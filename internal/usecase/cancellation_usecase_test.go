package usecase_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"fulfillment/internal/domain/model"
	repo "fulfillment/internal/repository"
	"fulfillment/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// 処理中の注文をキャンセル依頼 → 承認で、全明細の在庫が戻る
func TestCancellation_ApproveReleasesStock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.addProduct(t, 10, "A", "100", 10)
	b := f.addProduct(t, 20, "B", "250", 4)

	o, err := f.order.CreateOrder(ctx, orderInput(1, line(a.ID, 3), line(b.ID, 2)))
	require.NoError(t, err)
	require.Equal(t, int64(7), f.stock(t, a.ID))
	require.Equal(t, int64(2), f.stock(t, b.ID))

	out, err := f.cancel.RequestCancellation(ctx, 1, o.ID, "changed mind")
	require.NoError(t, err)
	assert.True(t, out.CancellationRequested)
	assert.Equal(t, "changed mind", out.CancellationNote)
	//依頼だけではステータスは変わらない
	assert.Equal(t, string(model.OrderStatusProcessing), out.Status)

	admin := f.notifier.to(model.AudienceAdmin)
	require.Len(t, admin, 1)
	assert.Contains(t, admin[0].Message, "changed mind")

	out, err = f.cancel.ResolveCancellation(ctx, 500, o.ID, usecase.ResolveCancellationInput{Approve: true})
	require.NoError(t, err)
	assert.Equal(t, string(model.OrderStatusCanceled), out.Status)
	assert.False(t, out.CancellationRequested)
	assert.Equal(t, "changed mind", out.CancellationNote)

	assert.Equal(t, int64(10), f.stock(t, a.ID))
	assert.Equal(t, int64(4), f.stock(t, b.ID))

	logs, err := f.audits.List(ctx, repo.AuditQuery{})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, model.AuditActionResolveCancellation, logs[0].Action)
	assert.Equal(t, o.ID, logs[0].ResourceID)

	customer := f.notifier.to(model.AudienceCustomer)
	require.Len(t, customer, 1)
	assert.Contains(t, customer[0].Message, "approved")
}

func TestCancellation_RejectKeepsStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.addProduct(t, 10, "A", "100", 10)
	b := f.addProduct(t, 20, "B", "100", 10)
	o, err := f.order.CreateOrder(ctx, orderInput(1, line(a.ID, 1), line(b.ID, 1)))
	require.NoError(t, err)
	_, err = f.order.MarkVendorReady(ctx, 10, o.ID)
	require.NoError(t, err)

	//一部READYでも依頼できる
	_, err = f.cancel.RequestCancellation(ctx, 1, o.ID, "wrong size")
	require.NoError(t, err)

	out, err := f.cancel.ResolveCancellation(ctx, 500, o.ID, usecase.ResolveCancellationInput{Approve: false})
	require.NoError(t, err)
	assert.Equal(t, string(model.OrderStatusPartiallyDelivered), out.Status)
	assert.False(t, out.CancellationRequested)
	assert.Equal(t, int64(9), f.stock(t, a.ID))

	//依頼がなければ解決できない
	_, err = f.cancel.ResolveCancellation(ctx, 500, o.ID, usecase.ResolveCancellationInput{Approve: true})
	assert.ErrorIs(t, err, usecase.ErrInvalidTransition)
}

func TestCancellation_RequestIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.addProduct(t, 10, "A", "100", 10)
	o, err := f.order.CreateOrder(ctx, orderInput(1, line(a.ID, 1)))
	require.NoError(t, err)

	_, err = f.cancel.RequestCancellation(ctx, 1, o.ID, "first note")
	require.NoError(t, err)
	first, err := f.orders.FindByID(ctx, o.ID)
	require.NoError(t, err)

	out, err := f.cancel.RequestCancellation(ctx, 1, o.ID, "second note")
	require.NoError(t, err)
	assert.Equal(t, "first note", out.CancellationNote)

	second, err := f.orders.FindByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Version, second.Version)
	assert.Equal(t, "first note", *second.CancellationNote)
	assert.Len(t, f.notifier.to(model.AudienceAdmin), 1)
}

func TestCancellation_RequestValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.addProduct(t, 10, "A", "100", 10)
	o, err := f.order.CreateOrder(ctx, orderInput(1, line(a.ID, 1)))
	require.NoError(t, err)

	_, err = f.cancel.RequestCancellation(ctx, 1, o.ID, "   ")
	assert.ErrorIs(t, err, usecase.ErrValidation)

	//他人の注文
	_, err = f.cancel.RequestCancellation(ctx, 2, o.ID, "not mine")
	assert.ErrorIs(t, err, usecase.ErrOrderNotFound)

	_, err = f.cancel.RequestCancellation(ctx, 1, "missing", "note")
	assert.ErrorIs(t, err, usecase.ErrOrderNotFound)
}

// キャンセル承認と配送完了がぶつかったら、後から書く方が遷移エラーになる
func TestCancellation_LosesToDelivery(t *testing.T) {
	orders := new(OrderRepoMock)
	ledger := new(LedgerMock)
	uc := usecase.NewCancellationUsecase(usecase.CancellationUsecaseDeps{Orders: orders, Ledger: ledger, MaxRetries: 3})

	ready := model.Order{ID: "o1", CustomerID: 1, Status: model.OrderStatusVendorReady, CancellationRequested: true, Version: 4,
		Items: []model.OrderItem{{ProductID: 1, VendorID: 10, Quantity: 2, VendorStatus: model.VendorStatusReady}}}
	delivered := ready
	delivered.Status = model.OrderStatusDelivered
	delivered.Version = 5

	orders.On("FindByID", mock.Anything, "o1").Return(ready, nil).Once()
	orders.On("ConditionalUpdate", mock.Anything, "o1", mock.Anything).Return(repo.ErrConflict).Once()
	orders.On("FindByID", mock.Anything, "o1").Return(delivered, nil).Once()

	_, err := uc.ResolveCancellation(context.Background(), 500, "o1", usecase.ResolveCancellationInput{Approve: true})
	assert.ErrorIs(t, err, usecase.ErrInvalidTransition)
	ledger.AssertNotCalled(t, "Release", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	orders.AssertExpectations(t)
}

func TestCancellation_ReleaseFailureIsReported(t *testing.T) {
	orders := new(OrderRepoMock)
	ledger := new(LedgerMock)
	uc := usecase.NewCancellationUsecase(usecase.CancellationUsecaseDeps{Orders: orders, Ledger: ledger, MaxRetries: 3})

	o := model.Order{ID: "o1", CustomerID: 1, Status: model.OrderStatusProcessing, CancellationRequested: true, Version: 2,
		Items: []model.OrderItem{
			{ProductID: 1, VendorID: 10, Quantity: 2, VendorStatus: model.VendorStatusProcessing},
			{ProductID: 2, VendorID: 10, Quantity: 1, VendorStatus: model.VendorStatusProcessing},
		}}
	orders.On("FindByID", mock.Anything, "o1").Return(o, nil)
	orders.On("ConditionalUpdate", mock.Anything, "o1", mock.Anything).Return(nil)
	ledger.On("Release", mock.Anything, int64(1), int64(2), "o1").Return(model.Product{}, usecase.ErrStoreUnavailable)
	ledger.On("Release", mock.Anything, int64(2), int64(1), "o1").Return(model.Product{ID: 2}, nil)

	_, err := uc.ResolveCancellation(context.Background(), 500, "o1", usecase.ResolveCancellationInput{Approve: true})
	assert.ErrorIs(t, err, usecase.ErrStoreUnavailable)
	//失敗しても残りの明細は戻す
	ledger.AssertCalled(t, "Release", mock.Anything, int64(2), int64(1), "o1")
	assert.False(t, errors.Is(err, usecase.ErrInvalidTransition))
}

// CSRが書いた理由は注文と監査ログの両方に残る
func TestCancellation_ResolutionNoteRecorded(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.addProduct(t, 10, "A", "100", 10)

	o, err := f.order.CreateOrder(ctx, orderInput(1, line(a.ID, 2)))
	require.NoError(t, err)
	_, err = f.cancel.RequestCancellation(ctx, 1, o.ID, "changed mind")
	require.NoError(t, err)

	//長すぎる理由は書き込み前に弾く
	_, err = f.cancel.ResolveCancellation(ctx, 500, o.ID, usecase.ResolveCancellationInput{Note: strings.Repeat("x", 1001)})
	assert.ErrorIs(t, err, usecase.ErrValidation)

	out, err := f.cancel.ResolveCancellation(ctx, 500, o.ID, usecase.ResolveCancellationInput{Note: "  already shipped  "})
	require.NoError(t, err)
	assert.Equal(t, string(model.OrderStatusProcessing), out.Status)
	assert.Equal(t, "changed mind", out.CancellationNote)
	assert.Equal(t, "already shipped", out.ResolutionNote)

	logs, err := f.audits.List(ctx, repo.AuditQuery{})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.NotContains(t, logs[0].BeforeJSON, "resolution_note")
	assert.Contains(t, logs[0].AfterJSON, `"resolution_note":"already shipped"`)
}
