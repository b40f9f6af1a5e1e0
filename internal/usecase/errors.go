package usecase

import (
	"errors"
	"fmt"

	"fulfillment/internal/domain/model"
)

// 呼び出し側（HTTP層）はerrors.Isで判定してステータスコードに変換する。
var (
	// 入力不正。副作用の前に弾く
	ErrValidation = errors.New("validation error")

	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrOrderNotFound     = errors.New("order not found")

	// 状態の衝突。自動リトライしない
	ErrInvalidTransition = model.ErrInvalidTransition

	// 条件付き更新のリトライを使い切った
	ErrConcurrencyConflict = errors.New("concurrency conflict")

	// 永続化層の一時的な失敗。リトライは呼び出し側の判断
	ErrStoreUnavailable = errors.New("store unavailable")

	ErrNotificationNotFound = errors.New("notification not found")
)

func storeError(err error) error {
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
