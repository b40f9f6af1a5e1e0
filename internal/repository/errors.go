package repository

import "errors"

var (
	ErrNotFound = errors.New("not found")

	// 条件付き更新で期待値（在庫数/バージョン）が一致しなかった
	ErrConflict = errors.New("conditional write conflict")

	// 接続断・タイムアウトなど。呼び出し側の判断でリトライ可能
	ErrUnavailable = errors.New("store unavailable")
)
