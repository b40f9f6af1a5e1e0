package repository

import (
	"context"
	"errors"
	"fmt"

	repo "fulfillment/internal/repository"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// PostgreSQLのSQLSTATE
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgCheckViolation       = "23514"
	pgAdminShutdown        = "57P01"
	pgCannotConnectNow     = "57P03"
)

// classify はドライバのエラーをrepositoryの番兵エラーに寄せる。
// 番兵エラーとnilはそのまま返す
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, repo.ErrNotFound) || errors.Is(err, repo.ErrConflict) || errors.Is(err, repo.ErrUnavailable) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return repo.ErrNotFound
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %w", repo.ErrUnavailable, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		//同時更新の負け、CHECK(stock >= 0)違反は条件付き更新の失敗と同じ扱い
		case pgSerializationFailure, pgDeadlockDetected, pgCheckViolation:
			return fmt.Errorf("%w: %s", repo.ErrConflict, pgErr.Message)
		case pgAdminShutdown, pgCannotConnectNow:
			return fmt.Errorf("%w: %w", repo.ErrUnavailable, err)
		}
		return err
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) || pgconn.Timeout(err) {
		return fmt.Errorf("%w: %w", repo.ErrUnavailable, err)
	}
	return err
}
