package base

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier — минимальный набор операций, общий для пула и транзакции.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DB — то, что нужно репозиториям от хранилища. Реализуется
// *pgxpool.Pool в проде и pgxmock в тестах.
type DB interface {
	Querier
	Begin(ctx context.Context) (pgx.Tx, error)
}

// IsNotFound проверяет является ли ошибка "строка не найдена".
func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
