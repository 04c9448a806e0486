package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

// Migrator — обёртка над goose.
type Migrator struct {
	db            *sql.DB
	migrationsDir string
	logger        *zap.Logger
}

// NewMigrator создаёт мигратор поверх пула. Goose работает с *sql.DB,
// поэтому открываем его из того же пула через stdlib-адаптер.
func NewMigrator(pool *pgxpool.Pool, migrationsDir string, logger *zap.Logger) (*Migrator, error) {
	if err := goose.SetDialect("postgres"); err != nil {
		return nil, fmt.Errorf("set goose dialect: %w", err)
	}

	return &Migrator{
		db:            stdlib.OpenDBFromPool(pool),
		migrationsDir: migrationsDir,
		logger:        logger,
	}, nil
}

// Run применяет все pending миграции.
func (mg *Migrator) Run(ctx context.Context) error {
	mg.logger.Info("Applying database migrations", zap.String("dir", mg.migrationsDir))

	if err := goose.UpContext(ctx, mg.db, mg.migrationsDir); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	version, err := goose.GetDBVersionContext(ctx, mg.db)
	if err != nil {
		return fmt.Errorf("get migrations version: %w", err)
	}

	mg.logger.Info("Migrations applied", zap.Int64("version", version))
	return nil
}

// Close закрывает соединение мигратора, пул остаётся жить.
func (mg *Migrator) Close() error {
	if mg.db != nil {
		return mg.db.Close()
	}
	return nil
}
