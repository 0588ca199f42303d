// Package repomanager opens the configured account store, runs its schema
// migrations and hands out the repository bound to it.
package repomanager

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/miretia/internal/server/repositories/accounts"
)

// RepositoryManager owns a store connection.
type RepositoryManager interface {
	RunMigrations(ctx context.Context) error
	Accounts() accounts.Repository
	Ping(ctx context.Context) error
	Close() error
}

// NewRepositoryManager picks a backend from the DSN scheme:
//
//	postgres://, postgresql://   PostgreSQL (pgx)
//	sqlite://<path>              SQLite (modernc)
//	memory://                    buntdb, in memory
//	buntdb://<path>              buntdb, persisted to path
//
// The returned manager has already been migrated.
func NewRepositoryManager(ctx context.Context, dsn string) (RepositoryManager, error) {
	var (
		m   RepositoryManager
		err error
	)

	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		m, err = NewPostgresRepositoryManager(ctx, dsn)
	case strings.HasPrefix(dsn, "sqlite://"):
		m, err = NewSQLiteRepositoryManager(ctx, strings.TrimPrefix(dsn, "sqlite://"))
	case dsn == "memory://":
		m, err = NewMemoryRepositoryManager(":memory:")
	case strings.HasPrefix(dsn, "buntdb://"):
		m, err = NewMemoryRepositoryManager(strings.TrimPrefix(dsn, "buntdb://"))
	default:
		return nil, fmt.Errorf("unsupported database dsn %q", redactDSN(dsn))
	}
	if err != nil {
		return nil, err
	}

	if err := m.RunMigrations(ctx); err != nil {
		_ = m.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}

	return m, nil
}

// redactDSN drops everything after the scheme so credentials stay out of errors.
func redactDSN(dsn string) string {
	if scheme, _, ok := strings.Cut(dsn, "://"); ok {
		return scheme + "://..."
	}
	return "..."
}
