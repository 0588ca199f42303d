package repomanager

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/miretia/internal/filex"
	"github.com/dmitrijs2005/miretia/internal/server/repositories/accounts"
	"github.com/tidwall/buntdb"
)

// MemoryRepositoryManager vends buntdb-backed repositories. It has no schema.
type MemoryRepositoryManager struct {
	db *buntdb.DB
}

// NewMemoryRepositoryManager opens buntdb at path; ":memory:" keeps
// everything in memory.
func NewMemoryRepositoryManager(path string) (*MemoryRepositoryManager, error) {
	if path != ":memory:" {
		abs, err := filex.EnsureParentDir(path)
		if err != nil {
			return nil, err
		}
		path = abs
	}

	db, err := buntdb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	return &MemoryRepositoryManager{db: db}, nil
}

func (m *MemoryRepositoryManager) Accounts() accounts.Repository {
	return accounts.NewMemoryRepository(m.db)
}

func (m *MemoryRepositoryManager) RunMigrations(context.Context) error {
	return nil
}

// Ping fails once the database has been closed.
func (m *MemoryRepositoryManager) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.db.View(func(*buntdb.Tx) error { return nil })
}

func (m *MemoryRepositoryManager) Close() error {
	return m.db.Close()
}
