package accounts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/buntdb"
)

func newMemoryRepo(t *testing.T) Repository {
	t.Helper()
	db, err := buntdb.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewMemoryRepository(db)
}

func TestMemoryRepository_Contract(t *testing.T) {
	runRepositoryContract(t, newMemoryRepo)
}

func TestMemoryRepository_ClosedDB(t *testing.T) {
	db, err := buntdb.Open(":memory:")
	require.NoError(t, err)
	repo := NewMemoryRepository(db)
	require.NoError(t, db.Close())

	_, err = repo.GetByUsername(context.Background(), "abc")
	assert.ErrorContains(t, err, "db error")

	_, err = repo.List(context.Background())
	assert.ErrorContains(t, err, "db error")
}

func TestMemoryRepository_CanceledContext(t *testing.T) {
	repo := newMemoryRepo(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.List(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	_, err = repo.Delete(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryRepository_CorruptRecord(t *testing.T) {
	db, err := buntdb.Open(":memory:")
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(accountKey("broken"), "{not json", nil)
		return err
	}))

	repo := NewMemoryRepository(db)
	_, err = repo.List(context.Background())
	assert.ErrorContains(t, err, "decode account:broken")
}
