package accounts

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/dmitrijs2005/miretia/internal/common"
	"github.com/dmitrijs2005/miretia/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runRepositoryContract exercises behaviour every backend must share.
// newRepo must return an empty store.
func runRepositoryContract(t *testing.T, newRepo func(t *testing.T) Repository) {
	ctx := context.Background()

	t.Run("create and lookup", func(t *testing.T) {
		repo := newRepo(t)

		created, err := repo.Create(ctx, models.NewAccount{Username: "abc", Email: "a@b.com", PasswordHash: "$argon2id$hash"})
		require.NoError(t, err)
		require.NotEmpty(t, created.ID)
		assert.Equal(t, "abc", created.Username)
		assert.Equal(t, "a@b.com", created.Email)
		assert.Equal(t, "$argon2id$hash", created.PasswordHash)
		assert.False(t, created.CreatedAt.IsZero())
		assert.True(t, created.CreatedAt.Equal(created.UpdatedAt))

		for name, get := range map[string]func() (*models.Account, error){
			"id":       func() (*models.Account, error) { return repo.GetByID(ctx, created.ID) },
			"email":    func() (*models.Account, error) { return repo.GetByEmail(ctx, "a@b.com") },
			"username": func() (*models.Account, error) { return repo.GetByUsername(ctx, "abc") },
		} {
			got, err := get()
			require.NoError(t, err, name)
			requireSameAccount(t, created, got)
		}
	})

	t.Run("lookups of missing keys", func(t *testing.T) {
		repo := newRepo(t)

		_, err := repo.GetByID(ctx, "5b0c8f0e-8f2c-4b57-9a43-2f7f8a3e0d11")
		assert.ErrorIs(t, err, common.ErrorNotFound)
		_, err = repo.GetByEmail(ctx, "ghost@x")
		assert.ErrorIs(t, err, common.ErrorNotFound)
		_, err = repo.GetByUsername(ctx, "ghost")
		assert.ErrorIs(t, err, common.ErrorNotFound)
	})

	t.Run("duplicate email", func(t *testing.T) {
		repo := newRepo(t)

		_, err := repo.Create(ctx, models.NewAccount{Username: "first", Email: "dup@x", PasswordHash: "h"})
		require.NoError(t, err)

		_, err = repo.Create(ctx, models.NewAccount{Username: "second", Email: "dup@x", PasswordHash: "h"})
		requireViolation(t, err, "email")

		_, err = repo.GetByUsername(ctx, "second")
		assert.ErrorIs(t, err, common.ErrorNotFound, "no second record may be created")
	})

	t.Run("duplicate username", func(t *testing.T) {
		repo := newRepo(t)

		_, err := repo.Create(ctx, models.NewAccount{Username: "same", Email: "one@x", PasswordHash: "h"})
		require.NoError(t, err)

		_, err = repo.Create(ctx, models.NewAccount{Username: "same", Email: "two@x", PasswordHash: "h"})
		requireViolation(t, err, "username")

		_, err = repo.GetByEmail(ctx, "two@x")
		assert.ErrorIs(t, err, common.ErrorNotFound)
	})

	t.Run("list", func(t *testing.T) {
		repo := newRepo(t)

		list, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, list)

		want := map[string]bool{}
		for i := 0; i < 3; i++ {
			a, err := repo.Create(ctx, models.NewAccount{
				Username: fmt.Sprintf("user%d", i), Email: fmt.Sprintf("u%d@x", i), PasswordHash: "h",
			})
			require.NoError(t, err)
			want[a.ID] = true
		}

		list, err = repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 3)
		for _, a := range list {
			assert.True(t, want[a.ID], "unexpected account %s", a.ID)
		}
	})

	t.Run("delete", func(t *testing.T) {
		repo := newRepo(t)

		a, err := repo.Create(ctx, models.NewAccount{Username: "gone", Email: "gone@x", PasswordHash: "h"})
		require.NoError(t, err)

		deleted, err := repo.Delete(ctx, a.ID)
		require.NoError(t, err)
		assert.True(t, deleted)

		_, err = repo.GetByID(ctx, a.ID)
		assert.ErrorIs(t, err, common.ErrorNotFound)

		deleted, err = repo.Delete(ctx, a.ID)
		require.NoError(t, err)
		assert.False(t, deleted, "second delete must report not found")

		// the unique keys are released with the record
		_, err = repo.Create(ctx, models.NewAccount{Username: "gone", Email: "gone@x", PasswordHash: "h"})
		assert.NoError(t, err)
	})

	t.Run("concurrent duplicates", func(t *testing.T) {
		repo := newRepo(t)

		const n = 8
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			successes int
			conflicts int
		)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := repo.Create(ctx, models.NewAccount{
					Username: "race", Email: fmt.Sprintf("race%d@x", i), PasswordHash: "h",
				})
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					successes++
				case errors.Is(err, common.ErrorAlreadyExists):
					conflicts++
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}(i)
		}
		wg.Wait()

		assert.Equal(t, 1, successes)
		assert.Equal(t, n-1, conflicts)
	})
}

func requireViolation(t *testing.T, err error, field string) {
	t.Helper()
	require.Error(t, err)
	require.ErrorIs(t, err, common.ErrorAlreadyExists)
	var uv *common.UniqueViolationError
	require.True(t, errors.As(err, &uv), "want UniqueViolationError, got %T", err)
	assert.Equal(t, field, uv.Field)
}

func requireSameAccount(t *testing.T, want, got *models.Account) {
	t.Helper()
	require.NotNil(t, got)
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Email, got.Email)
	assert.Equal(t, want.Username, got.Username)
	assert.Equal(t, want.PasswordHash, got.PasswordHash)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt), "created_at %v != %v", want.CreatedAt, got.CreatedAt)
	assert.True(t, want.UpdatedAt.Equal(got.UpdatedAt), "updated_at %v != %v", want.UpdatedAt, got.UpdatedAt)
}
