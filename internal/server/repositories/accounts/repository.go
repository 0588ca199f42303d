// Package accounts holds the account persistence contract and its
// PostgreSQL, SQLite and buntdb implementations.
package accounts

import (
	"context"
	"time"

	"github.com/dmitrijs2005/miretia/internal/server/models"
	"github.com/google/uuid"
)

// Repository is the account store.
//
// Create fails with *common.UniqueViolationError when the email or username
// is taken; the check is atomic with the insert. Lookups fail with
// common.ErrorNotFound. Delete reports whether a record existed.
type Repository interface {
	Create(ctx context.Context, account models.NewAccount) (*models.Account, error)
	GetByID(ctx context.Context, id string) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	GetByUsername(ctx context.Context, username string) (*models.Account, error)
	List(ctx context.Context) ([]models.Account, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// seams for tests
var (
	generateID = uuid.NewString
	timeNow    = func() time.Time { return time.Now().UTC() }
)

// newAccount stamps id and timestamps on a create request. Timestamps are
// truncated to milliseconds, the coarsest precision among the backends, so
// that the returned account equals what a later lookup reads back.
func newAccount(na models.NewAccount) models.Account {
	now := timeNow().Truncate(time.Millisecond)
	return models.Account{
		ID:           generateID(),
		Email:        na.Email,
		Username:     na.Username,
		PasswordHash: na.PasswordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
