package accounts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/miretia/internal/common"
	"github.com/dmitrijs2005/miretia/internal/server/models"
	"github.com/tidwall/buntdb"
)

// MemoryRepository stores accounts in buntdb. Each account is a JSON value
// under "account:<id>", with "account_email:<email>" and
// "account_username:<username>" holding the id. Uniqueness is checked and
// claimed inside one write transaction, which buntdb serializes.
type MemoryRepository struct {
	db *buntdb.DB
}

func NewMemoryRepository(db *buntdb.DB) *MemoryRepository {
	return &MemoryRepository{db: db}
}

type accountRecord struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func accountKey(id string) string        { return "account:" + id }
func emailKey(email string) string       { return "account_email:" + email }
func usernameKey(username string) string { return "account_username:" + username }

func (r *MemoryRepository) Create(ctx context.Context, na models.NewAccount) (*models.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a := newAccount(na)
	value, err := json.Marshal(accountRecord(a))
	if err != nil {
		return nil, fmt.Errorf("encode account: %w", err)
	}

	err = r.db.Update(func(tx *buntdb.Tx) error {
		if err := ensureFree(tx, emailKey(a.Email), "email"); err != nil {
			return err
		}
		if err := ensureFree(tx, usernameKey(a.Username), "username"); err != nil {
			return err
		}
		if _, _, err := tx.Set(accountKey(a.ID), string(value), nil); err != nil {
			return err
		}
		if _, _, err := tx.Set(emailKey(a.Email), a.ID, nil); err != nil {
			return err
		}
		_, _, err := tx.Set(usernameKey(a.Username), a.ID, nil)
		return err
	})
	if err != nil {
		var uv *common.UniqueViolationError
		if errors.As(err, &uv) {
			return nil, uv
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return &a, nil
}

func ensureFree(tx *buntdb.Tx, key, field string) error {
	_, err := tx.Get(key)
	switch {
	case err == nil:
		return &common.UniqueViolationError{Field: field}
	case errors.Is(err, buntdb.ErrNotFound):
		return nil
	default:
		return err
	}
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	return r.get(ctx, func(tx *buntdb.Tx) (string, error) { return id, nil })
}

func (r *MemoryRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	return r.get(ctx, func(tx *buntdb.Tx) (string, error) { return tx.Get(emailKey(email)) })
}

func (r *MemoryRepository) GetByUsername(ctx context.Context, username string) (*models.Account, error) {
	return r.get(ctx, func(tx *buntdb.Tx) (string, error) { return tx.Get(usernameKey(username)) })
}

func (r *MemoryRepository) get(ctx context.Context, resolveID func(tx *buntdb.Tx) (string, error)) (*models.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var a *models.Account
	err := r.db.View(func(tx *buntdb.Tx) error {
		id, err := resolveID(tx)
		if err != nil {
			return err
		}
		raw, err := tx.Get(accountKey(id))
		if err != nil {
			return err
		}
		a, err = decodeAccount(raw)
		return err
	})
	if err != nil {
		if errors.Is(err, buntdb.ErrNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return a, nil
}

// List returns accounts in key order, i.e. by id.
func (r *MemoryRepository) List(ctx context.Context) ([]models.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	list := make([]models.Account, 0)
	err := r.db.View(func(tx *buntdb.Tx) error {
		var decodeErr error
		err := tx.AscendKeys(accountKey("*"), func(key, value string) bool {
			a, err := decodeAccount(value)
			if err != nil {
				decodeErr = fmt.Errorf("decode %s: %w", key, err)
				return false
			}
			list = append(list, *a)
			return true
		})
		if err != nil {
			return err
		}
		return decodeErr
	})
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return list, nil
}

func (r *MemoryRepository) Delete(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	deleted := false
	err := r.db.Update(func(tx *buntdb.Tx) error {
		raw, err := tx.Get(accountKey(id))
		if errors.Is(err, buntdb.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		a, err := decodeAccount(raw)
		if err != nil {
			return err
		}
		for _, key := range []string{accountKey(id), emailKey(a.Email), usernameKey(a.Username)} {
			if _, err := tx.Delete(key); err != nil && !errors.Is(err, buntdb.ErrNotFound) {
				return err
			}
		}
		deleted = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}

	return deleted, nil
}

func decodeAccount(raw string) (*models.Account, error) {
	var rec accountRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, err
	}
	a := models.Account(rec)
	return &a, nil
}
