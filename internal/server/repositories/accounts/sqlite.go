package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/miretia/internal/common"
	"github.com/dmitrijs2005/miretia/internal/dbx"
	"github.com/dmitrijs2005/miretia/internal/server/models"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// SQLiteRepository stores accounts in SQLite. Timestamps are unix millis.
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(v int64) time.Time {
	return time.UnixMilli(v).UTC()
}

func (r *SQLiteRepository) Create(ctx context.Context, na models.NewAccount) (*models.Account, error) {
	a := newAccount(na)

	query :=
		`INSERT INTO accounts (id, email, username, password_hash, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query, a.ID, a.Email, a.Username, a.PasswordHash, toMillis(a.CreatedAt), toMillis(a.UpdatedAt))
	if err != nil {
		if uv := sqliteUniqueViolation(err); uv != nil {
			return nil, uv
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return &a, nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	return r.getBy(ctx, "id", id)
}

func (r *SQLiteRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	return r.getBy(ctx, "email", email)
}

func (r *SQLiteRepository) GetByUsername(ctx context.Context, username string) (*models.Account, error) {
	return r.getBy(ctx, "username", username)
}

func (r *SQLiteRepository) getBy(ctx context.Context, column, value string) (*models.Account, error) {
	query :=
		`SELECT id, email, username, password_hash, created_at, updated_at FROM accounts
		 WHERE ` + column + ` = ?`

	a, err := scanSQLiteAccount(r.db.QueryRowContext(ctx, query, value))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return a, nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]models.Account, error) {
	query :=
		`SELECT id, email, username, password_hash, created_at, updated_at FROM accounts
		 ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	list := make([]models.Account, 0)
	for rows.Next() {
		a, err := scanSQLiteAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		list = append(list, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return list, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}

	return n > 0, nil
}

func scanSQLiteAccount(row rowScanner) (*models.Account, error) {
	a := &models.Account{}
	var createdAt, updatedAt int64
	if err := row.Scan(&a.ID, &a.Email, &a.Username, &a.PasswordHash, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	a.CreatedAt = fromMillis(createdAt)
	a.UpdatedAt = fromMillis(updatedAt)
	return a, nil
}

// sqliteUniqueViolation maps a UNIQUE failure to a UniqueViolationError,
// reading the column from "UNIQUE constraint failed: accounts.<column>".
func sqliteUniqueViolation(err error) error {
	msg := strings.ToLower(err.Error())
	unique := strings.Contains(msg, "unique constraint failed")

	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_UNIQUE, sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY:
			unique = true
		}
	}
	if !unique {
		return nil
	}

	field := ""
	switch {
	case strings.Contains(msg, "accounts.email"):
		field = "email"
	case strings.Contains(msg, "accounts.username"):
		field = "username"
	}
	return &common.UniqueViolationError{Field: field, Err: err}
}
