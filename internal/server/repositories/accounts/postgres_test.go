package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/miretia/internal/common"
	"github.com/dmitrijs2005/miretia/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	qInsert = `(?s)^INSERT\s+INTO\s+accounts\s*\(id,\s*email,\s*username,\s*password_hash,\s*created_at,\s*updated_at\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5,\s*\$6\)\s*$`
	qSelect = `(?s)^SELECT\s+id,\s*email,\s*username,\s*password_hash,\s*created_at,\s*updated_at\s+FROM\s+accounts\s+WHERE\s+%s\s*=\s*\$1\s*$`
	qList   = `(?s)^SELECT\s+id,\s*email,\s*username,\s*password_hash,\s*created_at,\s*updated_at\s+FROM\s+accounts\s+ORDER\s+BY\s+created_at,\s*id\s*$`
	qDelete = `^DELETE\s+FROM\s+accounts\s+WHERE\s+id\s*=\s*\$1$`
)

var accountCols = []string{"id", "email", "username", "password_hash", "created_at", "updated_at"}

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	return NewPostgresRepository(db), mock
}

func fixSeams(t *testing.T, id string, now time.Time) {
	t.Helper()
	origID, origNow := generateID, timeNow
	generateID = func() string { return id }
	timeNow = func() time.Time { return now }
	t.Cleanup(func() { generateID, timeNow = origID, origNow })
}

func newTestAccount(username string) models.NewAccount {
	return models.NewAccount{Username: username, Email: username + "@x", PasswordHash: "$argon2id$h"}
}

func TestPostgresCreate_Success(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Date(2026, 10, 19, 12, 0, 0, 123456789, time.UTC)
	fixSeams(t, "id-1", now)
	stamp := now.Truncate(time.Millisecond)

	mock.ExpectExec(qInsert).
		WithArgs("id-1", "abc@x", "abc", "$argon2id$h", stamp, stamp).
		WillReturnResult(sqlmock.NewResult(0, 1))

	got, err := repo.Create(context.Background(), newTestAccount("abc"))
	require.NoError(t, err)
	assert.Equal(t, &models.Account{
		ID: "id-1", Email: "abc@x", Username: "abc", PasswordHash: "$argon2id$h",
		CreatedAt: stamp, UpdatedAt: stamp,
	}, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCreate_UniqueViolation(t *testing.T) {
	tests := []struct {
		constraint string
		field      string
	}{
		{"accounts_email_key", "email"},
		{"accounts_username_key", "username"},
		{"accounts_pkey", ""},
	}

	for _, tt := range tests {
		t.Run(tt.constraint, func(t *testing.T) {
			repo, mock := newRepoWithMock(t)
			mock.ExpectExec(qInsert).
				WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: tt.constraint})

			_, err := repo.Create(context.Background(), newTestAccount("abc"))
			requireViolation(t, err, tt.field)
		})
	}
}

func TestPostgresCreate_DBError(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectExec(qInsert).WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), newTestAccount("abc"))
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
	assert.False(t, errors.Is(err, common.ErrorAlreadyExists))
}

func TestPostgresCreate_OtherPgError(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectExec(qInsert).WillReturnError(&pgconn.PgError{Code: "23502"})

	_, err := repo.Create(context.Background(), newTestAccount("abc"))
	require.Error(t, err)
	assert.False(t, errors.Is(err, common.ErrorAlreadyExists))
}

func TestPostgresGetBy(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		column string
		value  string
		get    func(r *PostgresRepository, v string) (*models.Account, error)
	}{
		{"id", "id-1", func(r *PostgresRepository, v string) (*models.Account, error) {
			return r.GetByID(context.Background(), v)
		}},
		{"email", "abc@x", func(r *PostgresRepository, v string) (*models.Account, error) {
			return r.GetByEmail(context.Background(), v)
		}},
		{"username", "abc", func(r *PostgresRepository, v string) (*models.Account, error) {
			return r.GetByUsername(context.Background(), v)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.column+" found", func(t *testing.T) {
			repo, mock := newRepoWithMock(t)
			mock.ExpectQuery(fmt.Sprintf(qSelect, tt.column)).
				WithArgs(tt.value).
				WillReturnRows(sqlmock.NewRows(accountCols).
					AddRow("id-1", "abc@x", "abc", "$argon2id$h", created, created))

			got, err := tt.get(repo, tt.value)
			require.NoError(t, err)
			assert.Equal(t, "id-1", got.ID)
			assert.Equal(t, "abc", got.Username)
			assert.True(t, got.CreatedAt.Equal(created))
		})

		t.Run(tt.column+" not found", func(t *testing.T) {
			repo, mock := newRepoWithMock(t)
			mock.ExpectQuery(fmt.Sprintf(qSelect, tt.column)).
				WithArgs(tt.value).
				WillReturnError(sql.ErrNoRows)

			_, err := tt.get(repo, tt.value)
			assert.ErrorIs(t, err, common.ErrorNotFound)
		})

		t.Run(tt.column+" db error", func(t *testing.T) {
			repo, mock := newRepoWithMock(t)
			mock.ExpectQuery(fmt.Sprintf(qSelect, tt.column)).
				WithArgs(tt.value).
				WillReturnError(errors.New("db err"))

			_, err := tt.get(repo, tt.value)
			if err == nil || !regexp.MustCompile(`db error: .*db err`).MatchString(err.Error()) {
				t.Fatalf("expected wrapped db error, got %v", err)
			}
		})
	}
}

func TestPostgresList(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	t1 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Minute)

	mock.ExpectQuery(qList).WillReturnRows(sqlmock.NewRows(accountCols).
		AddRow("id-1", "a@x", "aaa", "h1", t1, t1).
		AddRow("id-2", "b@x", "bbb", "h2", t2, t2))

	list, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "id-1", list[0].ID)
	assert.Equal(t, "id-2", list[1].ID)
}

func TestPostgresList_Empty(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectQuery(qList).WillReturnRows(sqlmock.NewRows(accountCols))

	list, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestPostgresList_Errors(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectQuery(qList).WillReturnError(errors.New("db err"))
	_, err := repo.List(context.Background())
	assert.ErrorContains(t, err, "db error")

	repo, mock = newRepoWithMock(t)
	mock.ExpectQuery(qList).WillReturnRows(sqlmock.NewRows(accountCols).
		AddRow("id-1", "a@x", "aaa", "h1", time.Now(), time.Now()).
		RowError(0, errors.New("row broke")))
	_, err = repo.List(context.Background())
	assert.ErrorContains(t, err, "row broke")
}

func TestPostgresDelete(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectExec(qDelete).WithArgs("id-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(qDelete).WithArgs("id-2").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(qDelete).WithArgs("id-3").WillReturnError(errors.New("db err"))
	mock.ExpectExec(qDelete).WithArgs("id-4").WillReturnResult(sqlmock.NewErrorResult(errors.New("no count")))

	deleted, err := repo.Delete(context.Background(), "id-1")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = repo.Delete(context.Background(), "id-2")
	require.NoError(t, err)
	assert.False(t, deleted)

	_, err = repo.Delete(context.Background(), "id-3")
	assert.ErrorContains(t, err, "db error")

	_, err = repo.Delete(context.Background(), "id-4")
	assert.ErrorContains(t, err, "no count")

	require.NoError(t, mock.ExpectationsWereMet())
}
