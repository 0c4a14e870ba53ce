package store

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/postboard/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func TestUserRepository_GetByUsername(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	id := uuid.New()
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM users")).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "email", "password_hash", "created_at"}).
			AddRow(id.String(), "alice", "a@x.com", "$2a$hash", created))

	user, err := repo.GetByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, id, user.ID)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "a@x.com", user.Email)
	assert.Equal(t, "$2a$hash", user.PasswordHash)
	assert.True(t, created.Equal(user.CreatedAt))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByUsername_NotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users")).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByUsername(context.Background(), "ghost")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUserRepository_GetByID_DriverError(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	boom := errors.New("connection reset")
	id := uuid.New()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1")).
		WithArgs(id).
		WillReturnError(boom)

	_, err := repo.GetByID(context.Background(), id)
	require.ErrorIs(t, err, boom)
}

func TestUserRepository_Create(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WithArgs(sqlmock.AnyArg(), "alice", "a@x.com", "$2a$hash", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	user, err := repo.Create(context.Background(), types.User{
		Username:     "alice",
		Email:        "a@x.com",
		PasswordHash: "$2a$hash",
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, user.ID)
	assert.False(t, user.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Create_Duplicate(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WillReturnError(&pq.Error{Code: pqUniqueViolation})

	_, err := repo.Create(context.Background(), types.User{Username: "alice", Email: "a@x.com"})
	require.ErrorIs(t, err, ErrConflict)
}
