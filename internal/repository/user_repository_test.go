package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/coursehub-api/internal/models"
)

var userRowColumns = []string{"id", "email", "password_hash", "display_name", "avatar_url", "bio", "role", "active", "last_login", "created_at", "updated_at"}

func TestFindByEmailIsCaseInsensitive(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewUserRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(userRowColumns).
		AddRow("1", "user@example.com", "hash", "User", nil, "", string(models.RoleUser), true, now, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE LOWER(email) = $1 LIMIT 1")).
		WithArgs("user@example.com").
		WillReturnRows(rows)

	user, err := repo.FindByEmail(context.Background(), " User@Example.com ")
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", user.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec("INSERT INTO users").WillReturnError(&pq.Error{Code: "23505", Constraint: "users_email_key"})

	err := repo.Create(context.Background(), &models.User{Email: "a@example.com", Role: models.RoleUser})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestCreateRefreshToken(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec("INSERT INTO refresh_tokens").WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.CreateRefreshToken(context.Background(), &models.RefreshToken{UserID: "u1", TokenHash: "digest", ExpiresAt: time.Now()})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRevokeUserRefreshTokens(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE refresh_tokens SET revoked_at = $2 WHERE user_id = $1 AND revoked_at IS NULL")).
		WithArgs("u1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, repo.RevokeUserRefreshTokens(context.Background(), "u1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewUserRepository(db)

	active := true
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE 1=1 AND (LOWER(email) LIKE $1 OR LOWER(display_name) LIKE $1) AND role = $2 AND active = $3 ORDER BY created_at DESC LIMIT 20 OFFSET 0")).
		WithArgs("%wang%", models.RoleModerator, true).
		WillReturnRows(sqlmock.NewRows(userRowColumns).
			AddRow("u2", "wang@example.com", "hash", "Wang", nil, "", string(models.RoleModerator), true, nil, now, now))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM users WHERE 1=1")).
		WithArgs("%wang%", models.RoleModerator, true).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	users, total, err := repo.List(context.Background(), models.UserFilter{Search: " Wang ", Role: models.RoleModerator, Active: &active})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, users, 1)
	assert.Equal(t, "u2", users[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryUpdateAccountMissing(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET role = ?, active = ?")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateAccount(context.Background(), &models.User{ID: "missing", Role: models.RoleUser})
	assert.ErrorIs(t, err, sql.ErrNoRows)
}
