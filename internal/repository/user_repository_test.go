package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unidesk/uniportal-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	cleanup := func() {
		_ = sqlxDB.Close()
		db.Close()
	}
	return sqlxDB, mock, cleanup
}

func userRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "email", "password_hash", "full_name", "role", "department_id", "program_id", "is_active", "status", "last_login", "created_at", "updated_at"})
}

func TestUserRepositoryFindByEmail(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	now := time.Now().UTC()
	rows := userRows().
		AddRow("user-1", "head@uni.edu", "hash", "Dana Head", "department_head",
			sql.NullString{String: "dept-5", Valid: true}, sql.NullString{Valid: false},
			true, "active", sql.NullTime{}, now, now)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, email, password_hash, full_name, role, department_id, program_id, is_active, status, last_login, created_at, updated_at FROM users WHERE email = $1")).
		WithArgs("head@uni.edu").
		WillReturnRows(rows)

	user, err := repo.FindByEmail(context.Background(), "head@uni.edu")
	require.NoError(t, err)
	assert.Equal(t, "user-1", user.ID)
	assert.Equal(t, models.RoleDepartmentHead, user.Role)
	require.NotNil(t, user.DepartmentID)
	assert.Equal(t, "dept-5", *user.DepartmentID)
	assert.Nil(t, user.ProgramID)
	assert.True(t, user.IsActive)
	assert.Equal(t, models.UserStatusActive, user.Status)
}

func TestUserRepositoryFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	user, err := repo.FindByID(context.Background(), "missing")
	assert.Nil(t, user)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestUserRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	now := time.Now().UTC()
	rows := userRows().
		AddRow("user-2", "ph@uni.edu", "hash", "Pat Program", "program_head",
			sql.NullString{Valid: false}, sql.NullString{String: "prog-10", Valid: true},
			true, "active", sql.NullTime{}, now, now)

	role := models.RoleProgramHead
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE 1=1 AND role = $1 AND program_id = $2")).
		WithArgs(role, "prog-10").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM users WHERE 1=1 AND role = $1 AND program_id = $2")).
		WithArgs(role, "prog-10").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	users, total, err := repo.List(context.Background(), models.UserFilter{Role: &role, ProgramID: "prog-10"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, users, 1)
	assert.Equal(t, "user-2", users[0].ID)
}

func TestUserRepositoryListRejectsUnknownSort(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at DESC")).
		WillReturnRows(userRows())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	_, _, err := repo.List(context.Background(), models.UserFilter{SortBy: "password_hash; DROP TABLE users"})
	require.NoError(t, err)
}

func TestUserRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	user := &models.User{
		Email:    "new@uni.edu",
		FullName: "New User",
		Role:     models.RoleInstructor,
		IsActive: true,
		Status:   models.UserStatusActive,
	}
	err := repo.Create(context.Background(), user)
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.False(t, user.CreatedAt.IsZero())
}

func TestUserRepositoryDeactivateFlipsBothFlags(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET is_active = FALSE, status = 'inactive', updated_at = $2 WHERE id = $1")).
		WithArgs("user-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Deactivate(context.Background(), "user-1")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryRefreshTokenRoundTrip(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO refresh_tokens")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	token := &models.RefreshToken{
		UserID:    "user-1",
		Token:     "opaque-token",
		ExpiresAt: time.Now().UTC().Add(24 * time.Hour),
	}
	require.NoError(t, repo.CreateRefreshToken(context.Background(), token))
	assert.NotEmpty(t, token.ID)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "user_id", "token", "expires_at", "created_at", "revoked", "revoked_at", "ip_address", "user_agent"}).
		AddRow(token.ID, "user-1", "opaque-token", token.ExpiresAt, now, false, sql.NullTime{}, "", "")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, token, expires_at, created_at, revoked, revoked_at, ip_address, user_agent FROM refresh_tokens WHERE token = $1")).
		WithArgs("opaque-token").
		WillReturnRows(rows)

	found, err := repo.FindRefreshToken(context.Background(), "opaque-token")
	require.NoError(t, err)
	assert.Equal(t, "user-1", found.UserID)
	assert.False(t, found.Revoked)
}

func TestUserRepositoryRevokeUserRefreshTokens(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $2 WHERE user_id = $1 AND revoked = FALSE")).
		WithArgs("user-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 3))

	require.NoError(t, repo.RevokeUserRefreshTokens(context.Background(), "user-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}
