package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/noc-portal-api/internal/models"
)

func newUserRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func userRows(users ...models.User) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "email", "password_hash", "full_name", "role", "department", "student_number", "active", "last_login", "created_at", "updated_at"})
	for _, u := range users {
		rows.AddRow(u.ID, u.Email, u.PasswordHash, u.FullName, u.Role, u.Department, u.StudentNumber, u.Active, u.LastLogin, u.CreatedAt, u.UpdatedAt)
	}
	return rows
}

func TestUserRepositoryFindByEmail(t *testing.T) {
	db, mock, cleanup := newUserRepoMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery("SELECT id, email, password_hash").
		WithArgs("student@example.com").
		WillReturnRows(userRows(models.User{
			ID:       "s1",
			Email:    "student@example.com",
			FullName: "John Doe",
			Role:     models.RoleStudent,
			Active:   true,
		}))

	user, err := repo.FindByEmail(context.Background(), "student@example.com")
	require.NoError(t, err)
	assert.Equal(t, "s1", user.ID)
	assert.Equal(t, models.RoleStudent, user.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newUserRepoMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec("INSERT INTO users").
		WithArgs("s1", "student@example.com", sqlmock.AnyArg(), "John Doe", models.RoleStudent, sqlmock.AnyArg(), sqlmock.AnyArg(), true, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Create(context.Background(), &models.User{
		ID:           "s1",
		Email:        "student@example.com",
		PasswordHash: "hash",
		FullName:     "John Doe",
		Role:         models.RoleStudent,
		Active:       true,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryListFaculty(t *testing.T) {
	db, mock, cleanup := newUserRepoMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	department := "Computer Science"
	mock.ExpectQuery("SELECT id, full_name, department FROM users").
		WithArgs(models.RoleFaculty).
		WillReturnRows(sqlmock.NewRows([]string{"id", "full_name", "department"}).
			AddRow("f1", "Dr. Jane Smith", &department))

	faculty, err := repo.ListFaculty(context.Background())
	require.NoError(t, err)
	require.Len(t, faculty, 1)
	assert.Equal(t, "Dr. Jane Smith", faculty[0].FullName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryRefreshTokenLifecycle(t *testing.T) {
	db, mock, cleanup := newUserRepoMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	expiresAt := time.Now().UTC().Add(time.Hour)
	createdAt := time.Now().UTC()
	mock.ExpectExec("INSERT INTO refresh_tokens").
		WithArgs("rt1", "s1", "token-value", expiresAt, createdAt, false, "127.0.0.1", "test-agent").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.CreateRefreshToken(context.Background(), &models.RefreshToken{
		ID:        "rt1",
		UserID:    "s1",
		Token:     "token-value",
		ExpiresAt: expiresAt,
		CreatedAt: createdAt,
		IPAddress: "127.0.0.1",
		UserAgent: "test-agent",
	})
	require.NoError(t, err)

	mock.ExpectQuery("SELECT id, user_id, token").
		WithArgs("token-value").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "token", "expires_at", "created_at", "revoked", "revoked_at", "ip_address", "user_agent"}).
			AddRow("rt1", "s1", "token-value", expiresAt, createdAt, false, nil, "127.0.0.1", "test-agent"))

	stored, err := repo.FindRefreshToken(context.Background(), "token-value")
	require.NoError(t, err)
	assert.Equal(t, "rt1", stored.ID)
	assert.False(t, stored.Revoked)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $2 WHERE id = $1")).
		WithArgs("rt1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.RevokeRefreshToken(context.Background(), "rt1", time.Now().UTC()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
