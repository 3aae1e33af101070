package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/noc-portal-api/internal/models"
	appErrors "github.com/noah-isme/noc-portal-api/pkg/errors"
)

type mockUserRepo struct {
	usersByEmail  map[string]*models.User
	usersByID     map[string]*models.User
	refreshTokens map[string]*models.RefreshToken
	created       []*models.User
	createErr     error
	revokedAll    []string
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if user, ok := m.usersByEmail[email]; ok {
		cp := *user
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if user, ok := m.usersByID[id]; ok {
		cp := *user
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	if m.usersByEmail == nil {
		m.usersByEmail = make(map[string]*models.User)
	}
	if m.usersByID == nil {
		m.usersByID = make(map[string]*models.User)
	}
	cp := *user
	m.usersByEmail[user.Email] = &cp
	m.usersByID[user.ID] = &cp
	m.created = append(m.created, &cp)
	return nil
}

func (m *mockUserRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	return nil
}

func (m *mockUserRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	m.revokedAll = append(m.revokedAll, userID)
	return nil
}

func (m *mockUserRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if m.refreshTokens == nil {
		m.refreshTokens = make(map[string]*models.RefreshToken)
	}
	cp := *token
	m.refreshTokens[token.Token] = &cp
	return nil
}

func (m *mockUserRepo) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	if stored, ok := m.refreshTokens[token]; ok {
		cp := *stored
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	for _, token := range m.refreshTokens {
		if token.ID == id {
			token.Revoked = true
		}
	}
	return nil
}

func testAuthConfig() AuthConfig {
	return AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "noc-portal-test",
	}
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestAuthServiceLogin(t *testing.T) {
	repo := &mockUserRepo{
		usersByEmail: map[string]*models.User{
			"student@example.com": {
				ID:           "s1",
				Email:        "student@example.com",
				PasswordHash: hashPassword(t, "password123"),
				FullName:     "John Doe",
				Role:         models.RoleStudent,
				Active:       true,
			},
		},
	}
	service := NewAuthService(repo, validator.New(), zap.NewNop(), testAuthConfig())

	resp, err := service.Login(context.Background(), models.LoginRequest{
		Email:    "student@example.com",
		Password: "password123",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "s1", resp.User.ID)
	assert.Equal(t, models.RoleStudent, resp.User.Role)

	claims, err := service.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "s1", claims.UserID)
	assert.Equal(t, "John Doe", claims.FullName)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	repo := &mockUserRepo{
		usersByEmail: map[string]*models.User{
			"student@example.com": {
				ID:           "s1",
				Email:        "student@example.com",
				PasswordHash: hashPassword(t, "password123"),
				Active:       true,
			},
		},
	}
	service := NewAuthService(repo, validator.New(), zap.NewNop(), testAuthConfig())

	_, err := service.Login(context.Background(), models.LoginRequest{
		Email:    "student@example.com",
		Password: "wrong",
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)
}

func TestAuthServiceLoginUnknownEmail(t *testing.T) {
	service := NewAuthService(&mockUserRepo{}, validator.New(), zap.NewNop(), testAuthConfig())

	_, err := service.Login(context.Background(), models.LoginRequest{
		Email:    "nobody@example.com",
		Password: "password123",
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)
}

func TestAuthServiceLoginInactiveAccount(t *testing.T) {
	repo := &mockUserRepo{
		usersByEmail: map[string]*models.User{
			"former@example.com": {
				ID:           "s1",
				Email:        "former@example.com",
				PasswordHash: hashPassword(t, "password123"),
				Active:       false,
			},
		},
	}
	service := NewAuthService(repo, validator.New(), zap.NewNop(), testAuthConfig())

	_, err := service.Login(context.Background(), models.LoginRequest{
		Email:    "former@example.com",
		Password: "password123",
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErr.Code)
}

func TestAuthServiceRegister(t *testing.T) {
	repo := &mockUserRepo{}
	service := NewAuthService(repo, validator.New(), zap.NewNop(), testAuthConfig())

	resp, err := service.Register(context.Background(), models.RegisterRequest{
		Email:         "new@example.com",
		Password:      "password123",
		FullName:      "New Student",
		Role:          models.RoleStudent,
		Department:    "Computer Science",
		StudentNumber: "CS2024042",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	require.Len(t, repo.created, 1)
	created := repo.created[0]
	assert.NotEmpty(t, created.ID)
	assert.NotEqual(t, "password123", created.PasswordHash)
	assert.True(t, created.Active)
	require.NotNil(t, created.Department)
	assert.Equal(t, "Computer Science", *created.Department)
}

func TestAuthServiceRegisterDuplicateEmail(t *testing.T) {
	repo := &mockUserRepo{
		usersByEmail: map[string]*models.User{
			"student@example.com": {ID: "s1", Email: "student@example.com", Active: true},
		},
	}
	service := NewAuthService(repo, validator.New(), zap.NewNop(), testAuthConfig())

	_, err := service.Register(context.Background(), models.RegisterRequest{
		Email:    "student@example.com",
		Password: "password123",
		FullName: "Imposter",
		Role:     models.RoleStudent,
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrDuplicateEmail.Code, appErr.Code)
	assert.Empty(t, repo.created)
}

func TestAuthServiceRegisterConcurrentDuplicate(t *testing.T) {
	// The email is free at check time but the insert loses the race on the
	// unique constraint.
	repo := &mockUserRepo{createErr: &pq.Error{Code: "23505", Constraint: "users_email_key"}}
	service := NewAuthService(repo, validator.New(), zap.NewNop(), testAuthConfig())

	_, err := service.Register(context.Background(), models.RegisterRequest{
		Email:    "student@example.com",
		Password: "password123",
		FullName: "Second Writer",
		Role:     models.RoleStudent,
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrDuplicateEmail.Code, appErr.Code)
	assert.Equal(t, appErrors.ErrDuplicateEmail.Status, appErr.Status)
}

func TestAuthServiceRefreshTokenRotation(t *testing.T) {
	repo := &mockUserRepo{
		usersByID: map[string]*models.User{
			"s1": {ID: "s1", Email: "student@example.com", Active: true, Role: models.RoleStudent},
		},
		refreshTokens: map[string]*models.RefreshToken{
			"old-token": {
				ID:        "rt1",
				UserID:    "s1",
				Token:     "old-token",
				ExpiresAt: time.Now().UTC().Add(time.Hour),
			},
		},
	}
	service := NewAuthService(repo, validator.New(), zap.NewNop(), testAuthConfig())

	resp, err := service.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "old-token"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEqual(t, "old-token", resp.RefreshToken)
	assert.True(t, repo.refreshTokens["old-token"].Revoked)
}

func TestAuthServiceRefreshTokenExpired(t *testing.T) {
	repo := &mockUserRepo{
		refreshTokens: map[string]*models.RefreshToken{
			"stale": {
				ID:        "rt1",
				UserID:    "s1",
				Token:     "stale",
				ExpiresAt: time.Now().UTC().Add(-time.Minute),
			},
		},
	}
	service := NewAuthService(repo, validator.New(), zap.NewNop(), testAuthConfig())

	_, err := service.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "stale"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
}

func TestAuthServiceLogout(t *testing.T) {
	repo := &mockUserRepo{
		refreshTokens: map[string]*models.RefreshToken{
			"active": {
				ID:        "rt1",
				UserID:    "s1",
				Token:     "active",
				ExpiresAt: time.Now().UTC().Add(time.Hour),
			},
		},
	}
	service := NewAuthService(repo, validator.New(), zap.NewNop(), testAuthConfig())

	require.NoError(t, service.Logout(context.Background(), "active", "s1"))
	assert.True(t, repo.refreshTokens["active"].Revoked)

	err := service.Logout(context.Background(), "active", "someone-else")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}
