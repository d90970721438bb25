package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/unidesk/uniportal-api/internal/models"
	appErrors "github.com/unidesk/uniportal-api/pkg/errors"
)

type mockAuthRepo struct {
	userByEmail       *models.User
	userByID          *models.User
	findByEmailErr    error
	findByIDErr       error
	refreshTokens     map[string]*models.RefreshToken
	resetTokens       map[string]*models.PasswordResetToken
	auditLogs         []*models.AuditLog
	lastLoginUpdated  bool
	passwordUpdatedTo string
	revokedAllFor     []string
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.findByEmailErr != nil {
		return nil, m.findByEmailErr
	}
	if m.userByEmail == nil {
		return nil, sql.ErrNoRows
	}
	return m.userByEmail, nil
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if m.findByIDErr != nil {
		return nil, m.findByIDErr
	}
	if m.userByID != nil {
		return m.userByID, nil
	}
	if m.userByEmail != nil {
		return m.userByEmail, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	m.lastLoginUpdated = true
	return nil
}

func (m *mockAuthRepo) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	m.passwordUpdatedTo = passwordHash
	return nil
}

func (m *mockAuthRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	m.revokedAllFor = append(m.revokedAllFor, userID)
	return nil
}

func (m *mockAuthRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if m.refreshTokens == nil {
		m.refreshTokens = make(map[string]*models.RefreshToken)
	}
	m.refreshTokens[token.Token] = token
	return nil
}

func (m *mockAuthRepo) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	rt, ok := m.refreshTokens[token]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return rt, nil
}

func (m *mockAuthRepo) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	for _, token := range m.refreshTokens {
		if token.ID == id {
			token.Revoked = true
			token.RevokedAt = &revokedAt
		}
	}
	return nil
}

func (m *mockAuthRepo) CreatePasswordResetToken(ctx context.Context, token *models.PasswordResetToken) error {
	if m.resetTokens == nil {
		m.resetTokens = make(map[string]*models.PasswordResetToken)
	}
	if token.ID == "" {
		token.ID = "reset-" + token.Token[:6]
	}
	m.resetTokens[token.Token] = token
	return nil
}

func (m *mockAuthRepo) FindPasswordResetToken(ctx context.Context, token string) (*models.PasswordResetToken, error) {
	rt, ok := m.resetTokens[token]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return rt, nil
}

func (m *mockAuthRepo) MarkPasswordResetTokenUsed(ctx context.Context, id string, usedAt time.Time) error {
	for _, token := range m.resetTokens {
		if token.ID == id {
			token.UsedAt = &usedAt
		}
	}
	return nil
}

func (m *mockAuthRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, log)
	return nil
}

type mockSessions struct {
	revoked []string
	cleared []string
}

func (m *mockSessions) Revoke(ctx context.Context, userID string, ttl time.Duration) error {
	m.revoked = append(m.revoked, userID)
	return nil
}

func (m *mockSessions) Clear(ctx context.Context, userID string) error {
	m.cleared = append(m.cleared, userID)
	return nil
}

func testAuthConfig() AuthConfig {
	return AuthConfig{
		AccessTokenSecret:  "secret",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenExpiry: 24 * time.Hour,
		ResetTokenLifetime: time.Hour,
		Issuer:             "uniportal",
	}
}

func activeUser(role models.UserRole, password string) *models.User {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	u := &models.User{
		ID:           "u1",
		Email:        "user@uni.edu",
		PasswordHash: string(hash),
		FullName:     "Test User",
		Role:         role,
		IsActive:     true,
		Status:       models.UserStatusActive,
	}
	switch role {
	case models.RoleDepartmentHead:
		dept := "dept-5"
		u.DepartmentID = &dept
	case models.RoleProgramHead, models.RoleStudent:
		prog := "prog-10"
		u.ProgramID = &prog
	}
	return u
}

func TestAuthServiceLoginSuccess(t *testing.T) {
	repo := &mockAuthRepo{userByEmail: activeUser(models.RoleProgramHead, "password1")}
	sessions := &mockSessions{}
	svc := NewAuthService(repo, sessions, validator.New(), zap.NewNop(), testAuthConfig())

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "user@uni.edu", Password: "password1"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)
	assert.True(t, repo.lastLoginUpdated)
	assert.Equal(t, []string{"u1"}, sessions.cleared)
	require.NotNil(t, res.User.ProgramID)
	assert.Equal(t, "prog-10", *res.User.ProgramID)
}

func TestAuthServiceLoginBothFlagsRequired(t *testing.T) {
	// is_active true but status inactive still refuses the login.
	user := activeUser(models.RoleInstructor, "password1")
	user.Status = models.UserStatusInactive
	repo := &mockAuthRepo{userByEmail: user}
	svc := NewAuthService(repo, nil, validator.New(), zap.NewNop(), testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "user@uni.edu", Password: "password1"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrAccountDeactivated))
}

func TestAuthServiceLoginMisconfiguredRole(t *testing.T) {
	// Department head whose department binding is missing cannot log in.
	user := activeUser(models.RoleDepartmentHead, "password1")
	user.DepartmentID = nil
	repo := &mockAuthRepo{userByEmail: user}
	svc := NewAuthService(repo, nil, validator.New(), zap.NewNop(), testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "user@uni.edu", Password: "password1"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrRoleMisconfigured))
}

func TestAuthServiceLoginUnknownEmail(t *testing.T) {
	repo := &mockAuthRepo{}
	svc := NewAuthService(repo, nil, validator.New(), zap.NewNop(), testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "ghost@uni.edu", Password: "password1"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidCredentials))
}

func TestAuthServiceRefreshRotatesToken(t *testing.T) {
	user := activeUser(models.RoleProgramHead, "password1")
	repo := &mockAuthRepo{userByEmail: user, refreshTokens: map[string]*models.RefreshToken{
		"old-token": {ID: "rt-1", UserID: user.ID, Token: "old-token", ExpiresAt: time.Now().UTC().Add(time.Hour)},
	}}
	svc := NewAuthService(repo, nil, validator.New(), zap.NewNop(), testAuthConfig())

	res, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "old-token"})
	require.NoError(t, err)
	assert.NotEqual(t, "old-token", res.RefreshToken)
	assert.True(t, repo.refreshTokens["old-token"].Revoked)
}

func TestAuthServiceRefreshDeactivatedMidSession(t *testing.T) {
	user := activeUser(models.RoleProgramHead, "password1")
	user.IsActive = false
	repo := &mockAuthRepo{userByEmail: user, refreshTokens: map[string]*models.RefreshToken{
		"old-token": {ID: "rt-1", UserID: user.ID, Token: "old-token", ExpiresAt: time.Now().UTC().Add(time.Hour)},
	}}
	svc := NewAuthService(repo, nil, validator.New(), zap.NewNop(), testAuthConfig())

	_, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "old-token"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrAccountDeactivated))
}

func TestAuthServiceForceLogout(t *testing.T) {
	repo := &mockAuthRepo{}
	sessions := &mockSessions{}
	svc := NewAuthService(repo, sessions, validator.New(), zap.NewNop(), testAuthConfig())

	svc.ForceLogout(context.Background(), "u9", "account deactivated")
	assert.Equal(t, []string{"u9"}, repo.revokedAllFor)
	assert.Equal(t, []string{"u9"}, sessions.revoked)
	require.Len(t, repo.auditLogs, 1)
	assert.Equal(t, models.AuditActionForcedLogout, repo.auditLogs[0].Action)
}

func TestAuthServiceForgotPasswordUnknownEmailSilent(t *testing.T) {
	repo := &mockAuthRepo{}
	svc := NewAuthService(repo, nil, validator.New(), zap.NewNop(), testAuthConfig())

	token, err := svc.ForgotPassword(context.Background(), models.ResetPasswordRequest{Email: "ghost@uni.edu"})
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestAuthServiceForgotPasswordInactiveSilent(t *testing.T) {
	user := activeUser(models.RoleStudent, "password1")
	user.IsActive = false
	repo := &mockAuthRepo{userByEmail: user}
	svc := NewAuthService(repo, nil, validator.New(), zap.NewNop(), testAuthConfig())

	token, err := svc.ForgotPassword(context.Background(), models.ResetPasswordRequest{Email: user.Email})
	require.NoError(t, err)
	assert.Empty(t, token)
	assert.Empty(t, repo.resetTokens)
}

func TestAuthServiceResetPasswordSingleUse(t *testing.T) {
	user := activeUser(models.RoleStudent, "password1")
	repo := &mockAuthRepo{userByEmail: user}
	svc := NewAuthService(repo, nil, validator.New(), zap.NewNop(), testAuthConfig())

	token, err := svc.ForgotPassword(context.Background(), models.ResetPasswordRequest{Email: user.Email})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	err = svc.ResetPassword(context.Background(), models.ConfirmResetPasswordRequest{Token: token, NewPassword: "brand-new-pass"})
	require.NoError(t, err)
	assert.NotEmpty(t, repo.passwordUpdatedTo)
	assert.Contains(t, repo.revokedAllFor, user.ID)

	err = svc.ResetPassword(context.Background(), models.ConfirmResetPasswordRequest{Token: token, NewPassword: "another-pass-123"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))
}

func TestAuthServiceResetPasswordDeactivatedLooksLikeBadToken(t *testing.T) {
	user := activeUser(models.RoleStudent, "password1")
	repo := &mockAuthRepo{userByEmail: user}
	svc := NewAuthService(repo, nil, validator.New(), zap.NewNop(), testAuthConfig())

	token, err := svc.ForgotPassword(context.Background(), models.ResetPasswordRequest{Email: user.Email})
	require.NoError(t, err)

	user.IsActive = false
	user.Status = models.UserStatusInactive

	deactivatedErr := svc.ResetPassword(context.Background(), models.ConfirmResetPasswordRequest{Token: token, NewPassword: "brand-new-pass"})
	require.Error(t, deactivatedErr)

	unknownErr := svc.ResetPassword(context.Background(), models.ConfirmResetPasswordRequest{Token: "no-such-token", NewPassword: "brand-new-pass"})
	require.Error(t, unknownErr)

	// The requester is unauthenticated, so a deactivated account must be
	// indistinguishable from a bad token.
	assert.True(t, appErrors.Is(deactivatedErr, appErrors.ErrUnauthorized))
	var deactivatedAppErr, unknownAppErr *appErrors.Error
	require.ErrorAs(t, deactivatedErr, &deactivatedAppErr)
	require.ErrorAs(t, unknownErr, &unknownAppErr)
	assert.Equal(t, unknownAppErr.Code, deactivatedAppErr.Code)
	assert.Equal(t, unknownAppErr.Status, deactivatedAppErr.Status)
	assert.Equal(t, unknownAppErr.Message, deactivatedAppErr.Message)
	assert.Empty(t, repo.passwordUpdatedTo)
}

func TestAuthServiceChangePasswordWrongOld(t *testing.T) {
	user := activeUser(models.RoleInstructor, "password1")
	repo := &mockAuthRepo{userByEmail: user}
	svc := NewAuthService(repo, nil, validator.New(), zap.NewNop(), testAuthConfig())

	err := svc.ChangePassword(context.Background(), user.ID, models.ChangePasswordRequest{OldPassword: "wrong", NewPassword: "brand-new-pass"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

func TestAuthServiceValidateTokenRoundTrip(t *testing.T) {
	user := activeUser(models.RoleProgramHead, "password1")
	repo := &mockAuthRepo{userByEmail: user}
	svc := NewAuthService(repo, nil, validator.New(), zap.NewNop(), testAuthConfig())

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: user.Email, Password: "password1"})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, models.RoleProgramHead, claims.Role)
}
