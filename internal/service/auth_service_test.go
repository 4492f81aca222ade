package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/hcf-itd/asset-registry-api/internal/models"
	appErrors "github.com/hcf-itd/asset-registry-api/pkg/errors"
)

type stubAuthStore struct {
	users  map[string]*models.User
	tokens map[string]*models.RefreshToken
	audits []*models.AuditLog
}

func newStubAuthStore(users ...*models.User) *stubAuthStore {
	s := &stubAuthStore{users: map[string]*models.User{}, tokens: map[string]*models.RefreshToken{}}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *stubAuthStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	for _, user := range s.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *stubAuthStore) FindByID(_ context.Context, id string) (*models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func (s *stubAuthStore) UpdateLastLogin(_ context.Context, _ string, _ time.Time) error { return nil }

func (s *stubAuthStore) UpdatePassword(_ context.Context, id, hash string, _ time.Time) error {
	if user, ok := s.users[id]; ok {
		user.Password = hash
	}
	return nil
}

func (s *stubAuthStore) CreateRefreshToken(_ context.Context, token *models.RefreshToken) error {
	token.ID = "rt-" + token.TokenHash[:8]
	s.tokens[token.TokenHash] = token
	return nil
}

func (s *stubAuthStore) FindRefreshToken(_ context.Context, hash string) (*models.RefreshToken, error) {
	token, ok := s.tokens[hash]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return token, nil
}

func (s *stubAuthStore) RevokeRefreshToken(_ context.Context, id string, at time.Time) error {
	for _, token := range s.tokens {
		if token.ID == id {
			token.RevokedAt = &at
		}
	}
	return nil
}

func (s *stubAuthStore) RevokeUserRefreshTokens(_ context.Context, userID string) error {
	now := time.Now().UTC()
	for _, token := range s.tokens {
		if token.UserID == userID {
			token.RevokedAt = &now
		}
	}
	return nil
}

func (s *stubAuthStore) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	s.audits = append(s.audits, log)
	return nil
}

func activeUser(t *testing.T) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret-password"), bcrypt.MinCost)
	require.NoError(t, err)
	return &models.User{
		ID:       "u1",
		Email:    "sam.reyes@example.com",
		Password: string(hash),
		FullName: "Sam Reyes",
		Role:     models.RolePersonnel,
		Status:   models.UserActive,
	}
}

func newAuthService(store *stubAuthStore) *AuthService {
	return NewAuthService(store, nil, AuthServiceConfig{JWTSecret: "test-secret"})
}

func TestLoginIssuesTokenPair(t *testing.T) {
	store := newStubAuthStore(activeUser(t))
	svc := newAuthService(store)

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Email: "sam.reyes@example.com", Password: "secret-password",
	}, "10.0.0.1")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "Sam Reyes", resp.User.FullName)

	claims, err := svc.ValidateAccessToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, models.RolePersonnel, claims.Role)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	store := newStubAuthStore(activeUser(t))
	svc := newAuthService(store)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email: "sam.reyes@example.com", Password: "wrong",
	}, "")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrInvalidCredentials))
}

func TestLoginRejectsPendingAccount(t *testing.T) {
	user := activeUser(t)
	user.Status = models.UserPending
	svc := newAuthService(newStubAuthStore(user))

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email: "sam.reyes@example.com", Password: "secret-password",
	}, "")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrInactiveAccount))
}

func TestRefreshRotatesToken(t *testing.T) {
	store := newStubAuthStore(activeUser(t))
	svc := newAuthService(store)

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Email: "sam.reyes@example.com", Password: "secret-password",
	}, "")
	require.NoError(t, err)

	refreshed, err := svc.Refresh(context.Background(), resp.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, resp.RefreshToken, refreshed.RefreshToken)

	// The spent token cannot be exchanged again.
	_, err = svc.Refresh(context.Background(), resp.RefreshToken)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrUnauthorized))
}

func TestValidateAccessTokenRejectsTampering(t *testing.T) {
	svc := newAuthService(newStubAuthStore(activeUser(t)))
	_, err := svc.ValidateAccessToken("not-a-token")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrUnauthorized))
}
