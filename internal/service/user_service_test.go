package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/hcf-itd/asset-registry-api/internal/dto"
	"github.com/hcf-itd/asset-registry-api/internal/models"
	appErrors "github.com/hcf-itd/asset-registry-api/pkg/errors"
)

type stubUserStore struct {
	byEmail map[string]*models.User
	byID    map[string]*models.User
	updated []*models.User
	audits  []*models.AuditLog
}

func (s *stubUserStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	user, ok := s.byEmail[email]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func (s *stubUserStore) FindByID(_ context.Context, id string) (*models.User, error) {
	user, ok := s.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *user
	return &clone, nil
}

func (s *stubUserStore) Create(_ context.Context, user *models.User) error {
	user.ID = "new-user"
	if s.byEmail == nil {
		s.byEmail = map[string]*models.User{}
	}
	s.byEmail[user.Email] = user
	return nil
}

func (s *stubUserStore) Update(_ context.Context, user *models.User) error {
	s.updated = append(s.updated, user)
	return nil
}

func (s *stubUserStore) List(_ context.Context, _ models.UserFilter) ([]models.User, int, error) {
	return nil, 0, nil
}

func (s *stubUserStore) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	s.audits = append(s.audits, log)
	return nil
}

func superAdmin() *models.JWTClaims {
	return &models.JWTClaims{UserID: "admin-1", Email: "admin@example.com", FullName: "Admin", Role: models.RoleSuperAdmin}
}

func TestRegisterCreatesPendingPersonnel(t *testing.T) {
	store := &stubUserStore{}
	svc := NewUserService(store, nil)

	user, err := svc.Register(context.Background(), dto.RegisterRequest{
		Email:    "New.Staff@Example.com",
		Password: "correct-horse-battery",
		FullName: "New Staff",
	})
	require.NoError(t, err)
	assert.Equal(t, "new.staff@example.com", user.Email)
	assert.Equal(t, models.UserPending, user.Status)
	assert.Equal(t, models.RolePersonnel, user.Role)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("correct-horse-battery")))
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	store := &stubUserStore{}
	svc := NewUserService(store, nil)

	_, err := svc.Register(context.Background(), dto.RegisterRequest{
		Email:    "short@example.com",
		Password: "short",
		FullName: "Short Password",
	})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}

func TestRegisterDuplicateEmail(t *testing.T) {
	store := &stubUserStore{byEmail: map[string]*models.User{
		"taken@example.com": {ID: "u9", Email: "taken@example.com"},
	}}
	svc := NewUserService(store, nil)

	_, err := svc.Register(context.Background(), dto.RegisterRequest{
		Email:    "taken@example.com",
		Password: "password123",
		FullName: "Dup",
	})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrConflict))
}

func TestApproveActivatesPendingUser(t *testing.T) {
	store := &stubUserStore{byID: map[string]*models.User{
		"u2": {ID: "u2", Email: "pending@example.com", Status: models.UserPending},
	}}
	svc := NewUserService(store, nil)

	user, err := svc.Approve(context.Background(), "u2", superAdmin())
	require.NoError(t, err)
	assert.Equal(t, models.UserActive, user.Status)
	require.Len(t, store.updated, 1)
}

func TestApproveRequiresSuperAdmin(t *testing.T) {
	store := &stubUserStore{byID: map[string]*models.User{
		"u2": {ID: "u2", Status: models.UserPending},
	}}
	svc := NewUserService(store, nil)

	_, err := svc.Approve(context.Background(), "u2", testActor())
	assert.True(t, appErrors.HasCode(err, appErrors.ErrForbidden))
}

func TestDecisionOnProcessedRegistration(t *testing.T) {
	store := &stubUserStore{byID: map[string]*models.User{
		"u2": {ID: "u2", Status: models.UserActive},
	}}
	svc := NewUserService(store, nil)

	_, err := svc.Approve(context.Background(), "u2", superAdmin())
	assert.True(t, appErrors.HasCode(err, appErrors.ErrAlreadyProcessed))

	_, err = svc.Reject(context.Background(), "u2", "late", superAdmin())
	assert.True(t, appErrors.HasCode(err, appErrors.ErrAlreadyProcessed))
}

func TestRejectRecordsReason(t *testing.T) {
	store := &stubUserStore{byID: map[string]*models.User{
		"u2": {ID: "u2", Email: "pending@example.com", Status: models.UserPending},
	}}
	svc := NewUserService(store, nil)

	_, err := svc.Reject(context.Background(), "u2", "", superAdmin())
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))

	user, err := svc.Reject(context.Background(), "u2", "not an employee", superAdmin())
	require.NoError(t, err)
	assert.Equal(t, models.UserRejected, user.Status)
	require.NotNil(t, user.RejectionReason)
	assert.Equal(t, "not an employee", *user.RejectionReason)
}
