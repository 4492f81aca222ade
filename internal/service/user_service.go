package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/hcf-itd/asset-registry-api/internal/dto"
	"github.com/hcf-itd/asset-registry-api/internal/models"
	appErrors "github.com/hcf-itd/asset-registry-api/pkg/errors"
)

type userStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// UserService manages registration, approval and account profiles. New
// registrations wait in PENDING until a superadmin approves or rejects them.
type UserService struct {
	repo     userStore
	logger   *zap.Logger
	validate *validator.Validate
}

// NewUserService constructs the service.
func NewUserService(repo userStore, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	validate := validator.New()
	validate.SetTagName("binding")
	return &UserService{repo: repo, logger: logger, validate: validate}
}

// Register opens a pending personnel account.
func (s *UserService) Register(ctx context.Context, req dto.RegisterRequest) (*models.User, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "email, password and full name are required")
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "an account with this email already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to check existing account")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	user := &models.User{
		Email:    email,
		Password: string(hash),
		FullName: strings.TrimSpace(req.FullName),
		Position: strings.TrimSpace(req.Position),
		Role:     models.RolePersonnel,
		Status:   models.UserPending,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to create account")
	}
	s.emitAudit(ctx, nil, models.AuditUserRegister, user.ID, fmt.Sprintf("registration submitted for %s", user.Email))
	return user, nil
}

// Approve activates a pending registration.
func (s *UserService) Approve(ctx context.Context, userID string, actor *models.JWTClaims) (*models.User, error) {
	user, err := s.loadForDecision(ctx, userID, actor)
	if err != nil {
		return nil, err
	}
	user.Status = models.UserActive
	user.RejectionReason = nil
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to approve account")
	}
	s.emitAudit(ctx, &actor.UserID, models.AuditUserApprove, user.ID, fmt.Sprintf("approved %s", user.Email))
	return user, nil
}

// Reject declines a pending registration, recording the reason.
func (s *UserService) Reject(ctx context.Context, userID, reason string, actor *models.JWTClaims) (*models.User, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a rejection reason is required")
	}
	user, err := s.loadForDecision(ctx, userID, actor)
	if err != nil {
		return nil, err
	}
	user.Status = models.UserRejected
	user.RejectionReason = &reason
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to reject account")
	}
	s.emitAudit(ctx, &actor.UserID, models.AuditUserReject, user.ID, fmt.Sprintf("rejected %s: %s", user.Email, reason))
	return user, nil
}

// List returns a page of accounts.
func (s *UserService) List(ctx context.Context, query dto.ListUsersQuery) ([]models.User, models.Pagination, error) {
	filter := models.UserFilter{
		Role:     query.Role,
		Status:   models.UserStatus(query.Status),
		Search:   strings.TrimSpace(query.Search),
		Page:     query.Page,
		PageSize: query.PageSize,
	}
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, models.Pagination{}, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to list accounts")
	}
	return users, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns one account.
func (s *UserService) Get(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, mapStoreError(err, "failed to load account")
	}
	return user, nil
}

// UpdateProfile edits the caller's own name and position.
func (s *UserService) UpdateProfile(ctx context.Context, req dto.UpdateProfileRequest, actor *models.JWTClaims) (*models.User, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	user, err := s.repo.FindByID(ctx, actor.UserID)
	if err != nil {
		return nil, mapStoreError(err, "failed to load account")
	}
	if name := strings.TrimSpace(req.FullName); name != "" {
		user.FullName = name
	}
	if position := strings.TrimSpace(req.Position); position != "" {
		user.Position = position
	}
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to update profile")
	}
	return user, nil
}

func (s *UserService) loadForDecision(ctx context.Context, userID string, actor *models.JWTClaims) (*models.User, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleSuperAdmin {
		return nil, appErrors.ErrForbidden
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, mapStoreError(err, "failed to load account")
	}
	if user.Status != models.UserPending {
		return nil, appErrors.ErrAlreadyProcessed
	}
	return user, nil
}

func (s *UserService) emitAudit(ctx context.Context, actorID *string, action, resourceID, detail string) {
	log := &models.AuditLog{
		UserID:     actorID,
		Action:     action,
		Resource:   "user",
		ResourceID: &resourceID,
		Detail:     detail,
		IPAddress:  "system",
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.repo.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to create user audit entry", zap.Error(err))
	}
}
