package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/hcf-itd/asset-registry-api/internal/models"
	appErrors "github.com/hcf-itd/asset-registry-api/pkg/errors"
)

type authUserStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id string, ts time.Time) error
	UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error
	CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error
	FindRefreshToken(ctx context.Context, tokenHash string) (*models.RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error
	RevokeUserRefreshTokens(ctx context.Context, userID string) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// AuthServiceConfig carries token signing parameters.
type AuthServiceConfig struct {
	JWTSecret         string
	AccessExpiration  time.Duration
	RefreshExpiration time.Duration
}

// AuthService issues and validates credentials. Only accounts that passed
// registration approval can authenticate.
type AuthService struct {
	repo   authUserStore
	logger *zap.Logger
	cfg    AuthServiceConfig
}

// NewAuthService constructs the service with sane expiration defaults.
func NewAuthService(repo authUserStore, logger *zap.Logger, cfg AuthServiceConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.AccessExpiration <= 0 {
		cfg.AccessExpiration = 15 * time.Minute
	}
	if cfg.RefreshExpiration <= 0 {
		cfg.RefreshExpiration = 7 * 24 * time.Hour
	}
	return &AuthService{repo: repo, logger: logger, cfg: cfg}
}

// Login verifies credentials and issues a token pair.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest, ipAddress string) (*models.LoginResponse, error) {
	user, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrInvalidCredentials
		}
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load account")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, appErrors.ErrInvalidCredentials
	}
	if user.Status != models.UserActive {
		return nil, appErrors.ErrInactiveAccount
	}

	accessToken, err := s.signAccessToken(user)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.issueRefreshToken(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := s.repo.UpdateLastLogin(ctx, user.ID, now); err != nil {
		s.logger.Warn("failed to update last login", zap.String("user_id", user.ID), zap.Error(err))
	}
	s.emitAudit(ctx, user.ID, models.AuditLogin, ipAddress, "")

	return &models.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.cfg.AccessExpiration.Seconds()),
		User: models.UserInfo{
			ID:       user.ID,
			Email:    user.Email,
			FullName: user.FullName,
			Position: user.Position,
			Role:     user.Role,
		},
	}, nil
}

// Refresh exchanges a refresh token for a fresh access token. The refresh
// token is rotated on every exchange.
func (s *AuthService) Refresh(ctx context.Context, rawToken string) (*models.LoginResponse, error) {
	stored, err := s.repo.FindRefreshToken(ctx, hashToken(rawToken))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrUnauthorized
		}
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load refresh token")
	}
	now := time.Now().UTC()
	if !stored.Usable(now) {
		return nil, appErrors.ErrUnauthorized
	}
	user, err := s.repo.FindByID(ctx, stored.UserID)
	if err != nil {
		return nil, appErrors.ErrUnauthorized
	}
	if user.Status != models.UserActive {
		return nil, appErrors.ErrInactiveAccount
	}

	if err := s.repo.RevokeRefreshToken(ctx, stored.ID, now); err != nil {
		s.logger.Warn("failed to revoke spent refresh token", zap.String("token_id", stored.ID), zap.Error(err))
	}
	accessToken, err := s.signAccessToken(user)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.issueRefreshToken(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return &models.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.cfg.AccessExpiration.Seconds()),
		User: models.UserInfo{
			ID:       user.ID,
			Email:    user.Email,
			FullName: user.FullName,
			Position: user.Position,
			Role:     user.Role,
		},
	}, nil
}

// Logout revokes every outstanding refresh token of the actor.
func (s *AuthService) Logout(ctx context.Context, actor *models.JWTClaims, ipAddress string) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if err := s.repo.RevokeUserRefreshTokens(ctx, actor.UserID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to revoke refresh tokens")
	}
	s.emitAudit(ctx, actor.UserID, models.AuditLogout, ipAddress, "")
	return nil
}

// ChangePassword verifies the current password, stores the new hash and
// revokes outstanding refresh tokens.
func (s *AuthService) ChangePassword(ctx context.Context, req models.ChangePasswordRequest, actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	user, err := s.repo.FindByID(ctx, actor.UserID)
	if err != nil {
		return mapStoreError(err, "failed to load account")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.CurrentPassword)); err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "current password is incorrect")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	if err := s.repo.UpdatePassword(ctx, user.ID, string(hash), time.Now().UTC()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to update password")
	}
	if err := s.repo.RevokeUserRefreshTokens(ctx, user.ID); err != nil {
		s.logger.Warn("failed to revoke refresh tokens after password change", zap.String("user_id", user.ID), zap.Error(err))
	}
	s.emitAudit(ctx, user.ID, models.AuditPasswordChange, "system", "")
	return nil
}

// ValidateAccessToken parses and verifies an access token.
func (s *AuthService) ValidateAccessToken(raw string) (*models.JWTClaims, error) {
	claims := &models.JWTClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, appErrors.ErrUnauthorized
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, appErrors.ErrUnauthorized
	}
	return claims, nil
}

func (s *AuthService) signAccessToken(user *models.User) (string, error) {
	now := time.Now().UTC()
	claims := models.JWTClaims{
		UserID:   user.ID,
		Email:    user.Email,
		FullName: user.FullName,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.AccessExpiration)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign access token")
	}
	return signed, nil
}

func (s *AuthService) issueRefreshToken(ctx context.Context, userID string) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate refresh token")
	}
	raw := hex.EncodeToString(buf)
	record := &models.RefreshToken{
		UserID:    userID,
		TokenHash: hashToken(raw),
		ExpiresAt: time.Now().UTC().Add(s.cfg.RefreshExpiration),
	}
	if err := s.repo.CreateRefreshToken(ctx, record); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to store refresh token")
	}
	return raw, nil
}

func (s *AuthService) emitAudit(ctx context.Context, userID, action, ipAddress, detail string) {
	log := &models.AuditLog{
		UserID:    &userID,
		Action:    action,
		Resource:  "auth",
		Detail:    detail,
		IPAddress: ipAddress,
	}
	if log.IPAddress == "" {
		log.IPAddress = "system"
	}
	if err := s.repo.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to create auth audit entry", zap.Error(err))
	}
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
