package service

import (
	"context"
	"fmt"
	"time"

	"thirdplace-webhooks/internal/core/domain"
	"thirdplace-webhooks/internal/core/ports"
	"thirdplace-webhooks/pkg/apperror"

	"github.com/google/uuid"
)

// AuthServiceImpl implements ports.AuthService for administrator accounts.
type AuthServiceImpl struct {
	adminRepo ports.AdminRepository
	hashSvc   ports.HashService
	tokenSvc  ports.TokenService
}

// NewAuthService creates a new AuthServiceImpl.
func NewAuthService(
	adminRepo ports.AdminRepository,
	hashSvc ports.HashService,
	tokenSvc ports.TokenService,
) *AuthServiceImpl {
	return &AuthServiceImpl{
		adminRepo: adminRepo,
		hashSvc:   hashSvc,
		tokenSvc:  tokenSvc,
	}
}

// Register creates a new administrator account.
func (s *AuthServiceImpl) Register(ctx context.Context, username, password string) (*domain.AdminUser, error) {
	existing, err := s.adminRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("check username: %w", err))
	}
	if existing != nil {
		return nil, apperror.ErrUsernameExists()
	}

	passwordHash, err := s.hashSvc.Hash(password)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("hash password: %w", err))
	}

	now := time.Now().UTC()
	admin := &domain.AdminUser{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: passwordHash,
		Status:       domain.AdminStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.adminRepo.Create(ctx, admin); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create admin: %w", err))
	}

	return admin, nil
}

// Login verifies credentials and returns a session token.
func (s *AuthServiceImpl) Login(ctx context.Context, username, password string) (string, time.Time, error) {
	admin, err := s.adminRepo.GetByUsername(ctx, username)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("fetch admin: %w", err))
	}
	if admin == nil {
		return "", time.Time{}, apperror.ErrInvalidCredentials()
	}
	if !admin.IsActive() {
		return "", time.Time{}, apperror.ErrAdminSuspended()
	}

	ok, err := s.hashSvc.Verify(password, admin.PasswordHash)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("verify password: %w", err))
	}
	if !ok {
		return "", time.Time{}, apperror.ErrInvalidCredentials()
	}

	token, expiry, err := s.tokenSvc.Generate(admin.ID, admin.Username)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("generate token: %w", err))
	}

	return token, expiry, nil
}
