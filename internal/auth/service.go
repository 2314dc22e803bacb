package auth

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dimasprayoga/tokopos-backend/internal/users"
	"github.com/dimasprayoga/tokopos-backend/pkg/auth"
	"github.com/dimasprayoga/tokopos-backend/pkg/config"
	"github.com/dimasprayoga/tokopos-backend/pkg/db/models"
	"github.com/dimasprayoga/tokopos-backend/pkg/enums"
	apperrors "github.com/dimasprayoga/tokopos-backend/pkg/errors"
	"github.com/dimasprayoga/tokopos-backend/pkg/logger"
	"github.com/dimasprayoga/tokopos-backend/pkg/security"
)

// Service authenticates staff and provisions accounts.
type Service interface {
	Login(ctx context.Context, input LoginInput) (*LoginResult, error)
	Me(ctx context.Context, userID uuid.UUID) (*models.User, error)
	CreateUser(ctx context.Context, input CreateUserInput) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
}

type LoginInput struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

type LoginResult struct {
	AccessToken string       `json:"access_token"`
	ExpiresAt   time.Time    `json:"expires_at"`
	User        *models.User `json:"user"`
}

type CreateUserInput struct {
	Username string         `json:"username" validate:"required,min=3,max=64"`
	Password string         `json:"password" validate:"required,min=8,max=128"`
	Name     string         `json:"name" validate:"required,min=1,max=200"`
	Role     enums.UserRole `json:"role" validate:"required"`
}

type service struct {
	repo      users.Repository
	jwtConfig config.JWTConfig
	pwdConfig config.PasswordConfig
	logg      *logger.Logger
	nowFunc   func() time.Time
}

func NewService(repo users.Repository, jwtConfig config.JWTConfig, pwdConfig config.PasswordConfig, logg *logger.Logger) Service {
	return &service{
		repo:      repo,
		jwtConfig: jwtConfig,
		pwdConfig: pwdConfig,
		logg:      logg,
		nowFunc:   time.Now,
	}
}

func (s *service) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	username := strings.ToLower(strings.TrimSpace(input.Username))
	if username == "" || input.Password == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "username and password are required")
	}

	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		// Collapse unknown-user into the generic credential failure.
		if apperrors.IsCode(err, apperrors.CodeNotFound) {
			return nil, apperrors.New(apperrors.CodeUnauthorized, "invalid credentials")
		}
		return nil, err
	}

	ok, err := security.VerifyPassword(input.Password, user.PasswordHash)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to verify password")
	}
	if !ok {
		return nil, apperrors.New(apperrors.CodeUnauthorized, "invalid credentials")
	}
	if !user.IsActive {
		return nil, apperrors.New(apperrors.CodeForbidden, "account is disabled")
	}

	now := s.nowFunc()
	token, err := auth.MintAccessToken(s.jwtConfig, now, user.ID, user.Role)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to mint access token")
	}

	s.logg.Info(s.logg.WithUserID(ctx, user.ID.String()), "user logged in")

	return &LoginResult{
		AccessToken: token,
		ExpiresAt:   now.Add(s.jwtConfig.Expiration()),
		User:        user,
	}, nil
}

func (s *service) Me(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	return s.repo.FindByID(ctx, userID)
}

func (s *service) CreateUser(ctx context.Context, input CreateUserInput) (*models.User, error) {
	username := strings.ToLower(strings.TrimSpace(input.Username))
	if username == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "username is required")
	}
	if len(input.Password) < 8 {
		return nil, apperrors.New(apperrors.CodeValidation, "password must be at least 8 characters")
	}
	if !input.Role.IsValid() {
		return nil, apperrors.Newf(apperrors.CodeValidation, "unknown role %q", input.Role)
	}

	hash, err := security.HashPassword(input.Password, s.pwdConfig)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to hash password")
	}

	user := &models.User{
		Username:     username,
		PasswordHash: hash,
		Name:         strings.TrimSpace(input.Name),
		Role:         input.Role,
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"user_id": user.ID.String(),
		"role":    string(user.Role),
	}), "user created")

	return user, nil
}

func (s *service) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.repo.List(ctx)
}
