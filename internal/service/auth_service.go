package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/auth-service/internal/auth"
	"github.com/spec-kit/auth-service/internal/config"
	"github.com/spec-kit/auth-service/internal/domain"
	"github.com/spec-kit/auth-service/internal/repository"
)

// AuthService coordinates sign-up, sign-in and sign-out flows over the
// storage contract and the key codec. Handlers stay thin on top of it.
type AuthService struct {
	entity repository.Entity
	secret string
	logger *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(entity repository.Entity, cfg config.AuthConfig, logger *zap.Logger) *AuthService {
	return &AuthService{entity: entity, secret: cfg.APIKeySecret, logger: logger}
}

// SignUp registers a new account and immediately enables it. When enabling
// fails the freshly created user is still returned, in StatusCreated.
func (s *AuthService) SignUp(ctx context.Context, name, email, password string, attributes map[string]string) (*domain.User, error) {
	user, err := s.entity.AddUser(ctx, name, email, password, attributes)
	if err != nil {
		return nil, err
	}

	enabled, err := s.entity.EnableUser(ctx, user.Name)
	if err != nil {
		s.logger.Error("cannot enable new user", zap.String("user", user.Name), zap.Error(err))
		return user, nil
	}
	return enabled, nil
}

// SignIn checks credentials, issues a fresh API key and binds it to the
// user. The user and the token are returned on success.
func (s *AuthService) SignIn(ctx context.Context, name, password string) (*domain.User, string, error) {
	user, err := s.entity.GetUserByNameAndPassword(ctx, name, password)
	if err != nil {
		return nil, "", err
	}

	token, err := auth.GenerateAPIKey(s.secret)
	if err != nil {
		return nil, "", err
	}
	if err := s.entity.AddToken(ctx, name, token); err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// SignOut revokes the presented token.
func (s *AuthService) SignOut(ctx context.Context, token string) error {
	return s.entity.DeleteToken(ctx, token)
}
