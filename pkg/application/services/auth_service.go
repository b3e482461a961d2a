package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vsinha/stockroom/pkg/application/dto"
	"github.com/vsinha/stockroom/pkg/domain/entities"
	"github.com/vsinha/stockroom/pkg/domain/repositories"
	"github.com/vsinha/stockroom/pkg/infrastructure/auth"
	"go.uber.org/zap"
)

// ErrInvalidCredentials is returned by Login for an unknown email or a wrong password
var ErrInvalidCredentials = errors.New("invalid email or password")

// AuthService registers operators and issues their bearer tokens
type AuthService struct {
	deps
	tokens *auth.TokenService
}

// NewAuthService creates an auth service issuing tokens from tokens
func NewAuthService(store repositories.TxStore, tokens *auth.TokenService, opts ...Option) *AuthService {
	return &AuthService{
		deps:   newDeps(store, "auth", opts),
		tokens: tokens,
	}
}

// Register creates an account; the email must be unused
func (s *AuthService) Register(ctx context.Context, email, fullName, password, confirm string) (*entities.User, error) {
	user, err := entities.NewUser(email, fullName, password, confirm)
	if err != nil {
		return nil, err
	}
	hash, err := auth.HashPasswordWithCost(password, s.passwordCost)
	if err != nil {
		return nil, entities.Invalidf("%v", err)
	}
	user.PasswordHash = hash
	user.CreatedAt = s.now().UTC()

	if err := s.store.Users().Create(ctx, user); err != nil {
		if errors.Is(err, entities.ErrConflict) {
			return nil, fmt.Errorf("email %s is already registered: %w", user.Email, entities.ErrConflict)
		}
		return nil, err
	}
	s.logger.Info("user registered", zap.Int64("user_id", user.ID), zap.String("email", user.Email))
	return user, nil
}

// Login checks the password and issues a token
func (s *AuthService) Login(ctx context.Context, email, password string) (*dto.Session, error) {
	user, err := s.store.Users().GetByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, entities.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !auth.CheckPassword(password, user.PasswordHash) {
		s.logger.Warn("login failed", zap.String("email", user.Email))
		return nil, ErrInvalidCredentials
	}

	token, claims, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user logged in", zap.Int64("user_id", user.ID))
	return &dto.Session{Token: token, ExpiresAt: claims.ExpiresAt, User: user}, nil
}

// Logout revokes the token behind claims until it expires
func (s *AuthService) Logout(ctx context.Context, claims *auth.Claims) error {
	if claims == nil {
		return nil
	}
	if err := s.tokens.Revoke(ctx, claims); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	s.logger.Info("user logged out", zap.Int64("user_id", claims.UserID))
	return nil
}

// Authenticate validates a bearer token
func (s *AuthService) Authenticate(ctx context.Context, token string) (*auth.Claims, error) {
	return s.tokens.Validate(ctx, token)
}

// CurrentUser loads the account behind claims
func (s *AuthService) CurrentUser(ctx context.Context, claims *auth.Claims) (*entities.User, error) {
	if claims == nil {
		return nil, auth.ErrInvalidToken
	}
	return s.store.Users().Get(ctx, claims.UserID)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
