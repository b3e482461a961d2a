package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vsinha/stockroom/pkg/domain/entities"
	"github.com/vsinha/stockroom/pkg/infrastructure/auth"
	"github.com/vsinha/stockroom/pkg/infrastructure/cache"
	"github.com/vsinha/stockroom/pkg/infrastructure/repositories/memory"
	testhelpers "github.com/vsinha/stockroom/pkg/infrastructure/testing"
	"golang.org/x/crypto/bcrypt"
)

func newAuthService(t *testing.T) *AuthService {
	t.Helper()
	revoked := cache.NewMemoryCache(cache.DefaultConfig())
	tokens := auth.NewTokenService("test-secret", time.Hour, revoked)
	return NewAuthService(memory.NewStore(), tokens, WithClock(testhelpers.Clock), WithPasswordCost(bcrypt.MinCost))
}

func TestAuthService_RegisterLoginLogout(t *testing.T) {
	ctx := context.Background()
	service := newAuthService(t)

	user, err := service.Register(ctx, " Wanjiru@Example.com ", "Wanjiru Kamau", "s3cret!", "s3cret!")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if user.Email != "wanjiru@example.com" {
		t.Errorf("Expected normalised email, got %s", user.Email)
	}
	if user.PasswordHash == "" || user.PasswordHash == "s3cret!" {
		t.Error("Expected a password hash")
	}

	session, err := service.Login(ctx, "WANJIRU@example.com", "s3cret!")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if session.Token == "" || session.User.ID != user.ID {
		t.Fatalf("Unexpected session %+v", session)
	}

	claims, err := service.Authenticate(ctx, session.Token)
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	current, err := service.CurrentUser(ctx, claims)
	if err != nil {
		t.Fatalf("CurrentUser failed: %v", err)
	}
	if current.FullName != "Wanjiru Kamau" {
		t.Errorf("Expected Wanjiru Kamau, got %s", current.FullName)
	}

	if err := service.Logout(ctx, claims); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if _, err := service.Authenticate(ctx, session.Token); !errors.Is(err, auth.ErrTokenRevoked) {
		t.Errorf("Expected ErrTokenRevoked after logout, got %v", err)
	}
}

func TestAuthService_LoginFailures(t *testing.T) {
	ctx := context.Background()
	service := newAuthService(t)
	if _, err := service.Register(ctx, "otieno@example.com", "Otieno", "password1", "password1"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"wrong password", "otieno@example.com", "password2"},
		{"unknown email", "nobody@example.com", "password1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := service.Login(ctx, tt.email, tt.password); !errors.Is(err, ErrInvalidCredentials) {
				t.Errorf("Expected ErrInvalidCredentials, got %v", err)
			}
		})
	}

	if _, err := service.Authenticate(ctx, "not-a-token"); !errors.Is(err, auth.ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken, got %v", err)
	}
	if _, err := service.CurrentUser(ctx, nil); !errors.Is(err, auth.ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken for missing claims, got %v", err)
	}
}

func TestAuthService_RegisterRejects(t *testing.T) {
	ctx := context.Background()
	service := newAuthService(t)
	if _, err := service.Register(ctx, "amina@example.com", "Amina", "secret1", "secret1"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	tests := []struct {
		name     string
		email    string
		password string
		confirm  string
		wantErr  error
	}{
		{"duplicate email", "AMINA@example.com", "secret1", "secret1", entities.ErrConflict},
		{"confirm mismatch", "peter@example.com", "secret1", "secret2", entities.ErrValidation},
		{"short password", "peter@example.com", "abc", "abc", entities.ErrValidation},
		{"bad email", "peter", "secret1", "secret1", entities.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := service.Register(ctx, tt.email, "Someone", tt.password, tt.confirm); !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}
