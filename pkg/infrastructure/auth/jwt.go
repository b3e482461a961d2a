package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/vsinha/stockroom/pkg/infrastructure/cache"
)

var (
	// ErrInvalidToken is returned for malformed, expired or wrongly signed tokens
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenRevoked is returned for tokens that were logged out
	ErrTokenRevoked = errors.New("token revoked")
)

// Claims is the identity carried by an access token
type Claims struct {
	UserID    int64     `json:"user_id"`
	Email     string    `json:"email"`
	TokenID   string    `json:"jti"`
	ExpiresAt time.Time `json:"expires_at"`
}

// TokenService issues and validates HS256 access tokens and tracks logouts
type TokenService struct {
	secretKey []byte
	tokenTTL  time.Duration
	issuer    string
	revoked   cache.Cache
	now       func() time.Time
}

// NewTokenService creates a TokenService; revoked stores logged out token ids
func NewTokenService(secretKey string, tokenTTL time.Duration, revoked cache.Cache) *TokenService {
	return &TokenService{
		secretKey: []byte(secretKey),
		tokenTTL:  tokenTTL,
		issuer:    "stockroom",
		revoked:   revoked,
		now:       time.Now,
	}
}

// Issue signs a token for the user
func (s *TokenService) Issue(userID int64, email string) (string, *Claims, error) {
	now := s.now()
	claims := &Claims{
		UserID:    userID,
		Email:     email,
		TokenID:   uuid.NewString(),
		ExpiresAt: now.Add(s.tokenTTL).Truncate(time.Second),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   strconv.FormatInt(userID, 10),
		"email": email,
		"jti":   claims.TokenID,
		"iss":   s.issuer,
		"iat":   now.Unix(),
		"exp":   claims.ExpiresAt.Unix(),
	})
	signed, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, claims, nil
}

// Validate parses the token, checks its signature and expiry, and rejects revoked tokens
func (s *TokenService) Validate(ctx context.Context, tokenString string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// Verify exact signing method to prevent algorithm confusion attacks
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secretKey, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	sub, _ := mc["sub"].(string)
	userID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil || userID <= 0 {
		return nil, fmt.Errorf("%w: bad subject %q", ErrInvalidToken, sub)
	}
	exp, err := mc.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, ErrInvalidToken
	}
	claims := &Claims{UserID: userID, ExpiresAt: exp.Time}
	claims.Email, _ = mc["email"].(string)
	claims.TokenID, _ = mc["jti"].(string)

	if claims.TokenID != "" && s.revoked != nil {
		revoked, err := s.revoked.Exists(ctx, revokedKey(claims.TokenID))
		if err != nil {
			return nil, fmt.Errorf("failed to check token revocation: %w", err)
		}
		if revoked {
			return nil, ErrTokenRevoked
		}
	}
	return claims, nil
}

// Revoke blocks the token until it would have expired anyway
func (s *TokenService) Revoke(ctx context.Context, claims *Claims) error {
	if s.revoked == nil || claims.TokenID == "" {
		return nil
	}
	ttl := claims.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	return s.revoked.Set(ctx, revokedKey(claims.TokenID), []byte("1"), ttl)
}

func revokedKey(jti string) string {
	return "revoked:" + jti
}
