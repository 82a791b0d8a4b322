// Package auth implements account registration, password verification
// and JWT cookie sessions.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"chatdoc/internal/storage"
)

// CookieName is the session cookie carrying the signed token.
const CookieName = "auth_token"

// ErrInvalidCredentials is returned when login or token validation fails.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Service provides account and session operations.
type Service struct {
	users    storage.UserStore
	secret   []byte
	tokenTTL time.Duration
}

// NewService creates a new auth service. secret signs session tokens;
// tokenTTL bounds their lifetime.
func NewService(users storage.UserStore, secret []byte, tokenTTL time.Duration) *Service {
	return &Service{
		users:    users,
		secret:   secret,
		tokenTTL: tokenTTL,
	}
}

// Register creates a new account with a bcrypt-hashed password.
// A duplicate email returns service.ErrConflict from the store.
func (s *Service) Register(ctx context.Context, email, fullName, password string) (*storage.UserRecord, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &storage.UserRecord{
		ID:           uuid.NewString(),
		Email:        email,
		FullName:     fullName,
		PasswordHash: string(hash),
	}
	if err := s.users.Insert(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login verifies the credentials and returns a signed session token.
// Unknown email and wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (string, *storage.UserRecord, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return "", nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.issueToken(user.ID)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// issueToken signs an HS256 token carrying the user id.
func (s *Service) issueToken(userID string) (string, error) {
	claims := jwt.MapClaims{
		"id":  userID,
		"exp": jwt.NewNumericDate(time.Now().Add(s.tokenTTL)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Authenticate validates a session token and loads the account it names.
func (s *Service) Authenticate(ctx context.Context, tokenString string) (*storage.UserRecord, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidCredentials
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidCredentials
	}
	userID, ok := claims["id"].(string)
	if !ok || userID == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// TokenTTL returns the configured session lifetime, for cookie expiry.
func (s *Service) TokenTTL() time.Duration { return s.tokenTTL }
