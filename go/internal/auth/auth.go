// Package auth resolves caller identity from bearer tokens. The draft
// engine itself never sees tokens, only the user id this package yields.
package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/mcdev12/gavel/go/internal/apperrors"
)

// Claims carries the authenticated user through the token.
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// Service signs and verifies tokens with a shared HMAC secret.
type Service struct {
	secret []byte
	ttl    time.Duration
}

func NewService(secret string, ttl time.Duration) *Service {
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	return &Service{secret: []byte(secret), ttl: ttl}
}

// GenerateToken issues a signed token for the user.
func (s *Service) GenerateToken(userID uuid.UUID) (string, error) {
	claims := Claims{
		UserID: userID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// VerifyToken parses the token and returns the caller's user id.
func (s *Service) VerifyToken(tokenString string) (uuid.UUID, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return uuid.Nil, apperrors.Forbiddenf("invalid token")
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return uuid.Nil, apperrors.Forbiddenf("invalid token")
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return uuid.Nil, apperrors.Forbiddenf("invalid token subject")
	}
	return userID, nil
}

type contextKey struct{}

// UserID returns the authenticated user stashed by Middleware.
func UserID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(contextKey{}).(uuid.UUID)
	return id, ok
}

// FromRequest resolves the caller from the Authorization header or, for
// WebSocket upgrades where headers are awkward, a token query parameter.
func (s *Service) FromRequest(r *http.Request) (uuid.UUID, error) {
	raw := ""
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		raw = strings.TrimPrefix(header, "Bearer ")
	} else {
		raw = r.URL.Query().Get("token")
	}
	if raw == "" {
		return uuid.Nil, apperrors.Forbiddenf("missing credentials")
	}
	return s.VerifyToken(raw)
}

// Middleware authenticates the request and stores the user id in the
// context for handlers downstream.
func (s *Service) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := s.FromRequest(r)
		if err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), contextKey{}, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
