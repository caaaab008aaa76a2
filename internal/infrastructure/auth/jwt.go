package auth

import (
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/stocksync/backend/internal/infrastructure/config"
)

// Scope grants access to one group of admin API routes
type Scope string

const (
	ScopeSyncRead  Scope = "sync:read"
	ScopeSyncRun   Scope = "sync:run"
	ScopeReview    Scope = "review:write"
	ScopeCSVUpload Scope = "csv:write"
)

// AllScopes returns every scope, in the order operators usually need them
func AllScopes() []Scope {
	return []Scope{ScopeSyncRead, ScopeSyncRun, ScopeReview, ScopeCSVUpload}
}

// ParseScopes parses a comma separated scope list; empty means all scopes
func ParseScopes(s string) ([]Scope, error) {
	if strings.TrimSpace(s) == "" {
		return AllScopes(), nil
	}
	var scopes []Scope
	for _, part := range strings.Split(s, ",") {
		scope := Scope(strings.TrimSpace(part))
		if !slices.Contains(AllScopes(), scope) {
			return nil, ErrInvalidScope
		}
		scopes = append(scopes, scope)
	}
	return scopes, nil
}

// Common errors
var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrInvalidClaims    = errors.New("invalid token claims")
	ErrTokenNotYetValid = errors.New("token is not yet valid")
	ErrMissingOperator  = errors.New("missing operator in claims")
	ErrInvalidScope     = errors.New("invalid scope")
)

// Claims identifies the operator calling the admin API
type Claims struct {
	jwt.RegisteredClaims
	Operator string  `json:"operator"`
	Scopes   []Scope `json:"scopes,omitempty"`
}

// HasScope reports whether the token grants scope
func (c *Claims) HasScope(scope Scope) bool {
	return slices.Contains(c.Scopes, scope)
}

// GetExpiresAtTime returns the expiry as time.Time
func (c *Claims) GetExpiresAtTime() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// JWTService signs and validates operator tokens with one HMAC secret
type JWTService struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewJWTService creates a new JWT service from the admin API settings
func NewJWTService(cfg config.HTTPConfig) *JWTService {
	return &JWTService{
		secret: []byte(cfg.JWTSecret),
		issuer: cfg.JWTIssuer,
		now:    time.Now,
	}
}

// IssueToken signs a token for operator valid for ttl
func (s *JWTService) IssueToken(operator string, scopes []Scope, ttl time.Duration) (string, time.Time, error) {
	if strings.TrimSpace(operator) == "" {
		return "", time.Time{}, ErrMissingOperator
	}
	now := s.now()
	expiresAt := now.Add(ttl)
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    s.issuer,
			Subject:   operator,
			Audience:  jwt.ClaimStrings{s.issuer},
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Operator: operator,
		Scopes:   scopes,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ValidateToken validates a token and returns its claims
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithTimeFunc(s.now))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		if errors.Is(err, jwt.ErrTokenNotValidYet) {
			return nil, ErrTokenNotYetValid
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaims
	}
	if claims.Operator == "" {
		return nil, ErrMissingOperator
	}
	return claims, nil
}
