package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/stocksync/backend/internal/infrastructure/auth"
	"github.com/stocksync/backend/internal/infrastructure/logger"
	"github.com/stocksync/backend/internal/interfaces/http/dto"
)

const (
	JWTClaimsKey   = "jwt_claims"
	JWTOperatorKey = "jwt_operator"
	AuthHeaderKey  = "Authorization"
	BearerPrefix   = "Bearer "
)

var errNoBearer = errors.New("authorization header is not a bearer token")

// OperatorAuth validates the operator bearer token. Mount it on the admin
// API group only; /health and /metrics sit outside that group.
func OperatorAuth(jwtService *auth.JWTService, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *gin.Context) {
		token, err := bearerToken(c.GetHeader(AuthHeaderKey))
		if err == nil {
			var claims *auth.Claims
			if claims, err = jwtService.ValidateToken(token); err == nil {
				c.Set(JWTClaimsKey, claims)
				c.Set(JWTOperatorKey, claims.Operator)

				ctx := c.Request.Context()
				tagged := logger.FromContext(ctx).With(zap.String("operator", claims.Operator))
				c.Request = c.Request.WithContext(logger.WithContext(ctx, tagged))
				c.Next()
				return
			}
		}

		log.Warn("Operator authentication failed",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
		code, msg := authFailure(err)
		abortWithError(c, code, msg)
	}
}

func bearerToken(header string) (string, error) {
	token, ok := strings.CutPrefix(header, BearerPrefix)
	if !ok || strings.TrimSpace(token) == "" {
		return "", errNoBearer
	}
	return token, nil
}

func authFailure(err error) (code, message string) {
	switch {
	case errors.Is(err, errNoBearer):
		return dto.ErrCodeUnauthorized, "Bearer token required"
	case errors.Is(err, auth.ErrExpiredToken):
		return dto.ErrCodeTokenExpired, "Token has expired"
	case errors.Is(err, auth.ErrTokenNotYetValid):
		return dto.ErrCodeUnauthorized, "Token is not yet valid"
	case errors.Is(err, auth.ErrMissingOperator):
		return dto.ErrCodeUnauthorized, "Token does not name an operator"
	}
	return dto.ErrCodeUnauthorized, "Invalid token"
}

// RequireScope rejects requests whose token lacks scope. It must run after OperatorAuth.
func RequireScope(scope auth.Scope) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetJWTClaims(c)
		switch {
		case claims == nil:
			abortWithError(c, dto.ErrCodeUnauthorized, "Authentication required")
		case !claims.HasScope(scope):
			abortWithError(c, dto.ErrCodeForbidden, "Token lacks scope "+string(scope))
		default:
			c.Next()
		}
	}
}

func abortWithError(c *gin.Context, code, message string) {
	c.AbortWithStatusJSON(dto.GetHTTPStatus(code), dto.NewErrorResponse(code, message, GetRequestID(c)))
}

// GetJWTClaims returns the claims set by OperatorAuth, nil when absent
func GetJWTClaims(c *gin.Context) *auth.Claims {
	claims, _ := c.Value(JWTClaimsKey).(*auth.Claims)
	return claims
}

// GetOperator returns the authenticated operator, empty before OperatorAuth ran
func GetOperator(c *gin.Context) string {
	return c.GetString(JWTOperatorKey)
}
