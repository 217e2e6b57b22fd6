package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/parks-gardens/fieldops-api/internal/auth"
	"github.com/parks-gardens/fieldops-api/internal/constants"
	apierrors "github.com/parks-gardens/fieldops-api/internal/errors"
	"github.com/parks-gardens/fieldops-api/internal/models"
)

// TokenParser validates bearer tokens
type TokenParser interface {
	Parse(token string) (*auth.Claims, error)
}

// RequireAuth checks the bearer token. A missing token is 401, a bad or
// expired one is 403.
func RequireAuth(tokens TokenParser) gin.HandlerFunc {
	return requireToken(tokens, false)
}

// RequireAuthAllowQuery is RequireAuth that also accepts ?token= for
// clients that cannot set headers, such as an embedded PDF viewer.
func RequireAuthAllowQuery(tokens TokenParser) gin.HandlerFunc {
	return requireToken(tokens, true)
}

func requireToken(tokens TokenParser, allowQuery bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := tokens.Parse(auth.TokenFromRequest(c.Request, allowQuery))
		if err != nil {
			if errors.Is(err, auth.ErrTokenMissing) {
				apierrors.TokenMissing(c)
				return
			}
			apierrors.TokenInvalid(c)
			return
		}

		// Store identity in context for easy access in handlers
		c.Set(constants.ContextKeyUserID, claims.UserID)
		c.Set(constants.ContextKeyUserRole, claims.Role)
		c.Next()
	}
}

// GetUserID retrieves the current user ID from context
func GetUserID(c *gin.Context) (uint64, bool) {
	userID, exists := c.Get(constants.ContextKeyUserID)
	if !exists {
		return 0, false
	}

	switch v := userID.(type) {
	case uint64:
		return v, true
	case uint:
		return uint64(v), true
	case int:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	default:
		return 0, false
	}
}

// GetUserRole retrieves the current user's role from context
func GetUserRole(c *gin.Context) (models.UserRole, bool) {
	role, exists := c.Get(constants.ContextKeyUserRole)
	if !exists {
		return "", false
	}
	r, ok := role.(models.UserRole)
	return r, ok
}
