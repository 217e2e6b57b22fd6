package middleware

import (
	"github.com/gin-gonic/gin"
	apierrors "github.com/parks-gardens/fieldops-api/internal/errors"
	"github.com/parks-gardens/fieldops-api/internal/models"
)

// RequireRole allows only callers with one of the given roles
func RequireRole(roles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := GetUserRole(c)
		if !exists {
			apierrors.TokenMissing(c)
			return
		}

		for _, allowed := range roles {
			if role == allowed {
				c.Next()
				return
			}
		}

		apierrors.Forbidden(c, "Insufficient permissions")
	}
}

// RequireSupervisor allows team leaders and admins
func RequireSupervisor() gin.HandlerFunc {
	return RequireRole(models.RoleTeamLeader, models.RoleAdmin)
}
