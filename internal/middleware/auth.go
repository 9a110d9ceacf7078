package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/oshworks/osh-api/internal/model"
	"github.com/oshworks/osh-api/pkg/auth"
)

const ContextAuthUser = "auth_user"

type AuthMiddleware struct {
	jwt auth.JWTService
}

func NewAuthMiddleware(jwt auth.JWTService) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt}
}

// Authenticate verifies the bearer token and stores the principal in
// the request context.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"status": "error", "message": "missing authorization header"})
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"status": "error", "message": "invalid authorization format"})
			return
		}

		claims, err := m.jwt.ValidateToken(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"status": "error", "message": "invalid token"})
			return
		}

		c.Set(ContextAuthUser, &model.AuthUser{
			ID:    claims.UserID,
			Email: claims.Email,
			Roles: claims.Roles,
		})
		c.Next()
	}
}

// RequireRoles gates a route group to the given roles. Authenticate
// must run first.
func (m *AuthMiddleware) RequireRoles(roles ...model.RoleName) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := AuthUserFromContext(c)
		if actor == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"status": "error", "message": "authentication required"})
			return
		}
		for _, role := range roles {
			if actor.HasRole(role) {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"status": "error", "message": "permission denied"})
	}
}

// AuthUserFromContext returns the authenticated principal, or nil.
func AuthUserFromContext(c *gin.Context) *model.AuthUser {
	v, ok := c.Get(ContextAuthUser)
	if !ok {
		return nil
	}
	actor, ok := v.(*model.AuthUser)
	if !ok {
		return nil
	}
	return actor
}
