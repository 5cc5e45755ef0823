package middleware

import (
	"net/http"
	"strings"

	"go-storefront/internal/apperr"
	"go-storefront/internal/auth"
	"go-storefront/internal/models"

	"github.com/gin-gonic/gin"
)

const (
	userIDKey = "userID"
	roleKey   = "role"
)

// TokenValidator is satisfied by *auth.Issuer.
type TokenValidator interface {
	ValidateToken(tokenString string) (*auth.Claims, error)
}

// AuthMiddleware checks if the user has a valid JWT token
func AuthMiddleware(tokens TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Format: "Bearer <token>"
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abort(c, http.StatusUnauthorized, apperr.KindUnauthorized, "Authorization header is required")
			return
		}

		tokenString, ok := bearer(authHeader)
		if !ok {
			abort(c, http.StatusUnauthorized, apperr.KindUnauthorized, "Authorization header must start with Bearer")
			return
		}

		claims, err := tokens.ValidateToken(tokenString)
		if err != nil {
			abort(c, http.StatusUnauthorized, apperr.KindUnauthorized, "Invalid or expired token")
			return
		}

		// Store user info in the context for the next handler to use
		c.Set(userIDKey, claims.UserID)
		c.Set(roleKey, claims.Role)
		c.Next()
	}
}

// OptionalAuth identifies the caller when a valid token is present and lets
// anonymous requests through untouched. A bad token is treated as anonymous.
func OptionalAuth(tokens TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenString, ok := bearer(c.GetHeader("Authorization")); ok {
			if claims, err := tokens.ValidateToken(tokenString); err == nil {
				c.Set(userIDKey, claims.UserID)
				c.Set(roleKey, claims.Role)
			}
		}
		c.Next()
	}
}

// RequireRole is a secondary guard that checks for specific permissions
func RequireRole(allowedRole models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get(roleKey)
		if !exists || role != allowedRole {
			abort(c, http.StatusForbidden, apperr.KindForbidden, "You do not have permission to access this resource")
			return
		}
		c.Next()
	}
}

// CurrentUser returns the identity set by AuthMiddleware or OptionalAuth.
func CurrentUser(c *gin.Context) (userID uint, role models.Role, ok bool) {
	id, idOK := c.Get(userIDKey)
	r, roleOK := c.Get(roleKey)
	if !idOK || !roleOK {
		return 0, "", false
	}
	userID, _ = id.(uint)
	role, _ = r.(models.Role)
	return userID, role, userID != 0
}

func bearer(header string) (string, bool) {
	tokenString := strings.TrimPrefix(header, "Bearer ")
	if tokenString == header || tokenString == "" {
		return "", false
	}
	return tokenString, true
}

func abort(c *gin.Context, status int, kind apperr.Kind, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": message, "code": kind})
}
