// middleware/auth.go
package middleware

import (
	"net/http"
	"strings"

	"teemarker/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Context keys set by the auth middleware.
const (
	ContextUserID    = "userID"
	ContextUserEmail = "userEmail"
	ContextUserName  = "userName"
)

// AuthUser is the authenticated caller.
type AuthUser struct {
	ID    string
	Email string
	Name  string
}

func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
}

func setUser(c *gin.Context, claims *utils.UserClaims) {
	c.Set(ContextUserID, claims.Subject)
	c.Set(ContextUserEmail, claims.Email)
	c.Set(ContextUserName, claims.Name)
}

// JWTAuthMiddleware rejects requests without a valid bearer token.
func JWTAuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString == "" {
			utils.JSONError(c, http.StatusUnauthorized, "Access token required", "")
			return
		}

		claims, err := utils.ValidateToken(secret, tokenString)
		if err != nil {
			zap.L().Debug("Token verification failed", zap.Error(err))
			utils.JSONError(c, http.StatusUnauthorized, "Invalid token", "")
			return
		}

		setUser(c, claims)
		c.Next()
	}
}

// OptionalAuthMiddleware sets the user when a valid token is present and
// otherwise lets the request through anonymously.
func OptionalAuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenString := bearerToken(c); tokenString != "" {
			if claims, err := utils.ValidateToken(secret, tokenString); err == nil {
				setUser(c, claims)
			} else {
				zap.L().Debug("Optional auth failed, continuing without user", zap.Error(err))
			}
		}
		c.Next()
	}
}

// CurrentUser returns the user set by the auth middleware.
func CurrentUser(c *gin.Context) (AuthUser, bool) {
	id := c.GetString(ContextUserID)
	if id == "" {
		return AuthUser{}, false
	}
	return AuthUser{
		ID:    id,
		Email: c.GetString(ContextUserEmail),
		Name:  c.GetString(ContextUserName),
	}, true
}
