package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"vibecheck-service/internal/logger"
)

const userIDKey = "auth.user_id"

// TokenVerifier is satisfied by *Verifier.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// Authenticate resolves the caller from a bearer token or ?token= query parameter.
// Requests without a token continue as guests; a token that fails verification is rejected.
func Authenticate(v TokenVerifier, log *logger.Logger) gin.HandlerFunc {
	if log == nil {
		log = logger.Nop()
	}
	log = log.With("middleware", "auth")
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			c.Next()
			return
		}
		if v == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		userID, err := v.Verify(token)
		if err != nil {
			log.Debug("token rejected", "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

// RequireUser rejects guests with 401.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if UserID(c) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Next()
	}
}

// UserID returns the authenticated caller, or "" for guests.
func UserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}

func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return c.Query("token")
}
