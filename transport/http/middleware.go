package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/zkvault/zkvault/service"
)

const (
	ctxUsername = "username"
	ctxToken    = "sessionToken"
)

func bearerToken(c *gin.Context) (string, bool) {
	auth := c.GetHeader("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return "", false
	}
	token := strings.TrimPrefix(auth, "Bearer ")
	return token, token != ""
}

// AuthMiddleware resolves the bearer token and stashes the username and token
// in the request context for protected handlers.
func AuthMiddleware(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization header is required"})
			return
		}

		session, err := authService.Authenticate(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
			return
		}

		c.Set(ctxUsername, session.Username)
		c.Set(ctxToken, token)
		c.Next()
	}
}
