package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/thereayou/chatflow/internal/services"
	"github.com/thereayou/chatflow/pkg/auth"
)

const UserIDKey = "userID"

// AuthMiddleware проверяет JWT токен и черный список
func AuthMiddleware(verifier services.IdentityVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := auth.ExtractTokenFromHeader(c.Request)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid token"})
			c.Abort()
			return
		}

		userID, err := verifier.VerifyCredential(c.Request.Context(), token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}

		c.Set(UserIDKey, userID)
		c.Next()
	}
}
