package middleware

import (
	"coachlink/services"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

var userService = services.NewUserService()

// AuthMiddleware устанавливает user_id в контекст запроса.
// Поддерживает два варианта:
// 1. Authorization: Bearer <token> - токен из user_tokens
// 2. X-User-ID заголовок (для простых тестов)
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader != "" && strings.HasPrefix(authHeader, "Bearer ") {
			token := strings.TrimPrefix(authHeader, "Bearer ")
			userID, err := userService.UserIDForToken(token)
			if err != nil {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
				c.Abort()
				return
			}
			c.Set("user_id", userID)
			c.Next()
			return
		}

		userIDHeader := c.GetHeader("X-User-ID")
		if userIDHeader != "" {
			userID, err := strconv.ParseInt(userIDHeader, 10, 64)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid X-User-ID format"})
				c.Abort()
				return
			}
			c.Set("user_id", userID)
			c.Next()
			return
		}

		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required: provide Authorization Bearer token or X-User-ID header"})
		c.Abort()
	}
}
