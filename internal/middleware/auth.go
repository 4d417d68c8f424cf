package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"video_hearings/internal/config"
	"video_hearings/pkg/jwt"
	"video_hearings/pkg/logger"
)

type AuthMiddleware struct {
	cfg config.VideoAPIConfig
	log logger.Logger
}

func NewAuthMiddleware(cfg config.VideoAPIConfig, log logger.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		cfg: cfg,
		log: log,
	}
}

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format"})
			c.Abort()
			return
		}

		claims, err := jwt.ValidateToken(parts[1], m.cfg.JWTSecret)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		c.Set("caller", claims.Subject)
		c.Next()
	}
}
