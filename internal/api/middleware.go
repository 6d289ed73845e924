package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rongwang/budget-server/internal/models"
	"github.com/rongwang/budget-server/internal/utils"
)

func unauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{
		Status:  "error",
		Code:    "UNAUTHORIZED",
		Message: message,
	})
}

// AuthMiddleware returns a Gin middleware for authentication. It expects the
// signing secret under "jwtSecret" and sets "userId" and "role" for handlers.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get the JWT token from the Authorization header
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			unauthorized(c, "Authentication required")
			return
		}

		// Check if the Authorization header starts with "Bearer "
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			unauthorized(c, "Invalid token format")
			return
		}

		jwtSecret := c.MustGet("jwtSecret").([]byte)
		token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
			// Validate the signing method
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("invalid signing method")
			}
			return jwtSecret, nil
		})
		if err != nil || !token.Valid {
			unauthorized(c, "Invalid token")
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			unauthorized(c, "Invalid token claims")
			return
		}

		userID, ok := claims["sub"].(string)
		if !ok || userID == "" {
			unauthorized(c, "Invalid user ID in token")
			return
		}

		// Tokens without a role claim act as plain users
		role := models.RoleUser
		if r, ok := claims["role"].(string); ok && models.Role(r) == models.RoleAdmin {
			role = models.RoleAdmin
		}

		c.Set("userId", userID)
		c.Set("role", string(role))
		c.Next()
	}
}

// RequestLogger logs one line per request after it has been served
func RequestLogger(logger *utils.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		args := []any{
			utils.FieldMethod, c.Request.Method,
			utils.FieldPath, c.Request.URL.Path,
			utils.FieldStatusCode, status,
			utils.FieldDuration, time.Since(start).Milliseconds(),
			utils.FieldClientIP, c.ClientIP(),
		}
		if userID := c.GetString("userId"); userID != "" {
			args = append(args, utils.FieldUserID, userID)
		}

		switch {
		case status >= http.StatusInternalServerError:
			logger.Error("request served", args...)
		case status >= http.StatusBadRequest:
			logger.Warn("request served", args...)
		default:
			logger.Info("request served", args...)
		}
	}
}
