package middleware

import (
	"net/http"
	"os"
	"strings"

	"grant-review-api/config"
	"grant-review-api/models"
	"grant-review-api/services"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

type Claims struct {
	UserID int      `json:"user_id"`
	Email  string   `json:"email"`
	Roles  []string `json:"roles"`
	jwt.RegisteredClaims
}

// AuthMiddleware validates JWT token and places the caller identity in the
// request context.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get token from header
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required"})
			c.Abort()
			return
		}

		// Check Bearer prefix
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format"})
			c.Abort()
			return
		}

		// Parse token
		token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
			return []byte(os.Getenv("JWT_SECRET")), nil
		})

		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		// Get claims
		claims, ok := token.Claims.(*Claims)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims"})
			c.Abort()
			return
		}

		// Check if user still exists
		var user models.User
		if err := config.DB.Preload("Roles").
			Where("user_id = ? AND delete_at IS NULL", claims.UserID).
			First(&user).Error; err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
			c.Abort()
			return
		}

		// Roles come from the database, not the token, so revocations apply
		// immediately.
		c.Set("userID", claims.UserID)
		c.Set("email", claims.Email)
		c.Set("roles", user.RoleNames())

		c.Next()
	}
}

// OptionalAuthMiddleware resolves the caller when a token is present but lets
// anonymous requests through. Public read paths use it so the visibility gate
// can distinguish visitors from authenticated callers.
func OptionalAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			c.Next()
			return
		}
		token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
			return []byte(os.Getenv("JWT_SECRET")), nil
		})
		if err != nil || !token.Valid {
			c.Next()
			return
		}
		claims, ok := token.Claims.(*Claims)
		if !ok {
			c.Next()
			return
		}
		var user models.User
		if err := config.DB.Preload("Roles").
			Where("user_id = ? AND delete_at IS NULL", claims.UserID).
			First(&user).Error; err != nil {
			c.Next()
			return
		}
		c.Set("userID", claims.UserID)
		c.Set("email", claims.Email)
		c.Set("roles", user.RoleNames())
		c.Next()
	}
}

// RequireRole checks if the caller has at least one of the given roles. Admin
// passes every check.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller := CallerFromContext(c)
		if caller.IsAnonymous() {
			c.JSON(http.StatusForbidden, gin.H{"error": "Role not found"})
			c.Abort()
			return
		}

		if !caller.HasAnyRole(roles...) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
			c.Abort()
			return
		}

		c.Next()
	}
}

// CallerFromContext rebuilds the engine caller from the gin context. Anonymous
// requests yield a zero caller.
func CallerFromContext(c *gin.Context) services.Caller {
	caller := services.Caller{}
	if userID, ok := c.Get("userID"); ok {
		if id, ok := userID.(int); ok {
			caller.UserID = id
		}
	}
	if roles, ok := c.Get("roles"); ok {
		if names, ok := roles.([]string); ok {
			caller.Roles = names
		}
	}
	return caller
}
