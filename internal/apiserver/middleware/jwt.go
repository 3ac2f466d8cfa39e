package middleware

import (
	"net/http"
	"strings"

	"github.com/Vonzhen/sub-store-panel/internal/auth/jwt"
	"github.com/Vonzhen/sub-store-panel/internal/common/cnst"

	"github.com/gin-gonic/gin"
)

const claimsKey = "claims"

// extractToken pulls the session token from the auth cookie or, for
// non-browser clients, from a Bearer Authorization header
func extractToken(c *gin.Context) string {
	if cookie, err := c.Cookie(cnst.AuthCookieName); err == nil && cookie != "" {
		return cookie
	}
	authHeader := c.GetHeader("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 && parts[0] == "Bearer" {
		return parts[1]
	}
	return ""
}

// JWTAuthMiddleware creates a middleware that validates session tokens.
// API namespace requests never redirect; failures are a 401 JSON body.
func JWTAuthMiddleware(jwtService *jwt.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		claims, err := jwtService.ValidateToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		c.Set(claimsKey, claims)
		c.Next()
	}
}

// AdminOnly requires the admin role; it must run after JWTAuthMiddleware
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := GetClaims(c)
		if !ok || claims.Role != cnst.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

// GetClaims returns the validated claims set by JWTAuthMiddleware
func GetClaims(c *gin.Context) (*jwt.Claims, bool) {
	v, exists := c.Get(claimsKey)
	if !exists {
		return nil, false
	}
	claims, ok := v.(*jwt.Claims)
	return claims, ok
}

// ResolveClaims validates a token if one is present, without requiring it.
// The routing layer uses it to decide between proxy and login redirect.
func ResolveClaims(c *gin.Context, jwtService *jwt.Service) *jwt.Claims {
	token := extractToken(c)
	if token == "" {
		return nil
	}
	claims, err := jwtService.ValidateToken(token)
	if err != nil {
		return nil
	}
	return claims
}
