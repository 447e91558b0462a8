package middleware

import (
	"net/http" // HTTP status codes
	"strings"  // String manipulation

	"petshop/internal/domain" // Principal
	"petshop/internal/utils"  // JWT utility functions

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging
)

// PrincipalKey is the gin context key holding the authenticated domain.Principal
const PrincipalKey = "principal"

// JWTAuthMiddleware validates the bearer token and stores the caller's principal
func JWTAuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization") // Get Authorization header
		// Check if the Authorization header is present and properly formatted
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Missing or invalid Authorization header"})
			return
		}
		tokenStr := strings.TrimPrefix(authHeader, "Bearer ") // Extract the token string
		claims, err := utils.ParseJWT(tokenStr, secret)       // Parse and validate the token
		if err != nil {
			logrus.WithFields(logrus.Fields{"path": c.FullPath(), "error": err.Error()}).Debug("Rejected token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid or expired token"})
			return
		}
		c.Set(PrincipalKey, claims.Principal()) // Store principal in context
		c.Next()                                // Proceed to the next handler
	}
}

// GetPrincipal returns the principal set by JWTAuthMiddleware, or the zero
// (anonymous) principal when the route is public
func GetPrincipal(c *gin.Context) domain.Principal {
	if v, ok := c.Get(PrincipalKey); ok {
		if p, ok := v.(domain.Principal); ok {
			return p
		}
	}
	return domain.Principal{}
}
