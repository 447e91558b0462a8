package middleware

import (
	"net/http" // HTTP status codes

	"petshop/internal/domain" // Roles

	"github.com/gin-gonic/gin" // Gin web framework
)

// RequireRole lets the request through only when the token's role is one of roles.
// It must run after JWTAuthMiddleware.
func RequireRole(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		err := GetPrincipal(c).Require(roles...) // Check role carried in the token
		if err == nil {
			c.Next() // Role matches, proceed
			return
		}
		status := http.StatusForbidden
		if domain.KindOf(err) == domain.KindUnauthorized {
			status = http.StatusUnauthorized // No principal at all
		}
		c.AbortWithStatusJSON(status, gin.H{"message": err.Error()})
	}
}
