package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Essau-dev/PolleriaMontiel/internal/core/apperror"
	"github.com/Essau-dev/PolleriaMontiel/internal/domain/auth"
)

// TokenValidator turns a bearer token into a principal.
// Implemented by auth.JWTService.
type TokenValidator interface {
	ValidateToken(tokenString string) (*auth.Principal, error)
}

// Auth validates the bearer token and attaches the principal to the
// request context. Every protected route runs behind it.
func Auth(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			abortUnauthorized(c, "invalid authorization header format")
			return
		}

		principal, err := validator.ValidateToken(parts[1])
		if err != nil {
			abortUnauthorized(c, "invalid token")
			return
		}

		ctx := auth.WithPrincipal(c.Request.Context(), principal)
		c.Request = c.Request.WithContext(ctx)

		// Store in gin context for easy access
		c.Set("user_id", principal.UserID.String())
		c.Set("username", principal.Username)

		c.Next()
	}
}

// RequireRole checks the principal holds the required role.
// Administrators pass every check.
func RequireRole(role auth.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := auth.PrincipalFromContext(c.Request.Context())
		if !ok {
			abortUnauthorized(c, "authentication required")
			return
		}

		if !principal.Is(role) {
			_ = c.Error(
				apperror.NewForbidden("insufficient role").
					WithDetail("required_role", string(role)),
			)
			c.Abort()
			return
		}

		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	_ = c.Error(apperror.NewUnauthorized(message))
	c.Abort()
}
