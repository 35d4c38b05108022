package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/zaimgo/marketing-api/pkg/httputil"
)

const ContextOperator = "operator"

// TokenValidator validates an admin token and returns the operator login.
type TokenValidator interface {
	Validate(token string) (string, error)
}

type AuthMiddleware struct {
	validator TokenValidator
}

func NewAuthMiddleware(validator TokenValidator) *AuthMiddleware {
	return &AuthMiddleware{validator: validator}
}

// Authenticate verifies the bearer token and sets the operator login in
// the request context.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "missing authorization header")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			abortUnauthorized(c, "invalid authorization format")
			return
		}

		operator, err := m.validator.Validate(parts[1])
		if err != nil {
			abortUnauthorized(c, "invalid token")
			return
		}

		c.Set(ContextOperator, operator)
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, httputil.Response{
		Success: false,
		Error:   &httputil.Error{Code: http.StatusUnauthorized, Message: message},
	})
}
