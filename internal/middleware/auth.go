package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/qualitrack/qc-api/internal/handler"
	"github.com/qualitrack/qc-api/internal/model"
	"github.com/qualitrack/qc-api/pkg/auth"
)

const (
	ContextActorID   = "actor_id"
	ContextActorRole = "actor_role"
)

type AuthMiddleware struct {
	tokens auth.JWTService
}

func NewAuthMiddleware(tokens auth.JWTService) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// Authenticate verifies the bearer token and attaches the caller's id and
// role to the context. Every handler downstream may assume both are set.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing authorization header"))
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid authorization format"))
			c.Abort()
			return
		}

		claims, err := m.tokens.ValidateToken(parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid token"))
			c.Abort()
			return
		}

		c.Set(ContextActorID, claims.AccountID)
		c.Set(ContextActorRole, claims.Role)
		c.Next()
	}
}

// RequireRole rejects callers ranking below the minimum role.
func (m *AuthMiddleware) RequireRole(min model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := ActorRole(c)
		if !role.Valid() {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("unauthenticated"))
			c.Abort()
			return
		}
		if !role.AtLeast(min) {
			c.JSON(http.StatusForbidden, handler.NewErrorResponse("insufficient role"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// ActorID returns the authenticated caller's account id.
func ActorID(c *gin.Context) int64 {
	if v, ok := c.Get(ContextActorID); ok {
		if id, ok := v.(int64); ok {
			return id
		}
	}
	return 0
}

// ActorRole returns the authenticated caller's role.
func ActorRole(c *gin.Context) model.Role {
	if v, ok := c.Get(ContextActorRole); ok {
		if role, ok := v.(model.Role); ok {
			return role
		}
	}
	return ""
}
