package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lalith-99/medroster/internal/auth"
)

// Keys for the identity in gin.Context. The same identity is also put on
// the request's context.Context for the service layer.
const (
	ContextKeyUserID   = "user_id"
	ContextKeyTenantID = "tenant_id"
	ContextKeyRole     = "role"
)

// QueryTokenParam carries the token on websocket upgrades, where browsers
// cannot set an Authorization header.
const QueryTokenParam = "access_token"

// AuthMiddleware validates the bearer token and stores the caller identity.
// A request without a valid token never reaches the handler.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "missing or malformed authorization, expected: Bearer <token>",
			})
			return
		}

		claims, err := auth.ParseToken(tokenString, secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid or expired token",
			})
			return
		}

		id := claims.Identity()
		c.Set(ContextKeyUserID, id.UserID)
		c.Set(ContextKeyTenantID, id.TenantID)
		c.Set(ContextKeyRole, id.Role)
		c.Request = c.Request.WithContext(auth.WithIdentity(c.Request.Context(), id))

		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		if c.IsWebsocket() {
			if token := c.Query(QueryTokenParam); token != "" {
				return token, true
			}
		}
		return "", false
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// RequireRole rejects callers whose role is not in roles with 403.
func RequireRole(roles ...auth.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !GetIdentity(c).Is(roles...) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "insufficient role",
			})
			return
		}
		c.Next()
	}
}

func GetUserID(c *gin.Context) uuid.UUID {
	val, exists := c.Get(ContextKeyUserID)
	if !exists {
		return uuid.Nil
	}
	id, ok := val.(uuid.UUID)
	if !ok {
		return uuid.Nil
	}
	return id
}

func GetTenantID(c *gin.Context) uuid.UUID {
	val, exists := c.Get(ContextKeyTenantID)
	if !exists {
		return uuid.Nil
	}
	id, ok := val.(uuid.UUID)
	if !ok {
		return uuid.Nil
	}
	return id
}

func GetRole(c *gin.Context) auth.Role {
	val, exists := c.Get(ContextKeyRole)
	if !exists {
		return ""
	}
	role, ok := val.(auth.Role)
	if !ok {
		return ""
	}
	return role
}

func GetIdentity(c *gin.Context) auth.Identity {
	return auth.Identity{TenantID: GetTenantID(c), UserID: GetUserID(c), Role: GetRole(c)}
}
