package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"quiz-platform-service/internal/auth"
	"quiz-platform-service/internal/domain"
)

const identityKey = "identity"

const (
	roleStudent    = domain.RoleStudent
	roleInstructor = domain.RoleInstructor
)

// TokenVerifier turns a bearer token into the caller identity.
type TokenVerifier interface {
	Verify(token string) (auth.Identity, error)
}

// Authenticate requires a valid bearer token. Browser websockets may pass it as ?token=.
func (h *Handler) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			token = c.Query("token")
		}
		if token == "" {
			abortError(c, http.StatusUnauthorized, "unauthorized", "missing bearer token")
			return
		}
		id, err := h.verifier.Verify(token)
		if err != nil {
			abortError(c, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
			return
		}
		c.Set(identityKey, id)
		c.Next()
	}
}

// RequireRole rejects callers whose role differs.
func RequireRole(role domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if identity(c).Role != role {
			abortError(c, http.StatusForbidden, "forbidden", "requires role "+string(role))
			return
		}
		c.Next()
	}
}

func bearerToken(header string) string {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func identity(c *gin.Context) auth.Identity {
	v, ok := c.Get(identityKey)
	if !ok {
		return auth.Identity{}
	}
	id, _ := v.(auth.Identity)
	return id
}
