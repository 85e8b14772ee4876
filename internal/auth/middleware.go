package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
)

const identityKey = "auth.identity"

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

// Middleware rejects requests whose bearer token v does not accept. When
// the auth service is unavailable requests are rejected unless failOpen.
func Middleware(v Validator, failOpen bool, logger *log.Logger) gin.HandlerFunc {
	logger = logger.WithPrefix("auth")
	return func(c *gin.Context) {
		id, err := v.Validate(c.Request.Context(), BearerToken(c.Request))
		switch {
		case err == nil:
			if id != nil {
				c.Set(identityKey, id)
			}
			c.Next()
		case errors.Is(err, ErrUnavailable) && failOpen:
			logger.Warn("Auth unavailable, allowing request", "path", c.FullPath(), "error", err)
			c.Next()
		case errors.Is(err, ErrUnavailable):
			logger.Error("Auth unavailable", "path", c.FullPath(), "error", err)
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "authentication unavailable"})
		default:
			c.Header("WWW-Authenticate", "Bearer")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		}
	}
}

// FromContext returns the identity set by Middleware, if any.
func FromContext(c *gin.Context) *Identity {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil
	}
	id, _ := v.(*Identity)
	return id
}
