// Package auth provides Gin middleware for enforcing bearer token auth.
package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// Wire-level error codes written by the middleware.
const (
	CodeMissingBearerToken = "missing_bearer_token"
	CodeUnauthorized       = "unauthorized"
)

// MiddlewareConfig controls auth enforcement behavior.
type MiddlewareConfig struct {
	DisableAuth bool
}

// Middleware enforces bearer token auth and injects claims into the request context.
// Nothing behind it runs unless the caller presented a verified identity.
func Middleware(verifier IdentityVerifier, cfg MiddlewareConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.DisableAuth || AuthDisabled() {
			claims := &Claims{
				Subject: "local-dev",
				Issuer:  "local",
				Raw:     map[string]any{"sub": "local-dev"},
			}
			ctx := WithClaims(c.Request.Context(), claims)
			c.Request = c.Request.WithContext(ctx)
			c.Next()
			return
		}

		token, ok := extractBearerToken(c.GetHeader("Authorization"))
		if !ok {
			log.WithField("path", c.Request.URL.Path).Warn("auth failure: missing or malformed bearer token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": CodeMissingBearerToken})
			return
		}

		if verifier == nil {
			log.WithField("path", c.Request.URL.Path).Error("auth failure: verifier not configured")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":  "server_error",
				"detail": "auth verifier not configured",
			})
			return
		}

		claims, err := verifier.Verify(c.Request.Context(), token)
		if err != nil || claims == nil || claims.Subject == "" {
			log.WithError(err).WithField("path", c.Request.URL.Path).Warn("auth failure: token invalid")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": CodeUnauthorized})
			return
		}

		ctx := WithClaims(c.Request.Context(), claims)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func extractBearerToken(header string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 {
		return "", false
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}
	return token, true
}
