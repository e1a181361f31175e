package app

import (
	"net/http"

	"example/plan-api/auth"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// Health is a public health check endpoint.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// Me returns the caller's tier and request usage.
func (s *server) Me(c *gin.Context) {
	claims, ok := auth.ClaimsFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": auth.CodeUnauthorized})
		return
	}
	if s.Accounts == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error", "detail": "account store not configured"})
		return
	}

	account, err := s.Accounts.GetAccount(c.Request.Context(), claims.Subject, claims.Email)
	if err != nil {
		log.WithError(err).WithField("user", claims.Subject).Error("failed to load account")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error", "detail": "failed to load account"})
		return
	}
	c.JSON(http.StatusOK, account)
}
