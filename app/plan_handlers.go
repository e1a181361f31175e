package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"example/plan-api/app/models"
	"example/plan-api/app/planner"
	"example/plan-api/auth"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// maxPlanBodyBytes is far above what a prompt within MaxInputTokens can
// occupy, even at four bytes per character.
const maxPlanBodyBytes = int64(256 << 10)

type planRequest struct {
	Prompt  *string         `json:"prompt"`
	Options json.RawMessage `json:"options,omitempty"` // accepted, currently unused
}

// handlePlan runs one generation request: prompt checks, a single
// generator call, then the quota-gated insert.
func (s *server) handlePlan(gen planner.Generator) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := auth.ClaimsFromContext(c.Request.Context())
		if !ok || claims.Subject == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": auth.CodeUnauthorized})
			return
		}
		userID := claims.Subject

		prompt, err := readPrompt(c)
		if err != nil {
			writeError(c, userID, err)
			return
		}
		if err := s.Options.CheckPrompt(prompt); err != nil {
			writeError(c, userID, err)
			return
		}
		if gen == nil {
			writeError(c, userID, &Error{Kind: KindUnknown, Code: "server_error", Status: http.StatusInternalServerError, Detail: "plan generator not configured"})
			return
		}

		draft, err := gen.Generate(c.Request.Context(), prompt)
		if err != nil {
			writeError(c, userID, err)
			return
		}

		plan, err := s.Plans.ConsumeRequestAndInsertPlan(c.Request.Context(), models.NewPlan{
			UserID:    userID,
			Title:     draft.Title,
			Content:   draft.Content,
			Model:     draft.Model,
			TokensIn:  draft.TokensIn,
			TokensOut: draft.TokensOut,
		})
		if err != nil {
			writeError(c, userID, &persistenceError{err: err})
			return
		}

		log.WithFields(log.Fields{
			"user":    userID,
			"plan_id": plan.ID,
			"source":  draft.Content.Meta.Source,
			"blocks":  len(draft.Content.Blocks),
		}).Info("plan created")
		c.JSON(http.StatusOK, gin.H{"ok": true, "plan": plan})
	}
}

// readPrompt rejects bodies that are not JSON and prompts that are missing,
// not a string or blank. The prompt is returned as sent, so whitespace
// still counts against the token budget.
func readPrompt(c *gin.Context) (string, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxPlanBodyBytes)

	var req planRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return "", fmt.Errorf("%w: request body exceeds %d bytes", planner.ErrPromptTooLong, tooLarge.Limit)
		}
		return "", errInvalidPrompt
	}
	if req.Prompt == nil || strings.TrimSpace(*req.Prompt) == "" {
		return "", errInvalidPrompt
	}
	return *req.Prompt, nil
}
