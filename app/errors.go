package app

import (
	"errors"
	"fmt"
	"net/http"

	"example/plan-api/app/planner"
	"example/plan-api/app/schema"
	"example/plan-api/app/store"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// Kind is the failure class an error response is reported under.
type Kind string

const (
	KindAuth        Kind = "AuthError"
	KindValidation  Kind = "ValidationError"
	KindEngine      Kind = "EngineError"
	KindQuota       Kind = "QuotaError"
	KindPersistence Kind = "PersistenceError"
	KindUnknown     Kind = "UnknownError"
)

var errInvalidPrompt = errors.New("invalid_prompt")

// Error is a failure mapped to its wire code and status.
type Error struct {
	Kind   Kind
	Code   string
	Status int
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Detail)
	}
	return e.Code
}

func (e *Error) Unwrap() error { return e.Err }

// persistenceError marks errors returned by the plan store.
type persistenceError struct {
	err error
}

func (e *persistenceError) Error() string { return e.err.Error() }

func (e *persistenceError) Unwrap() error { return e.err }

// classify maps err to exactly one Kind.
func classify(err error) *Error {
	var (
		mapped    *Error
		engineErr *planner.EngineError
		storeErr  *persistenceError
	)
	switch {
	case errors.As(err, &mapped):
		return mapped
	case errors.Is(err, errInvalidPrompt):
		return &Error{Kind: KindValidation, Code: "invalid_prompt", Status: http.StatusBadRequest, Err: err}
	case errors.Is(err, planner.ErrPromptTooLong):
		return &Error{Kind: KindValidation, Code: "prompt_too_long", Status: http.StatusBadRequest, Err: err}
	case errors.Is(err, schema.ErrInvalidResponse), errors.As(err, &engineErr):
		return &Error{Kind: KindEngine, Code: "invalid_ai_response", Status: http.StatusInternalServerError, Detail: err.Error(), Err: err}
	case errors.As(err, &storeErr):
		if store.IsLimitError(storeErr.err) {
			return &Error{Kind: KindQuota, Code: "usage_limit_reached", Status: http.StatusPaymentRequired, Detail: storeErr.Error(), Err: err}
		}
		return &Error{Kind: KindPersistence, Code: "rpc_failed", Status: http.StatusBadRequest, Detail: storeErr.Error(), Err: err}
	default:
		detail := "unknown error"
		if err != nil {
			detail = err.Error()
		}
		return &Error{Kind: KindUnknown, Code: "server_error", Status: http.StatusInternalServerError, Detail: detail, Err: err}
	}
}

// writeError logs the failure once and writes its wire form.
func writeError(c *gin.Context, userID string, err error) {
	e := classify(err)
	entry := log.WithFields(log.Fields{
		"user":       userID,
		"error_kind": e.Kind,
		"code":       e.Code,
		"status":     e.Status,
		"path":       c.Request.URL.Path,
	})
	if e.Err != nil {
		entry = entry.WithError(e.Err)
	}
	switch e.Kind {
	case KindQuota:
		entry.Info("request rejected: usage limit reached")
	case KindValidation, KindAuth:
		entry.Warn("request rejected")
	default:
		entry.Error("request failed")
	}

	body := gin.H{"error": e.Code}
	if e.Detail != "" {
		body["detail"] = e.Detail
	}
	c.AbortWithStatusJSON(e.Status, body)
}
