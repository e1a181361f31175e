// Package app wires shared HTTP routes for both local and Lambda execution.
package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"example/plan-api/app/models"
	"example/plan-api/app/planner"
	"example/plan-api/auth"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

var (
	corsAllowHeaders = []string{"authorization", "x-client-info", "apikey", "content-type"}
	corsAllowMethods = []string{"POST", "OPTIONS"}
)

// PlanStore is the quota-gated persistence collaborator.
type PlanStore interface {
	ConsumeRequestAndInsertPlan(ctx context.Context, p models.NewPlan) (models.Plan, error)
}

// AccountStore reads and updates entitlement state.
type AccountStore interface {
	GetAccount(ctx context.Context, userID, email string) (models.Account, error)
	SetTier(ctx context.Context, userID string, tier models.Tier, customerID string) error
	SetTierByCustomer(ctx context.Context, customerID string, tier models.Tier) (bool, error)
}

// Deps are the collaborators behind the router.
type Deps struct {
	Verifier     auth.IdentityVerifier
	DisableAuth  bool
	Plans        PlanStore
	Accounts     AccountStore
	Generator    planner.Generator // configured engine
	Stub         planner.Generator
	Options      planner.Options
	StripeSecret string // webhook signing secret
}

type server struct {
	Deps
}

// NewRouter builds the shared HTTP router for both local and Lambda execution.
func NewRouter(deps Deps) *gin.Engine {
	s := &server{Deps: deps}

	router := gin.New()
	router.Use(gin.Logger(), gin.CustomRecovery(func(c *gin.Context, recovered any) {
		writeError(c, subject(c), fmt.Errorf("panic: %v", recovered))
	}))

	requireAuth := auth.Middleware(deps.Verifier, auth.MiddlewareConfig{DisableAuth: deps.DisableAuth})

	functions := router.Group("/functions/v1", functionCORS())
	functions.OPTIONS("/plan", preflight)
	functions.OPTIONS("/plan-stub", preflight)
	functions.POST("/plan", requireAuth, s.handlePlan(deps.Generator))
	functions.POST("/plan-stub", requireAuth, s.handlePlan(deps.Stub))

	api := router.Group("/", cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    corsAllowHeaders,
		MaxAge:          12 * time.Hour,
	}))
	api.GET("/health", Health)
	api.POST("/api/stripe/webhook", s.StripeWebhook)
	api.OPTIONS("/me", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	api.GET("/me", requireAuth, s.Me)

	return router
}

// functionCORS sets the permissive cross-origin headers on every response,
// errors included.
func functionCORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Headers", strings.Join(corsAllowHeaders, ", "))
		h.Set("Access-Control-Allow-Methods", strings.Join(corsAllowMethods, ", "))
		c.Next()
	}
}

func preflight(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

func subject(c *gin.Context) string {
	if claims, ok := auth.ClaimsFromContext(c.Request.Context()); ok {
		return claims.Subject
	}
	return ""
}
