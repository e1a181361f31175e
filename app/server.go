package app

import (
	"context"
	"errors"
	"fmt"

	"example/plan-api/app/config"
	"example/plan-api/app/planner"
	"example/plan-api/app/schema"
	"example/plan-api/app/store"
	"example/plan-api/auth"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

const defaultSQLitePath = "plans.db"

// Build wires the router from configuration. The returned cleanup closes
// the database pool.
func Build(ctx context.Context, cfg *config.Config) (*gin.Engine, func(), error) {
	if err := ConfigureLogging(cfg.Logs); err != nil {
		return nil, nil, fmt.Errorf("configure logging: %w", err)
	}

	dsn := cfg.DB.PostgresDSN()
	if dsn == "" {
		log.WithField("path", defaultSQLitePath).Warn("no database configured, using local sqlite")
		dsn = defaultSQLitePath
	}
	db, err := store.Open(dsn)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	fail := func(err error) (*gin.Engine, func(), error) {
		cleanup()
		return nil, nil, err
	}

	if cfg.DB.AutoMigrate {
		if err := store.Migrate(ctx, db); err != nil {
			return fail(err)
		}
	}

	accounts := store.New(db, cfg.Quota.FreeLimit)
	var plans PlanStore = accounts
	if cfg.DB.UseRPC {
		if store.Dialect(dsn) != store.DialectPostgres {
			return fail(errors.New("DB_USE_RPC requires a postgres database"))
		}
		plans = store.NewRPCStore(db, cfg.Quota.FreeLimit)
	}

	disableAuth := auth.AuthDisabled()
	verifier, err := auth.NewIdentityVerifier(cfg.Auth)
	if err != nil && !disableAuth {
		return fail(fmt.Errorf("auth: %w", err))
	}

	opts, err := planner.OptionsFromConfig(cfg.Engine)
	if err != nil {
		return fail(fmt.Errorf("engine options: %w", err))
	}
	validator, err := schema.NewValidator(opts.SchemaVersion)
	if err != nil {
		return fail(err)
	}
	stub := planner.NewStubGenerator(validator)

	var generator planner.Generator = stub
	if cfg.Engine.Kind == "openai" {
		engine, err := planner.NewOpenAIEngine(cfg.Engine.APIKey, cfg.Engine.BaseURL)
		if err != nil {
			return fail(err)
		}
		generator = planner.NewLLMGenerator(engine, opts, validator)
	}

	log.WithFields(log.Fields{
		"engine":    cfg.Engine.Kind,
		"model":     opts.Model,
		"auth_mode": cfg.Auth.Mode,
		"rpc":       cfg.DB.UseRPC,
		"dialect":   store.Dialect(dsn),
	}).Info("plan api configured")

	router := NewRouter(Deps{
		Verifier:     verifier,
		DisableAuth:  disableAuth,
		Plans:        plans,
		Accounts:     accounts,
		Generator:    generator,
		Stub:         stub,
		Options:      opts,
		StripeSecret: cfg.Stripe.WebhookSecret,
	})
	return router, cleanup, nil
}
