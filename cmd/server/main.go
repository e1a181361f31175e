package main

import (
	"context"

	"example/plan-api/app"
	"example/plan-api/app/config"

	log "github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	router, cleanup, err := app.Build(context.Background(), cfg)
	if err != nil {
		log.Fatalf("failed to initialize router: %v", err)
	}
	defer cleanup()

	if err := router.Run("0.0.0.0:" + cfg.Port); err != nil {
		log.WithError(err).Error("server stopped")
	}
}
