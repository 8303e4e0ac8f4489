package main

import (
	"log"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/quickeats/quickeats/internal/config"
	"github.com/quickeats/quickeats/internal/gateway"
)

func main() {
	_ = godotenv.Load()
	cfg := config.LoadGateway()

	var (
		logger *zap.Logger
		err    error
	)
	if cfg.Env == "prod" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	e, err := gateway.New(cfg, logger)
	if err != nil {
		log.Fatalf("build gateway: %v", err)
	}

	addr := ":" + cfg.Port
	log.Printf("api gateway listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
