package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/quickeats/quickeats/internal/config"
	"github.com/quickeats/quickeats/internal/database"
	"github.com/quickeats/quickeats/internal/handler"
	"github.com/quickeats/quickeats/internal/middleware"
	"github.com/quickeats/quickeats/internal/oauth"
	"github.com/quickeats/quickeats/internal/repository"
	"github.com/quickeats/quickeats/internal/router"
	"github.com/quickeats/quickeats/internal/service"
	"github.com/quickeats/quickeats/internal/session"
	"github.com/quickeats/quickeats/internal/token"
)

func main() {
	_ = godotenv.Load() // .env is optional; real deployments set the environment directly
	cfg := config.Load()

	logger := newLogger(cfg.Env)
	defer func() { _ = logger.Sync() }()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := database.InitSchema(ctx, db); err != nil {
		log.Fatalf("init schema: %v", err)
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	signer := token.NewSigner(cfg.JWTSecret, cfg.AccessTTLMin)
	publisher := service.NewPublisher(cfg.AMQPURL, logger)
	issuer := session.NewIssuer(users, tokens, signer, publisher, cfg.RefreshTTLDays, cfg.BcryptCost, logger)

	var provider oauth.Provider
	if cfg.Google.Enabled() {
		provider = oauth.NewGoogleProvider(cfg.Google)
	} else {
		logger.Info("federated login disabled: Google credentials not configured")
	}

	limiter := middleware.RateLimit(config.LoadRateLimitConfig(), config.NewRedisClient())

	e := echo.New()
	e.HideBanner = true

	authH := handler.NewAuthHandler(issuer, signer, provider, cfg.FrontendOrigin, logger)
	userH := handler.NewUserHandler(users, logger)
	router.RegisterRoutes(e, userH)
	router.RegisterAuth(e, authH, limiter)
	router.RegisterUsers(e, userH, signer)

	logger.Info("session policy",
		zap.Duration("access_ttl", signer.TTL()),
		zap.Int("refresh_ttl_days", cfg.RefreshTTLDays))

	addr := ":" + cfg.Port
	log.Printf("auth service listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}

func newLogger(env string) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if env == "prod" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	return logger
}
