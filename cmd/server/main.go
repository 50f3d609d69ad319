package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/campus-id/internal/config"
	"github.com/iliyamo/campus-id/internal/database"
	"github.com/iliyamo/campus-id/internal/handler"
	"github.com/iliyamo/campus-id/internal/middleware"
	"github.com/iliyamo/campus-id/internal/queue"
	"github.com/iliyamo/campus-id/internal/repository"
	"github.com/iliyamo/campus-id/internal/router"
	"github.com/iliyamo/campus-id/internal/service"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	accounts := repository.NewAccountRepo(db)
	institutions := repository.NewInstitutionRepo(db)
	codes := repository.NewCodeRepo(db)

	notify := service.QueueNotifier{}
	otp := service.NewOTPEngine(codes, notify)
	identity := service.NewIdentity(cfg, accounts, institutions, otp, notify)

	// Background mail worker; runs its own reconnect loop.
	go func() {
		if err := queue.StartEmailConsumer(); err != nil {
			log.Printf("email consumer stopped: %v", err)
		}
	}()

	// Hourly cleanup of expired one-time codes. Expiry already makes
	// them unusable; this just keeps the table small.
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if n, err := codes.DeleteExpired(ctx, time.Now().UTC()); err != nil {
				log.Printf("code cleanup: %v", err)
			} else if n > 0 {
				log.Printf("code cleanup: removed %d expired codes", n)
			}
			cancel()
		}
	}()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable, running without rate limiting")
	}
	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(identity, institutions), cfg.JWTSecret, limiter)
	router.RegisterAdmin(e, handler.NewAdminHandler(identity, accounts), cfg.JWTSecret)
	router.RegisterSuperadmin(e, handler.NewSuperadminHandler(institutions), cfg.SuperadminKey)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
