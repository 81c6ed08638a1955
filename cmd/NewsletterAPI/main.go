package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	_ "modernc.org/sqlite"

	"github.com/zntb/automated-newsletter-service/internal/app"
	"github.com/zntb/automated-newsletter-service/internal/config"
	"github.com/zntb/automated-newsletter-service/pkg/logger"
)

// @title Newsletter API
// @version 1.0
// @description API for newsletter subscriptions, preferences and broadcasts
// @host localhost:8080
// @BasePath /api/
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("No .env file found: %v", err)
	}

	cfg, err := config.NewConfig()
	if err != nil {
		log.Panicf("failed to load configuration: %v", err)
	}

	l := logger.New(cfg.LogsPath, "newsletter")

	application := app.New(*cfg, l)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := application.Start(ctx); err != nil {
		log.Panic(err)
	}
}
