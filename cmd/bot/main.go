package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/campusgate/verifybot/configs"
	"github.com/campusgate/verifybot/internal/application/services"
	"github.com/campusgate/verifybot/internal/core/ports"
	"github.com/campusgate/verifybot/internal/infrastructure/db"
	"github.com/campusgate/verifybot/internal/infrastructure/discord"
	"github.com/campusgate/verifybot/internal/infrastructure/email"
	"github.com/campusgate/verifybot/internal/infrastructure/health"
	"github.com/campusgate/verifybot/internal/infrastructure/httpserver"
	"github.com/campusgate/verifybot/internal/infrastructure/repositories"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load configuration; a missing required setting lists every missing
	// variable at once.
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Setup logger
	logger := logrus.New()
	if cfg.Log.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(level)
	}

	logger.Info("Starting Discord verification bot...")

	// Initialize the document store and its indexes
	store, err := db.NewMongo(&cfg.Mongo)
	if err != nil {
		logger.Fatal("Failed to connect to MongoDB:", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = store.Close(ctx)
	}()

	indexCtx, cancelIndex := context.WithTimeout(context.Background(), cfg.Mongo.ConnectTimeout)
	if err := store.EnsureIndexes(indexCtx); err != nil {
		cancelIndex()
		logger.Fatal("Failed to create indexes:", err)
	}
	cancelIndex()

	logger.Info("Connected to MongoDB successfully")

	// Repositories
	verificationRepo := repositories.NewVerificationRepository(store, logger)
	guildConfigRepo := repositories.NewGuildConfigRepository(store, logger)

	// Email service
	emailService, err := email.NewEmailService(&cfg.Email, logger)
	if err != nil {
		logger.Fatal("Failed to initialize email service:", err)
	}

	// Discord gateway
	gateway, err := discord.NewGateway(&cfg.Discord, logger)
	if err != nil {
		logger.Fatal("Failed to create Discord gateway:", err)
	}

	// Wire services
	verificationConfig := services.VerificationConfig{
		EmailReplyTimeout: cfg.Verification.EmailReplyTimeout,
		CodeReplyTimeout:  cfg.Verification.CodeReplyTimeout,
		SweepInterval:     cfg.Verification.SweepInterval,
		CallTimeout:       cfg.Verification.CallTimeout,
	}
	verificationService := services.NewVerificationService(verificationRepo, guildConfigRepo, emailService, gateway, verificationConfig, logger)
	guildConfigService := services.NewGuildConfigService(guildConfigRepo, logger)
	commandRouter := services.NewCommandRouter(verificationService, guildConfigService, gateway, logger)

	gateway.RegisterHandlers(commandRouter, verificationService)
	if err := gateway.Open(); err != nil {
		logger.Fatal("Failed to connect to Discord:", err)
	}
	defer gateway.Close()

	verificationService.Start()
	defer verificationService.Stop()

	hcSlice := []ports.HealthChecker{
		health.NewMongoHealthChecker(store),
		health.NewGatewayHealthChecker(gateway.Healthy),
	}

	serverConfig := &httpserver.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	server := httpserver.NewServer(serverConfig, logger, hcSlice)

	// Start server in a goroutine
	go func() {
		if err := server.Start(); err != nil {
			logger.Info("HTTP server stopped:", err)
		}
	}()

	logger.Infof("Bot running, HTTP server on %s:%s", cfg.Server.Host, cfg.Server.Port)

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("HTTP server forced to shutdown:", err)
	}

	logger.Info("Bot exited")
}
