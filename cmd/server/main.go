package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	config "github.com/kaupskip/email-service/configs"
	"github.com/kaupskip/email-service/internal/application/services"
	"github.com/kaupskip/email-service/internal/core/domain/event"
	"github.com/kaupskip/email-service/internal/core/ports"
	"github.com/kaupskip/email-service/internal/infrastructure/db"
	"github.com/kaupskip/email-service/internal/infrastructure/email"
	"github.com/kaupskip/email-service/internal/infrastructure/health"
	"github.com/kaupskip/email-service/internal/infrastructure/httpserver"
	"github.com/kaupskip/email-service/internal/infrastructure/pubsub"
	"github.com/kaupskip/email-service/internal/infrastructure/redis"
	"github.com/kaupskip/email-service/internal/infrastructure/repositories"
)

func main() {
	// Load configuration
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

	logger.Info("Starting email service...")

	// Initialize database (apply pool settings from config)
	database, err := db.NewDatabaseWithConfig(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database:", err)
	}
	defer database.Close()

	logger.Info("Connected to database successfully")

	// Initialize Redis client
	redisClient, err := redis.NewRedisClient(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis:", err)
	}
	defer redisClient.Close()

	logger.Info("Connected to Redis successfully")

	// Run migrations
	if err := database.Migrate("./migrations"); err != nil {
		logger.Warn("Failed to run migrations:", err)
	}

	channels := event.ChannelsFor(cfg.Events.Namespace)

	// Repositories
	verificationStore := repositories.NewVerificationRedisRepository(redisClient, cfg.Events.Namespace, logger)
	emailLogRepo := repositories.NewEmailLogRepository(database, logger)

	// Mailer
	mailerConfig := &email.MailerConfig{
		SendGridAPIKey: cfg.Email.SendGridAPIKey,
		FromEmail:      cfg.Email.FromEmail,
		FromName:       cfg.Email.FromName,
		ServiceName:    cfg.Email.ServiceName,
		SiteURL:        cfg.Email.SiteURL,
		SendTimeout:    cfg.Email.SendTimeout,
	}
	mailer, err := email.NewMailer(mailerConfig, emailLogRepo, logger)
	if err != nil {
		logger.Fatal("Failed to initialize mailer:", err)
	}

	// Services
	publisher := redis.NewEventPublisher(redisClient)
	expiry := time.Duration(cfg.Verification.ExpiryHours) * time.Hour
	verificationService := services.NewVerificationService(verificationStore, publisher, channels.Verification, expiry, logger)
	router := services.NewEventRouter(mailer, channels, logger)

	// Subscriber for upstream events, supervised by this process
	subscriber := pubsub.NewSubscriber(redisClient, router, channels.Inbound(), logger)
	subscriberErr := make(chan error, 1)
	go func() {
		subscriberErr <- subscriber.Start(context.Background())
	}()

	hcSlice := []ports.HealthChecker{health.NewDBHealthChecker(database), health.NewRedisHealthChecker(redisClient)}

	// Create server configuration
	serverConfig := &httpserver.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		TLSCertFile:  cfg.Server.TLSCertFile,
		TLSKeyFile:   cfg.Server.TLSKeyFile,
		SiteURL:      cfg.Email.SiteURL,
	}

	deps := httpserver.ServerDeps{
		VerificationService: verificationService,
		Mailer:              mailer,
		EmailLogRepository:  emailLogRepo,
		HealthCheckers:      hcSlice,
	}

	server := httpserver.NewServer(serverConfig, logger, deps)

	// Start server in a goroutine
	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("Failed to start server:", err)
		}
	}()

	logger.Infof("Server started on %s:%s", cfg.Server.Host, cfg.Server.Port)

	// Wait for an interrupt signal or a fatal subscriber error. The subscriber
	// does not reconnect on its own; a lost connection shuts the process down
	// so the supervisor can restart it.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info("Shutting down...")
	case err := <-subscriberErr:
		if err != nil {
			logger.WithError(err).Error("Subscriber failed")
		}
	}

	// Stop the subscriber and join its goroutine
	if err := subscriber.Stop(); err != nil {
		logger.WithError(err).Warn("Failed to stop subscriber cleanly")
	}
	select {
	case <-subscriberErr:
	default:
	}

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown:", err)
	}

	logger.Info("Server exited")
}
