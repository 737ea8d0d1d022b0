// Package server wires the marketplace API together: database, token store,
// repositories, services, handlers, and the HTTP server itself.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"bazaar/internal/auth"
	"bazaar/internal/config"
	"bazaar/internal/database"
	"bazaar/internal/listings"
	"bazaar/internal/storage"
	"bazaar/internal/token"
	"bazaar/internal/users"
)

// Server holds the dependencies for the HTTP server
type Server struct {
	port int

	db      database.Service
	tokens  token.Manager
	storage storage.Service

	authHandler    *auth.Handler
	listingHandler *listings.Handler
	storageHandler *storage.Handler
}

// Config holds server configuration
type Config struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// LoadConfigFromEnv loads server configuration from environment variables
func LoadConfigFromEnv() *Config {
	return &Config{
		Port:         config.GetEnvInt("PORT", 8080),
		ReadTimeout:  config.GetEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
		WriteTimeout: config.GetEnvDuration("SERVER_WRITE_TIMEOUT", 60*time.Second),
		IdleTimeout:  config.GetEnvDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
	}
}

// NewServer creates and configures the marketplace HTTP server
func NewServer() *http.Server {
	cfg := LoadConfigFromEnv()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := config.ValidateEnv([]string{"DB_HOST", "DB_PORT", "DB_DATABASE", "DB_USERNAME", "DB_PASSWORD"}); err != nil {
		slog.Error("Invalid configuration", "error", err)
	}

	db := database.New()
	if err := database.Migrate(ctx, db); err != nil {
		slog.Error("Failed to apply database schema", "error", err)
	}

	redisAddr := config.GetEnvOrDefault("REDIS_ADDR", "localhost:6379")
	redisPassword := config.GetEnvOrDefault("REDIS_PASSWORD", "")

	tokenStore := token.NewRedisStore(redisAddr, redisPassword, 0)
	tokens := token.NewManager(tokenStore)

	storageService, err := storage.New(ctx)
	if err != nil {
		slog.Warn("Image storage unavailable, upload URLs disabled", "error", err)
	}

	userRepo := users.NewRepository(db)
	authService := auth.NewService(userRepo, tokens)

	listingRepo := listings.NewRepository(db)
	listingService := listings.NewService(listingRepo, redisAddr, redisPassword, 1)

	appServer := &Server{
		port:           cfg.Port,
		db:             db,
		tokens:         tokens,
		storage:        storageService,
		authHandler:    auth.NewHandler(authService),
		listingHandler: listings.NewHandler(listingService),
		storageHandler: storage.NewHandler(storageService),
	}

	return &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           appServer.RegisterRoutes(),
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
}
