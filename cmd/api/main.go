package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/cardhaven/bankcards/api"
	"github.com/cardhaven/bankcards/internal/auth"
	"github.com/cardhaven/bankcards/internal/config"
	"github.com/cardhaven/bankcards/internal/domain"
	"github.com/cardhaven/bankcards/internal/handler"
	"github.com/cardhaven/bankcards/internal/logging"
	"github.com/cardhaven/bankcards/internal/pan"
	"github.com/cardhaven/bankcards/internal/repository"
	"github.com/cardhaven/bankcards/internal/service/blockreq"
	"github.com/cardhaven/bankcards/internal/service/card"
	"github.com/cardhaven/bankcards/internal/service/transfer"
	"github.com/cardhaven/bankcards/internal/service/user"

	"github.com/google/uuid"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logging.Init("bankcards-api", cfg.LogLevel, cfg.AppEnv)

	db, err := connectDB(cfg)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	vault, err := pan.NewVault(cfg.PanPepper, cfg.PanEncPassword, cfg.PanEncSalt)
	if err != nil {
		slog.Error("failed to initialize card number vault", "error", err)
		os.Exit(1)
	}

	cardRepo := repository.NewCardRepository(db)
	transferRepo := repository.NewTransferRepository(db)
	blockReqRepo := repository.NewBlockRequestRepository(db)
	userRepo := repository.NewUserRepository(db)

	cardSvc := card.NewService(cardRepo, userRepo, vault, db)
	transferSvc := transfer.NewService(cardRepo, transferRepo, db)
	blockReqSvc := blockreq.NewService(cardRepo, blockReqRepo, db)
	userSvc := user.NewService(userRepo, cardRepo)

	if err := ensureAdmin(context.Background(), userRepo, cfg); err != nil {
		slog.Error("failed to bootstrap admin user", "error", err)
		os.Exit(1)
	}

	router := newRouter(routerDeps{
		auth:          handler.NewAuthHandler(userSvc, cfg.JWTSecret, time.Duration(cfg.JWTExpiryM)*time.Minute),
		cards:         handler.NewCardHandler(cardSvc),
		transfers:     handler.NewTransferHandler(transferSvc),
		blockRequests: handler.NewBlockRequestHandler(blockReqSvc),
		adminCards:    handler.NewAdminCardHandler(cardSvc),
		adminUsers:    handler.NewAdminUserHandler(userSvc),
		health:        handler.NewHealthHandler(db),
		jwtSecret:     cfg.JWTSecret,
		openAPISpec:   api.OpenAPI,
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("server started", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

func connectDB(cfg *config.Config) (*sql.DB, error) {
	pool := repository.PoolConfig{
		MaxOpenConns:     cfg.DBMaxOpenConns,
		MaxIdleConns:     cfg.DBMaxIdleConns,
		ConnMaxLifetimeS: cfg.DBConnMaxLifetimeS,
		ConnMaxIdleTimeS: cfg.DBConnMaxIdleTimeS,
	}

	var lastErr error
	for i := range 30 {
		db, err := repository.NewPostgresDB(context.Background(), cfg.DatabaseURL, pool)
		if err == nil {
			return db, nil
		}
		lastErr = err
		slog.Info("waiting for database", "attempt", i+1)
		time.Sleep(time.Second)
	}
	return nil, fmt.Errorf("connectDB: gave up after 30 attempts: %w", lastErr)
}

// ensureAdmin seeds the operator account on first boot. Skipped when no
// ADMIN_PASSWORD is configured or the account already exists.
func ensureAdmin(ctx context.Context, users *repository.UserRepository, cfg *config.Config) error {
	if cfg.AdminPassword == "" {
		return nil
	}

	_, err := users.GetByEmail(ctx, cfg.AdminEmail)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return fmt.Errorf("ensureAdmin: %w", err)
	}

	hash, err := auth.HashPassword(cfg.AdminPassword)
	if err != nil {
		return fmt.Errorf("ensureAdmin: %w", err)
	}

	admin := &domain.User{
		ID:           uuid.New(),
		Name:         "Administrator",
		Email:        cfg.AdminEmail,
		PasswordHash: hash,
		Role:         domain.UserRoleAdmin,
		Enabled:      true,
		CreatedAt:    time.Now().UTC(),
	}
	if err := users.Create(ctx, admin); err != nil {
		return fmt.Errorf("ensureAdmin: %w", err)
	}

	slog.Info("admin user created", "email", cfg.AdminEmail)
	return nil
}
