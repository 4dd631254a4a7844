package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"

	"github.com/brahmamatch/server/internal/auth"
	"github.com/brahmamatch/server/internal/config"
	"github.com/brahmamatch/server/internal/db"
	httpapi "github.com/brahmamatch/server/internal/http"
	"github.com/brahmamatch/server/internal/http/handlers"
	"github.com/brahmamatch/server/internal/logging"
	"github.com/brahmamatch/server/internal/repo"
	"github.com/brahmamatch/server/internal/verify"
)

func main() {
	// Env vars override .env contents.
	_ = godotenv.Load(".env")

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel)

	ctx := context.Background()
	database, err := db.Open(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open database")
	}
	defer database.Close()

	if err := runMigrations(database); err != nil {
		logger.Fatal().Err(err).Msg("run migrations")
	}

	identityRepo := repo.NewIdentityRepo(database)
	profileRepo := repo.NewProfileRepo(database)

	provider := buildProvider(cfg, logger)

	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.JWTExpires)
	if err != nil {
		logger.Fatal().Err(err).Msg("configure token service")
	}

	reconciler := auth.NewReconciler(identityRepo)
	authService := auth.NewService(provider, tokens, reconciler, cfg.DefaultCountryCode, logger)

	authHandler := handlers.NewAuthHandler(authService, logger)
	userHandler := handlers.NewUserHandler(identityRepo, logger)
	profileHandler := handlers.NewProfileHandler(profileRepo, logger)

	router := httpapi.NewRouter(authHandler, userHandler, profileHandler, tokens, identityRepo)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("forced shutdown")
	}

	logger.Info().Msg("server exited")
}

// buildProvider selects the verification gateway: Twilio Verify in
// production, the static fixed-code provider in OTP_DEV_MODE.
func buildProvider(cfg *config.Config, logger zerolog.Logger) verify.Provider {
	if cfg.OTPDevMode {
		logger.Warn().Msg("OTP_DEV_MODE enabled; accepting the static dev code only")
		return verify.NewStaticProvider("")
	}
	return verify.NewTwilioVerify(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioVerifySID, logger)
}

// runMigrations applies goose migrations from the repo-relative directory.
func runMigrations(database *sql.DB) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	migrationDir := "internal/db/migrations"
	if info, err := os.Stat(migrationDir); err != nil || !info.IsDir() {
		return fmt.Errorf("migrations directory %q not found (run from the repo root)", migrationDir)
	}

	if err := goose.Up(database, migrationDir); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}
