package tests

import (
	"context"
	"database/sql"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pressly/goose/v3"

	"github.com/brahmamatch/server/internal/auth"
	httpapi "github.com/brahmamatch/server/internal/http"
	"github.com/brahmamatch/server/internal/http/handlers"
	"github.com/brahmamatch/server/internal/logging"
	"github.com/brahmamatch/server/internal/repo"
	"github.com/brahmamatch/server/internal/verify"
)

// TestServer hosts the full router over in-memory stores and the static
// verification provider, so the complete flow runs without Postgres or
// Twilio.
type TestServer struct {
	Server     *httptest.Server
	Identities repo.IdentityRepo
	Profiles   repo.ProfileRepo
	Tokens     *auth.TokenService
}

func newTestServer(t *testing.T) *TestServer {
	t.Helper()

	identities := repo.NewMemoryIdentityRepo()
	profiles := repo.NewMemoryProfileRepo()
	logger := logging.Discard()

	tokens, err := auth.NewTokenService("e2e-test-secret", time.Hour)
	if err != nil {
		t.Fatalf("token service: %v", err)
	}

	provider := verify.NewStaticProvider("")
	reconciler := auth.NewReconciler(identities)
	service := auth.NewService(provider, tokens, reconciler, "+91", logger)

	router := httpapi.NewRouter(
		handlers.NewAuthHandler(service, logger),
		handlers.NewUserHandler(identities, logger),
		handlers.NewProfileHandler(profiles, logger),
		tokens,
		identities,
	)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &TestServer{
		Server:     srv,
		Identities: identities,
		Profiles:   profiles,
		Tokens:     tokens,
	}
}

// BaseURL returns the test server's base URL.
func (ts *TestServer) BaseURL() string {
	return ts.Server.URL
}

// Postgres integration helpers, used by the DATABASE_URL-gated tests.

// ResolveMigrationDir returns the first existing migrations directory,
// whether tests run from the package dir or the repo root.
func ResolveMigrationDir() string {
	for _, dir := range []string{"../db/migrations", "internal/db/migrations"} {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			abs, _ := filepath.Abs(dir)
			return abs
		}
	}
	return ""
}

// RunMigrations runs goose Up against the resolved migration directory.
func RunMigrations(db *sql.DB) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}
	dir := ResolveMigrationDir()
	if dir == "" {
		return fmt.Errorf("migrations directory not found")
	}
	if err := goose.Up(db, dir); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// TruncateAll clears both tables for a clean test state.
func TruncateAll(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, "TRUNCATE TABLE identities, profiles")
	if err != nil {
		return fmt.Errorf("truncate tables: %w", err)
	}
	return nil
}
