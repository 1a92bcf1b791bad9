// Package testdb locates the PostgreSQL database used by integration tests.
//
// Tests call RequireDatabaseURL, which skips the test when no database is
// configured, so `go test -tags=integration ./...` still passes on machines
// without PostgreSQL unless running in CI.
package testdb

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/phrazzld/studio-api/internal/redact"
)

// Environment variables checked for a database URL, in order.
const (
	EnvTestDBURL   = "STUDIO_TEST_DB_URL"
	EnvDatabaseURL = "DATABASE_URL"
)

// CI environment detection variables
var ciEnvVars = []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "CIRCLECI"}

// IsCI reports whether the tests run under a CI provider.
func IsCI() bool {
	for _, name := range ciEnvVars {
		if os.Getenv(name) != "" {
			return true
		}
	}
	return false
}

// GetTestDatabaseURL returns the first configured database URL, or "".
func GetTestDatabaseURL() string {
	for _, name := range []string{EnvTestDBURL, EnvDatabaseURL} {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

// RequireDatabaseURL returns the test database URL. Without one the test is
// skipped, except in CI where a missing database is a failure.
func RequireDatabaseURL(t *testing.T) string {
	t.Helper()
	dsn := GetTestDatabaseURL()
	if dsn != "" {
		t.Logf("using test database %s", redact.String(dsn))
		return dsn
	}
	if IsCI() {
		t.Fatalf("%s or %s must be set in CI", EnvTestDBURL, EnvDatabaseURL)
	}
	t.Skipf("%s not set", EnvTestDBURL)
	return ""
}

// WithTx runs fn in a transaction that is always rolled back, so tests leave
// no rows behind.
func WithTx(t *testing.T, db *sql.DB, fn func(t *testing.T, tx *sql.Tx)) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("failed to begin transaction: %v", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			t.Logf("failed to roll back transaction: %v", err)
		}
	}()

	fn(t, tx)
}
