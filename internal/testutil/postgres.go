// Package testutil opens throwaway PostgreSQL schemas for database-backed
// tests.
package testutil

import (
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/npmcdn-to-unpkg-bot/mircs-geogenealogy/internal/database"
)

const databaseURLEnv = "TEST_DATABASE_URL"

// Postgres connects to TEST_DATABASE_URL with a fresh schema first on the
// search path and drops the schema when the test ends. The test is skipped
// when the variable is unset. PostGIS must be installed in the database.
func Postgres(t *testing.T) (*gorm.DB, string) {
	t.Helper()

	dsn := os.Getenv(databaseURLEnv)
	if dsn == "" {
		t.Skipf("%s not set", databaseURLEnv)
	}

	schema := "test_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}

	db, err := database.Open(dsn, schema, cfg)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.Exec("CREATE SCHEMA " + pq.QuoteIdentifier(schema)).Error; err != nil {
		t.Fatalf("failed to create schema %s: %v", schema, err)
	}

	t.Cleanup(func() {
		db.Exec("DROP SCHEMA " + pq.QuoteIdentifier(schema) + " CASCADE")
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db, schema
}
