package testutil

import (
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/eta-consult/quote-api/internal/database"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB opens a private in-memory SQLite database with the submission schema
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "failed to open test database")
	require.NoError(t, database.AutoMigrate(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// SetupPostgresTestDB connects to the PostgreSQL instance named by the
// DATABASE_* variables. The test is skipped unless QUOTE_TEST_POSTGRES=1.
func SetupPostgresTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	if os.Getenv("QUOTE_TEST_POSTGRES") != "1" {
		t.Skip("set QUOTE_TEST_POSTGRES=1 to run against PostgreSQL")
	}

	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
		getEnvOrDefault("DATABASE_HOST", "localhost"),
		getEnvOrDefault("DATABASE_PORT", "5432"),
		getEnvOrDefault("DATABASE_USER", "quote_user"),
		getEnvOrDefault("DATABASE_PASSWORD", "quote_password"),
		getEnvOrDefault("DATABASE_NAME", "quotes"),
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "failed to connect to test database; ensure PostgreSQL is running")
	require.NoError(t, database.AutoMigrate(db))

	t.Cleanup(func() {
		db.Exec("DELETE FROM quote_submissions WHERE operator LIKE 'test-%'")
	})
	return db
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
