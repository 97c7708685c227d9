package database

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// WithSearchPath puts schema, then public, on the search path of every
// connection opened with the returned DSN. Both URL and key/value DSNs are
// accepted.
func WithSearchPath(dsn, schema string) (string, error) {
	searchPath := schema + ",public"
	if !strings.Contains(dsn, "://") {
		return strings.TrimSpace(dsn) + " search_path=" + searchPath, nil
	}

	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("failed to parse database url: %w", err)
	}
	q := u.Query()
	q.Set("search_path", searchPath)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Open connects to PostgreSQL with schema first on the search path.
func Open(dsn, schema string, cfg *gorm.Config) (*gorm.DB, error) {
	dsn, err := WithSearchPath(dsn, schema)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = &gorm.Config{}
	}

	db, err := gorm.Open(postgres.Open(dsn), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}
