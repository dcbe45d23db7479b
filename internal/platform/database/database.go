// Package database opens the optional PostgreSQL pool used by readiness checks.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver

	"github.com/janisto/analytics-status/internal/config"
)

const driverName = "pgx"

// connectTimeout bounds the initial ping in Open.
const connectTimeout = 5 * time.Second

// ErrNotConfigured is returned by Open when no connection settings are present.
var ErrNotConfigured = errors.New("database not configured")

var sqlOpen = sql.Open

// DSN returns the connection string for c. DATABASE_URL wins over the
// individual DB_* parts.
func DSN(c config.DatabaseConfig) (string, error) {
	if c.URL != "" {
		return c.URL, nil
	}
	if c.Host == "" || c.Port == "" || c.User == "" || c.Name == "" {
		return "", fmt.Errorf("invalid database config: host, port, user and name are required")
	}

	u := &url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(c.Host, c.Port),
		Path:   c.Name,
	}
	if c.Password != "" {
		u.User = url.UserPassword(c.User, c.Password)
	} else {
		u.User = url.User(c.User)
	}
	if c.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", c.SSLMode)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// Open creates a pooled handle and verifies connectivity. The caller owns the
// returned *sql.DB and must Close it.
func Open(ctx context.Context, c config.DatabaseConfig) (*sql.DB, error) {
	if !c.Enabled() {
		return nil, ErrNotConfigured
	}
	dsn, err := DSN(c)
	if err != nil {
		return nil, err
	}

	db, err := sqlOpen(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	if c.MaxOpenConns > 0 {
		db.SetMaxOpenConns(c.MaxOpenConns)
	}
	if c.MaxIdleConns > 0 {
		db.SetMaxIdleConns(c.MaxIdleConns)
	}
	if c.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(c.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}
