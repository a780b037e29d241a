// Package dbconfig reads Postgres connection settings from DB_* environment
// variables and renders them as DSNs for the three consumers in this repo:
// the pgx pool behind the repositories, the lib/pq handle the outbox worker
// polls with, and golang-migrate.
package dbconfig

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

// Config holds Postgres connection settings.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string

	// Pool sizing applies only to the pgx pool; lib/pq and migrate open
	// their own short-lived connections.
	PoolMaxConns    int
	PoolMinConns    int
	ConnectTimeout  time.Duration
	MaxConnLifetime time.Duration
}

// NewConfigFromEnv reads DB_* environment variables (with defaults).
func NewConfigFromEnv() Config {
	return Config{
		Host:            envString("DB_HOST", "localhost"),
		Port:            envInt("DB_PORT", 5432),
		User:            envString("DB_USER", "postgres"),
		Password:        envString("DB_PASSWORD", "postgres"),
		Database:        envString("DB_NAME", "gavel"),
		SSLMode:         envString("DB_SSLMODE", "disable"),
		PoolMaxConns:    envInt("DB_POOL_MAX_CONNS", 10),
		PoolMinConns:    envInt("DB_POOL_MIN_CONNS", 0),
		ConnectTimeout:  time.Duration(envInt("DB_CONNECT_TIMEOUT_SECONDS", 5)) * time.Second,
		MaxConnLifetime: time.Duration(envInt("DB_CONN_LIFETIME_MINUTES", 60)) * time.Minute,
	}
}

// DSN returns the plain connection URL, understood by lib/pq and migrate.
func (c Config) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, url.QueryEscape(c.Password), c.Host, c.Port, c.Database, c.SSLMode,
	)
}

// PoolDSN returns the connection URL with the pgxpool sizing parameters
// appended. Only pgxpool.New understands these keys.
func (c Config) PoolDSN() string {
	return fmt.Sprintf(
		"%s&pool_max_conns=%d&pool_min_conns=%d&pool_max_conn_lifetime=%s&connect_timeout=%d",
		c.DSN(), c.PoolMaxConns, c.PoolMinConns, c.MaxConnLifetime, int(c.ConnectTimeout.Seconds()),
	)
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
