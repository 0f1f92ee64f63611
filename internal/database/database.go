package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	"tit-pharmacy/internal/config"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// DSN builds the connection string for cfg
func DSN(cfg config.DatabaseConfig) string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     cfg.Host + ":" + cfg.Port,
		Path:     "/" + cfg.Database,
		RawQuery: "sslmode=disable&search_path=" + url.QueryEscape(cfg.Schema),
	}
	return u.String()
}

// Open connects through the pgx stdlib driver and verifies the connection
func Open(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("pgx", DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}
