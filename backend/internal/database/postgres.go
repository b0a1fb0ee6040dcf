package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/user/nftmarket/backend/internal/config"
	"github.com/user/nftmarket/backend/internal/logger"
)

// Connect opens a connection pool, pings it and applies the schema.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid database url: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Info("connected to database",
		zap.String("host", poolCfg.ConnConfig.Host),
		zap.String("database", poolCfg.ConnConfig.Database))
	return pool, nil
}

// Migrate creates the tables if they do not exist yet.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("error applying schema: %w", err)
	}
	return nil
}

// market_events is the source of truth; assets, listings and balances are
// projections kept in step inside the same transaction.
const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	username      TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS market_events (
	seq        BIGSERIAL PRIMARY KEY,
	type       TEXT NOT NULL,
	asset_id   BIGINT NOT NULL,
	listing_id BIGINT NOT NULL DEFAULT 0,
	actor      TEXT NOT NULL,
	uri        TEXT NOT NULL DEFAULT '',
	amount     BIGINT NOT NULL DEFAULT 0,
	price      BIGINT NOT NULL DEFAULT 0,
	ts         TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS assets (
	asset_id  BIGINT PRIMARY KEY,
	owner     TEXT NOT NULL,
	uri       TEXT NOT NULL,
	minted_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS listings (
	listing_id BIGINT PRIMARY KEY,
	asset_id   BIGINT NOT NULL REFERENCES assets (asset_id),
	seller     TEXT NOT NULL,
	holder     TEXT NOT NULL,
	price      BIGINT NOT NULL CHECK (price >= 0),
	sold       BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL,
	sold_at    TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS balances (
	principal  TEXT PRIMARY KEY,
	amount     BIGINT NOT NULL DEFAULT 0,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`
