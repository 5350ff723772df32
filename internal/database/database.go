package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect opens a pgx connection pool using the provided DSN and verifies it
// with a ping.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.MaxConns = 8
	cfg.MaxConnIdleTime = 5 * time.Minute
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// Schema is the DDL applied by EnsureSchema. Timelines live inside the parcel
// row as a JSONB array so a parcel is written as one document. seq records
// insertion order and breaks created_at ties.
const Schema = `
CREATE TABLE IF NOT EXISTS admins (
	id TEXT PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	role TEXT NOT NULL DEFAULT 'admin' CHECK (role IN ('admin','superadmin')),
	created_by TEXT,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS parcels (
	id TEXT PRIMARY KEY,
	sender TEXT NOT NULL,
	receiver TEXT NOT NULL,
	contact TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	origin TEXT NOT NULL,
	destination TEXT NOT NULL,
	status TEXT NOT NULL,
	estimated_delivery TEXT NOT NULL DEFAULT '',
	state TEXT NOT NULL DEFAULT 'active' CHECK (state IN ('active','paused')),
	pause_message TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	created_by TEXT,
	timeline JSONB NOT NULL DEFAULT '[]'::jsonb,
	seq BIGSERIAL
);
ALTER TABLE parcels ADD COLUMN IF NOT EXISTS seq BIGSERIAL;
CREATE INDEX IF NOT EXISTS idx_parcels_owner_order ON parcels(created_by, created_at DESC, seq DESC);
CREATE TABLE IF NOT EXISTS messages (
	id TEXT PRIMARY KEY,
	parcel_id TEXT NOT NULL,
	sender TEXT NOT NULL,
	admin_id TEXT,
	content TEXT NOT NULL,
	read BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL,
	seq BIGSERIAL
);
ALTER TABLE messages ADD COLUMN IF NOT EXISTS seq BIGSERIAL;
CREATE INDEX IF NOT EXISTS idx_messages_parcel_seq ON messages(parcel_id, seq);`

// EnsureSchema creates the tables if needed. Keeping the migration in code lets
// the server and the CLI bootstrap an empty database.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
