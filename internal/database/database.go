// Package database is the authoritative relational store. Every write that
// affects points goes through here; the analytics mirror is fed separately
// and is never read back for business decisions.
package database

import (
	"context"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
)

type Database struct {
	*sqlx.DB
}

var ErrNoRowsAffected = errors.New("no rows affected")

func Connect(uri string) (Database, error) {
	db, err := sqlx.Connect("postgres", uri)
	if err != nil {
		return Database{}, errors.Wrap(err, "error connecting to postgres")
	}
	return Database{DB: db}, nil
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL UNIQUE,
		password BYTEA NOT NULL,
		phone_number TEXT NOT NULL DEFAULT '',
		total_points INTEGER NOT NULL DEFAULT 0 CHECK (total_points >= 0),
		level TEXT NOT NULL DEFAULT 'Beginner',
		is_staff BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS devices (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
		device_id TEXT NOT NULL,
		fcm_token TEXT NOT NULL DEFAULT '',
		token_hash BYTEA,
		token_expiration TIMESTAMPTZ,
		last_seen TIMESTAMPTZ NOT NULL DEFAULT now(),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (user_id, device_id)
	)`,
	`CREATE TABLE IF NOT EXISTS waste_categories (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		category_type TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		points_per_item INTEGER NOT NULL DEFAULT 5 CHECK (points_per_item > 0),
		color_code TEXT NOT NULL DEFAULT '#000000',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS waste_items (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		category_id BIGINT NOT NULL REFERENCES waste_categories (id) ON DELETE CASCADE,
		typical_weight_grams INTEGER NOT NULL DEFAULT 100,
		description TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (name, category_id)
	)`,
	`CREATE TABLE IF NOT EXISTS waste_scans (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
		category_id BIGINT NOT NULL REFERENCES waste_categories (id),
		item_id BIGINT REFERENCES waste_items (id),
		quantity INTEGER NOT NULL CHECK (quantity >= 1),
		estimated_weight_grams INTEGER,
		points_awarded INTEGER NOT NULL DEFAULT 0,
		bonus_points INTEGER NOT NULL DEFAULT 0,
		description TEXT NOT NULL DEFAULT '',
		location TEXT NOT NULL DEFAULT '',
		ml_prediction TEXT NOT NULL DEFAULT '',
		ml_confidence DOUBLE PRECISION CHECK (ml_confidence >= 0.0 AND ml_confidence <= 1.0),
		is_verified BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS waste_scans_user_created_idx
		ON waste_scans (user_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
		title TEXT NOT NULL,
		message TEXT NOT NULL,
		notification_type TEXT NOT NULL DEFAULT 'info',
		is_read BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		read_at TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS system_notifications (
		id BIGSERIAL PRIMARY KEY,
		title TEXT NOT NULL,
		message TEXT NOT NULL,
		notification_type TEXT NOT NULL DEFAULT 'info',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		start_date TIMESTAMPTZ NOT NULL,
		end_date TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS collection_schedules (
		id BIGSERIAL PRIMARY KEY,
		area TEXT NOT NULL,
		category_id BIGINT NOT NULL REFERENCES waste_categories (id),
		collection_day TEXT NOT NULL,
		collection_time TEXT NOT NULL,
		frequency TEXT NOT NULL,
		driver_name TEXT NOT NULL DEFAULT '',
		driver_phone TEXT NOT NULL DEFAULT '',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

// Migrate creates the schema. Statements are idempotent so running it on
// every startup is safe.
func (db Database) Migrate(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "error executing schema statement:\n%s", stmt)
		}
	}
	return nil
}
