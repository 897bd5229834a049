package postgres

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Open abre una conexión pool a Postgres usando pgx (database/sql).
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}

	// defaults razonables (ajustable luego)
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// EnsureSchema crea las tablas si no existen. Suficiente para dev y deploys
// chicos; si el proyecto crece esto pasa a migraciones versionadas.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return err
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	email TEXT NOT NULL UNIQUE,
	phone TEXT NOT NULL DEFAULT '',
	password_hash TEXT NOT NULL,

	terms_accepted BOOLEAN NOT NULL DEFAULT FALSE,
	terms_version TEXT NOT NULL DEFAULT '',
	terms_accepted_at TIMESTAMPTZ,
	terms_ip TEXT NOT NULL DEFAULT '',
	terms_user_agent TEXT NOT NULL DEFAULT '',

	privacy_accepted BOOLEAN NOT NULL DEFAULT FALSE,
	privacy_version TEXT NOT NULL DEFAULT '',
	privacy_accepted_at TIMESTAMPTZ,
	privacy_ip TEXT NOT NULL DEFAULT '',
	privacy_user_agent TEXT NOT NULL DEFAULT '',

	marketing_accepted BOOLEAN NOT NULL DEFAULT FALSE,
	marketing_updated_at TIMESTAMPTZ,
	notifications_accepted BOOLEAN NOT NULL DEFAULT FALSE,
	notifications_updated_at TIMESTAMPTZ,

	cookies_functional BOOLEAN NOT NULL DEFAULT FALSE,
	cookies_analytics BOOLEAN NOT NULL DEFAULT FALSE,
	cookies_marketing BOOLEAN NOT NULL DEFAULT FALSE,
	cookies_updated_at TIMESTAMPTZ,

	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS pets (
	id TEXT PRIMARY KEY,
	owner_user_id TEXT NOT NULL REFERENCES users(id),
	name TEXT NOT NULL,
	type TEXT NOT NULL,
	breed TEXT NOT NULL DEFAULT '',
	age TEXT NOT NULL DEFAULT '',
	location TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	image TEXT NOT NULL DEFAULT '',
	image_public_id TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	urgent BOOLEAN NOT NULL DEFAULT FALSE,
	contact TEXT NOT NULL DEFAULT '',
	lat DOUBLE PRECISION NOT NULL DEFAULT 0,
	lng DOUBLE PRECISION NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	search_tsv tsvector GENERATED ALWAYS AS (
		setweight(to_tsvector('spanish', coalesce(name, '')), 'A') ||
		setweight(to_tsvector('spanish', coalesce(breed, '')), 'B') ||
		setweight(to_tsvector('spanish', coalesce(location, '')), 'C') ||
		setweight(to_tsvector('spanish', coalesce(description, '')), 'D')
	) STORED
);

CREATE INDEX IF NOT EXISTS idx_pets_search_tsv ON pets USING GIN (search_tsv);
CREATE INDEX IF NOT EXISTS idx_pets_status ON pets (status);
CREATE INDEX IF NOT EXISTS idx_pets_owner ON pets (owner_user_id);
CREATE INDEX IF NOT EXISTS idx_pets_created_at ON pets (created_at DESC);
`
