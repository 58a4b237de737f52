package db

import (
	"context"
	"database/sql"
)

const credentialMigration = `
CREATE TABLE IF NOT EXISTS user_credentials (
    subject text PRIMARY KEY,
    display_name text NOT NULL DEFAULT '',
    role text NOT NULL DEFAULT 'student',
    email text NOT NULL DEFAULT '',
    access_token text,
    refresh_token text,
    token_expiry timestamptz,
    metadata jsonb NOT NULL DEFAULT '{}'::jsonb,
    created_at timestamptz NOT NULL DEFAULT NOW(),
    updated_at timestamptz NOT NULL DEFAULT NOW()
);
`

// RunCredentialMigration creates the durable credential table. Pending
// registrations and sessions live in redis and need no schema.
func RunCredentialMigration(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, credentialMigration)
	return err
}
