package database

import (
	"context"
	"fmt"
)

// Schema creates the tables this service owns. Orders themselves live in
// the storefront backend; only the attempt journal and admin accounts are
// kept here.
const Schema = `
CREATE TABLE IF NOT EXISTS admins (
    id              UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    email           TEXT NOT NULL UNIQUE,
    hashed_password TEXT NOT NULL,
    full_name       TEXT NOT NULL,
    role            TEXT NOT NULL CHECK (role IN ('ADMIN', 'STAFF')),
    is_active       BOOLEAN NOT NULL DEFAULT true,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS submissions (
    id               UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    kind             TEXT NOT NULL CHECK (kind IN ('ORDER', 'CUSTOM_ORDER')),
    status           TEXT NOT NULL CHECK (status IN ('SUCCEEDED', 'FAILED')),
    session_id       UUID,
    backend_order_id TEXT,
    customer_name    TEXT NOT NULL,
    email            TEXT NOT NULL,
    total            NUMERIC(12, 2),
    error_message    TEXT,
    payload          JSONB NOT NULL,
    created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS submissions_created_at_idx ON submissions (created_at DESC);
`

// EnsureSchema applies Schema. Every statement is idempotent.
func EnsureSchema(ctx context.Context, db DBTX) error {
	if _, err := db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
