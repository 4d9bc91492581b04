package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS passes (
	token          TEXT PRIMARY KEY,
	direction      TEXT NOT NULL,
	depart_used_at TIMESTAMPTZ,
	return_used_at TIMESTAMPTZ,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS scans (
	id         BIGSERIAL PRIMARY KEY,
	token      TEXT NOT NULL,
	scan_type  TEXT NOT NULL,
	result     TEXT NOT NULL,
	message    TEXT NOT NULL,
	device_id  TEXT NOT NULL DEFAULT '',
	scanned_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS scans_token_idx ON scans (token);
CREATE INDEX IF NOT EXISTS scans_scanned_at_idx ON scans (scanned_at);
`

// EnsureSchema creates the ledger tables on startup so a fresh gate box
// comes up without a separate migration step.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := pool.Exec(ctx, schema)
	return err
}
