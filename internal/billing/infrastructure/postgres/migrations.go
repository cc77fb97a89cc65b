package postgres

import "context"

const schema = `
CREATE TABLE IF NOT EXISTS shops (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL DEFAULT '',
	parent_id  TEXT NULL REFERENCES shops (id),
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CHECK (parent_id IS NULL OR parent_id <> id)
);
CREATE INDEX IF NOT EXISTS shops_parent_idx ON shops (parent_id, created_at, id);

CREATE TABLE IF NOT EXISTS devices (
	id         TEXT PRIMARY KEY,
	shop_id    TEXT NOT NULL REFERENCES shops (id),
	name       TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS devices_shop_idx ON devices (shop_id, created_at, id);

CREATE TABLE IF NOT EXISTS bills (
	subject_id   TEXT NOT NULL,
	time_type    TEXT NOT NULL CHECK (time_type IN ('DAY', 'MONTH')),
	time_key     TEXT NOT NULL,
	period_start TIMESTAMPTZ NOT NULL,
	amount       BIGINT NOT NULL DEFAULT 0,
	txn_count    BIGINT NOT NULL DEFAULT 0 CHECK (txn_count >= 0),
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (subject_id, time_type, time_key)
);
CREATE INDEX IF NOT EXISTS bills_period_idx ON bills (time_type, period_start);
`

// Migrate creates the shop, device and bill tables when missing.
func (p *Pool) Migrate(ctx context.Context) error {
	return p.withConn(ctx, func(conn DBTX) error {
		_, err := conn.Exec(ctx, schema)
		return err
	})
}
