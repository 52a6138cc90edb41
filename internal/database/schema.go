package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema is the DDL for the order, delivery and messaging tables. Every
// statement is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS orders (
	id               UUID PRIMARY KEY,
	customer_id      UUID,
	customer_name    TEXT NOT NULL DEFAULT '',
	customer_email   TEXT NOT NULL DEFAULT '',
	customer_phone   TEXT NOT NULL DEFAULT '',
	items            JSONB NOT NULL,
	total            NUMERIC(12,2) NOT NULL CHECK (total >= 0),
	order_type       TEXT NOT NULL CHECK (order_type IN ('delivery', 'pickup', 'dine_in')),
	delivery_address TEXT,
	payment_method   TEXT NOT NULL DEFAULT '',
	payment_status   TEXT NOT NULL CHECK (payment_status IN ('pending', 'paid')),
	status           TEXT NOT NULL CHECK (status IN ('pending', 'preparing', 'ready', 'delivering', 'delivered', 'cancelled')),
	special_requests TEXT,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CHECK ((order_type = 'delivery') = (delivery_address IS NOT NULL))
);
CREATE INDEX IF NOT EXISTS idx_orders_customer ON orders(customer_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at DESC);

CREATE TABLE IF NOT EXISTS drivers (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	phone        TEXT NOT NULL DEFAULT '',
	status       TEXT NOT NULL CHECK (status IN ('available', 'delivering', 'offline')),
	vehicle_type TEXT NOT NULL DEFAULT '',
	rating       DOUBLE PRECISION NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS delivery_assignments (
	id           UUID PRIMARY KEY,
	order_id     UUID NOT NULL UNIQUE REFERENCES orders(id) ON DELETE CASCADE,
	driver_id    TEXT NOT NULL REFERENCES drivers(id),
	driver_name  TEXT NOT NULL,
	status       TEXT NOT NULL CHECK (status IN ('assigned', 'picked_up', 'delivered')),
	assigned_at  TIMESTAMPTZ NOT NULL,
	delivered_at TIMESTAMPTZ,
	CHECK ((status = 'delivered') = (delivered_at IS NOT NULL))
);
CREATE INDEX IF NOT EXISTS idx_assignments_driver ON delivery_assignments(driver_id);

CREATE TABLE IF NOT EXISTS order_messages (
	id          UUID PRIMARY KEY,
	order_id    UUID NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
	sender_id   UUID NOT NULL,
	sender_role TEXT NOT NULL CHECK (sender_role IN ('admin', 'staff', 'customer')),
	message     TEXT NOT NULL CHECK (length(btrim(message)) > 0),
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_order_messages_order ON order_messages(order_id, created_at);
`

// EnsureSchema creates any missing tables and indexes.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply database schema: %w", err)
	}
	return nil
}
