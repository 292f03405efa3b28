package pgstore

import (
	"context"
	"fmt"
)

// schema is applied by Migrate. Every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS invoices (
		id            TEXT PRIMARY KEY,
		order_number  BIGINT NOT NULL,
		supplier_type TEXT NOT NULL,
		path          TEXT NOT NULL DEFAULT '',
		CONSTRAINT uniq_order_number UNIQUE (order_number)
	)`,
	`CREATE TABLE IF NOT EXISTS invoice_line_items (
		invoice_id               TEXT NOT NULL REFERENCES invoices(id) ON DELETE CASCADE,
		position                 INTEGER NOT NULL,
		quantity                 BIGINT NOT NULL,
		part_number              TEXT NOT NULL,
		manufacturer_part_number TEXT NOT NULL DEFAULT '',
		description              TEXT NOT NULL DEFAULT '',
		customer_reference       TEXT NOT NULL DEFAULT '',
		unit_price               NUMERIC NOT NULL,
		backorder                BIGINT NOT NULL DEFAULT 0,
		PRIMARY KEY (invoice_id, position)
	)`,
	`CREATE TABLE IF NOT EXISTS part_numbers (
		id          TEXT PRIMARY KEY,
		owner_id    TEXT NOT NULL,
		category    SMALLINT NOT NULL CHECK (category BETWEEN 0 AND 99),
		subcategory SMALLINT NOT NULL CHECK (subcategory BETWEEN 0 AND 99),
		sequence    BIGINT NOT NULL,
		CONSTRAINT uniq_part_number_scope UNIQUE (owner_id, category, subcategory, sequence)
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id           TEXT PRIMARY KEY,
		name         TEXT NOT NULL DEFAULT '',
		parts        TEXT[] NOT NULL DEFAULT '{}',
		invoices     TEXT[] NOT NULL DEFAULT '{}',
		bins         TEXT[] NOT NULL DEFAULT '{}',
		part_numbers TEXT[] NOT NULL DEFAULT '{}'
	)`,
	`CREATE TABLE IF NOT EXISTS parts (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL DEFAULT '',
		part_number TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		quantity    BIGINT NOT NULL DEFAULT 0,
		bin_id      TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS bins (
		id       TEXT PRIMARY KEY,
		name     TEXT NOT NULL DEFAULT '',
		location TEXT NOT NULL DEFAULT ''
	)`,
}

// Migrate creates the tables and unique constraints if they are missing.
func (s *Store) Migrate(ctx context.Context) error {
	for i, stmt := range schema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i, err)
		}
	}
	return nil
}
