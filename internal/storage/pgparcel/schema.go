package pgparcel

import (
	"context"

	"github.com/pkg/errors"
)

func (s *Storage) initSchema(ctx context.Context) error {
	stmts := []string{
		`
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  role TEXT NOT NULL DEFAULT 'user',
  created_at TIMESTAMPTZ NOT NULL,
  last_log_in TIMESTAMPTZ NULL,
  role_updated_at TIMESTAMPTZ NULL
)`,
		`ALTER TABLE users ADD COLUMN IF NOT EXISTS role_updated_at TIMESTAMPTZ NULL`,
		`
CREATE TABLE IF NOT EXISTS riders (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL,
  name TEXT NOT NULL,
  contact TEXT NOT NULL DEFAULT '',
  region TEXT NOT NULL DEFAULT '',
  district TEXT NOT NULL DEFAULT '',
  age INT NOT NULL DEFAULT 0,
  nid TEXT NOT NULL DEFAULT '',
  bike_brand TEXT NOT NULL DEFAULT '',
  bike_registration TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL,
  updated_at TIMESTAMPTZ NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_riders_status ON riders(status)`,
		`CREATE INDEX IF NOT EXISTS idx_riders_email ON riders(email)`,
		// The rider snapshot is an owned copy: JSONB, not a reference to riders.
		`
CREATE TABLE IF NOT EXISTS parcels (
  id TEXT PRIMARY KEY,
  tracking_id TEXT NOT NULL,
  created_by TEXT NOT NULL,
  cost DOUBLE PRECISION NOT NULL DEFAULT 0,
  payment_status TEXT NOT NULL,
  delivery_status TEXT NOT NULL,
  assigned_rider JSONB NULL,
  details JSONB NOT NULL DEFAULT '{}'::jsonb,
  creation_date TIMESTAMPTZ NOT NULL,
  updated_at TIMESTAMPTZ NULL,
  CONSTRAINT parcels_rider_matches_status
    CHECK ((assigned_rider IS NULL) = (delivery_status = 'not_collected'))
)`,
		`CREATE INDEX IF NOT EXISTS idx_parcels_created_by ON parcels(created_by, creation_date DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_parcels_rider_email ON parcels((assigned_rider->>'email'))`,
		`
CREATE TABLE IF NOT EXISTS payments (
  id TEXT PRIMARY KEY,
  parcel_id TEXT NOT NULL,
  email TEXT NOT NULL,
  amount DOUBLE PRECISION NOT NULL,
  transaction_id TEXT NOT NULL DEFAULT '',
  method TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL,
  paid_at TIMESTAMPTZ NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_payments_email ON payments(email, paid_at DESC)`,
		`
CREATE TABLE IF NOT EXISTS tracking_events (
  id TEXT PRIMARY KEY,
  parcel_id TEXT NOT NULL,
  tracking_id TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL,
  message TEXT NOT NULL DEFAULT '',
  updated_by TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMPTZ NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_tracking_events_parcel ON tracking_events(parcel_id, created_at)`,
	}

	for _, q := range stmts {
		if _, err := s.db.Exec(ctx, q); err != nil {
			return errors.Wrap(err, "init schema")
		}
	}
	return nil
}
