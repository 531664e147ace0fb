package pgparcel

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

// Storage is the Postgres-backed store for users, riders, parcels, payments
// and tracking events. Every mutation is a single-row statement; nothing here
// spans rows in a transaction.
type Storage struct {
	db  *pgxpool.Pool
	now func() time.Time
}

func New(connString string) (*Storage, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, errors.Wrap(err, "parse pg config")
	}

	db, err := pgxpool.NewWithConfig(context.Background(), cfg)
	if err != nil {
		return nil, errors.Wrap(err, "connect pg")
	}

	s := &Storage{db: db, now: func() time.Time { return time.Now().UTC() }}
	if err := s.initSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Storage) Ping(ctx context.Context) error {
	return errors.Wrap(s.db.Ping(ctx), "ping pg")
}

func (s *Storage) Close() {
	if s.db != nil {
		s.db.Close()
	}
}

type scanner interface {
	Scan(dest ...any) error
}
