package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"spotbooker/internal/config"
	"spotbooker/internal/storage"
)

type Storage struct {
	DB          *sql.DB
	lockTimeout time.Duration
}

const schema = `
CREATE TABLE IF NOT EXISTS events (
	id               BIGSERIAL PRIMARY KEY,
	title            TEXT        NOT NULL,
	date             TIMESTAMPTZ NOT NULL,
	price            BIGINT      NOT NULL DEFAULT 0 CHECK (price >= 0),
	capacity         INT         NOT NULL CHECK (capacity >= 0),
	available_spots  INT         NOT NULL,
	deadline_minutes INT         NOT NULL DEFAULT 0 CHECK (deadline_minutes >= 0),
	CONSTRAINT events_spots_within_capacity
		CHECK (available_spots >= 0 AND available_spots <= capacity)
);

CREATE TABLE IF NOT EXISTS bookings (
	id          BIGSERIAL PRIMARY KEY,
	reference   UUID        NOT NULL UNIQUE,
	event_id    BIGINT      NOT NULL REFERENCES events (id),
	user_id     TEXT        NOT NULL,
	attendees   INT         NOT NULL CHECK (attendees >= 1),
	status      TEXT        NOT NULL,
	total_price BIGINT      NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS bookings_live_user_event
	ON bookings (event_id, user_id) WHERE status <> 'cancelled';

CREATE INDEX IF NOT EXISTS bookings_event_status
	ON bookings (event_id, status);
`

func InitDB(dbCfg *config.Database) (*Storage, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		dbCfg.Host,
		dbCfg.Port,
		dbCfg.User,
		dbCfg.Password,
		dbCfg.DBName,
		dbCfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to the database: %w", err)
	}

	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to the database: %w", err)
	}

	if _, err = db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Storage{DB: db, lockTimeout: dbCfg.LockTimeout}, nil
}

func (s *Storage) Close() error {
	return s.DB.Close()
}

// begin opens a transaction and bounds the wait on row locks so that
// contention on a hot event row surfaces as storage.ErrLockTimeout
// instead of hanging the request.
func (s *Storage) begin(ctx context.Context) (*sql.Tx, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	if s.lockTimeout > 0 {
		_, err = tx.ExecContext(ctx,
			fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.lockTimeout.Milliseconds()))
		if err != nil {
			_ = tx.Rollback()
			return nil, fmt.Errorf("failed to set lock timeout: %w", err)
		}
	}

	return tx, nil
}

const (
	pgUniqueViolation = "23505"
	pgCheckViolation  = "23514"
	pgLockNotAvail    = "55P03"
)

// mapPQError translates the Postgres error codes this package relies on
// into the storage error taxonomy. Anything else passes through wrapped
// by the caller.
func mapPQError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}

	switch pqErr.Code {
	case pgUniqueViolation:
		return storage.ErrDuplicateBooking
	case pgCheckViolation:
		// The spots-within-capacity constraint is the last line of
		// defence; transactional logic should reject first.
		return storage.ErrCapacityExceeded
	case pgLockNotAvail:
		return storage.ErrLockTimeout
	}

	return err
}
