// Package postgres implements ports.Store on PostgreSQL through a pgx pool.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"bloodlink/internal/domain"
	"bloodlink/internal/ports"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type DB struct {
	Pool *pgxpool.Pool
	q    querier
	inTx bool
}

var _ ports.Store = (*DB)(nil)

func Connect(ctx context.Context, url string) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, err
	}
	cfg.MaxConns = 10
	cfg.HealthCheckPeriod = 30 * time.Second
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return New(pool), nil
}

func New(pool *pgxpool.Pool) *DB {
	return &DB{Pool: pool, q: pool}
}

func (db *DB) Close() { db.Pool.Close() }

func (db *DB) Ping(ctx context.Context) error { return db.Pool.Ping(ctx) }

func (db *DB) InTx(ctx context.Context, fn func(tx ports.Store) error) error {
	return db.withTx(ctx, func(tx *DB) error { return fn(tx) })
}

// withTx commits when fn succeeds and rolls back otherwise. Calls made on a
// transactional DB join the running transaction.
func (db *DB) withTx(ctx context.Context, fn func(tx *DB) error) (err error) {
	if db.inTx {
		return fn(db)
	}
	tx, err := db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()
	return fn(&DB{Pool: db.Pool, q: tx, inTx: true})
}

type scanner interface {
	Scan(dest ...any) error
}

// uniqueMessages maps unique constraints to the message shown to clients.
var uniqueMessages = map[string]string{
	"identities_email_key":                "user with this email already exists",
	"blood_banks_pkey":                    "blood bank already exists",
	"blood_banks_registration_number_key": "blood bank with this registration number already exists",
	"hospitals_pkey":                      "hospital already exists",
	"hospitals_email_key":                 "hospital with this email already exists",
	"hospitals_registration_number_key":   "hospital with this registration number already exists",
	"donors_phone_key":                    "this phone is already registered",
	"donors_email_key":                    "this email is already registered",
}

// mapErr converts driver errors into domain kinds. notFound is the message
// used when no row matched.
func mapErr(err error, notFound string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.NotFoundf("%s", notFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			if msg, ok := uniqueMessages[pgErr.ConstraintName]; ok {
				return domain.Conflictf("%s", msg)
			}
			return domain.Conflictf("record already exists")
		case "23503":
			return domain.NotFoundf("referenced record not found")
		case "23514":
			return domain.Validationf("value out of range")
		case "22P02":
			return domain.NotFoundf("%s", notFound)
		}
	}
	return err
}

// validID rejects ids that cannot be a uuid so lookups report NotFound
// instead of an encode error.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func newID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
