// Package postgres is the durable World Store adapter (spec §4.2), a
// sqlx + lib/pq backed implementation of worldstore.Store grounded on the
// teacher's infrastructure/database/supabase_repository.go per-entity
// method/typed-error idiom. The teacher's own repository speaks Supabase's
// REST-over-HTTP wire format rather than SQL, since its backing store is a
// hosted Supabase project; this adapter keeps the teacher's shape — one
// exported method per entity operation, context-first signatures, sentinel
// NotFound mapping — but issues real SQL against a Postgres schema, since
// this spec has no REST backend to delegate to.
//
// Every mutating method reads and writes through s.ext rather than s.db
// directly, so the exact same method bodies run standalone or nested inside
// WithTxn: New binds ext to the *sqlx.DB, WithTxn rebinds it to a *sqlx.Tx
// for the lifetime of the callback.
package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	domainerrors "github.com/techmad220/hackerexperience-go/infrastructure/errors"
	"github.com/techmad220/hackerexperience-go/worldstore"
)

// Store is the sqlx-backed worldstore.Store implementation.
type Store struct {
	db  *sqlx.DB
	ext sqlx.ExtContext
}

// New wraps an already-open *sqlx.DB (callers open it against the "postgres"
// driver via sqlx.ConnectContext, mirroring the teacher's
// infrastructure/database.Open connectivity check).
func New(db *sqlx.DB) *Store {
	return &Store{db: db, ext: db}
}

var _ worldstore.Store = (*Store)(nil)

// WithTxn runs fn against a Store bound to a single Postgres transaction,
// committing on nil return and rolling back on error or panic (spec §4.2
// "with_txn(fn(&mut Txn) → R)").
func (s *Store) WithTxn(ctx context.Context, fn func(ctx context.Context, txn worldstore.Store) error) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return domainerrors.StoreError("begin_txn", err)
	}

	txnStore := &Store{db: s.db, ext: tx}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err = fn(ctx, txnStore); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err = tx.Commit(); err != nil {
		return domainerrors.StoreError("commit_txn", err)
	}
	return nil
}
