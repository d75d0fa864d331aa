// Package db is the hand-written data layer for the dispatch backend. One
// method per SQL statement, attached to Queries; the Querier interface is what
// the rest of the codebase depends on so tests can substitute in-memory stubs.
//
// The schema lives in schema.sql next to this file. Apply it with psql before
// starting the server — there is no migration runner in this service.
package db

import (
	"context"
	"database/sql"
)

// DBTX is the subset of *sql.DB and *sql.Tx the queries need. Holding this
// interface (rather than *sql.DB) lets WithTx rebind the same Queries methods
// to a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queries executes all SQL statements against the bound DBTX.
type Queries struct {
	db DBTX
}

// New binds a Queries to a connection pool (or any DBTX).
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns a Queries bound to tx. All methods called on the result run
// inside that transaction.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}
