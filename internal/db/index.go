package db

import (
	"context"
	"database/sql"
)

const getIdentityEntry = `
SELECT email_key, email, status, source, error, last_updated
FROM email_index
WHERE email_key = $1
`

// GetIdentityEntry is the dedup lookup: a direct keyed fetch on the content
// hash of the normalized address. sql.ErrNoRows means the address has never
// been touched.
func (q *Queries) GetIdentityEntry(ctx context.Context, emailKey string) (IdentityEntry, error) {
	row := q.db.QueryRowContext(ctx, getIdentityEntry, emailKey)
	var e IdentityEntry
	err := row.Scan(&e.EmailKey, &e.Email, &e.Status, &e.Source, &e.Error, &e.LastUpdated)
	return e, err
}

// InsertIdentityEntryIfAbsentParams seeds a brand-new index entry.
type InsertIdentityEntryIfAbsentParams struct {
	EmailKey string
	Email    string
	Status   EmailStatus
	Source   string
}

const insertIdentityEntryIfAbsent = `
INSERT INTO email_index (email_key, email, status, source, last_updated)
VALUES ($1, $2, $3, $4, now())
ON CONFLICT (email_key) DO NOTHING
RETURNING email_key, email, status, source, error, last_updated
`

// InsertIdentityEntryIfAbsent is the conditional create that collapses
// check-then-act dedup into a single atomic operation. When the key already
// exists Postgres returns zero rows, which surfaces as sql.ErrNoRows — the
// caller treats that as the dedup signal, not an error.
func (q *Queries) InsertIdentityEntryIfAbsent(ctx context.Context, p InsertIdentityEntryIfAbsentParams) (IdentityEntry, error) {
	row := q.db.QueryRowContext(ctx, insertIdentityEntryIfAbsent,
		p.EmailKey, p.Email, p.Status, p.Source)
	var e IdentityEntry
	err := row.Scan(&e.EmailKey, &e.Email, &e.Status, &e.Source, &e.Error, &e.LastUpdated)
	return e, err
}

// UpsertIdentityStatusParams carries a status transition for an address.
// Error is set only for failed sends.
type UpsertIdentityStatusParams struct {
	EmailKey string
	Email    string
	Status   EmailStatus
	Source   string
	Error    sql.NullString
}

const upsertIdentityStatus = `
INSERT INTO email_index (email_key, email, status, source, error, last_updated)
VALUES ($1, $2, $3, $4, $5, now())
ON CONFLICT (email_key) DO UPDATE
SET status = EXCLUDED.status,
    source = EXCLUDED.source,
    error = EXCLUDED.error,
    last_updated = EXCLUDED.last_updated
RETURNING email_key, email, status, source, error, last_updated
`

// UpsertIdentityStatus merge-writes the status fields of an index entry. Only
// {status, source, error, last_updated} are touched on conflict so unrelated
// fields survive; the entry itself is never deleted by this service.
func (q *Queries) UpsertIdentityStatus(ctx context.Context, p UpsertIdentityStatusParams) (IdentityEntry, error) {
	row := q.db.QueryRowContext(ctx, upsertIdentityStatus,
		p.EmailKey, p.Email, p.Status, p.Source, p.Error)
	var e IdentityEntry
	err := row.Scan(&e.EmailKey, &e.Email, &e.Status, &e.Source, &e.Error, &e.LastUpdated)
	return e, err
}
