package db

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

// InsertSentEmailParams carries the queue item fields plus the dispatch
// result. ID is minted by the caller before the send so the provider can
// round-trip it in callback events.
type InsertSentEmailParams struct {
	ID          uuid.UUID
	Email       string
	Name        sql.NullString
	Template    string
	FromEmail   string
	RequestedBy string
	Status      EmailStatus
	RequestID   string
}

const insertSentEmail = `
INSERT INTO sent_emails (id, email, name, template, from_email, requested_by, status, request_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id, email, name, template, from_email, requested_by, status, request_id, sent_at, last_event
`

func (q *Queries) InsertSentEmail(ctx context.Context, p InsertSentEmailParams) (SentEmail, error) {
	row := q.db.QueryRowContext(ctx, insertSentEmail,
		p.ID, p.Email, p.Name, p.Template, p.FromEmail, p.RequestedBy, p.Status, p.RequestID)
	var s SentEmail
	err := row.Scan(&s.ID, &s.Email, &s.Name, &s.Template, &s.FromEmail,
		&s.RequestedBy, &s.Status, &s.RequestID, &s.SentAt, &s.LastEvent)
	return s, err
}

const getSentEmail = `
SELECT id, email, name, template, from_email, requested_by, status, request_id, sent_at, last_event
FROM sent_emails
WHERE id = $1
`

func (q *Queries) GetSentEmail(ctx context.Context, id uuid.UUID) (SentEmail, error) {
	row := q.db.QueryRowContext(ctx, getSentEmail, id)
	var s SentEmail
	err := row.Scan(&s.ID, &s.Email, &s.Name, &s.Template, &s.FromEmail,
		&s.RequestedBy, &s.Status, &s.RequestID, &s.SentAt, &s.LastEvent)
	return s, err
}

// InsertSentEmailRefParams mirrors the lightweight per-identity pointer.
// ID must equal the global sent_emails row's ID.
type InsertSentEmailRefParams struct {
	ID          uuid.UUID
	RequestedBy string
	Status      EmailStatus
	RequestID   string
}

const insertSentEmailRef = `
INSERT INTO sent_email_refs (id, requested_by, status, request_id)
VALUES ($1, $2, $3, $4)
RETURNING id, requested_by, status, request_id, sent_at
`

func (q *Queries) InsertSentEmailRef(ctx context.Context, p InsertSentEmailRefParams) (SentEmailRef, error) {
	row := q.db.QueryRowContext(ctx, insertSentEmailRef,
		p.ID, p.RequestedBy, p.Status, p.RequestID)
	var ref SentEmailRef
	err := row.Scan(&ref.ID, &ref.RequestedBy, &ref.Status, &ref.RequestID, &ref.SentAt)
	return ref, err
}

const listSentEmailRefs = `
SELECT id, requested_by, status, request_id, sent_at
FROM sent_email_refs
WHERE requested_by = $1
ORDER BY sent_at DESC
LIMIT $2
`

// ListSentEmailRefs serves "my sent emails" without scanning the global
// collection.
func (q *Queries) ListSentEmailRefs(ctx context.Context, requestedBy string, limit int32) ([]SentEmailRef, error) {
	rows, err := q.db.QueryContext(ctx, listSentEmailRefs, requestedBy, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refs []SentEmailRef
	for rows.Next() {
		var ref SentEmailRef
		if err := rows.Scan(&ref.ID, &ref.RequestedBy, &ref.Status, &ref.RequestID, &ref.SentAt); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

// UpdateSentEmailStatusParams is the status callback write: status refinement
// plus the raw event payload for audit.
type UpdateSentEmailStatusParams struct {
	ID        uuid.UUID
	Status    EmailStatus
	LastEvent pqtype.NullRawMessage
}

const updateSentEmailStatus = `
UPDATE sent_emails
SET status = $2, last_event = $3
WHERE id = $1
RETURNING id, email, name, template, from_email, requested_by, status, request_id, sent_at, last_event
`

// UpdateSentEmailStatus refines the delivery status of an existing sent
// record. An unknown id returns sql.ErrNoRows — the record is never created
// here.
func (q *Queries) UpdateSentEmailStatus(ctx context.Context, p UpdateSentEmailStatusParams) (SentEmail, error) {
	row := q.db.QueryRowContext(ctx, updateSentEmailStatus, p.ID, p.Status, p.LastEvent)
	var s SentEmail
	err := row.Scan(&s.ID, &s.Email, &s.Name, &s.Template, &s.FromEmail,
		&s.RequestedBy, &s.Status, &s.RequestID, &s.SentAt, &s.LastEvent)
	return s, err
}
