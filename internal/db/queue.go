package db

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

// InsertQueueItemParams are the caller-supplied fields of a new queue row.
// ID and RequestedAt are assigned by the statement.
type InsertQueueItemParams struct {
	ID          uuid.UUID
	Email       string
	Name        sql.NullString
	Template    string
	FromEmail   string
	RequestedBy string
}

const insertQueueItem = `
INSERT INTO queued_emails (id, email, name, template, from_email, requested_by)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, email, name, template, from_email, requested_by, requested_at
`

func (q *Queries) InsertQueueItem(ctx context.Context, p InsertQueueItemParams) (QueueItem, error) {
	row := q.db.QueryRowContext(ctx, insertQueueItem,
		p.ID, p.Email, p.Name, p.Template, p.FromEmail, p.RequestedBy)
	var item QueueItem
	err := row.Scan(&item.ID, &item.Email, &item.Name, &item.Template,
		&item.FromEmail, &item.RequestedBy, &item.RequestedAt)
	return item, err
}

const getQueueItem = `
SELECT id, email, name, template, from_email, requested_by, requested_at
FROM queued_emails
WHERE id = $1
`

func (q *Queries) GetQueueItem(ctx context.Context, id uuid.UUID) (QueueItem, error) {
	row := q.db.QueryRowContext(ctx, getQueueItem, id)
	var item QueueItem
	err := row.Scan(&item.ID, &item.Email, &item.Name, &item.Template,
		&item.FromEmail, &item.RequestedBy, &item.RequestedAt)
	return item, err
}

const deleteQueueItem = `
DELETE FROM queued_emails WHERE id = $1
`

// DeleteQueueItem removes a queue row. Deleting an id that no longer exists is
// not an error — review calls race each other legitimately.
func (q *Queries) DeleteQueueItem(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, deleteQueueItem, id)
	return err
}

// ListQueuedEmailsParams controls keyset pagination over queued_emails.
// Cursor is the id of the last item of the previous page; invalid (zero)
// Cursor means "first page".
type ListQueuedEmailsParams struct {
	Cursor uuid.NullUUID
	Limit  int32
}

const listQueuedEmailsFirst = `
SELECT id, email, name, template, from_email, requested_by, requested_at
FROM queued_emails
ORDER BY requested_at DESC, id DESC
LIMIT $1
`

const listQueuedEmailsAfter = `
SELECT id, email, name, template, from_email, requested_by, requested_at
FROM queued_emails
WHERE (requested_at, id) < (
    SELECT requested_at, id FROM queued_emails WHERE id = $2
)
ORDER BY requested_at DESC, id DESC
LIMIT $1
`

func (q *Queries) ListQueuedEmails(ctx context.Context, p ListQueuedEmailsParams) ([]QueueItem, error) {
	var rows *sql.Rows
	var err error
	if p.Cursor.Valid {
		rows, err = q.db.QueryContext(ctx, listQueuedEmailsAfter, p.Limit, p.Cursor.UUID)
	} else {
		rows, err = q.db.QueryContext(ctx, listQueuedEmailsFirst, p.Limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []QueueItem
	for rows.Next() {
		var item QueueItem
		if err := rows.Scan(&item.ID, &item.Email, &item.Name, &item.Template,
			&item.FromEmail, &item.RequestedBy, &item.RequestedAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
