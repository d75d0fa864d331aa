package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/sablemail/dispatch-backend/internal/db"
)

// ─── INPUT TYPES ─────────────────────────────────────────────────────────────

// OutcomeKind is the locally-decided fate of one reviewed queue item.
type OutcomeKind string

const (
	OutcomeSent     OutcomeKind = "sent"
	OutcomeRejected OutcomeKind = "rejected"
	OutcomeFailed   OutcomeKind = "failed"
)

// ReviewOutcome is one queue item's resolution, computed by the dispatch
// engine before the commit. For OutcomeSent, SentID is the record id that was
// minted before the send (and round-tripped to the provider) and RequestID is
// the provider's identifier. For OutcomeFailed, Error carries the sender's
// failure message.
type ReviewOutcome struct {
	Item      db.QueueItem
	Kind      OutcomeKind
	SentID    uuid.UUID
	RequestID string
	Error     string
}

// ─── METHODS ─────────────────────────────────────────────────────────────────

// CommitReview applies the outcomes of one review call in a single
// transaction. Per outcome:
//
//   - sent: insert the global sent_emails row and the per-identity
//     sent_email_refs row (same id), delete the queue row, index → sent.
//   - rejected: delete the queue row, index → rejected.
//   - failed: delete the queue row (a failed send must not sit in the queue
//     retrying forever), index → failed with the error message.
//
// Every accepted item's side effects become durable together or not at all.
// The external send calls happened before this commit and are not covered by
// it — a send can have succeeded with the provider while this commit fails,
// in which case nothing is recorded locally and the response reports a store
// failure.
func (s *Store) CommitReview(ctx context.Context, outcomes []ReviewOutcome) error {
	if len(outcomes) == 0 {
		return nil
	}

	return s.withTx(ctx, func(ctx context.Context, q db.Querier) error {
		for _, o := range outcomes {
			if err := q.DeleteQueueItem(ctx, o.Item.ID); err != nil {
				return fmt.Errorf("CommitReview: delete queue item %s: %w", o.Item.ID, err)
			}

			switch o.Kind {
			case OutcomeSent:
				if _, err := q.InsertSentEmail(ctx, db.InsertSentEmailParams{
					ID:          o.SentID,
					Email:       o.Item.Email,
					Name:        o.Item.Name,
					Template:    o.Item.Template,
					FromEmail:   o.Item.FromEmail,
					RequestedBy: o.Item.RequestedBy,
					Status:      db.StatusSent,
					RequestID:   o.RequestID,
				}); err != nil {
					return fmt.Errorf("CommitReview: insert sent record for %q: %w", o.Item.Email, err)
				}
				if _, err := q.InsertSentEmailRef(ctx, db.InsertSentEmailRefParams{
					ID:          o.SentID,
					RequestedBy: o.Item.RequestedBy,
					Status:      db.StatusSent,
					RequestID:   o.RequestID,
				}); err != nil {
					return fmt.Errorf("CommitReview: insert sent ref for %q: %w", o.Item.Email, err)
				}
				if _, err := q.UpsertIdentityStatus(ctx, db.UpsertIdentityStatusParams{
					EmailKey: db.EmailKey(o.Item.Email),
					Email:    o.Item.Email,
					Status:   db.StatusSent,
					Source:   db.SourceSent,
				}); err != nil {
					return fmt.Errorf("CommitReview: index sent for %q: %w", o.Item.Email, err)
				}

			case OutcomeRejected:
				if _, err := q.UpsertIdentityStatus(ctx, db.UpsertIdentityStatusParams{
					EmailKey: db.EmailKey(o.Item.Email),
					Email:    o.Item.Email,
					Status:   db.StatusRejected,
					Source:   db.SourceQueued,
				}); err != nil {
					return fmt.Errorf("CommitReview: index rejected for %q: %w", o.Item.Email, err)
				}

			case OutcomeFailed:
				if _, err := q.UpsertIdentityStatus(ctx, db.UpsertIdentityStatusParams{
					EmailKey: db.EmailKey(o.Item.Email),
					Email:    o.Item.Email,
					Status:   db.StatusFailed,
					Source:   db.SourceQueued,
					Error:    sql.NullString{String: o.Error, Valid: o.Error != ""},
				}); err != nil {
					return fmt.Errorf("CommitReview: index failed for %q: %w", o.Item.Email, err)
				}

			default:
				return fmt.Errorf("CommitReview: unknown outcome kind %q for %q", o.Kind, o.Item.Email)
			}
		}
		return nil
	})
}
