package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sablemail/dispatch-backend/internal/db"
)

// ─── INPUT TYPES ─────────────────────────────────────────────────────────────

// EnqueueEntry is one recipient in an intake batch.
type EnqueueEntry struct {
	Email string
	Name  string
}

// EnqueueBatchParams is everything the intake handler hands to the store after
// payload validation.
type EnqueueBatchParams struct {
	Entries     []EnqueueEntry
	Template    string
	FromEmail   string
	RequestedBy string
}

// ─── RESULT TYPES ────────────────────────────────────────────────────────────

// SkippedEntry reports an address that was not queued, carrying the status of
// its existing index entry so the caller can display why.
type SkippedEntry struct {
	Email  string
	Status db.EmailStatus
}

// EnqueueBatchResult is the outcome of one intake call.
type EnqueueBatchResult struct {
	Queued  []string
	Skipped []SkippedEntry
}

// ─── METHODS ─────────────────────────────────────────────────────────────────

// EnqueueBatch deduplicates an intake batch and queues the surviving
// addresses. It atomically, in one serializable transaction:
//
//  1. Normalizes every entry and keeps only the first occurrence per address
//     (first-seen wins — a later duplicate in the same batch never replaces
//     an earlier name).
//  2. For each survivor, performs a conditional create on email_index
//     (insert-if-absent). A conflict is the dedup signal: the existing
//     entry's status is fetched and the address reported as skipped.
//  3. For each address that won the conditional create, inserts a queue row
//     (status is implicit — queued_emails holds only queued items).
//
// Two concurrent submissions for the same brand-new address cannot both win:
// the conditional create is the arbiter, not a prior read. If any write fails
// the whole transaction rolls back — either every newly-queued address is
// durable or none are.
//
// A batch in which nothing survives performs its conditional creates, finds
// them all in conflict, and commits with zero queue rows written. That is a
// normal outcome, not an error.
func (s *Store) EnqueueBatch(ctx context.Context, p EnqueueBatchParams) (EnqueueBatchResult, error) {
	// In-batch dedup, first-seen wins.
	seen := make(map[string]bool, len(p.Entries))
	unique := make([]EnqueueEntry, 0, len(p.Entries))
	for _, entry := range p.Entries {
		email := db.NormalizeEmail(entry.Email)
		if email == "" || seen[email] {
			continue
		}
		seen[email] = true
		unique = append(unique, EnqueueEntry{Email: email, Name: entry.Name})
	}

	var result EnqueueBatchResult

	err := s.withTx(ctx, func(ctx context.Context, q db.Querier) error {
		for _, entry := range unique {
			key := db.EmailKey(entry.Email)

			_, err := q.InsertIdentityEntryIfAbsent(ctx, db.InsertIdentityEntryIfAbsentParams{
				EmailKey: key,
				Email:    entry.Email,
				Status:   db.StatusQueued,
				Source:   db.SourceQueued,
			})
			if errors.Is(err, sql.ErrNoRows) {
				// Already indexed — fetch the existing entry for its status.
				existing, getErr := q.GetIdentityEntry(ctx, key)
				if getErr != nil {
					return fmt.Errorf("EnqueueBatch: get existing index entry for %q: %w", entry.Email, getErr)
				}
				result.Skipped = append(result.Skipped, SkippedEntry{
					Email:  entry.Email,
					Status: existing.Status,
				})
				continue
			}
			if err != nil {
				return fmt.Errorf("EnqueueBatch: index conditional create for %q: %w", entry.Email, err)
			}

			name := sql.NullString{String: entry.Name, Valid: entry.Name != ""}
			if _, err := q.InsertQueueItem(ctx, db.InsertQueueItemParams{
				ID:          uuid.New(),
				Email:       entry.Email,
				Name:        name,
				Template:    p.Template,
				FromEmail:   p.FromEmail,
				RequestedBy: p.RequestedBy,
			}); err != nil {
				return fmt.Errorf("EnqueueBatch: insert queue item for %q: %w", entry.Email, err)
			}
			result.Queued = append(result.Queued, entry.Email)
		}
		return nil
	})
	if err != nil {
		return EnqueueBatchResult{}, err
	}

	return result, nil
}
