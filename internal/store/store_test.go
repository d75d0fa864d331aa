package store_test

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/sablemail/dispatch-backend/internal/db"
	"github.com/sablemail/dispatch-backend/internal/store"
)

// ─── TEST INFRASTRUCTURE ──────────────────────────────────────────────────────

// openTestDB returns a *sql.DB from DATABASE_URL. Skips if the env var is
// not set so the test suite still passes in CI without a Postgres instance.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set — skipping store integration tests")
	}
	pool, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	if err := pool.PingContext(context.Background()); err != nil {
		pool.Close()
		t.Fatalf("ping: %v", err)
	}
	t.Cleanup(func() { pool.Close() })
	return pool
}

// testEmail returns an address unique to this test run so tests never
// collide with each other or with leftovers from aborted runs.
func testEmail(t *testing.T) string {
	t.Helper()
	return fmt.Sprintf("it-%s@store-test.local", uuid.New())
}

// cleanupEmail removes every row an address may have accumulated across all
// four tables. Registered via t.Cleanup so failed tests clean up too.
func cleanupEmail(t *testing.T, pool *sql.DB, email string) {
	t.Helper()
	t.Cleanup(func() {
		ctx := context.Background()
		key := db.EmailKey(email)
		pool.ExecContext(ctx, `DELETE FROM sent_email_refs WHERE id IN (SELECT id FROM sent_emails WHERE email = $1)`, email)
		pool.ExecContext(ctx, `DELETE FROM sent_emails WHERE email = $1`, email)
		pool.ExecContext(ctx, `DELETE FROM queued_emails WHERE email = $1`, email)
		pool.ExecContext(ctx, `DELETE FROM email_index WHERE email_key = $1`, key)
	})
}

// findQueueItem locates the queue row for an address via the listing query.
func findQueueItem(t *testing.T, q db.Querier, email string) db.QueueItem {
	t.Helper()
	items, err := q.ListQueuedEmails(context.Background(), db.ListQueuedEmailsParams{Limit: 100})
	if err != nil {
		t.Fatalf("list queued: %v", err)
	}
	for _, item := range items {
		if item.Email == email {
			return item
		}
	}
	t.Fatalf("no queue row for %s", email)
	return db.QueueItem{}
}

func enqueueOne(t *testing.T, s *store.Store, email, name string) store.EnqueueBatchResult {
	t.Helper()
	result, err := s.EnqueueBatch(context.Background(), store.EnqueueBatchParams{
		Entries:     []store.EnqueueEntry{{Email: email, Name: name}},
		Template:    "claim-update",
		FromEmail:   "claims@mg.sablemail.com",
		RequestedBy: "it-admin",
	})
	if err != nil {
		t.Fatalf("enqueue batch: %v", err)
	}
	return result
}

// ─── EnqueueBatch ─────────────────────────────────────────────────────────────

func TestEnqueueBatch_NewAddressQueuedAndIndexed(t *testing.T) {
	pool := openTestDB(t)
	q := db.New(pool)
	s := store.New(pool, q)
	ctx := context.Background()

	email := testEmail(t)
	cleanupEmail(t, pool, email)

	result := enqueueOne(t, s, email, "First Last")
	if len(result.Queued) != 1 || result.Queued[0] != email {
		t.Fatalf("queued: %+v", result)
	}
	if len(result.Skipped) != 0 {
		t.Fatalf("skipped: %+v", result.Skipped)
	}

	entry, err := q.GetIdentityEntry(ctx, db.EmailKey(email))
	if err != nil {
		t.Fatalf("get index entry: %v", err)
	}
	if entry.Status != db.StatusQueued || entry.Source != db.SourceQueued {
		t.Errorf("index entry: %+v", entry)
	}

	item := findQueueItem(t, q, email)
	if item.Name.String != "First Last" || item.Template != "claim-update" {
		t.Errorf("queue item: %+v", item)
	}
}

func TestEnqueueBatch_ResubmissionSkippedWithExistingStatus(t *testing.T) {
	pool := openTestDB(t)
	s := store.New(pool, db.New(pool))

	email := testEmail(t)
	cleanupEmail(t, pool, email)

	enqueueOne(t, s, email, "")

	result := enqueueOne(t, s, email, "")
	if len(result.Queued) != 0 {
		t.Fatalf("resubmission must queue nothing, got %+v", result.Queued)
	}
	if len(result.Skipped) != 1 || result.Skipped[0].Status != db.StatusQueued {
		t.Fatalf("skipped: %+v", result.Skipped)
	}

	// Exactly one queue row despite two submissions.
	var n int
	if err := pool.QueryRow(`SELECT count(*) FROM queued_emails WHERE email = $1`, email).Scan(&n); err != nil {
		t.Fatalf("count queue rows: %v", err)
	}
	if n != 1 {
		t.Errorf("queue rows: got %d, want 1", n)
	}
}

func TestEnqueueBatch_InBatchDuplicateFirstSeenWins(t *testing.T) {
	pool := openTestDB(t)
	q := db.New(pool)
	s := store.New(pool, q)

	email := testEmail(t)
	cleanupEmail(t, pool, email)

	result, err := s.EnqueueBatch(context.Background(), store.EnqueueBatchParams{
		Entries: []store.EnqueueEntry{
			{Email: email, Name: "First"},
			{Email: "  " + email + "  ", Name: "Second"}, // same address after normalization
		},
		Template:    "claim-update",
		FromEmail:   "claims@mg.sablemail.com",
		RequestedBy: "it-admin",
	})
	if err != nil {
		t.Fatalf("enqueue batch: %v", err)
	}

	if len(result.Queued) != 1 {
		t.Fatalf("queued: %+v", result.Queued)
	}
	item := findQueueItem(t, q, email)
	if item.Name.String != "First" {
		t.Errorf("first occurrence must win, got name %q", item.Name.String)
	}
}

// ─── CommitReview ─────────────────────────────────────────────────────────────

func TestCommitReview_SentWritesGlobalAndRefWithSameID(t *testing.T) {
	pool := openTestDB(t)
	q := db.New(pool)
	s := store.New(pool, q)
	ctx := context.Background()

	email := testEmail(t)
	cleanupEmail(t, pool, email)
	enqueueOne(t, s, email, "Sender Target")
	item := findQueueItem(t, q, email)

	sentID := uuid.New()
	err := s.CommitReview(ctx, []store.ReviewOutcome{{
		Item:      item,
		Kind:      store.OutcomeSent,
		SentID:    sentID,
		RequestID: "<mg-msg-id>",
	}})
	if err != nil {
		t.Fatalf("commit review: %v", err)
	}

	// Queue row consumed.
	if _, err := q.GetQueueItem(ctx, item.ID); err != sql.ErrNoRows {
		t.Errorf("queue row should be gone, got err %v", err)
	}

	// Global record under the minted id.
	rec, err := q.GetSentEmail(ctx, sentID)
	if err != nil {
		t.Fatalf("get sent record: %v", err)
	}
	if rec.Email != email || rec.RequestID != "<mg-msg-id>" || rec.Status != db.StatusSent {
		t.Errorf("sent record: %+v", rec)
	}

	// Per-identity ref shares the id.
	refs, err := q.ListSentEmailRefs(ctx, "it-admin", 100)
	if err != nil {
		t.Fatalf("list refs: %v", err)
	}
	found := false
	for _, ref := range refs {
		if ref.ID == sentID {
			found = true
		}
	}
	if !found {
		t.Errorf("no ref with id %s in %+v", sentID, refs)
	}

	// Index advanced to sent under the sentEmails source.
	entry, err := q.GetIdentityEntry(ctx, db.EmailKey(email))
	if err != nil {
		t.Fatalf("get index entry: %v", err)
	}
	if entry.Status != db.StatusSent || entry.Source != db.SourceSent {
		t.Errorf("index entry: %+v", entry)
	}
}

func TestCommitReview_RejectedEvictsAndMarksIndex(t *testing.T) {
	pool := openTestDB(t)
	q := db.New(pool)
	s := store.New(pool, q)
	ctx := context.Background()

	email := testEmail(t)
	cleanupEmail(t, pool, email)
	enqueueOne(t, s, email, "")
	item := findQueueItem(t, q, email)

	if err := s.CommitReview(ctx, []store.ReviewOutcome{{
		Item: item,
		Kind: store.OutcomeRejected,
	}}); err != nil {
		t.Fatalf("commit review: %v", err)
	}

	if _, err := q.GetQueueItem(ctx, item.ID); err != sql.ErrNoRows {
		t.Errorf("queue row should be gone, got err %v", err)
	}
	entry, err := q.GetIdentityEntry(ctx, db.EmailKey(email))
	if err != nil {
		t.Fatalf("get index entry: %v", err)
	}
	if entry.Status != db.StatusRejected {
		t.Errorf("index status: got %s", entry.Status)
	}

	// Rejection never creates sent records.
	var n int
	if err := pool.QueryRow(`SELECT count(*) FROM sent_emails WHERE email = $1`, email).Scan(&n); err != nil {
		t.Fatalf("count sent rows: %v", err)
	}
	if n != 0 {
		t.Errorf("sent rows: got %d, want 0", n)
	}
}

func TestCommitReview_FailedRecordsErrorOnIndex(t *testing.T) {
	pool := openTestDB(t)
	q := db.New(pool)
	s := store.New(pool, q)
	ctx := context.Background()

	email := testEmail(t)
	cleanupEmail(t, pool, email)
	enqueueOne(t, s, email, "")
	item := findQueueItem(t, q, email)

	if err := s.CommitReview(ctx, []store.ReviewOutcome{{
		Item:  item,
		Kind:  store.OutcomeFailed,
		Error: "provider: 400 bad address",
	}}); err != nil {
		t.Fatalf("commit review: %v", err)
	}

	entry, err := q.GetIdentityEntry(ctx, db.EmailKey(email))
	if err != nil {
		t.Fatalf("get index entry: %v", err)
	}
	if entry.Status != db.StatusFailed {
		t.Errorf("index status: got %s", entry.Status)
	}
	if !entry.Error.Valid || entry.Error.String != "provider: 400 bad address" {
		t.Errorf("index error: %+v", entry.Error)
	}
	if _, err := q.GetQueueItem(ctx, item.ID); err != sql.ErrNoRows {
		t.Errorf("failed items must not remain queued, got err %v", err)
	}
}

func TestCommitReview_EmptyOutcomesIsNoOp(t *testing.T) {
	pool := openTestDB(t)
	s := store.New(pool, db.New(pool))

	if err := s.CommitReview(context.Background(), nil); err != nil {
		t.Fatalf("empty commit: %v", err)
	}
}
