package db

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

// ─── STATUS VALUES ───────────────────────────────────────────────────────────

// EmailStatus is the lifecycle status carried by email_index rows and, after
// dispatch, refined on sent_emails rows by the provider callback.
type EmailStatus string

const (
	StatusQueued   EmailStatus = "queued"
	StatusSent     EmailStatus = "sent"
	StatusFailed   EmailStatus = "failed"
	StatusRejected EmailStatus = "rejected"

	// Post-dispatch refinements written by the status callback handler.
	StatusOpened  EmailStatus = "opened"
	StatusClicked EmailStatus = "clicked"
	StatusPending EmailStatus = "pending"
)

// Source values for email_index.source — which collection currently owns the
// authoritative record for the address.
const (
	SourceQueued = "queuedEmails"
	SourceSent   = "sentEmails"
)

// ─── ROW TYPES ───────────────────────────────────────────────────────────────

// QueueItem is a pending email request awaiting review. Rows in queued_emails
// are created once by intake and deleted by review — never updated in place.
type QueueItem struct {
	ID          uuid.UUID
	Email       string // normalized lowercase
	Name        sql.NullString
	Template    string
	FromEmail   string
	RequestedBy string
	RequestedAt time.Time
}

// IdentityEntry is one email_index row: the dedup ledger entry for a single
// normalized address, keyed by its content hash.
type IdentityEntry struct {
	EmailKey    string // hex SHA-256 of the normalized address
	Email       string // plaintext, denormalized for display
	Status      EmailStatus
	Source      string
	Error       sql.NullString
	LastUpdated time.Time
}

// SentEmail is the global record of a dispatched email.
type SentEmail struct {
	ID          uuid.UUID
	Email       string
	Name        sql.NullString
	Template    string
	FromEmail   string
	RequestedBy string
	Status      EmailStatus
	RequestID   string // provider-assigned id returned by the send call
	SentAt      time.Time
	LastEvent   pqtype.NullRawMessage // raw provider callback payload, if any
}

// SentEmailRef is the per-identity pointer into sent_emails. Its ID always
// equals the global row's ID; the two are written in the same transaction.
type SentEmailRef struct {
	ID          uuid.UUID
	RequestedBy string
	Status      EmailStatus
	RequestID   string
	SentAt      time.Time
}

// ─── EMAIL NORMALIZATION ─────────────────────────────────────────────────────

// NormalizeEmail trims and lowercases an address. Every email stored or looked
// up anywhere in this service goes through this first.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// EmailKey returns the hex SHA-256 of the normalized address — the email_index
// primary key. Hashing makes the index lookup a direct keyed fetch and keeps
// the key shape uniform regardless of address length.
func EmailKey(email string) string {
	sum := sha256.Sum256([]byte(NormalizeEmail(email)))
	return hex.EncodeToString(sum[:])
}
