package db

import (
	"context"

	"github.com/google/uuid"
)

// Querier is the query surface the api, store, and dispatch packages depend
// on. *Queries is the production implementation; tests embed Querier in a
// stub struct and implement only the methods a test exercises.
type Querier interface {
	InsertQueueItem(ctx context.Context, p InsertQueueItemParams) (QueueItem, error)
	GetQueueItem(ctx context.Context, id uuid.UUID) (QueueItem, error)
	DeleteQueueItem(ctx context.Context, id uuid.UUID) error
	ListQueuedEmails(ctx context.Context, p ListQueuedEmailsParams) ([]QueueItem, error)

	GetIdentityEntry(ctx context.Context, emailKey string) (IdentityEntry, error)
	InsertIdentityEntryIfAbsent(ctx context.Context, p InsertIdentityEntryIfAbsentParams) (IdentityEntry, error)
	UpsertIdentityStatus(ctx context.Context, p UpsertIdentityStatusParams) (IdentityEntry, error)

	InsertSentEmail(ctx context.Context, p InsertSentEmailParams) (SentEmail, error)
	GetSentEmail(ctx context.Context, id uuid.UUID) (SentEmail, error)
	InsertSentEmailRef(ctx context.Context, p InsertSentEmailRefParams) (SentEmailRef, error)
	ListSentEmailRefs(ctx context.Context, requestedBy string, limit int32) ([]SentEmailRef, error)
	UpdateSentEmailStatus(ctx context.Context, p UpdateSentEmailStatusParams) (SentEmail, error)
}

var _ Querier = (*Queries)(nil)
