// Package dispatch contains the review engine: the component that resolves a
// batch of queued email ids into sent, rejected, or failed outcomes and
// commits all of them in one store transaction. It is decoupled from the HTTP
// layer: the api package holds the Reviewer interface and never imports the
// concrete Engine dependencies beyond construction in main.
package dispatch

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/sablemail/dispatch-backend/internal/db"
	"github.com/sablemail/dispatch-backend/internal/email"
	"github.com/sablemail/dispatch-backend/internal/store"
)

// Action is the reviewer's decision for a batch.
type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
)

// MaxBatch caps the ids per review call. The bound keeps each call's atomic
// commit small and limits the blast radius of a partial failure.
const MaxBatch = 10

// ─── ERRORS ──────────────────────────────────────────────────────────────────

// ErrInvalidAction is returned for an action other than approve or reject.
// No side effects have occurred when it is returned.
var ErrInvalidAction = errors.New("dispatch: action must be approve or reject")

// ErrBatchSize is returned when the id list is empty or exceeds MaxBatch.
// No side effects have occurred when it is returned.
var ErrBatchSize = fmt.Errorf("dispatch: between 1 and %d queue ids required", MaxBatch)

// ─── TYPES ───────────────────────────────────────────────────────────────────

// Params is one review call.
type Params struct {
	Action   Action
	QueueIDs []uuid.UUID
	// Actor identifies the reviewing admin, for logging only.
	Actor string
}

// Failure reports one recipient whose send was attempted and refused.
type Failure struct {
	Email  string `json:"email"`
	Reason string `json:"reason"`
}

// Result summarizes the locally-committed outcomes of a review call.
type Result struct {
	SentCount     int
	RejectedCount int
	FailedCount   int
	Failed        []Failure
}

// Reviewer is the narrow interface the api package depends on. The concrete
// implementation is *Engine; tests substitute a stub.
type Reviewer interface {
	Process(ctx context.Context, p Params) (Result, error)
}

// Committer is the slice of store.Store the engine needs for its final
// commit. Kept narrow so engine tests run without a database.
type Committer interface {
	CommitReview(ctx context.Context, outcomes []store.ReviewOutcome) error
}

// Engine resolves review batches. Safe for concurrent use — it holds no
// per-call state.
type Engine struct {
	q      db.Querier
	store  Committer
	sender email.Sender
	logger *slog.Logger
}

// NewEngine constructs an Engine.
func NewEngine(q db.Querier, st Committer, sender email.Sender, logger *slog.Logger) *Engine {
	return &Engine{q: q, store: st, sender: sender, logger: logger}
}

// ─── PROCESS ─────────────────────────────────────────────────────────────────

// Process resolves one review call.
//
// Each id is fetched from the queue; a missing item is silently skipped — a
// concurrent call may have processed it already. Rejections never touch the
// provider. Approvals mint the sent-record id first, hand it to the sender as
// the callback correlation id, and record the send result (success or
// failure) as that item's outcome. A failed send still evicts the item from
// the queue — failure is terminal for the attempt, and re-queueing requires
// manual index eviction.
//
// All outcomes accumulate and commit once at the end. The send calls are not
// inside that transaction; if the commit fails after a provider accepted a
// send, nothing is recorded locally and the error surfaces to the caller.
func (e *Engine) Process(ctx context.Context, p Params) (Result, error) {
	if p.Action != ActionApprove && p.Action != ActionReject {
		return Result{}, ErrInvalidAction
	}
	if len(p.QueueIDs) == 0 || len(p.QueueIDs) > MaxBatch {
		return Result{}, ErrBatchSize
	}

	var result Result
	outcomes := make([]store.ReviewOutcome, 0, len(p.QueueIDs))

	for _, id := range p.QueueIDs {
		item, err := e.q.GetQueueItem(ctx, id)
		if errors.Is(err, sql.ErrNoRows) {
			e.logger.Debug("dispatch: queue item gone, skipping", "queue_id", id, "actor", p.Actor)
			continue
		}
		if err != nil {
			return Result{}, fmt.Errorf("dispatch: get queue item %s: %w", id, err)
		}

		if p.Action == ActionReject {
			outcomes = append(outcomes, store.ReviewOutcome{
				Item: item,
				Kind: store.OutcomeRejected,
			})
			result.RejectedCount++
			continue
		}

		// Approve: mint the record id before the send so the provider can
		// round-trip it in callback events.
		sentID := uuid.New()
		requestID, sendErr := e.sender.SendTemplate(ctx, email.SendTemplateParams{
			To:       item.Email,
			Name:     item.Name.String,
			From:     item.FromEmail,
			Template: item.Template,
			DocID:    sentID.String(),
		})
		if sendErr != nil {
			e.logger.Warn("dispatch: send failed",
				"email", item.Email,
				"queue_id", item.ID,
				"error", sendErr,
			)
			outcomes = append(outcomes, store.ReviewOutcome{
				Item:  item,
				Kind:  store.OutcomeFailed,
				Error: sendErr.Error(),
			})
			result.FailedCount++
			result.Failed = append(result.Failed, Failure{
				Email:  item.Email,
				Reason: sendErr.Error(),
			})
			continue
		}

		outcomes = append(outcomes, store.ReviewOutcome{
			Item:      item,
			Kind:      store.OutcomeSent,
			SentID:    sentID,
			RequestID: requestID,
		})
		result.SentCount++
	}

	if err := e.store.CommitReview(ctx, outcomes); err != nil {
		return Result{}, fmt.Errorf("dispatch: commit review: %w", err)
	}

	e.logger.Info("dispatch: review committed",
		"action", p.Action,
		"actor", p.Actor,
		"sent", result.SentCount,
		"rejected", result.RejectedCount,
		"failed", result.FailedCount,
	)
	return result, nil
}
