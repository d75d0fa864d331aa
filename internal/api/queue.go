package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/sablemail/dispatch-backend/internal/db"
	"github.com/sablemail/dispatch-backend/internal/store"
)

// ─── POST /api/emails/queue ──────────────────────────────────────────────────

type queueEntryInput struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type queueEmailsRequest struct {
	Entries   []queueEntryInput `json:"entries"`
	Template  string            `json:"template"`
	FromEmail string            `json:"fromEmail"`
	// UID identifies the submitter. Optional — defaults to the token subject.
	UID string `json:"uid"`
}

type skippedOutput struct {
	Email  string `json:"email"`
	Status string `json:"status"`
}

type queueEmailsResponse struct {
	Message      string          `json:"message"`
	QueuedCount  int             `json:"queuedCount"`
	SkippedCount int             `json:"skippedCount"`
	Queued       []string        `json:"queued"`
	Skipped      []skippedOutput `json:"skipped"`
}

// handleQueueEmails accepts a bulk recipient batch, deduplicates it against
// the email index, and queues the survivors for review. Addresses that are
// already indexed — whatever their status — are reported under skipped with
// that status; addresses that fail syntax validation are reported with
// status "invalid". A batch in which nothing survives is still a 200.
func (s *Server) handleQueueEmails(w http.ResponseWriter, r *http.Request) {
	var req queueEmailsRequest
	if !decode(w, r, &req) {
		return
	}

	if len(req.Entries) == 0 {
		respondErr(w, http.StatusBadRequest, "entries must not be empty")
		return
	}
	if req.Template == "" {
		respondErr(w, http.StatusBadRequest, "template is required")
		return
	}
	if req.FromEmail == "" {
		respondErr(w, http.StatusBadRequest, "fromEmail is required")
		return
	}

	requestedBy := req.UID
	if requestedBy == "" {
		if claims := identityFrom(r.Context()); claims != nil {
			requestedBy = claims.Subject
		}
	}
	if requestedBy == "" {
		respondErr(w, http.StatusBadRequest, "uid is required")
		return
	}

	// Split out entries that fail address syntax before they reach the store.
	var invalid []skippedOutput
	entries := make([]store.EnqueueEntry, 0, len(req.Entries))
	for _, entry := range req.Entries {
		email := db.NormalizeEmail(entry.Email)
		if err := s.validate.Var(email, "required,email"); err != nil {
			invalid = append(invalid, skippedOutput{Email: email, Status: "invalid"})
			continue
		}
		entries = append(entries, store.EnqueueEntry{Email: email, Name: entry.Name})
	}

	result := store.EnqueueBatchResult{}
	if len(entries) > 0 {
		var err error
		result, err = s.store.EnqueueBatch(r.Context(), store.EnqueueBatchParams{
			Entries:     entries,
			Template:    req.Template,
			FromEmail:   req.FromEmail,
			RequestedBy: requestedBy,
		})
		if err != nil {
			s.respondInternalErr(w, r, fmt.Errorf("enqueue batch: %w", err))
			return
		}
	}

	skipped := make([]skippedOutput, 0, len(result.Skipped)+len(invalid))
	for _, sk := range result.Skipped {
		skipped = append(skipped, skippedOutput{Email: sk.Email, Status: string(sk.Status)})
	}
	skipped = append(skipped, invalid...)

	queued := result.Queued
	if queued == nil {
		queued = []string{}
	}

	s.logger.Info("intake: batch processed",
		"requested_by", requestedBy,
		"queued", len(queued),
		"skipped", len(skipped),
		logField(r),
	)

	respond(w, http.StatusOK, queueEmailsResponse{
		Message:      fmt.Sprintf("%d queued, %d skipped", len(queued), len(skipped)),
		QueuedCount:  len(queued),
		SkippedCount: len(skipped),
		Queued:       queued,
		Skipped:      skipped,
	})
}

// ─── GET /api/emails/queued ──────────────────────────────────────────────────

type queueItemOutput struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Name        string `json:"name,omitempty"`
	Template    string `json:"template"`
	FromEmail   string `json:"fromEmail"`
	Status      string `json:"status"`
	RequestedBy string `json:"requestedBy"`
	RequestedAt string `json:"requestedAt"`
}

type listQueuedResponse struct {
	Emails     []queueItemOutput `json:"emails"`
	NextCursor string            `json:"nextCursor,omitempty"`
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// handleListQueued pages through pending queue items, newest first. The
// cursor is the id of the last item of the previous page; an empty
// nextCursor means the final page.
func (s *Server) handleListQueued(w http.ResponseWriter, r *http.Request) {
	limit := defaultPageSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondErr(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if n > maxPageSize {
			n = maxPageSize
		}
		limit = n
	}

	var cursor uuid.NullUUID
	if raw := r.URL.Query().Get("cursor"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			respondErr(w, http.StatusBadRequest, "invalid cursor")
			return
		}
		cursor = uuid.NullUUID{UUID: id, Valid: true}
	}

	items, err := s.q.ListQueuedEmails(r.Context(), db.ListQueuedEmailsParams{
		Cursor: cursor,
		Limit:  int32(limit),
	})
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("list queued emails: %w", err))
		return
	}

	emails := make([]queueItemOutput, len(items))
	for i, item := range items {
		emails[i] = queueItemOutput{
			ID:          item.ID.String(),
			Email:       item.Email,
			Name:        item.Name.String,
			Template:    item.Template,
			FromEmail:   item.FromEmail,
			Status:      string(db.StatusQueued),
			RequestedBy: item.RequestedBy,
			RequestedAt: item.RequestedAt.UTC().Format("2006-01-02T15:04:05Z"),
		}
	}

	resp := listQueuedResponse{Emails: emails}
	if len(items) == limit {
		resp.NextCursor = items[len(items)-1].ID.String()
	}

	respond(w, http.StatusOK, resp)
}

// ─── GET /api/emails/sent ────────────────────────────────────────────────────

type sentRefOutput struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	RequestID string `json:"requestId"`
	SentAt    string `json:"sentAt"`
}

// handleListSent returns the caller's own sent-email references — the
// lightweight per-identity pointers, not the global records.
func (s *Server) handleListSent(w http.ResponseWriter, r *http.Request) {
	claims := identityFrom(r.Context())
	if claims == nil {
		respondErr(w, http.StatusUnauthorized, "missing identity")
		return
	}

	refs, err := s.q.ListSentEmailRefs(r.Context(), claims.Subject, maxPageSize)
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("list sent refs: %w", err))
		return
	}

	out := make([]sentRefOutput, len(refs))
	for i, ref := range refs {
		out[i] = sentRefOutput{
			ID:        ref.ID.String(),
			Status:    string(ref.Status),
			RequestID: ref.RequestID,
			SentAt:    ref.SentAt.UTC().Format("2006-01-02T15:04:05Z"),
		}
	}

	respond(w, http.StatusOK, map[string]any{"emails": out})
}
