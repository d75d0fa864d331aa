package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/sablemail/dispatch-backend/internal/db"
	"github.com/sqlc-dev/pqtype"
)

// ─── POST /api/webhooks/mailgun ──────────────────────────────────────────────

// Mailgun delivers events with the correlation id we attached at send time
// under user-variables. Only the fields we read are declared; the full
// event-data object is stored raw on the record for audit.
type mailgunWebhookRequest struct {
	EventData json.RawMessage `json:"event-data"`
}

type mailgunEventData struct {
	Event         string `json:"event"`
	UserVariables struct {
		DocID string `json:"docId"`
	} `json:"user-variables"`
}

type webhookResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// eventStatus maps a Mailgun event type to the stored delivery status.
// Unrecognized events land on pending rather than being dropped, so a new
// provider event type never silently loses the callback.
func eventStatus(event string) db.EmailStatus {
	switch event {
	case "failed":
		return db.StatusFailed
	case "delivered":
		return db.StatusSent
	case "opened":
		return db.StatusOpened
	case "clicked":
		return db.StatusClicked
	default:
		return db.StatusPending
	}
}

// handleMailgunWebhook refines the delivery status of an existing sent
// record. It only ever updates — an event whose docId matches nothing is
// reported as a failure and creates no record.
func (s *Server) handleMailgunWebhook(w http.ResponseWriter, r *http.Request) {
	var req mailgunWebhookRequest
	if !decodeWebhook(w, r, &req) {
		return
	}

	if len(req.EventData) == 0 {
		respond(w, http.StatusBadRequest, webhookResponse{Success: false, Message: "missing event-data"})
		return
	}

	var eventData mailgunEventData
	if err := json.Unmarshal(req.EventData, &eventData); err != nil {
		respond(w, http.StatusBadRequest, webhookResponse{Success: false, Message: "malformed event-data"})
		return
	}
	if eventData.UserVariables.DocID == "" {
		respond(w, http.StatusBadRequest, webhookResponse{Success: false, Message: "missing docId"})
		return
	}

	docID, err := uuid.Parse(eventData.UserVariables.DocID)
	if err != nil {
		respond(w, http.StatusBadRequest, webhookResponse{Success: false, Message: "invalid docId"})
		return
	}

	status := eventStatus(eventData.Event)

	updated, err := s.q.UpdateSentEmailStatus(r.Context(), db.UpdateSentEmailStatusParams{
		ID:        docID,
		Status:    status,
		LastEvent: pqtype.NullRawMessage{RawMessage: req.EventData, Valid: true},
	})
	if errors.Is(err, sql.ErrNoRows) {
		s.logger.Warn("webhook: event for unknown sent record",
			"doc_id", docID,
			"event", eventData.Event,
			logField(r),
		)
		respond(w, http.StatusNotFound, webhookResponse{Success: false, Message: "no sent record for docId"})
		return
	}
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("update sent status: %w", err))
		return
	}

	s.logger.Info("webhook: status updated",
		"doc_id", updated.ID,
		"event", eventData.Event,
		"status", updated.Status,
		logField(r),
	)
	respond(w, http.StatusOK, webhookResponse{Success: true, Message: "status updated"})
}

// decodeWebhook is decode without DisallowUnknownFields: Mailgun payloads
// carry many fields beyond the ones this handler reads.
func decodeWebhook(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respond(w, http.StatusBadRequest, webhookResponse{Success: false, Message: "invalid request body"})
		return false
	}
	return true
}
