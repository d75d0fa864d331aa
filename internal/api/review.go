package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/sablemail/dispatch-backend/internal/dispatch"
)

// ─── POST /api/emails/review ─────────────────────────────────────────────────

type reviewRequest struct {
	Action   string   `json:"action"`
	QueueIDs []string `json:"queueIds"`
}

type reviewResponse struct {
	Message       string             `json:"message"`
	SentCount     int                `json:"sentCount"`
	RejectedCount int                `json:"rejectedCount"`
	FailedCount   int                `json:"failedCount"`
	Failed        []dispatch.Failure `json:"failed"`
}

// handleReview resolves a batch of queued ids. The payload is validated
// before any side effect: a bad action or an id list outside 1..MaxBatch is a
// 400 with nothing written and nothing sent. Ids that no longer exist are
// skipped silently — a concurrent review may have consumed them.
func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if !decode(w, r, &req) {
		return
	}

	action := dispatch.Action(req.Action)
	if action != dispatch.ActionApprove && action != dispatch.ActionReject {
		respondErr(w, http.StatusBadRequest, "action must be approve or reject")
		return
	}
	if len(req.QueueIDs) == 0 || len(req.QueueIDs) > dispatch.MaxBatch {
		respondErr(w, http.StatusBadRequest,
			fmt.Sprintf("queueIds must contain between 1 and %d ids", dispatch.MaxBatch))
		return
	}

	ids := make([]uuid.UUID, 0, len(req.QueueIDs))
	for _, raw := range req.QueueIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			respondErr(w, http.StatusBadRequest, "invalid queue id: "+raw)
			return
		}
		ids = append(ids, id)
	}

	actor := ""
	if claims := identityFrom(r.Context()); claims != nil {
		actor = claims.Subject
	}

	result, err := s.reviewer.Process(r.Context(), dispatch.Params{
		Action:   action,
		QueueIDs: ids,
		Actor:    actor,
	})
	if errors.Is(err, dispatch.ErrInvalidAction) || errors.Is(err, dispatch.ErrBatchSize) {
		respondErr(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("process review: %w", err))
		return
	}

	failed := result.Failed
	if failed == nil {
		failed = []dispatch.Failure{}
	}

	respond(w, http.StatusOK, reviewResponse{
		Message: fmt.Sprintf("%d sent, %d rejected, %d failed",
			result.SentCount, result.RejectedCount, result.FailedCount),
		SentCount:     result.SentCount,
		RejectedCount: result.RejectedCount,
		FailedCount:   result.FailedCount,
		Failed:        failed,
	})
}
