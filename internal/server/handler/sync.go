package handler

import (
	"log/slog"
	"net/http"
	"time"
)

// SyncHandler serves the sync trigger endpoint.
type SyncHandler struct {
	logger    *slog.Logger
	triggerCh chan<- struct{}
}

// NewSyncHandler creates a SyncHandler. A nil channel accepts requests but
// triggers nothing, which is the case when this process runs no sync loop.
func NewSyncHandler(triggerCh chan<- struct{}, logger *slog.Logger) *SyncHandler {
	return &SyncHandler{triggerCh: triggerCh, logger: logger}
}

// TriggerSync enqueues one sync run with a non-blocking send.
// POST /api/sync/trigger
func (h *SyncHandler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	queued := false
	if h.triggerCh != nil {
		select {
		case h.triggerCh <- struct{}{}:
			queued = true
		default:
			// already triggered and not yet consumed
		}
	}
	h.logger.InfoContext(r.Context(), "sync trigger requested", slog.Bool("queued", queued))
	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":       "accepted",
		"queued":       queued,
		"requested_at": time.Now().UTC().Format(time.RFC3339),
	})
}
