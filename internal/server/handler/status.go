package handler

import (
	"net/http"
	"time"

	"github.com/alanyoungcy/marketfeed/internal/domain"
)

// StatusHandler serves the process mode and the outcome of the last sync.
type StatusHandler struct {
	Mode      string
	StartedAt time.Time
	// LastSync returns the most recent successful sync report, if any.
	LastSync func() (domain.SyncReport, bool)
}

// NewStatusHandler creates a StatusHandler. lastSync may be nil in serve-only
// mode.
func NewStatusHandler(mode string, lastSync func() (domain.SyncReport, bool)) *StatusHandler {
	return &StatusHandler{Mode: mode, StartedAt: time.Now().UTC(), LastSync: lastSync}
}

// GetStatus responds with the mode, uptime and last sync report.
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"mode":           h.Mode,
		"uptime_seconds": int64(time.Since(h.StartedAt).Seconds()),
	}
	if h.LastSync != nil {
		if report, ok := h.LastSync(); ok {
			body["last_sync"] = report
		}
	}
	writeJSON(w, http.StatusOK, body)
}
