package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/alanyoungcy/marketfeed/internal/domain"
)

// Error codes carried in the "error" field of every failure body.
const (
	codeBadRequest    = "bad_request"
	codeNotFound      = "not_found"
	codeFetchFailed   = "fetch_failed"
	codeInternalError = "internal_error"
)

// errorBody is the failure envelope.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// marketsErrorBody is the failure envelope of listing endpoints, which
// always carries an empty markets array.
type marketsErrorBody struct {
	Error   string          `json:"error"`
	Message string          `json:"message"`
	Markets []domain.Market `json:"markets"`
}

// writeJSON marshals v as JSON and writes it to the response with the given
// HTTP status code. If marshaling fails, it falls back to a plain-text 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal_error","message":"encode response"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError sends the JSON failure envelope.
func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorBody{Error: code, Message: msg})
}

func writeMarketsError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, marketsErrorBody{Error: code, Message: msg, Markets: []domain.Market{}})
}

// parseMarketsQuery reads the GET /markets parameters. Malformed numeric
// parameters fall back to their defaults; only an unknown platform is an
// error.
func parseMarketsQuery(r *http.Request) (domain.Query, bool) {
	v := r.URL.Query()

	platform, ok := domain.ParsePlatform(v.Get("platform"))
	if !ok {
		return domain.Query{}, false
	}

	q := domain.Query{
		Kind:      v.Get("kind"),
		SportType: v.Get("sportType"),
		Platform:  platform,
		Limit:     atoiOr(v.Get("limit"), 0),
		Week:      atoiOr(v.Get("week"), 0),
	}
	if s := strings.TrimSpace(v.Get("minVolume")); s != "" {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			q.MinVolume = &f
		}
	}
	return q.Normalize(), true
}

func atoiOr(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return n
}
