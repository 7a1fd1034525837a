package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gi8lino/jiramirror/internal/auth"
	"github.com/gi8lino/jiramirror/internal/middleware"
)

// MaxBodyBytes bounds inbound request bodies.
const MaxBodyBytes = 1 << 20

// errorBody is the only shape returned on failures. It never carries
// upstream error text.
type errorBody struct {
	Error  string `json:"error"`
	Issue  string `json:"issue,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// writeJSON writes v with status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v) // nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// readBody reads the raw body. It reports 413 for oversized bodies and 400
// for anything else that breaks the read.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, int, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, http.StatusRequestEntityTooLarge, err
		}
		return nil, http.StatusBadRequest, err
	}
	return body, http.StatusOK, nil
}

// logRejection writes the audit line for a refused request. Only a short
// prefix of a presented signature is logged.
func logRejection(logger *slog.Logger, r *http.Request, d auth.Decision) {
	logger.Warn("request rejected",
		"request_id", middleware.GetRequestID(r.Context()),
		"remote", r.RemoteAddr,
		"path", r.URL.Path,
		"result", d.Result.String(),
		"reason", d.Reason,
		"jira_webhook_id", r.Header.Get(auth.HeaderJiraWebhook),
		"user_agent", r.UserAgent(),
		"signature", signaturePrefix(r.Header.Get(auth.HeaderSignature)),
	)
}

func signaturePrefix(sig string) string {
	sig = strings.TrimPrefix(sig, "sha256=")
	if len(sig) > 8 {
		return sig[:8] + "..."
	}
	return sig
}
