package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gi8lino/jiramirror/internal/auth"
	"github.com/gi8lino/jiramirror/internal/syncer"
)

// SyncRunner runs one scheduled sync.
type SyncRunner interface {
	RunScheduledSync(ctx context.Context) (syncer.Summary, error)
}

// TriggerSync runs a scheduled sync on demand and returns its summary. The
// request body must be signed.
func TriggerSync(authn *auth.Authenticator, runner SyncRunner, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, status, err := readBody(w, r)
		if err != nil {
			writeError(w, status, http.StatusText(status))
			return
		}

		if d := authn.Signed(r.Header, body); !d.OK() {
			logRejection(logger, r, d)
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		summary, err := runner.RunScheduledSync(r.Context())
		if err != nil {
			logger.Error("manual sync failed", "error", err)
			writeError(w, http.StatusBadGateway, "scheduled sync failed")
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}
