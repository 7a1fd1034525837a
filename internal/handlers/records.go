package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gi8lino/jiramirror/internal/auth"
	"github.com/gi8lino/jiramirror/internal/state"
)

type recordResponse struct {
	JiraIssueKey      string     `json:"jira_issue_key"`
	GitHubIssueNumber int        `json:"github_issue_number"`
	GitHubIssueURL    string     `json:"github_issue_url"`
	Comments          int        `json:"comments"`
	SyncedAt          time.Time  `json:"synced_at"`
	ExpiresAt         *time.Time `json:"expires_at,omitempty"`
}

// RecordHandler returns the sync record linkage for {key}. The request is
// authenticated with a signature over the empty body.
func RecordHandler(authn *auth.Authenticator, store state.Store, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d := authn.Signed(r.Header, nil); !d.OK() {
			logRejection(logger, r, d)
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		key := r.PathValue("key")
		rec, err := store.Get(r.Context(), key)
		if errors.Is(err, state.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		if err != nil {
			logger.Error("loading sync record failed", "issue", key, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		out := recordResponse{
			JiraIssueKey:      rec.JiraIssueKey,
			GitHubIssueNumber: rec.GitHubIssueNumber,
			GitHubIssueURL:    rec.GitHubIssueURL,
			Comments:          len(rec.Comments),
			SyncedAt:          rec.SyncedAt,
		}
		if !rec.ExpiresAt.IsZero() {
			out.ExpiresAt = &rec.ExpiresAt
		}
		writeJSON(w, http.StatusOK, out)
	}
}
